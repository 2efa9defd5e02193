package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/jmehdipour/judgment-gateway/internal/rtl"
)

// ParseAsOf reads a re-run watermark given as RFC 3339, as an export file
// name, or as the bare yyyy-MM-dd-HH-mm-ss stamp of one. Stamps are local
// to loc, the zone file names are rendered in.
func ParseAsOf(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return Watermark(t), nil
	}
	if t, err := rtl.ParseFileTime(s, loc); err == nil {
		return Watermark(t), nil
	}
	if t, err := rtl.ParseFileTime("judgment-"+s, loc); err == nil {
		return Watermark(t), nil
	}
	return time.Time{}, fmt.Errorf("as-of %q: want RFC 3339, an export file name or yyyy-MM-dd-HH-mm-ss", s)
}
