package rtl

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jmehdipour/judgment-gateway/internal/model"
)

const (
	ExtHeader = "hdr"
	ExtDetail = "det"

	fileTimeLayout = "2006-01-02-15-04-05"
)

// Files is the content of one site's export batch.
type Files struct {
	Header []byte
	Detail []byte
	Count  int
}

// Build renders the header and detail files for records exported at
// exportedAt. Records are ordered deterministically first, so callers may
// pass them in any order.
func Build(records []model.Judgment, exportedAt time.Time) Files {
	sorted := make([]model.Judgment, len(records))
	copy(sorted, records)
	SortForExport(sorted)

	var det strings.Builder
	det.Grow(len(sorted) * (DetailLineWidth + 1))
	for _, j := range sorted {
		det.WriteString(DetailLine(j))
	}

	return Files{
		Header: []byte(HeaderLine(len(sorted), exportedAt)),
		Detail: []byte(det.String()),
		Count:  len(sorted),
	}
}

// SortForExport orders records by event time, then judgment id, then case
// reference.
func SortForExport(records []model.Judgment) {
	sort.SliceStable(records, func(a, b int) bool {
		ra, rb := records[a], records[b]
		if !ra.EventTimestamp.Equal(rb.EventTimestamp) {
			return ra.EventTimestamp.Before(rb.EventTimestamp)
		}
		if ra.JudgmentID != rb.JudgmentID {
			return ra.JudgmentID < rb.JudgmentID
		}
		return ra.CaseReference < rb.CaseReference
	})
}

// FileName returns judgment-<yyyy-MM-dd-HH-mm-ss>-<siteID>.<ext>.
func FileName(at time.Time, siteID, ext string) string {
	return fmt.Sprintf("judgment-%s-%s.%s", at.Format(fileTimeLayout), siteID, ext)
}

// ParseFileTime extracts the export watermark from a file name produced by
// FileName, interpreting it in loc.
func ParseFileTime(name string, loc *time.Location) (time.Time, error) {
	const prefix = "judgment-"
	if !strings.HasPrefix(name, prefix) || len(name) < len(prefix)+len(fileTimeLayout) {
		return time.Time{}, fmt.Errorf("not an export file name: %q", name)
	}
	return time.ParseInLocation(fileTimeLayout, name[len(prefix):len(prefix)+len(fileTimeLayout)], loc)
}
