// Package rtl renders judgments into the fixed-width files the Register
// imports. Everything here is pure: the same input always yields the same
// bytes, which is what makes re-runs reproducible.
package rtl

import (
	"fmt"
	"strings"
	"time"

	"github.com/jmehdipour/judgment-gateway/internal/model"
	"github.com/shopspring/decimal"
)

// Field widths of a detail line.
const (
	CourtCodeWidth   = 3
	CaseNumberWidth  = 8
	AmountWidth      = 11
	DateWidth        = 8
	TypeWidth        = 1
	NameWidth        = model.MaxNameLen
	AddressWidth     = model.MaxAddressLineLen
	PostcodeWidth    = model.MaxPostcodeLen
	HeaderCountWidth = 10

	DetailLineWidth = CourtCodeWidth + CaseNumberWidth + AmountWidth + DateWidth + TypeWidth + DateWidth +
		NameWidth + model.MaxAddressLines*AddressWidth + PostcodeWidth + DateWidth
)

const dateLayout = "02012006" // ddMMyyyy

// HeaderLine renders the single line of a .hdr file.
func HeaderLine(count int, exportDate time.Time) string {
	return fmt.Sprintf("%-*d%s\n", HeaderCountWidth, count, exportDate.Format(dateLayout))
}

// DetailLine renders one judgment as a newline-terminated detail record.
func DetailLine(j model.Judgment) string {
	var b strings.Builder
	b.Grow(DetailLineWidth + 1)

	b.WriteString(pad(j.CourtCode, CourtCodeWidth))
	b.WriteString(pad(j.CaseNumber, CaseNumberWidth))
	b.WriteString(FormatAmount(j.Total))
	b.WriteString(j.OrderDate.Format(dateLayout))
	b.WriteString(pad(j.RegistrationType.Code(), TypeWidth))
	b.WriteString(optionalDate(j.CancellationDate))
	b.WriteString(pad(j.DefendantName, NameWidth))
	for _, line := range j.AddressLines() {
		b.WriteString(padPtr(line, AddressWidth))
	}
	b.WriteString(padPtr(j.Postcode, PostcodeWidth))
	b.WriteString(optionalDate(j.DateOfBirth))
	b.WriteByte('\n')

	return b.String()
}

// FormatAmount renders d like printf's %011.2f without going through float64.
func FormatAmount(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	if d.IsNegative() {
		return "-" + leftZeroPad(s, AmountWidth-1)
	}
	return leftZeroPad(s, AmountWidth)
}

func leftZeroPad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

func optionalDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return strings.Repeat(" ", DateWidth)
	}
	return t.Format(dateLayout)
}

func padPtr(s *string, width int) string {
	if s == nil {
		return strings.Repeat(" ", width)
	}
	return pad(*s, width)
}

// pad right-pads with spaces and truncates to exactly width characters.
func pad(s string, width int) string {
	r := []rune(s)
	if len(r) >= width {
		return string(r[:width])
	}
	return s + strings.Repeat(" ", width-len(r))
}
