package rtl

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmehdipour/judgment-gateway/internal/model"
)

func strptr(s string) *string { return &s }

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func sampleJudgment() model.Judgment {
	return model.Judgment{
		IssuerID:         "civil",
		JudgmentID:       "J1-1",
		JudgmentCoreID:   "J1",
		EventTimestamp:   time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC),
		CourtCode:        "123",
		CaseNumber:       "0AB12345",
		CaseReference:    "CR1",
		Total:            decimal.RequireFromString("11.00"),
		OrderDate:        day(2024, 1, 1),
		RegistrationType: model.RegistrationRegistered,
		DefendantName:    "A B",
		AddressLine1:     strptr("X"),
		Postcode:         strptr("AB1 1AB"),
	}
}

func TestDetailLine_Example(t *testing.T) {
	line := DetailLine(sampleJudgment())

	require.True(t, strings.HasSuffix(line, "\n"))
	body := strings.TrimSuffix(line, "\n")
	assert.Len(t, body, DetailLineWidth)

	assert.True(t, strings.HasPrefix(body, "1230AB1234500000011.0001012024R        A B"),
		"unexpected prefix %q", body[:50])

	off := CourtCodeWidth + CaseNumberWidth + AmountWidth + DateWidth + TypeWidth + DateWidth
	assert.Equal(t, "A B"+strings.Repeat(" ", NameWidth-3), body[off:off+NameWidth])
	off += NameWidth
	assert.Equal(t, "X"+strings.Repeat(" ", AddressWidth-1), body[off:off+AddressWidth])
	off += AddressWidth
	for i := 0; i < 4; i++ {
		assert.Equal(t, strings.Repeat(" ", AddressWidth), body[off:off+AddressWidth], "address line %d", i+2)
		off += AddressWidth
	}
	assert.Equal(t, "AB1 1AB ", body[off:off+PostcodeWidth])
	off += PostcodeWidth
	assert.Equal(t, strings.Repeat(" ", DateWidth), body[off:])
}

func TestDetailLine_OptionalDates(t *testing.T) {
	j := sampleJudgment()
	cancelled := day(2024, 3, 15)
	dob := day(1980, 12, 31)
	j.RegistrationType = model.RegistrationCancelled
	j.CancellationDate = &cancelled
	j.DateOfBirth = &dob

	body := strings.TrimSuffix(DetailLine(j), "\n")
	assert.Equal(t, "C15032024", body[30:39])
	assert.Equal(t, "31121980", body[len(body)-DateWidth:])
}

func TestDetailLine_TruncatesOverlongFields(t *testing.T) {
	j := sampleJudgment()
	j.DefendantName = strings.Repeat("N", 80)
	j.CourtCode = "12345"

	body := strings.TrimSuffix(DetailLine(j), "\n")
	assert.Len(t, body, DetailLineWidth)
	assert.Equal(t, "123", body[:3])
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"11", "00000011.00"},
		{"11.5", "00000011.50"},
		{"0", "00000000.00"},
		{"12345678.99", "12345678.99"},
		{"-11", "-0000011.00"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatAmount(decimal.RequireFromString(tt.in)))
		})
	}
}

func TestHeaderLine(t *testing.T) {
	assert.Equal(t, "2         15012024\n", HeaderLine(2, time.Date(2024, 1, 15, 23, 0, 0, 0, time.UTC)))
	assert.Equal(t, "0         01022024\n", HeaderLine(0, day(2024, 2, 1)))
}
