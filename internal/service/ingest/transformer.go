package ingest

import (
	"strings"
	"time"

	"github.com/jmehdipour/judgment-gateway/internal/model"
	"github.com/jmehdipour/judgment-gateway/internal/normalize"
	"github.com/jmehdipour/judgment-gateway/internal/util"
)

// Transformer expands an inbound event into one Judgment per defendant.
type Transformer struct {
	norm  *normalize.Normalizer
	newID func() string
}

func NewTransformer(norm *normalize.Normalizer) *Transformer {
	return &Transformer{norm: norm, newID: util.New}
}

// Expand always yields the "-1" record and adds "-2" when a second
// defendant is present. Free text is normalised and cut to the export
// widths; every other field is copied as received.
func (t *Transformer) Expand(ev model.InboundEvent, courtCode string) []model.Judgment {
	// Stored at microsecond precision, so lookups by key must use the same.
	ts := ev.EventTimestamp.UTC().Truncate(time.Microsecond)

	defendants := ev.Defendants()
	out := make([]model.Judgment, 0, len(defendants))
	for i, d := range defendants {
		n := i + 1
		j := model.Judgment{
			ID:               t.newID(),
			IssuerID:         ev.IssuerID,
			JudgmentID:       model.DefendantJudgmentID(ev.JudgmentID, n),
			JudgmentCoreID:   ev.JudgmentID,
			DefendantNo:      n,
			EventTimestamp:   ts,
			SiteID:           ev.SiteID,
			CourtCode:        courtCode,
			CaseReference:    ev.CaseReference,
			CaseNumber:       ev.CaseNumber,
			Total:            ev.Total,
			OrderDate:        ev.OrderDate.Time,
			RegistrationType: ev.RegistrationType,
			CancellationDate: ev.CancellationDate.TimePtr(),
			DefendantName:    t.text(d.Name, model.MaxNameLen),
			Postcode:         t.optional(d.Address.Postcode, model.MaxPostcodeLen),
			DateOfBirth:      d.DateOfBirth.TimePtr(),
		}

		var lines [model.MaxAddressLines]*string
		for k, line := range d.Address.Lines {
			if k == model.MaxAddressLines {
				break
			}
			v := t.text(line, model.MaxAddressLineLen)
			lines[k] = &v
		}
		j.AddressLine1, j.AddressLine2, j.AddressLine3, j.AddressLine4, j.AddressLine5 =
			lines[0], lines[1], lines[2], lines[3], lines[4]

		out = append(out, j)
	}
	return out
}

// optional maps a blank value to NULL.
func (t *Transformer) optional(s string, maxLen int) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	v := t.text(s, maxLen)
	return &v
}

// text normalises s and clips it to the column width. Normalised output is
// ASCII, so byte and character lengths agree.
func (t *Transformer) text(s string, maxLen int) string {
	s = t.norm.String(s, maxLen)
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	return s
}
