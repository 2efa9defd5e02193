package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Judgment is the DB entity persisted in the judgments table: one row per
// defendant of a registered judgment event.
type Judgment struct {
	ID               string           `db:"id"`
	IssuerID         string           `db:"issuer_id"`
	JudgmentID       string           `db:"judgment_id"` // core id + "-1" | "-2"
	JudgmentCoreID   string           `db:"judgment_core_id"`
	DefendantNo      int              `db:"defendant_no"`
	EventTimestamp   time.Time        `db:"event_timestamp"`
	SiteID           string           `db:"site_id"`
	CourtCode        string           `db:"court_code"`
	CaseReference    string           `db:"case_reference"`
	CaseNumber       string           `db:"case_number"`
	Total            decimal.Decimal  `db:"total"`
	OrderDate        time.Time        `db:"order_date"`
	RegistrationType RegistrationType `db:"registration_type"`
	CancellationDate *time.Time       `db:"cancellation_date"`
	DefendantName    string           `db:"defendant_name"`
	AddressLine1     *string          `db:"address_line1"`
	AddressLine2     *string          `db:"address_line2"`
	AddressLine3     *string          `db:"address_line3"`
	AddressLine4     *string          `db:"address_line4"`
	AddressLine5     *string          `db:"address_line5"`
	Postcode         *string          `db:"postcode"`
	DateOfBirth      *time.Time       `db:"date_of_birth"`
	ReportedToRTL    *time.Time       `db:"reported_to_rtl"` // nullable: pending export
	Version          int64            `db:"version"`
	CreatedAt        time.Time        `db:"created_at"`
}

// JudgmentKey identifies every record derived from one inbound event.
type JudgmentKey struct {
	IssuerID       string
	CoreID         string
	EventTimestamp time.Time
	CaseReference  string
}

func (k JudgmentKey) String() string {
	return fmt.Sprintf("%s/%s@%s/%s", k.IssuerID, k.CoreID, k.EventTimestamp.Format(time.RFC3339Nano), k.CaseReference)
}

func (j Judgment) Key() JudgmentKey {
	return JudgmentKey{
		IssuerID:       j.IssuerID,
		CoreID:         j.JudgmentCoreID,
		EventTimestamp: j.EventTimestamp,
		CaseReference:  j.CaseReference,
	}
}

// DefendantJudgmentID builds the stored judgment id for the n-th defendant.
func DefendantJudgmentID(coreID string, n int) string {
	return fmt.Sprintf("%s-%d", coreID, n)
}

// Suffix returns the defendant suffix ("-1", "-2") of the stored judgment id.
func (j Judgment) Suffix() string {
	if i := strings.LastIndex(j.JudgmentID, "-"); i >= 0 {
		return j.JudgmentID[i:]
	}
	return ""
}

// AddressLines returns the five address slots in order; absent lines are nil.
func (j Judgment) AddressLines() [MaxAddressLines]*string {
	return [MaxAddressLines]*string{j.AddressLine1, j.AddressLine2, j.AddressLine3, j.AddressLine4, j.AddressLine5}
}

// SameContent compares every business field except identity, version and
// export bookkeeping.
func (j Judgment) SameContent(o Judgment) bool {
	if j.SiteID != o.SiteID ||
		j.CourtCode != o.CourtCode ||
		j.CaseNumber != o.CaseNumber ||
		!j.Total.Equal(o.Total) ||
		!sameDate(&j.OrderDate, &o.OrderDate) ||
		j.RegistrationType != o.RegistrationType ||
		!sameDate(j.CancellationDate, o.CancellationDate) ||
		j.DefendantName != o.DefendantName ||
		!sameString(j.Postcode, o.Postcode) ||
		!sameDate(j.DateOfBirth, o.DateOfBirth) {
		return false
	}
	a, b := j.AddressLines(), o.AddressLines()
	for i := range a {
		if !sameString(a[i], b[i]) {
			return false
		}
	}
	return true
}

func sameString(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// sameDate compares calendar dates; DB round-trips may change the location.
func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Format(dateLayout) == b.Format(dateLayout)
}
