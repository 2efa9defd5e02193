package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	MaxNameLen        = 70
	MaxAddressLineLen = 35
	MaxPostcodeLen    = 8
	MaxAddressLines   = 5
)

// InboundEvent is a judgment registration as submitted by an issuer.
// It is never stored as-is; see Judgment.
type InboundEvent struct {
	IssuerID         string           `json:"issuerId"`
	JudgmentID       string           `json:"judgmentId"`
	EventTimestamp   time.Time        `json:"eventTimestamp"`
	SiteID           string           `json:"siteId"`
	CaseReference    string           `json:"caseReference"`
	CaseNumber       string           `json:"caseNumber"`
	Total            decimal.Decimal  `json:"total"`
	OrderDate        Date             `json:"orderDate"`
	RegistrationType RegistrationType `json:"registrationType"`
	CancellationDate *Date            `json:"cancellationDate,omitempty"`
	Defendant1       Defendant        `json:"defendant1"`
	Defendant2       *Defendant       `json:"defendant2,omitempty"`
}

type Defendant struct {
	Name        string  `json:"name"`
	Address     Address `json:"address"`
	DateOfBirth *Date   `json:"dateOfBirth,omitempty"`
}

type Address struct {
	Lines    []string `json:"lines"`
	Postcode string   `json:"postcode"`
}

// Defendants returns the defendants present on the event, first one first.
func (e InboundEvent) Defendants() []Defendant {
	if e.Defendant2 == nil {
		return []Defendant{e.Defendant1}
	}
	return []Defendant{e.Defendant1, *e.Defendant2}
}

// CheckShape verifies the event carries every mandatory field. Business rules
// (issuer allow-list, cancellation dates) are checked by the ingest validator.
func (e InboundEvent) CheckShape() error {
	switch {
	case strings.TrimSpace(e.IssuerID) == "":
		return fmt.Errorf("issuerId is required")
	case strings.TrimSpace(e.JudgmentID) == "":
		return fmt.Errorf("judgmentId is required")
	case e.EventTimestamp.IsZero():
		return fmt.Errorf("eventTimestamp is required")
	case strings.TrimSpace(e.SiteID) == "":
		return fmt.Errorf("siteId is required")
	case strings.TrimSpace(e.CaseReference) == "":
		return fmt.Errorf("caseReference is required")
	case strings.TrimSpace(e.CaseNumber) == "":
		return fmt.Errorf("caseNumber is required")
	case e.OrderDate.IsZero():
		return fmt.Errorf("orderDate is required")
	case !e.RegistrationType.Valid():
		return fmt.Errorf("registrationType is required")
	}
	for i, d := range e.Defendants() {
		if strings.TrimSpace(d.Name) == "" {
			return fmt.Errorf("defendant%d.name is required", i+1)
		}
		if len(d.Address.Lines) > MaxAddressLines {
			return fmt.Errorf("defendant%d.address has more than %d lines", i+1, MaxAddressLines)
		}
	}
	return nil
}

// Date is a calendar date serialised as yyyy-MM-dd.
type Date struct{ time.Time }

const dateLayout = "2006-01-02"

// NewDate returns the date at midnight UTC.
func NewDate(y int, m time.Month, d int) Date {
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw == "" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return fmt.Errorf("date %q: %w", raw, err)
	}
	d.Time = t
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(dateLayout))
}

// TimePtr returns nil for a nil date.
func (d *Date) TimePtr() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}
