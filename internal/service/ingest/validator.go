package ingest

import (
	"time"

	"github.com/jmehdipour/judgment-gateway/internal/apperr"
	"github.com/jmehdipour/judgment-gateway/internal/model"
)

// Validator applies the business rules an event must pass before any
// lookup or write. The issuer allow-list is fixed at construction.
type Validator struct {
	issuers map[string]struct{}
}

func NewValidator(allowedIssuers []string) *Validator {
	m := make(map[string]struct{}, len(allowedIssuers))
	for _, id := range allowedIssuers {
		m[id] = struct{}{}
	}
	return &Validator{issuers: m}
}

func (v *Validator) ValidateIssuer(issuerID string) error {
	if _, ok := v.issuers[issuerID]; !ok {
		return apperr.ErrUnrecognisedIssuer.Withf("issuer=%q", issuerID)
	}
	return nil
}

// ValidateCancellationDate rejects cancelling registration types that carry
// no cancellation date. Other types may carry one or not.
func (v *Validator) ValidateCancellationDate(t model.RegistrationType, cancellationDate *time.Time) error {
	if t.RequiresCancellationDate() && cancellationDate == nil {
		return apperr.ErrMissingCancellationDate.Withf("type=%s", t.Code())
	}
	return nil
}
