package refdata

import (
	"context"
	"errors"
)

// ErrUnavailable is returned while the reference-data breaker is open.
var ErrUnavailable = errors.New("reference data service unavailable")

// CourtCodeResolver maps a site id to the court code written into export
// files. Sites without a court code yield apperr.ErrUnrecognisedSite; any
// other error is transient.
type CourtCodeResolver interface {
	Resolve(ctx context.Context, siteID string) (string, error)
}
