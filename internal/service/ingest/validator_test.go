package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jmehdipour/judgment-gateway/internal/apperr"
	"github.com/jmehdipour/judgment-gateway/internal/model"
)

func TestValidator_ValidateIssuer(t *testing.T) {
	v := NewValidator([]string{"civil-service", "bulk"})

	assert.NoError(t, v.ValidateIssuer("civil-service"))
	assert.NoError(t, v.ValidateIssuer("bulk"))

	err := v.ValidateIssuer("unknown")
	assert.ErrorIs(t, err, apperr.ErrUnrecognisedIssuer)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestValidator_ValidateCancellationDate(t *testing.T) {
	v := NewValidator(nil)
	date := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	for _, rt := range model.RegistrationTypes {
		t.Run(string(rt), func(t *testing.T) {
			assert.NoError(t, v.ValidateCancellationDate(rt, &date), "a date is always acceptable")

			err := v.ValidateCancellationDate(rt, nil)
			switch rt {
			case model.RegistrationCancelled, model.RegistrationSatisfied, model.RegistrationAdminOrderRevoked:
				assert.ErrorIs(t, err, apperr.ErrMissingCancellationDate)
			default:
				assert.NoError(t, err)
			}
		})
	}
}
