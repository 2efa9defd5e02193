package apperr

import (
	"errors"
	"fmt"
)

// Kind groups errors by how a boundary (HTTP, Kafka, scheduler) should react.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindResolution  Kind = "resolution"
	KindConflict    Kind = "conflict"
	KindTransfer    Kind = "transfer"
	KindPersistence Kind = "persistence"
	KindInternal    Kind = "internal"
)

// Error is a typed application error with a stable external code.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error carrying the same code, so copies made with Withf or
// Wrap still satisfy errors.Is against the package sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Withf returns a copy of e with a more specific message.
func (e *Error) Withf(format string, args ...any) *Error {
	c := *e
	c.Message = e.Message + ": " + fmt.Sprintf(format, args...)
	return &c
}

// Wrap returns a copy of e wrapping the underlying cause.
func (e *Error) Wrap(err error) *Error {
	c := *e
	c.Err = err
	return &c
}

var (
	ErrUnrecognisedIssuer = &Error{
		Kind: KindValidation, Code: "UNRECOGNISED_ISSUER", Message: "issuer is not allowed to register judgments",
	}
	ErrMissingCancellationDate = &Error{
		Kind: KindValidation, Code: "MISSING_CANCELLATION_DATE", Message: "registration type requires a cancellation date",
	}
	ErrInvalidEvent = &Error{
		Kind: KindValidation, Code: "INVALID_EVENT", Message: "judgment event is malformed",
	}
	ErrUnrecognisedSite = &Error{
		Kind: KindResolution, Code: "UNRECOGNISED_SITE", Message: "site is not recognised",
	}
	ErrUpdateConflict = &Error{
		Kind: KindConflict, Code: "UPDATE_CONFLICT", Message: "judgment already registered with different content",
	}
	ErrDefendantCountMismatch = &Error{
		Kind: KindConflict, Code: "DEFENDANT_COUNT_MISMATCH", Message: "defendant count differs from registered judgment",
	}
	ErrTransfer = &Error{
		Kind: KindTransfer, Code: "TRANSFER_FAILED", Message: "file transfer failed",
	}
	ErrPersistence = &Error{
		Kind: KindPersistence, Code: "PERSISTENCE_FAILED", Message: "could not persist records",
	}
)

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the stable code of the first *Error in err's chain.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "INTERNAL"
}

// TransferError describes a failed upload for one site's export batch.
type TransferError struct {
	SiteID string
	Files  []string
	Err    error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer site=%s files=%d: %v", e.SiteID, len(e.Files), e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrTransfer) and KindOf recognise transfer failures.
func (e *TransferError) Is(target error) bool {
	return target == ErrTransfer
}

// As exposes TransferError as an *Error of KindTransfer.
func (e *TransferError) As(target any) bool {
	if t, ok := target.(**Error); ok {
		*t = ErrTransfer.Wrap(e.Err)
		return true
	}
	return false
}
