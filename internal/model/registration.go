package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// RegistrationType is the kind of register entry an event asks for.
type RegistrationType string

const (
	RegistrationRegistered           RegistrationType = "REGISTERED"
	RegistrationCancelled            RegistrationType = "CANCELLED"
	RegistrationSatisfied            RegistrationType = "SATISFIED"
	RegistrationModified             RegistrationType = "MODIFIED"
	RegistrationAdminOrderRegistered RegistrationType = "ADMIN_ORDER_REGISTERED"
	RegistrationAdminOrderRevoked    RegistrationType = "ADMIN_ORDER_REVOKED"
	RegistrationAdminOrderVaried     RegistrationType = "ADMIN_ORDER_VARIED"
)

// registrationCodes is the single-character code the register expects.
var registrationCodes = map[RegistrationType]string{
	RegistrationRegistered:           "R",
	RegistrationCancelled:            "C",
	RegistrationSatisfied:            "S",
	RegistrationModified:             "M",
	RegistrationAdminOrderRegistered: "A",
	RegistrationAdminOrderRevoked:    "V",
	RegistrationAdminOrderVaried:     "K",
}

// RegistrationTypes lists every member in declaration order.
var RegistrationTypes = []RegistrationType{
	RegistrationRegistered,
	RegistrationCancelled,
	RegistrationSatisfied,
	RegistrationModified,
	RegistrationAdminOrderRegistered,
	RegistrationAdminOrderRevoked,
	RegistrationAdminOrderVaried,
}

func (t RegistrationType) String() string { return string(t) }

func (t RegistrationType) Valid() bool {
	_, ok := registrationCodes[t]
	return ok
}

// Code returns the register code, or "" for an unknown type.
func (t RegistrationType) Code() string { return registrationCodes[t] }

// RequiresCancellationDate reports whether an event of this type must carry a
// cancellation date.
func (t RegistrationType) RequiresCancellationDate() bool {
	switch t {
	case RegistrationCancelled, RegistrationSatisfied, RegistrationAdminOrderRevoked:
		return true
	default:
		return false
	}
}

// ParseRegistrationType accepts either the enum name or the register code.
// Returns (value, true) if valid; otherwise ("", false).
func ParseRegistrationType(s string) (RegistrationType, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if t := RegistrationType(s); t.Valid() {
		return t, true
	}
	for t, code := range registrationCodes {
		if code == s {
			return t, true
		}
	}
	return "", false
}

func (t *RegistrationType) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	parsed, ok := ParseRegistrationType(raw)
	if !ok {
		return fmt.Errorf("unknown registration type %q", raw)
	}
	*t = parsed
	return nil
}

func (t RegistrationType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Code())
}

// Value stores the register code.
func (t RegistrationType) Value() (driver.Value, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid registration type %q", string(t))
	}
	return t.Code(), nil
}

func (t *RegistrationType) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("scan registration type: unsupported %T", src)
	}
	parsed, ok := ParseRegistrationType(s)
	if !ok {
		return fmt.Errorf("scan registration type: unknown code %q", s)
	}
	*t = parsed
	return nil
}
