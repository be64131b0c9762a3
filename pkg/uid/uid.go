// Package uid generates the identifiers used for request tracing and audit records.
package uid

import "github.com/google/uuid"

// New returns a random (v4) identifier, used for request and update trace ids.
func New() string {
	return uuid.NewString()
}

// NewOrdered returns a time-ordered (v7) identifier. Purchase records use it so
// that sorting by id matches sorting by purchase time.
func NewOrdered() string {
	id, err := uuid.NewV7()
	if err != nil {
		return New()
	}
	return id.String()
}

// IsValid reports whether id parses as a canonical UUID.
func IsValid(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}
