// Package apperr defines the error kinds the repositories and services
// surface to their callers. Callers match them with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPayload     = errors.New("invalid payload")
	ErrNotFound           = errors.New("record not found")
	ErrNoRecordsUpdated   = errors.New("no records updated")
	ErrConflict           = errors.New("duplicate value")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrForbidden          = errors.New("forbidden")
)

// Conflict reports a unique-constraint violation and names the field
// whose uniqueness was violated. errors.Is(err, ErrConflict) matches it.
type Conflict struct {
	Field string
}

func (e *Conflict) Error() string {
	return fmt.Sprintf("duplicate value for %s", e.Field)
}

func (e *Conflict) Is(target error) bool {
	return target == ErrConflict
}
