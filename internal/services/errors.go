package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/diewo77/recipes-app/validation"
	"gorm.io/gorm"
)

// Sentinel errors shared by all services. Handlers map them to HTTP statuses:
// ErrNotFound -> 404, ErrDuplicate -> form/conflict error.
var (
	ErrNotFound  = errors.New("not_found")
	ErrDuplicate = errors.New("already_exists")
)

// ValidationError carries per-field violations back to the form.
type ValidationError struct {
	Fields validation.Violations
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %v", e.Fields)
}

// AsValidation extracts a ValidationError if err is one.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}

// isDuplicate detects a unique-constraint violation across drivers.
// GORM only maps ErrDuplicatedKey with translation enabled, so keep the
// string fallback for sqlite and plain postgres errors.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}
