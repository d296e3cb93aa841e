package models

import (
	"errors"
	"fmt"
)

// ValidationReason classifies why a field failed validation.
type ValidationReason string

const (
	ReasonMissingKey  ValidationReason = "missing_key"
	ReasonUnknownEnum ValidationReason = "unknown_enum"
	ReasonOutOfRange  ValidationReason = "out_of_range"
)

// ValidationError reports a single field constraint violation on a record.
type ValidationError struct {
	Entity EntityType
	Field  string
	Reason ValidationReason
	Value  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validate %s: field %q %s (value %q)", e.Entity, e.Field, e.Reason, e.Value)
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
