package catalog

import (
	"errors"
	"fmt"

	"cardhub/pkg/models"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// ErrorKind classifies repository failures.
type ErrorKind string

const (
	// KindMissingDependency: a record references another entity (card →
	// faction) that is not in storage and cannot be created inline.
	KindMissingDependency ErrorKind = "missing_dependency"
	// KindConstraintViolation: a unique/foreign-key constraint fired.
	KindConstraintViolation ErrorKind = "constraint_violation"
	// KindTransactionAborted: the surrounding transaction could not commit;
	// none of the batch was applied.
	KindTransactionAborted ErrorKind = "transaction_aborted"
)

// Error is a typed repository failure tied to an entity and natural key.
type Error struct {
	Kind   ErrorKind
	Entity models.EntityType
	Key    string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("catalog %s: %s %q: %v", e.Kind, e.Entity, e.Key, e.Err)
	}
	return fmt.Sprintf("catalog %s: %s %q", e.Kind, e.Entity, e.Key)
}

func (e *Error) Unwrap() error { return e.Err }

func kindOf(err error) (ErrorKind, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return "", false
}

// IsMissingDependency reports whether err is a missing-dependency failure.
func IsMissingDependency(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindMissingDependency
}

// IsConstraintViolation reports whether err is a constraint failure.
func IsConstraintViolation(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindConstraintViolation
}

// wrapExec classifies a raw driver error from a write statement.
func wrapExec(entity models.EntityType, key string, err error) error {
	var serr sqlite3.Error
	if errors.As(err, &serr) && serr.Code == sqlite3.ErrConstraint {
		return &Error{Kind: KindConstraintViolation, Entity: entity, Key: key, Err: err}
	}
	return &Error{Kind: KindTransactionAborted, Entity: entity, Key: key, Err: err}
}
