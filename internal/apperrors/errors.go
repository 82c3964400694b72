// Package apperrors defines the error kinds the catalog surfaces to callers.
// Each kind maps to one HTTP status in the api package; anything else is an
// internal failure.
package apperrors

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindInvalidState Kind = "invalid_state"
	KindDuplicate    Kind = "duplicate"
)

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Message string
	// ExistingID is set on duplicate errors so callers can link instead of create.
	ExistingID *uint
}

func (e *Error) Error() string {
	return e.Message
}

// ErrorKind returns the classification string.
func (e *Error) ErrorKind() string {
	return string(e.Kind)
}

func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(entity string, id any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %v not found", entity, id)}
}

func InvalidState(format string, args ...any) error {
	return &Error{Kind: KindInvalidState, Message: fmt.Sprintf(format, args...)}
}

func Duplicate(entity string, existingID uint, name string) error {
	id := existingID
	return &Error{
		Kind:       KindDuplicate,
		Message:    fmt.Sprintf("%s %q already exists (id %d)", entity, name, existingID),
		ExistingID: &id,
	}
}

// KindOf returns the kind of the first classified error in err's chain, or ""
// when err is unclassified.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
