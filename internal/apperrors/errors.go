// Package apperrors defines the domain error taxonomy. Business-rule
// rejections are sentinel values so handlers can map them to structured
// responses without string matching.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound              = errors.New("resource not found")
	ErrForbidden             = errors.New("operation is forbidden for actor")
	ErrInsufficientInventory = errors.New("not enough tickets available")
	ErrEventNotBookable      = errors.New("event is not open for booking")
	ErrAlreadyTerminal       = errors.New("booking is in a terminal state")
	ErrNotConfirmed          = errors.New("booking has not been confirmed")
	ErrAlreadyResponded      = errors.New("invitation has already been responded to")
	ErrReferenceTaken        = errors.New("reference code already in use")
	ErrInvalidInput          = errors.New("invalid input")
)

// ForbiddenError carries an operator-facing explanation of why the actor
// may not perform the operation. It unwraps to ErrForbidden so callers can
// still test with errors.Is.
type ForbiddenError struct {
	Detail string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("forbidden: %s", e.Detail)
}

func (e *ForbiddenError) Unwrap() error {
	return ErrForbidden
}

// Forbidden builds a ForbiddenError with the given detail message.
func Forbidden(format string, args ...any) error {
	return &ForbiddenError{Detail: fmt.Sprintf(format, args...)}
}
