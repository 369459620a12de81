package store

import (
	"errors"
	"fmt"
)

// Workflow error kinds. Operations wrap these so callers can match them with errors.Is.
var (
	ErrValidation        = errors.New("validation failed")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrAlreadyReceived   = errors.New("already received")
	ErrNotReceivable     = errors.New("not receivable")
	ErrUnauthorized      = errors.New("not authorized")
	ErrNotFound          = errors.New("not found")
	ErrPersistence       = errors.New("persistence failure")
)

// InsufficientStockError reports a central stock line that cannot cover a shipment line.
type InsufficientStockError struct {
	StockID   int64
	ProductID int64
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock on line %d (product %d): have %d, need %d",
		e.StockID, e.ProductID, e.Available, e.Requested)
}

// Is matches ErrInsufficientStock.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// TransitionError reports an illegal status change.
type TransitionError struct {
	Kind string
	ID   string
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s %s: cannot move from %q to %q", e.Kind, e.ID, e.From, e.To)
}

// Is matches ErrInvalidTransition.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// Retryable reports whether err may succeed when retried unchanged.
// Only persistence failures qualify; every other kind would fail identically.
func Retryable(err error) bool {
	return errors.Is(err, ErrPersistence)
}

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func notFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func unauthorizedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnauthorized, fmt.Sprintf(format, args...))
}

// persistence wraps a database failure of the named step.
func persistence(step string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, step, err)
}
