// Package fault defines the typed errors the domain packages surface to
// callers. Every fault aborts and rolls back the transaction that raised
// it; there are no partial commits anywhere in the core.
package fault

import (
	"errors"
	"fmt"
)

// ValidationError is a client fault: the request referenced something
// invalid (unknown unit on mount, bad event kind, duplicate code).
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validationf builds a ValidationError with a formatted message.
func Validationf(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError is a client fault: the referenced entity is absent or
// soft-deleted.
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s no encontrado", e.Entity)
}

// NotFound builds a NotFoundError for the named entity.
func NotFound(entity string) error {
	return &NotFoundError{Entity: entity}
}

// InsufficientStockError is a client fault: a work order or adjustment
// asked for more stock than the SKU has on hand.
type InsufficientStockError struct {
	SKU       string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente para %s: disponible %d, solicitado %d",
		e.SKU, e.Available, e.Requested)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var n *NotFoundError
	return errors.As(err, &n)
}

// IsInsufficientStock reports whether err is (or wraps) an
// InsufficientStockError.
func IsInsufficientStock(err error) bool {
	var s *InsufficientStockError
	return errors.As(err, &s)
}
