package service

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrOrderIDConflict    = errors.New("order id already in use")
	ErrInsufficientStock  = errors.New("insufficient stock")
)

// ValidationError reports missing or malformed input, checked before any
// mutation happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// StoreError wraps a persistence failure. Callers report a generic message
// and log the detail.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// StockError describes one checkout line whose inventory could not be
// adjusted. Err is set when the update itself failed; otherwise the line
// was oversold.
type StockError struct {
	ProductID   uint
	ProductName string
	Requested   int
	Available   int
	Err         error
}

func (e *StockError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("product %d: adjust stock: %v", e.ProductID, e.Err)
	}
	return fmt.Sprintf("product %d (%s): requested %d, available %d",
		e.ProductID, e.ProductName, e.Requested, e.Available)
}

func (e *StockError) Unwrap() error { return e.Err }

func (e *StockError) Is(target error) bool {
	return target == ErrInsufficientStock && e.Err == nil
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
