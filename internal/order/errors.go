package order

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("order not found")
	ErrNoItems  = errors.New("order has no items")

	// ErrProductServiceUnavailable wraps transport failures talking to the product service.
	ErrProductServiceUnavailable = errors.New("product service unavailable")
)

// ProductServiceError is a non-2xx answer from the product service.
type ProductServiceError struct {
	StatusCode int
	Detail     string
}

func (e *ProductServiceError) Error() string {
	return fmt.Sprintf("product service returned %d: %s", e.StatusCode, e.Detail)
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// RejectedError is an order the product side refused (missing product,
// not enough stock); Message is shown to the client.
type RejectedError struct {
	ProductID int64
	Message   string
}

func (e *RejectedError) Error() string { return e.Message }

// UnavailableError means the product service could not be reached.
type UnavailableError struct {
	Message string
	Err     error
}

func (e *UnavailableError) Error() string { return e.Message }

func (e *UnavailableError) Unwrap() error { return e.Err }

// PersistenceError is a storage or upstream fault. Message is safe to show to clients.
type PersistenceError struct {
	Message string
	Err     error
}

func (e *PersistenceError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error { return e.Err }
