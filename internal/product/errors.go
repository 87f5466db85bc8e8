package product

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("product not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInvalidFileType    = errors.New("invalid file type")
	ErrStorageUnavailable = errors.New("blob storage not configured")
	ErrInvalidQuantity    = errors.New("quantity must be a positive integer")
)

// InsufficientStockError matches ErrInsufficientStock.
type InsufficientStockError struct {
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock for product '%s'. Only %d available.", e.ProductName, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// PersistenceError is a storage fault. Message is safe to show to clients.
type PersistenceError struct {
	Message string
	Err     error
}

func (e *PersistenceError) Error() string {
	return e.Message + ": " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// UploadError is any failure after an image passed validation.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string {
	return "Could not upload image or update product: " + e.Err.Error()
}

func (e *UploadError) Unwrap() error { return e.Err }
