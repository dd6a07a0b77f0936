package entity

import (
	"errors"
	"fmt"
)

// Domain errors for progress records, catalog words and quiz sessions.
var (
	ErrProgressNotFound  = errors.New("progress record not found")
	ErrInvalidState      = errors.New("invalid word state for operation")
	ErrInvalidMode       = errors.New("invalid answer mode")
	ErrWordNotFound      = errors.New("catalog word not found")
	ErrInvalidUserID     = errors.New("invalid user ID")
	ErrInvalidWordID     = errors.New("invalid word ID")
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionCompleted  = errors.New("session already completed")
	ErrWordNotInSession  = errors.New("word is not part of session")
	ErrInvalidFilter     = errors.New("invalid filter")
	ErrEmptyCatalogEntry = errors.New("catalog word requires id, text and tier")
	ErrDuplicate         = errors.New("record already exists")
)

// StorageError reports a failed Progress Store or session log operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage: %s: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }

// NewStorageError wraps err unless it is nil or already a domain sentinel.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if isDomainError(err) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// CatalogError reports a failed Word Catalog read or write.
type CatalogError struct {
	Op  string
	Err error
}

func (e *CatalogError) Error() string { return fmt.Sprintf("catalog: %s: %v", e.Op, e.Err) }

func (e *CatalogError) Unwrap() error { return e.Err }

// NewCatalogError wraps err unless it is nil or already a domain sentinel.
func NewCatalogError(op string, err error) error {
	if err == nil {
		return nil
	}
	if isDomainError(err) {
		return err
	}
	return &CatalogError{Op: op, Err: err}
}

func isDomainError(err error) bool {
	var storageErr *StorageError
	var catalogErr *CatalogError
	switch {
	case errors.As(err, &storageErr), errors.As(err, &catalogErr):
		return true
	case errors.Is(err, ErrProgressNotFound), errors.Is(err, ErrWordNotFound):
		return true
	default:
		return false
	}
}
