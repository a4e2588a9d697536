package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	// This is a generic version of the entity-specific not found errors
	// (e.g., ErrBookNotFound, ErrTranslationNotFound).
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity (e.g., a book with the same content digest).
	ErrDuplicate = errors.New("entity already exists")

	// ErrVersionConflict is returned when an optimistic-versioned update
	// finds that the stored row has a different version than the one the
	// caller read. The caller decides whether to reload and retry.
	ErrVersionConflict = errors.New("version conflict")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrTransactionFailed is returned when a database transaction fails
	// to commit or when an operation within a transaction fails.
	ErrTransactionFailed = errors.New("transaction failed")

	// Entity-specific "not found" errors

	// ErrBookNotFound indicates that the requested book does not exist in the store.
	ErrBookNotFound = fmt.Errorf("%w: book", ErrNotFound)

	// ErrTranslationNotFound indicates that the requested translation does not exist in the store.
	ErrTranslationNotFound = fmt.Errorf("%w: translation", ErrNotFound)

	// Entity-specific "duplicate" errors

	// ErrDuplicateDigest indicates that a book with the same content digest
	// already exists. Ingestion treats this as "the concurrent upload won"
	// and resolves to the surviving record.
	ErrDuplicateDigest = fmt.Errorf("%w: content digest", ErrDuplicate)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if the error is any kind of "duplicate" error.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}
