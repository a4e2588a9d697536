package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/klausbr/readium-api/internal/domain"
)

// BookStore defines the interface for book data persistence.
// All mutation goes through optimistic-version-checked writes: Update
// compares the version carried by the entity against the stored row and
// fails with ErrVersionConflict when another writer got there first.
type BookStore interface {
	// Create saves a new book to the store.
	// Returns ErrDuplicateDigest if a book with the same content digest
	// already exists, and validation errors from the domain Book if the
	// data is invalid.
	Create(ctx context.Context, book *domain.Book) error

	// GetByID retrieves a book by its unique ID.
	// Returns ErrBookNotFound if the book does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Book, error)

	// FindByDigest retrieves a book by its content digest.
	// Returns ErrBookNotFound if no book carries that digest.
	FindByDigest(ctx context.Context, digest string) (*domain.Book, error)

	// Update saves changes to an existing book using the entity's Version
	// as the expected stored version. On success the entity's Version is
	// advanced by one. Returns ErrBookNotFound if the book does not exist
	// and ErrVersionConflict if the stored version has moved on.
	Update(ctx context.Context, book *domain.Book) error

	// List retrieves books filtered by reading status (empty means all)
	// and a case-insensitive title/author substring query, ordered by
	// creation time descending.
	List(ctx context.Context, status domain.BookStatus, query string, limit, offset int) ([]*domain.Book, error)

	// ExistsByID reports whether a book with the given ID exists.
	ExistsByID(ctx context.Context, id uuid.UUID) (bool, error)

	// Delete removes a book by ID.
	// Returns ErrBookNotFound if the book does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new BookStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller
	// (typically a service).
	WithTx(tx *sql.Tx) BookStore
}
