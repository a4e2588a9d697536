package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/klausbr/readium-api/internal/domain"
	"github.com/klausbr/readium-api/internal/platform/logger"
	"github.com/klausbr/readium-api/internal/store"
)

const bookColumns = `id, title, author, pages, last_read_page, cover_path, has_cover,
		file_path, ocr_file_path, content_digest, format, status,
		ocr_status, ocr_score, ocr_updated_at, version, created_at, updated_at`

// PostgresBookStore implements the store.BookStore interface
// using a PostgreSQL database as the storage backend.
type PostgresBookStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresBookStore creates a new PostgreSQL implementation of the
// BookStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresBookStore(db store.DBTX, logger *slog.Logger) *PostgresBookStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresBookStore{
		db:     db,
		logger: logger.With(slog.String("component", "book_store")),
	}
}

// Ensure PostgresBookStore implements store.BookStore interface
var _ store.BookStore = (*PostgresBookStore)(nil)

// WithTx implements store.BookStore.WithTx
func (s *PostgresBookStore) WithTx(tx *sql.Tx) store.BookStore {
	return &PostgresBookStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.BookStore.Create
// It saves a new book to the database, handling domain validation.
// Returns store.ErrDuplicateDigest when the content digest uniqueness
// constraint is violated by a concurrent upload of identical bytes.
func (s *PostgresBookStore) Create(ctx context.Context, book *domain.Book) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := book.Validate(); err != nil {
		log.Warn("book validation failed during create",
			slog.String("error", err.Error()),
			slog.String("book_id", book.ID.String()))
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO books (` + bookColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		book.ID,
		book.Title,
		nullString(book.Author),
		nullInt(book.Pages),
		book.LastReadPage,
		nullString(book.CoverPath),
		book.HasCover,
		book.FilePath,
		nullString(book.OcrFilePath),
		book.ContentDigest,
		book.Format,
		book.Status,
		book.OcrStatus,
		book.OcrScore,
		book.OcrUpdatedAt,
		book.Version,
		book.CreatedAt,
		book.UpdatedAt,
	)

	if err != nil {
		if IsUniqueViolation(err) {
			log.Info("duplicate content digest during book creation",
				slog.String("book_id", book.ID.String()),
				slog.String("digest", book.ContentDigest))
			return fmt.Errorf("%w: %v", store.ErrDuplicateDigest, err)
		}

		log.Error("failed to create book",
			slog.String("error", err.Error()),
			slog.String("book_id", book.ID.String()))
		return MapError(err)
	}

	log.Info("book created successfully",
		slog.String("book_id", book.ID.String()),
		slog.String("title", book.Title))
	return nil
}

// GetByID implements store.BookStore.GetByID
// Returns store.ErrBookNotFound if the book does not exist.
func (s *PostgresBookStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE id = $1`
	return s.scanBook(s.db.QueryRowContext(ctx, query, id))
}

// FindByDigest implements store.BookStore.FindByDigest
// Returns store.ErrBookNotFound if no book carries the digest.
func (s *PostgresBookStore) FindByDigest(ctx context.Context, digest string) (*domain.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE content_digest = $1`
	return s.scanBook(s.db.QueryRowContext(ctx, query, digest))
}

// Update implements store.BookStore.Update
// The write is optimistic: the UPDATE is predicated on the version the
// entity carries, and the stored version advances by one on success. When
// no row matches, the store distinguishes a missing book
// (store.ErrBookNotFound) from a concurrent writer having advanced the
// version (store.ErrVersionConflict).
func (s *PostgresBookStore) Update(ctx context.Context, book *domain.Book) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := book.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		UPDATE books
		SET title = $1, author = $2, pages = $3, last_read_page = $4,
		    cover_path = $5, has_cover = $6, file_path = $7, ocr_file_path = $8,
		    format = $9, status = $10, ocr_status = $11, ocr_score = $12,
		    ocr_updated_at = $13, version = version + 1, updated_at = $14
		WHERE id = $15 AND version = $16
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		book.Title,
		nullString(book.Author),
		nullInt(book.Pages),
		book.LastReadPage,
		nullString(book.CoverPath),
		book.HasCover,
		book.FilePath,
		nullString(book.OcrFilePath),
		book.Format,
		book.Status,
		book.OcrStatus,
		book.OcrScore,
		book.OcrUpdatedAt,
		book.UpdatedAt,
		book.ID,
		book.Version,
	)
	if err != nil {
		log.Error("failed to update book",
			slog.String("error", err.Error()),
			slog.String("book_id", book.ID.String()))
		return MapError(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return MapError(err)
	}
	if rows == 0 {
		exists, existsErr := s.ExistsByID(ctx, book.ID)
		if existsErr != nil {
			return existsErr
		}
		if !exists {
			return store.ErrBookNotFound
		}

		log.Debug("optimistic version conflict on book update",
			slog.String("book_id", book.ID.String()),
			slog.Int64("expected_version", book.Version))
		return fmt.Errorf("%w: book %s at version %d", store.ErrVersionConflict, book.ID, book.Version)
	}

	book.Version++
	return nil
}

// List implements store.BookStore.List
func (s *PostgresBookStore) List(
	ctx context.Context,
	status domain.BookStatus,
	query string,
	limit, offset int,
) ([]*domain.Book, error) {
	var (
		conditions []string
		args       []any
	)

	if status != "" {
		args = append(args, status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if strings.TrimSpace(query) != "" {
		args = append(args, "%"+strings.TrimSpace(query)+"%")
		conditions = append(conditions,
			fmt.Sprintf("(title ILIKE $%d OR author ILIKE $%d)", len(args), len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	args = append(args, limit, offset)
	sqlQuery := `SELECT ` + bookColumns + ` FROM books` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var books []*domain.Book
	for rows.Next() {
		book, err := scanBookRow(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return books, nil
}

// ExistsByID implements store.BookStore.ExistsByID
func (s *PostgresBookStore) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM books WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, MapError(err)
	}
	return exists, nil
}

// Delete implements store.BookStore.Delete
// Returns store.ErrBookNotFound if the book does not exist.
func (s *PostgresBookStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return MapError(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return MapError(err)
	}
	if rows == 0 {
		return store.ErrBookNotFound
	}
	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresBookStore) scanBook(row *sql.Row) (*domain.Book, error) {
	book, err := scanBookRow(row)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, store.ErrBookNotFound
		}
		return nil, err
	}
	return book, nil
}

func scanBookRow(row rowScanner) (*domain.Book, error) {
	var (
		book        domain.Book
		author      sql.NullString
		pages       sql.NullInt64
		coverPath   sql.NullString
		ocrFilePath sql.NullString
	)

	err := row.Scan(
		&book.ID,
		&book.Title,
		&author,
		&pages,
		&book.LastReadPage,
		&coverPath,
		&book.HasCover,
		&book.FilePath,
		&ocrFilePath,
		&book.ContentDigest,
		&book.Format,
		&book.Status,
		&book.OcrStatus,
		&book.OcrScore,
		&book.OcrUpdatedAt,
		&book.Version,
		&book.CreatedAt,
		&book.UpdatedAt,
	)
	if err != nil {
		return nil, MapError(err)
	}

	book.Author = author.String
	book.Pages = int(pages.Int64)
	book.CoverPath = coverPath.String
	book.OcrFilePath = ocrFilePath.String
	return &book, nil
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

func nullInt(value int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(value), Valid: value != 0}
}
