package task_test

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/klausbr/readium-api/internal/domain"
	"github.com/klausbr/readium-api/internal/metadata"
	"github.com/klausbr/readium-api/internal/ocr"
	"github.com/klausbr/readium-api/internal/store"
)

// fakeBookStore is an in-memory store.BookStore with optimistic version
// checks. conflictNext forces the next Update calls to fail with a
// version conflict while advancing the stored version, mimicking a
// concurrent writer.
type fakeBookStore struct {
	mu           sync.Mutex
	books        map[uuid.UUID]*domain.Book
	conflictNext int
	updateCalls  int
}

func newFakeBookStore() *fakeBookStore {
	return &fakeBookStore{books: make(map[uuid.UUID]*domain.Book)}
}

func copyBook(b *domain.Book) *domain.Book {
	clone := *b
	if b.OcrScore != nil {
		score := *b.OcrScore
		clone.OcrScore = &score
	}
	return &clone
}

func (s *fakeBookStore) put(b *domain.Book) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.books[b.ID] = copyBook(b)
}

func (s *fakeBookStore) get(id uuid.UUID) *domain.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyBook(s.books[id])
}

func (s *fakeBookStore) Create(ctx context.Context, book *domain.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.books {
		if existing.ContentDigest == book.ContentDigest {
			return fmt.Errorf("%w: digest %s", store.ErrDuplicateDigest, book.ContentDigest)
		}
	}
	s.books[book.ID] = copyBook(book)
	return nil
}

func (s *fakeBookStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	book, ok := s.books[id]
	if !ok {
		return nil, store.ErrBookNotFound
	}
	return copyBook(book), nil
}

func (s *fakeBookStore) FindByDigest(ctx context.Context, digest string) (*domain.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, book := range s.books {
		if book.ContentDigest == digest {
			return copyBook(book), nil
		}
	}
	return nil, store.ErrBookNotFound
}

func (s *fakeBookStore) Update(ctx context.Context, book *domain.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateCalls++

	stored, ok := s.books[book.ID]
	if !ok {
		return store.ErrBookNotFound
	}
	if s.conflictNext > 0 {
		s.conflictNext--
		stored.Version++
		return fmt.Errorf("%w: book %s", store.ErrVersionConflict, book.ID)
	}
	if stored.Version != book.Version {
		return fmt.Errorf("%w: book %s", store.ErrVersionConflict, book.ID)
	}

	clone := copyBook(book)
	clone.Version++
	s.books[book.ID] = clone
	book.Version++
	return nil
}

func (s *fakeBookStore) List(ctx context.Context, status domain.BookStatus, query string, limit, offset int) ([]*domain.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var books []*domain.Book
	for _, book := range s.books {
		books = append(books, copyBook(book))
	}
	return books, nil
}

func (s *fakeBookStore) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.books[id]
	return ok, nil
}

func (s *fakeBookStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.books[id]; !ok {
		return store.ErrBookNotFound
	}
	delete(s.books, id)
	return nil
}

func (s *fakeBookStore) WithTx(tx *sql.Tx) store.BookStore {
	return s
}

var _ store.BookStore = (*fakeBookStore)(nil)

// fakeExtractor returns a canned metadata result or error.
type fakeExtractor struct {
	info  *metadata.Info
	err   error
	calls int
}

func (e *fakeExtractor) Extract(ctx context.Context, book *domain.Book) (*metadata.Info, error) {
	e.calls++
	return e.info, e.err
}

// fakeEngine returns a canned OCR result or error.
type fakeEngine struct {
	result *ocr.Result
	err    error
	calls  int
}

func (e *fakeEngine) Process(ctx context.Context, book *domain.Book) (*ocr.Result, error) {
	e.calls++
	return e.result, e.err
}

func newStoredBook(t *testing.T, s *fakeBookStore) *domain.Book {
	t.Helper()
	book, err := domain.NewBook("Stored Book", "blobs/ab/file.pdf", uuid.NewString(), domain.BookFormatPDF)
	require.NoError(t, err)
	s.put(book)
	return book
}
