package domain_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klausbr/readium-api/internal/domain"
)

func validBook(t *testing.T) *domain.Book {
	t.Helper()
	book, err := domain.NewBook("Test Book", "blobs/ab/abc.pdf", "abc123", domain.BookFormatPDF)
	require.NoError(t, err)
	return book
}

func TestNewBook(t *testing.T) {
	t.Parallel()

	t.Run("creates book with initial state", func(t *testing.T) {
		t.Parallel()

		book, err := domain.NewBook("My Book", "blobs/ab/abc.pdf", "digest", domain.BookFormatEPUB)
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, book.ID)
		assert.Equal(t, "My Book", book.Title)
		assert.Equal(t, domain.BookStatusToRead, book.Status)
		assert.Equal(t, domain.OcrStatusPending, book.OcrStatus)
		assert.Equal(t, int64(0), book.Version)
		assert.False(t, book.OcrUpdatedAt.IsZero())
		assert.Nil(t, book.OcrScore)
	})

	t.Run("rejects empty title", func(t *testing.T) {
		t.Parallel()

		_, err := domain.NewBook("   ", "path", "digest", domain.BookFormatPDF)
		assert.ErrorIs(t, err, domain.ErrEmptyBookTitle)
	})

	t.Run("rejects empty digest", func(t *testing.T) {
		t.Parallel()

		_, err := domain.NewBook("Title", "path", "", domain.BookFormatPDF)
		assert.ErrorIs(t, err, domain.ErrEmptyBookDigest)
	})

	t.Run("rejects unknown format", func(t *testing.T) {
		t.Parallel()

		_, err := domain.NewBook("Title", "path", "digest", domain.BookFormat("MOBI"))
		assert.ErrorIs(t, err, domain.ErrInvalidBookFormat)
	})
}

func TestOcrTransitions(t *testing.T) {
	t.Parallel()

	t.Run("queued resets to pending", func(t *testing.T) {
		t.Parallel()

		book := validBook(t)
		book.OcrStatus = domain.OcrStatusFailed
		before := book.OcrUpdatedAt

		book.MarkOcrQueued()

		assert.Equal(t, domain.OcrStatusPending, book.OcrStatus)
		assert.False(t, book.OcrUpdatedAt.Before(before))
	})

	t.Run("running stamps the heartbeat", func(t *testing.T) {
		t.Parallel()

		book := validBook(t)
		book.OcrUpdatedAt = time.Time{}

		book.MarkOcrRunning()

		assert.Equal(t, domain.OcrStatusRunning, book.OcrStatus)
		assert.False(t, book.OcrUpdatedAt.IsZero())
	})

	t.Run("done records score and derived file", func(t *testing.T) {
		t.Parallel()

		book := validBook(t)
		book.MarkOcrDone(87.5, "blobs/cd/processed.pdf")

		assert.Equal(t, domain.OcrStatusDone, book.OcrStatus)
		require.NotNil(t, book.OcrScore)
		assert.Equal(t, 87.5, *book.OcrScore)
		assert.Equal(t, "blobs/cd/processed.pdf", book.OcrFilePath)
	})

	t.Run("done with empty path keeps previous derived file", func(t *testing.T) {
		t.Parallel()

		book := validBook(t)
		book.OcrFilePath = "blobs/cd/earlier.pdf"

		book.MarkOcrDone(30, "  ")

		assert.Equal(t, "blobs/cd/earlier.pdf", book.OcrFilePath)
	})

	t.Run("failed marks terminal failure", func(t *testing.T) {
		t.Parallel()

		book := validBook(t)
		book.MarkOcrRunning()
		book.MarkOcrFailed()

		assert.Equal(t, domain.OcrStatusFailed, book.OcrStatus)
	})
}

func TestUpdateReadingProgress(t *testing.T) {
	t.Parallel()

	t.Run("positive page moves to reading", func(t *testing.T) {
		t.Parallel()

		book := validBook(t)
		book.Pages = 100

		changed := book.UpdateReadingProgress(5)

		assert.True(t, changed)
		assert.Equal(t, 5, book.LastReadPage)
		assert.Equal(t, domain.BookStatusReading, book.Status)
	})

	t.Run("reaching last page moves to read", func(t *testing.T) {
		t.Parallel()

		book := validBook(t)
		book.Pages = 100

		changed := book.UpdateReadingProgress(100)

		assert.True(t, changed)
		assert.Equal(t, domain.BookStatusRead, book.Status)
	})

	t.Run("negative page clamps to zero", func(t *testing.T) {
		t.Parallel()

		book := validBook(t)
		book.LastReadPage = 10
		book.Status = domain.BookStatusReading

		changed := book.UpdateReadingProgress(-3)

		assert.True(t, changed)
		assert.Equal(t, 0, book.LastReadPage)
	})

	t.Run("no-op update reports unchanged", func(t *testing.T) {
		t.Parallel()

		book := validBook(t)
		book.Pages = 100
		book.LastReadPage = 5
		book.Status = domain.BookStatusReading

		changed := book.UpdateReadingProgress(5)

		assert.False(t, changed)
	})

	t.Run("unknown page count never marks read", func(t *testing.T) {
		t.Parallel()

		book := validBook(t)
		book.Pages = 0

		_ = book.UpdateReadingProgress(9999)

		assert.Equal(t, domain.BookStatusReading, book.Status)
	})
}

func TestChangeStatus(t *testing.T) {
	t.Parallel()

	book := validBook(t)

	require.NoError(t, book.ChangeStatus(domain.BookStatusRead))
	assert.Equal(t, domain.BookStatusRead, book.Status)

	err := book.ChangeStatus(domain.BookStatus("ARCHIVED"))
	assert.ErrorIs(t, err, domain.ErrInvalidBookStatus)
	assert.Equal(t, domain.BookStatusRead, book.Status)
}

func TestReadablePath(t *testing.T) {
	t.Parallel()

	book := validBook(t)
	book.FilePath = "blobs/ab/original.pdf"

	assert.Equal(t, "blobs/ab/original.pdf", book.ReadablePath())

	book.MarkOcrDone(50, "blobs/cd/processed.pdf")
	assert.Equal(t, "blobs/cd/processed.pdf", book.ReadablePath())

	// A failed rerun serves the original again.
	book.MarkOcrFailed()
	assert.Equal(t, "blobs/ab/original.pdf", book.ReadablePath())
}

func TestFormatFromFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		filename string
		want     domain.BookFormat
		wantErr  bool
	}{
		{"book.pdf", domain.BookFormatPDF, false},
		{"book.PDF", domain.BookFormatPDF, false},
		{"novel.epub", domain.BookFormatEPUB, false},
		{"novel.EPUB", domain.BookFormatEPUB, false},
		{"archive.tar.pdf", domain.BookFormatPDF, false},
		{"book.mobi", "", true},
		{"noextension", "", true},
		{"trailingdot.", "", true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.filename, func(t *testing.T) {
			t.Parallel()

			format, err := domain.FormatFromFilename(tc.filename)
			if tc.wantErr {
				assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, format)
		})
	}
}

func TestTitleFromFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		filename string
		want     string
	}{
		{"the_great_gatsby.pdf", "the great gatsby"},
		{"war-and-peace.epub", "war and peace"},
		{"Moby.Dick.1851.pdf", "Moby Dick 1851"},
		{"  spaced   out .pdf", "spaced out"},
		{"", "Untitled"},
		{"...", "Untitled"},
		{".hidden", "hidden"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.filename, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, domain.TitleFromFilename(tc.filename))
		})
	}
}
