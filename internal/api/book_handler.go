package api

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/klausbr/readium-api/internal/api/shared"
	"github.com/klausbr/readium-api/internal/domain"
	"github.com/klausbr/readium-api/internal/platform/logger"
	"github.com/klausbr/readium-api/internal/service"
)

// maxUploadMemory bounds multipart parsing memory; larger files spill to
// temporary storage.
const maxUploadMemory = 32 << 20

// BookResponse represents the response data for a book
type BookResponse struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Author       string    `json:"author,omitempty"`
	Pages        int       `json:"pages,omitempty"`
	LastReadPage int       `json:"last_read_page"`
	HasCover     bool      `json:"has_cover"`
	Format       string    `json:"format"`
	Status       string    `json:"status"`
	OcrStatus    string    `json:"ocr_status"`
	OcrScore     *float64  `json:"ocr_score,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// OcrStatusResponse represents the OCR processing state of a book
type OcrStatusResponse struct {
	BookID    string    `json:"book_id"`
	Status    string    `json:"status"`
	Score     *float64  `json:"score,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UpdateProgressRequest represents the request body for progress updates
type UpdateProgressRequest struct {
	Page *int `json:"page" validate:"required"`
}

// UpdateStatusRequest represents the request body for status changes
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// BookHandler handles book-related HTTP requests
type BookHandler struct {
	bookService service.BookService
	logger      *slog.Logger
}

// NewBookHandler creates a new BookHandler
func NewBookHandler(bookService service.BookService, logger *slog.Logger) *BookHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for BookHandler")
	}

	return &BookHandler{
		bookService: bookService,
		logger:      logger.With(slog.String("component", "book_handler")),
	}
}

// UploadBook handles POST /books requests.
// It accepts a multipart form with a single "file" part and responds with
// the created (or, for duplicate content, the already existing) book.
func (h *BookHandler) UploadBook(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		log.Debug("failed to parse multipart form", slog.String("error", err.Error()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Expected multipart form with a file field")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Missing file field")
		return
	}
	defer func() { _ = file.Close() }()

	book, err := h.bookService.Upload(r.Context(), header.Filename, file)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, bookToResponse(book))
}

// ListBooks handles GET /books requests with optional status, query,
// limit and offset parameters.
func (h *BookHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := parseIntParam(query.Get("limit"), 20)
	offset := parseIntParam(query.Get("offset"), 0)

	books, err := h.bookService.ListBooks(r.Context(), query.Get("status"), query.Get("query"), limit, offset)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	responses := make([]BookResponse, 0, len(books))
	for _, book := range books {
		responses = append(responses, bookToResponse(book))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, responses)
}

// GetBook handles GET /books/{id} requests
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	book, err := h.bookService.GetBook(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, bookToResponse(book))
}

// DeleteBook handles DELETE /books/{id} requests
func (h *BookHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if err := h.bookService.DeleteBook(r.Context(), id); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpdateStatus handles PATCH /books/{id}/status requests
func (h *BookHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var req UpdateStatusRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	if err := h.bookService.ChangeStatus(r.Context(), id, req.Status); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpdateProgress handles PATCH /books/{id}/progress requests
func (h *BookHandler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var req UpdateProgressRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	if err := h.bookService.UpdateProgress(r.Context(), id, *req.Page); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// QueueOcr handles POST /books/{id}/ocr requests.
// Processing happens in the background; the response only acknowledges
// that the request was queued.
func (h *BookHandler) QueueOcr(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if err := h.bookService.QueueOcr(r.Context(), id); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// GetOcrStatus handles GET /books/{id}/ocr-status requests
func (h *BookHandler) GetOcrStatus(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	book, err := h.bookService.GetOcrStatus(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, OcrStatusResponse{
		BookID:    book.ID.String(),
		Status:    string(book.OcrStatus),
		Score:     book.OcrScore,
		UpdatedAt: book.OcrUpdatedAt,
	})
}

// GetFile handles GET /books/{id}/file requests, streaming the readable
// file for the book (the OCR-processed artifact when one exists).
func (h *BookHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	rc, book, err := h.bookService.GetFile(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	defer func() { _ = rc.Close() }()

	w.Header().Set("Content-Type", contentTypeFor(book.Format))
	if _, err := io.Copy(w, rc); err != nil {
		// Headers are out; all we can do is log the broken stream.
		log.Debug("file stream interrupted",
			slog.String("book_id", id.String()),
			slog.String("error", err.Error()))
	}
}

// GetCover handles GET /books/{id}/cover requests
func (h *BookHandler) GetCover(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	rc, err := h.bookService.GetCover(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	defer func() { _ = rc.Close() }()

	w.Header().Set("Content-Type", "image/png")
	if _, err := io.Copy(w, rc); err != nil {
		log.Debug("cover stream interrupted",
			slog.String("book_id", id.String()),
			slog.String("error", err.Error()))
	}
}

// bookToResponse transforms a domain book into its API representation
func bookToResponse(book *domain.Book) BookResponse {
	return BookResponse{
		ID:           book.ID.String(),
		Title:        book.Title,
		Author:       book.Author,
		Pages:        book.Pages,
		LastReadPage: book.LastReadPage,
		HasCover:     book.HasCover,
		Format:       string(book.Format),
		Status:       string(book.Status),
		OcrStatus:    string(book.OcrStatus),
		OcrScore:     book.OcrScore,
		CreatedAt:    book.CreatedAt,
		UpdatedAt:    book.UpdatedAt,
	}
}

func contentTypeFor(format domain.BookFormat) string {
	if format == domain.BookFormatEPUB {
		return "application/epub+zip"
	}
	return "application/pdf"
}

func parseIntParam(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
