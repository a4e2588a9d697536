package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/klausbr/readium-api/internal/events"
	"github.com/klausbr/readium-api/internal/metadata"
	"github.com/klausbr/readium-api/internal/ocr"
	"github.com/klausbr/readium-api/internal/store"
)

// PipelineEventHandler turns post-commit events into background tasks.
// A freshly created book gets a metadata extraction task; an OCR request
// gets an OCR processing task. Each task kind goes to its own bounded
// pool so a burst of OCR work cannot starve metadata extraction.
type PipelineEventHandler struct {
	metadataRunner *Runner
	ocrRunner      *Runner
	bookStore      store.BookStore
	extractor      metadata.Extractor
	engine         ocr.Engine
	logger         *slog.Logger
}

// NewPipelineEventHandler creates an event handler wired to the two
// worker pools and the dependencies its tasks need.
func NewPipelineEventHandler(
	metadataRunner *Runner,
	ocrRunner *Runner,
	bookStore store.BookStore,
	extractor metadata.Extractor,
	engine ocr.Engine,
	logger *slog.Logger,
) (*PipelineEventHandler, error) {
	if metadataRunner == nil || ocrRunner == nil {
		return nil, errors.New("runners cannot be nil")
	}
	if bookStore == nil {
		return nil, errors.New("book store cannot be nil")
	}
	if extractor == nil {
		return nil, errors.New("extractor cannot be nil")
	}
	if engine == nil {
		return nil, errors.New("engine cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PipelineEventHandler{
		metadataRunner: metadataRunner,
		ocrRunner:      ocrRunner,
		bookStore:      bookStore,
		extractor:      extractor,
		engine:         engine,
		logger:         logger.With(slog.String("component", "pipeline_event_handler")),
	}, nil
}

// HandleEvent implements events.EventHandler
func (h *PipelineEventHandler) HandleEvent(ctx context.Context, event *events.Event) error {
	switch event.Type {
	case events.EventBookCreated:
		return h.submitMetadata(ctx, event)

	case events.EventOcrRequested:
		return h.submitOcr(ctx, event)

	default:
		// Other signals carry no background work.
		h.logger.Debug("ignoring event",
			slog.String("event_type", event.Type),
			slog.String("event_id", event.ID.String()))
		return nil
	}
}

func (h *PipelineEventHandler) submitMetadata(ctx context.Context, event *events.Event) error {
	var payload events.BookPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		return fmt.Errorf("failed to decode event payload: %w", err)
	}

	task, err := NewMetadataTask(payload.BookID, h.bookStore, h.extractor, h.logger)
	if err != nil {
		return fmt.Errorf("failed to create metadata task: %w", err)
	}
	return h.metadataRunner.Submit(ctx, task)
}

func (h *PipelineEventHandler) submitOcr(ctx context.Context, event *events.Event) error {
	var payload events.BookPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		return fmt.Errorf("failed to decode event payload: %w", err)
	}

	task, err := NewOcrTask(payload.BookID, h.bookStore, h.engine, h.logger)
	if err != nil {
		return fmt.Errorf("failed to create OCR task: %w", err)
	}
	return h.ocrRunner.Submit(ctx, task)
}

// Ensure PipelineEventHandler implements events.EventHandler
var _ events.EventHandler = (*PipelineEventHandler)(nil)
