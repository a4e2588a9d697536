package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/klausbr/readium-api/internal/config"
	"github.com/klausbr/readium-api/internal/events"
	"github.com/klausbr/readium-api/internal/platform/bookmeta"
	"github.com/klausbr/readium-api/internal/platform/filestore"
	"github.com/klausbr/readium-api/internal/platform/ocrengine"
	"github.com/klausbr/readium-api/internal/platform/postgres"
	"github.com/klausbr/readium-api/internal/platform/s3store"
	"github.com/klausbr/readium-api/internal/platform/translateapi"
	"github.com/klausbr/readium-api/internal/service"
	"github.com/klausbr/readium-api/internal/storage"
	"github.com/klausbr/readium-api/internal/store"
	"github.com/klausbr/readium-api/internal/task"
	"github.com/klausbr/readium-api/internal/translation"
)

// application holds the fully wired dependency graph of the server.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	bookStore        store.BookStore
	translationStore store.TranslationStore
	blobs            storage.BlobStore

	emitter        *events.InMemoryEventEmitter
	metadataRunner *task.Runner
	ocrRunner      *task.Runner

	bookService        service.BookService
	translationService service.TranslationService
}

// newApplication wires stores, storage, workers and services together.
// Worker pools are started here; cleanup stops them again.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	bookStore := postgres.NewPostgresBookStore(db, logger)
	translationStore := postgres.NewPostgresTranslationStore(db, logger)

	blobs, err := setupBlobStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	extractor := bookmeta.NewDocumentExtractor(blobs, logger)
	engine := ocrengine.NewDocumentEngine(blobs, cfg.OCR, logger)

	gateway, err := setupTranslationGateway(cfg, logger)
	if err != nil {
		return nil, err
	}

	metadataRunner := task.NewRunner("metadata", task.RunnerConfig{
		WorkerCount: cfg.Metadata.Workers,
		QueueSize:   cfg.Metadata.QueueSize,
	}, logger)
	ocrRunner := task.NewRunner("ocr", task.RunnerConfig{
		WorkerCount: cfg.OCR.Workers,
		QueueSize:   cfg.OCR.QueueSize,
	}, logger)

	pipelineHandler, err := task.NewPipelineEventHandler(
		metadataRunner, ocrRunner, bookStore, extractor, engine, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline event handler: %w", err)
	}

	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.RegisterHandler(pipelineHandler)

	recovery := service.NewOcrRecovery(bookStore,
		time.Duration(cfg.OCR.RunningTimeoutSeconds)*time.Second, logger)

	bookService, err := service.NewBookService(
		db, bookStore, translationStore, blobs, emitter, recovery, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create book service: %w", err)
	}

	translationService, err := service.NewTranslationService(
		translationStore, gateway, service.TranslationConfig{
			CacheTTL:        time.Duration(cfg.Translation.CacheTTLSecs) * time.Second,
			CacheMaxEntries: cfg.Translation.CacheMaxEntries,
			MinInterval:     time.Duration(cfg.Translation.MinIntervalMs) * time.Millisecond,
		}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create translation service: %w", err)
	}

	metadataRunner.Start()
	ocrRunner.Start()

	return &application{
		config:             cfg,
		logger:             logger,
		db:                 db,
		bookStore:          bookStore,
		translationStore:   translationStore,
		blobs:              blobs,
		emitter:            emitter,
		metadataRunner:     metadataRunner,
		ocrRunner:          ocrRunner,
		bookService:        bookService,
		translationService: translationService,
	}, nil
}

// setupBlobStore builds the blob storage backend selected by
// configuration.
func setupBlobStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.BlobStore, error) {
	switch cfg.Storage.Backend {
	case "fs":
		blobs, err := filestore.New(cfg.Storage.Path, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize filesystem storage: %w", err)
		}
		return blobs, nil
	case "s3":
		blobs, err := s3store.New(cfg.Storage, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize s3 storage: %w", err)
		}
		if err := blobs.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure storage bucket: %w", err)
		}
		return blobs, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
	}
}

// setupTranslationGateway builds the configured remote translation
// provider.
func setupTranslationGateway(cfg *config.Config, logger *slog.Logger) (translation.Gateway, error) {
	timeout := time.Duration(cfg.Translation.TimeoutMs) * time.Millisecond

	switch cfg.Translation.Provider {
	case "MYMEMORY":
		return translateapi.NewMyMemoryGateway(cfg.Translation.MyMemoryURL, timeout, logger), nil
	case "LIBRETRANSLATE":
		return translateapi.NewLibreTranslateGateway(
			cfg.Translation.LibreURL, cfg.Translation.LibreAPIKey, timeout, logger), nil
	default:
		return nil, fmt.Errorf("unsupported translation provider %q", cfg.Translation.Provider)
	}
}

// cleanup stops the background worker pools. In-flight tasks are given
// a chance to finish before the pools shut down.
func (app *application) cleanup() {
	app.metadataRunner.Stop()
	app.ocrRunner.Stop()
}
