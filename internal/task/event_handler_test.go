package task_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klausbr/readium-api/internal/domain"
	"github.com/klausbr/readium-api/internal/events"
	"github.com/klausbr/readium-api/internal/metadata"
	"github.com/klausbr/readium-api/internal/ocr"
	"github.com/klausbr/readium-api/internal/task"
)

func newPipelineHandler(t *testing.T, bookStore *fakeBookStore, extractor *fakeExtractor, engine *fakeEngine) *task.PipelineEventHandler {
	t.Helper()

	metadataRunner := task.NewRunner("metadata", task.RunnerConfig{WorkerCount: 1, QueueSize: 4}, nil)
	ocrRunner := task.NewRunner("ocr", task.RunnerConfig{WorkerCount: 1, QueueSize: 4}, nil)
	metadataRunner.Start()
	ocrRunner.Start()
	t.Cleanup(func() {
		metadataRunner.Stop()
		ocrRunner.Stop()
	})

	handler, err := task.NewPipelineEventHandler(metadataRunner, ocrRunner, bookStore, extractor, engine, nil)
	require.NoError(t, err)
	return handler
}

func TestPipelineEventHandler(t *testing.T) {
	t.Parallel()

	t.Run("book created triggers metadata extraction", func(t *testing.T) {
		t.Parallel()

		bookStore := newFakeBookStore()
		book := newStoredBook(t, bookStore)
		extractor := &fakeExtractor{info: &metadata.Info{Author: "Someone"}}
		handler := newPipelineHandler(t, bookStore, extractor, &fakeEngine{})

		event, err := events.NewBookEvent(events.EventBookCreated, book.ID)
		require.NoError(t, err)
		require.NoError(t, handler.HandleEvent(context.Background(), event))

		assert.Eventually(t, func() bool {
			return bookStore.get(book.ID).Author == "Someone"
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("ocr requested triggers processing", func(t *testing.T) {
		t.Parallel()

		bookStore := newFakeBookStore()
		book := newStoredBook(t, bookStore)
		engine := &fakeEngine{result: &ocr.Result{Score: 88}}
		handler := newPipelineHandler(t, bookStore, &fakeExtractor{}, engine)

		event, err := events.NewBookEvent(events.EventOcrRequested, book.ID)
		require.NoError(t, err)
		require.NoError(t, handler.HandleEvent(context.Background(), event))

		assert.Eventually(t, func() bool {
			return bookStore.get(book.ID).OcrStatus == domain.OcrStatusDone
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("unrelated events are ignored", func(t *testing.T) {
		t.Parallel()

		bookStore := newFakeBookStore()
		handler := newPipelineHandler(t, bookStore, &fakeExtractor{}, &fakeEngine{})

		event, err := events.NewEvent(events.EventProgressUpdated, events.ProgressPayload{})
		require.NoError(t, err)

		assert.NoError(t, handler.HandleEvent(context.Background(), event))
	})
}
