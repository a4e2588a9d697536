package events_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klausbr/readium-api/internal/events"
)

type recordingHandler struct {
	received []*events.Event
	err      error
}

func (h *recordingHandler) HandleEvent(ctx context.Context, event *events.Event) error {
	h.received = append(h.received, event)
	return h.err
}

func TestEmitEvent(t *testing.T) {
	t.Parallel()

	t.Run("dispatches to all handlers", func(t *testing.T) {
		t.Parallel()

		emitter := events.NewInMemoryEventEmitter(nil)
		first := &recordingHandler{}
		second := &recordingHandler{}
		emitter.RegisterHandler(first)
		emitter.RegisterHandler(second)

		event, err := events.NewBookEvent(events.EventBookCreated, uuid.New())
		require.NoError(t, err)

		require.NoError(t, emitter.EmitEvent(context.Background(), event))
		assert.Len(t, first.received, 1)
		assert.Len(t, second.received, 1)
	})

	t.Run("failing handler does not block the rest", func(t *testing.T) {
		t.Parallel()

		emitter := events.NewInMemoryEventEmitter(nil)
		failing := &recordingHandler{err: errors.New("boom")}
		healthy := &recordingHandler{}
		emitter.RegisterHandler(failing)
		emitter.RegisterHandler(healthy)

		event, err := events.NewBookEvent(events.EventOcrRequested, uuid.New())
		require.NoError(t, err)

		err = emitter.EmitEvent(context.Background(), event)
		assert.EqualError(t, err, "boom")
		assert.Len(t, healthy.received, 1)
	})

	t.Run("no handlers is not an error", func(t *testing.T) {
		t.Parallel()

		emitter := events.NewInMemoryEventEmitter(nil)
		event, err := events.NewBookEvent(events.EventBookDeleted, uuid.New())
		require.NoError(t, err)

		assert.NoError(t, emitter.EmitEvent(context.Background(), event))
	})
}

func TestEventPayloads(t *testing.T) {
	t.Parallel()

	bookID := uuid.New()
	event, err := events.NewBookEvent(events.EventBookCreated, bookID)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, events.EventBookCreated, event.Type)

	var payload events.BookPayload
	require.NoError(t, event.UnmarshalPayload(&payload))
	assert.Equal(t, bookID, payload.BookID)
}
