package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event type identifiers for the document pipeline. Events are dispatched
// only after the triggering database transaction has committed, so a
// handler never observes a half-committed record.
const (
	EventBookCreated     = "book_created"
	EventOcrRequested    = "ocr_requested"
	EventBookDeleted     = "book_deleted"
	EventProgressUpdated = "progress_updated"
)

// Event represents a post-commit signal. It carries only a minimal payload
// (typically just the record id); consumers reload state from the store.
type Event struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type indicates which signal this is (one of the Event* constants)
	Type string `json:"type"`

	// Payload contains the event-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// BookPayload is the payload for BookCreated, OcrRequested and BookDeleted.
type BookPayload struct {
	BookID uuid.UUID `json:"book_id"`
}

// ProgressPayload is the payload for ProgressUpdated.
type ProgressPayload struct {
	BookID    uuid.UUID `json:"book_id"`
	Page      int       `json:"page"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *Event) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// NewEvent creates a new Event with the specified type and payload.
func NewEvent(eventType string, payload any) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// NewBookEvent creates an Event of the given type carrying only a book id.
func NewBookEvent(eventType string, bookID uuid.UUID) (*Event, error) {
	return NewEvent(eventType, BookPayload{BookID: bookID})
}

// EventHandler defines an interface for components that can handle events.
// Handlers are responsible for processing events and taking appropriate actions.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *Event) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *Event) error
}
