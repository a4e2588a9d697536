package task

import (
	"context"

	"github.com/google/uuid"
)

// Task type constants
const (
	// TaskTypeMetadata represents the task type for extracting document metadata
	TaskTypeMetadata = "metadata_extraction"

	// TaskTypeOcr represents the task type for OCR scoring and processing
	TaskTypeOcr = "ocr_processing"
)

// Task represents a unit of background work to be processed
type Task interface {
	// ID returns the task's unique identifier
	ID() uuid.UUID

	// Type returns the task type identifier
	Type() string

	// Execute runs the task logic
	Execute(ctx context.Context) error
}
