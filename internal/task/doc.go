// Package task manages background job queuing and processing. It provides
// bounded in-process worker pools for long-running operations like metadata
// extraction and OCR scoring, ensuring they don't block HTTP request
// handling while never dropping accepted work.
package task
