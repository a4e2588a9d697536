// Package service contains the application-specific use cases and business
// logic. It orchestrates interactions between domain objects and repositories
// (defined in internal/store) to fulfill application features.
//
// The service package implements the application layer: it coordinates
// uploads and deduplication, OCR queuing and staleness recovery, reading
// progress, and vocabulary translation, abstracting away infrastructure
// details behind the store, storage, translation and events ports.
//
// Error handling follows a single convention:
//
//  1. Service methods return sentinel errors for expected conditions
//     (store.ErrBookNotFound, domain.ErrUnsupportedFormat, ...)
//  2. Unexpected failures are wrapped in service-specific error types
//  3. Callers use errors.Is/errors.As to check for specific conditions
//  4. The API layer maps service errors to HTTP status codes
package service
