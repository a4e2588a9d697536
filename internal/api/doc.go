// Package api provides the HTTP surface of the application: thin chi
// handlers that decode requests, call a service, and encode responses.
// Error-to-status mapping is centralized in MapErrorToStatusCode so
// handlers never invent their own codes, and responses carry only
// sanitized messages (full errors go to the logs, redacted).
package api
