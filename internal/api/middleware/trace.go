package middleware

import (
	"log/slog"
	"net/http"

	"github.com/klausbr/readium-api/internal/api/shared"
)

// TraceMiddleware stamps every request with a trace ID early in the chain
// so upload, OCR and translation handlers (and the error responder) can
// correlate their log lines with the response the client saw.
func TraceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := shared.SetTraceID(r.Context())
		traceID := shared.GetTraceID(ctx)

		slog.With(slog.String("trace_id", traceID)).Debug("request started",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote_addr", r.RemoteAddr))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
