package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/docker/go-units"

	"github.com/mineradorx/relay/internal/core/constants"
	"github.com/mineradorx/relay/internal/logger"
	"github.com/mineradorx/relay/internal/util"
)

type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	LoggerKey    contextKey = "logger"
)

// IsInferenceRequest is true for the routes that reach a model, their
// handler logs at INFO so the middleware drops to DEBUG
func IsInferenceRequest(path string) bool {
	return path == constants.PathSummarize || path == constants.PathGenerate
}

// responseWriter wraps http.ResponseWriter to capture response size and status
type responseWriter struct {
	http.ResponseWriter
	status int
	size   int64
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	size, err := rw.ResponseWriter.Write(b)
	rw.size += int64(size)
	return size, err
}

func (rw *responseWriter) WriteHeader(s int) {
	rw.status = s
	rw.ResponseWriter.WriteHeader(s)
}

func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// GetLogger retrieves a logger with request ID from context
func GetLogger(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(LoggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// EnhancedLoggingMiddleware assigns the request ID (honouring X-Request-ID
// from the caller), echoes it back and logs request start and completion
func EnhancedLoggingMiddleware(styledLogger *logger.StyledLogger) func(http.Handler) http.Handler {
	base := styledLogger.GetUnderlying()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get(constants.HeaderXRequestID)
			if requestID == "" {
				requestID = util.GenerateRequestID()
			}

			requestSize := r.ContentLength
			if requestSize < 0 {
				requestSize = 0
			}

			ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
			ctx = context.WithValue(ctx, constants.ContextRequestTimeKey, start)

			reqLogger := base.With(constants.ContextRequestIdKey, requestID)
			ctx = context.WithValue(ctx, LoggerKey, reqLogger)

			w.Header().Set(constants.HeaderRelayRequest, requestID)

			wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			logFields := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
				"request_bytes", requestSize,
				"request_size_formatted", FormatBytes(requestSize),
			}

			inference := IsInferenceRequest(r.URL.Path)
			if inference {
				reqLogger.Debug("HTTP request started", logFields...)
			} else {
				reqLogger.Info("Request started", logFields...)
			}

			next.ServeHTTP(wrapped, r.WithContext(ctx))

			duration := time.Since(start)
			completionFields := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.status,
				"duration_ms", duration.Milliseconds(),
				"duration_formatted", duration.String(),
				"request_bytes", requestSize,
				"response_bytes", wrapped.size,
				"size_flow", fmt.Sprintf("%s -> %s", FormatBytes(requestSize), FormatBytes(wrapped.size)),
			}

			if inference {
				reqLogger.Debug("HTTP request completed", completionFields...)
			} else {
				reqLogger.Info("Request completed", completionFields...)
			}
		})
	}
}

// AccessLoggingMiddleware writes one detailed line per request, file output only
func AccessLoggingMiddleware(styledLogger *logger.StyledLogger) func(http.Handler) http.Handler {
	base := styledLogger.GetUnderlying()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := GetRequestID(r.Context())
			if requestID == "" {
				requestID = util.GenerateRequestID()
				r = r.WithContext(context.WithValue(r.Context(), RequestIDKey, requestID))
			}

			requestSize := r.ContentLength
			if requestSize < 0 {
				requestSize = 0
			}

			wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)

			base.InfoContext(logger.WithDetailed(r.Context()), "Access log",
				"timestamp", start.Format(time.RFC3339),
				"request_id", requestID,
				"remote_addr", r.RemoteAddr,
				"client_ip", util.GetClientIP(r, false, nil),
				"method", r.Method,
				"path", r.URL.Path,
				"query", r.URL.RawQuery,
				"status", wrapped.status,
				"request_bytes", requestSize,
				"response_bytes", wrapped.size,
				"duration_ms", duration.Milliseconds(),
				"user_agent", r.UserAgent(),
				"content_type", r.Header.Get(constants.ContentTypeHeader))
		})
	}
}

// FormatBytes renders a byte count in binary units, 0 stays "0B"
func FormatBytes(bytes int64) string {
	if bytes <= 0 {
		return "0B"
	}
	return units.BytesSize(float64(bytes))
}
