package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mineradorx/relay/internal/core/constants"
	"github.com/mineradorx/relay/internal/logger"
)

func bufferLogger(level slog.Level) (*logger.StyledLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: level}))
	return logger.NewPlainStyledLogger(l), &buf
}

func TestEnhancedLoggingMiddleware_HonoursRequestID(t *testing.T) {
	styled, buf := bufferLogger(slog.LevelInfo)

	handler := EnhancedLoggingMiddleware(styled)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "caller-123", GetRequestID(r.Context()))
		assert.NotNil(t, GetLogger(r.Context()))
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	req := httptest.NewRequest(http.MethodGet, constants.DefaultStatusEndpoint, nil)
	req.Header.Set(constants.HeaderXRequestID, "caller-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "caller-123", rec.Header().Get(constants.HeaderRelayRequest))
	assert.Equal(t, "short and stout", rec.Body.String())

	out := buf.String()
	assert.Contains(t, out, `"msg":"Request started"`)
	assert.Contains(t, out, `"msg":"Request completed"`)
	assert.Contains(t, out, `"status":418`)
	assert.Contains(t, out, `"request_id":"caller-123"`)
}

func TestEnhancedLoggingMiddleware_GeneratesRequestID(t *testing.T) {
	styled, _ := bufferLogger(slog.LevelInfo)

	var seen string
	handler := EnhancedLoggingMiddleware(styled)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(constants.HeaderRelayRequest))
}

func TestEnhancedLoggingMiddleware_InferenceRoutesLogAtDebug(t *testing.T) {
	styled, buf := bufferLogger(slog.LevelInfo)

	handler := EnhancedLoggingMiddleware(styled)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, constants.PathGenerate, strings.NewReader(`{"prompt":"x"}`)))

	assert.Empty(t, buf.String(), "inference handlers do their own INFO logging")
}

func TestAccessLoggingMiddleware(t *testing.T) {
	styled, buf := bufferLogger(slog.LevelInfo)

	handler := AccessLoggingMiddleware(styled)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing?x=1", nil))

	out := buf.String()
	assert.Contains(t, out, `"msg":"Access log"`)
	assert.Contains(t, out, `"query":"x=1"`)
	assert.Contains(t, out, `"status":404`)
}

func TestIsInferenceRequest(t *testing.T) {
	assert.True(t, IsInferenceRequest("/summarize"))
	assert.True(t, IsInferenceRequest("/generate"))
	assert.False(t, IsInferenceRequest("/internal/health"))
	assert.False(t, IsInferenceRequest("/generate/extra"))
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "0B", FormatBytes(0))
	assert.Equal(t, "0B", FormatBytes(-5))
	assert.Equal(t, "512B", FormatBytes(512))
	assert.Equal(t, "1.5KiB", FormatBytes(1536))
	assert.Equal(t, "2MiB", FormatBytes(2*1024*1024))
}
