package assistant

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mineradorx/relay/internal/core/domain"
	"github.com/mineradorx/relay/internal/logger"
)

func createTestLogger() *logger.StyledLogger {
	return logger.NewPlainStyledLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestGatewayClient_Success(t *testing.T) {
	var gotPath, gotRequestID, gotPrompt string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRequestID = r.Header.Get("X-Request-ID")
		var body domain.InferenceRequest
		_ = jsoniter.NewDecoder(r.Body).Decode(&body)
		gotPrompt = body.Prompt
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"texto_gerado":"a short summary"}`))
	}))
	defer server.Close()

	client := NewGatewayClient(server.URL+"/", time.Second, createTestLogger())
	result := client.Do(context.Background(), "/summarize", "long text")

	require.False(t, result.Failed(), result.Text)
	assert.Equal(t, "a short summary", result.Text)
	assert.Equal(t, http.StatusOK, result.Status)
	assert.Equal(t, "/summarize", gotPath)
	assert.Equal(t, "long text", gotPrompt)
	assert.Equal(t, result.RequestID, gotRequestID)
	_, err := uuid.Parse(gotRequestID)
	require.NoError(t, err)

	assert.Equal(t, "a short summary", client.Call(context.Background(), EndpointSummarize, "long text"))
}

func TestGatewayClient_HTTPErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		want   string
		status int
		kind   domain.ErrorKind
	}{
		{
			name:   "unavailable with detail",
			status: http.StatusServiceUnavailable,
			body:   `{"detail":"service 'summarizer' unavailable: model unavailable"}`,
			want:   "ERROR: /summarize returned HTTP 503: service 'summarizer' unavailable: model unavailable",
			kind:   domain.ErrorKindUnavailable,
		},
		{
			name:   "not found",
			status: http.StatusNotFound,
			body:   `{"detail":"service 'summarizer' not found"}`,
			want:   "ERROR: /summarize returned HTTP 404: service 'summarizer' not found",
			kind:   domain.ErrorKindNotFound,
		},
		{
			name:   "local timeout",
			status: http.StatusRequestTimeout,
			body:   `{"detail":"local service 'summarizer' exceeded the 180s limit"}`,
			want:   "ERROR: /summarize returned HTTP 408: local service 'summarizer' exceeded the 180s limit",
			kind:   domain.ErrorKindTimeout,
		},
		{
			name:   "plain text body",
			status: http.StatusBadGateway,
			body:   "upstream gone\n",
			want:   "ERROR: /summarize returned HTTP 502: upstream gone",
			kind:   domain.ErrorKindBackendFailure,
		},
		{
			name:   "empty body",
			status: http.StatusInternalServerError,
			want:   "ERROR: /summarize returned HTTP 500: Internal Server Error",
			kind:   domain.ErrorKindBackendFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			result := NewGatewayClient(server.URL, time.Second, createTestLogger()).Do(context.Background(), EndpointSummarize, "x")
			require.True(t, result.Failed())
			assert.Equal(t, tt.want, result.Text)
			assert.Equal(t, tt.status, result.Status)
			assert.Equal(t, tt.kind, result.Kind)
		})
	}
}

func TestGatewayClient_InvalidResponse(t *testing.T) {
	for _, body := range []string{`not json`, `{"text":"wrong field"}`, `{"texto_gerado":42}`} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))

		result := NewGatewayClient(server.URL, time.Second, createTestLogger()).Do(context.Background(), EndpointGenerate, "x")
		assert.Equal(t, "ERROR: invalid response from /generate", result.Text, body)
		assert.True(t, result.Failed())
		server.Close()
	}
}

func TestGatewayClient_ConnectionFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	result := NewGatewayClient(url, time.Second, createTestLogger()).Do(context.Background(), EndpointGenerate, "x")
	assert.True(t, strings.HasPrefix(result.Text, "ERROR: connection to /generate failed: "), result.Text)
	assert.Equal(t, domain.ErrorKindClientTransport, result.Kind)
	assert.Zero(t, result.Status)
}

func TestGatewayClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	result := NewGatewayClient(server.URL, 50*time.Millisecond, createTestLogger()).Do(context.Background(), EndpointGenerate, "x")
	assert.Equal(t, "ERROR: request to /generate timed out", result.Text)
	assert.Equal(t, domain.ErrorKindClientTransport, result.Kind)
}
