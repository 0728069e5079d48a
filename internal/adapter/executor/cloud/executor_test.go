package cloud

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mineradorx/relay/internal/core/constants"
	"github.com/mineradorx/relay/internal/core/domain"
	"github.com/mineradorx/relay/internal/logger"
)

func createTestLogger() *logger.StyledLogger {
	return logger.NewPlainStyledLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func cloudCall(params domain.InferenceParams) *domain.InferenceCall {
	return &domain.InferenceCall{
		Service: &domain.ServiceDescriptor{
			Name:         domain.ServicePrimaryGenerator,
			Kind:         domain.BackendCloud,
			CloudModelID: "mistralai/mistral-7b-instruct",
		},
		Prompt:  "What is RAG?",
		Params:  params,
		Timeout: 5 * time.Second,
	}
}

func TestExecute_Success(t *testing.T) {
	var gotBody map[string]any
	var gotHeaders http.Header
	var gotPath string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotHeaders = r.Header.Clone()
		raw, _ := io.ReadAll(r.Body)
		_ = jsoniter.Unmarshal(raw, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"gen-1","choices":[{"message":{"role":"assistant","content":"  Retrieval augmented generation.  "}}]}`))
	}))
	defer server.Close()

	exec := NewExecutor(server.Client(), Options{
		BaseURL: server.URL + "/api/v1/",
		APIKey:  "sk-test",
		Referer: "http://localhost",
	}, createTestLogger())

	ctx := context.WithValue(context.Background(), constants.ContextRequestIdKey, "req-42")
	text, err := exec.Execute(ctx, cloudCall(domain.InferenceParams{
		"temperature": 0.3,
		"model":       "ignored",
	}))
	require.NoError(t, err)

	assert.Equal(t, "  Retrieval augmented generation.  ", text)
	assert.Equal(t, "/api/v1/chat/completions", gotPath)
	assert.Equal(t, "Bearer sk-test", gotHeaders.Get("Authorization"))
	assert.Equal(t, "http://localhost", gotHeaders.Get("HTTP-Referer"))
	assert.Equal(t, "relay", gotHeaders.Get("X-Title"))
	assert.Equal(t, "req-42", gotHeaders.Get("X-Request-ID"))

	assert.Equal(t, "mistralai/mistral-7b-instruct", gotBody["model"])
	assert.InDelta(t, 0.3, gotBody["temperature"], 0.0001)
	messages, ok := gotBody["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 1)
	assert.Equal(t, map[string]any{"role": "user", "content": "What is RAG?"}, messages[0])
}

func TestExecute_MissingKeyIsUnavailable(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	exec := NewExecutor(server.Client(), Options{BaseURL: server.URL, APIKey: "  "}, createTestLogger())
	assert.False(t, exec.Available(domain.ServicePrimaryGenerator))

	_, err := exec.Execute(context.Background(), cloudCall(nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
	assert.Equal(t, http.StatusServiceUnavailable, domain.StatusOf(err))
	assert.False(t, called, "no request is sent without a key")
}

func TestExecute_BackendFailures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		contains string
	}{
		{name: "unauthorised", status: http.StatusUnauthorized, body: `{"error":{"message":"No auth credentials found"}}`, contains: "HTTP 401"},
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{"error":"slow down"}`, contains: "slow down"},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`, contains: "unexpected cloud API response"},
		{name: "not json", status: http.StatusOK, body: `<html>bad gateway</html>`, contains: "bad gateway"},
		{name: "content not a string", status: http.StatusOK, body: `{"choices":[{"message":{"content":null}}]}`, contains: "unexpected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			exec := NewExecutor(server.Client(), Options{BaseURL: server.URL, APIKey: "sk"}, createTestLogger())
			_, err := exec.Execute(context.Background(), cloudCall(nil))
			require.Error(t, err)
			assert.Equal(t, domain.ErrorKindBackendFailure, domain.KindOf(err))
			assert.Equal(t, http.StatusInternalServerError, domain.StatusOf(err))
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestExecute_ErrorSnippetIsTruncated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(strings.Repeat("e", 4096)))
	}))
	defer server.Close()

	exec := NewExecutor(server.Client(), Options{BaseURL: server.URL, APIKey: "sk"}, createTestLogger())
	_, err := exec.Execute(context.Background(), cloudCall(nil))
	require.Error(t, err)
	assert.Less(t, len(err.Error()), 700)
	assert.True(t, strings.HasSuffix(err.Error(), "..."))
}

func TestExecute_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	exec := NewExecutor(http.DefaultClient, Options{BaseURL: url, APIKey: "sk"}, createTestLogger())
	_, err := exec.Execute(context.Background(), cloudCall(nil))
	require.Error(t, err)
	assert.Equal(t, domain.ErrorKindBackendFailure, domain.KindOf(err))
	assert.Contains(t, err.Error(), "cloud API request failed")
}

func TestExecute_Deadline(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	exec := NewExecutor(server.Client(), Options{BaseURL: server.URL, APIKey: "sk"}, createTestLogger())
	c := cloudCall(nil)
	c.Timeout = 50 * time.Millisecond

	_, err := exec.Execute(context.Background(), c)
	require.Error(t, err)
	assert.Equal(t, domain.ErrorKindBackendFailure, domain.KindOf(err), "cloud deadlines are backend failures, not local timeouts")
	assert.Contains(t, err.Error(), "did not respond within")
}

func TestNewExecutor_Defaults(t *testing.T) {
	exec := NewExecutor(http.DefaultClient, Options{APIKey: "sk"}, createTestLogger())
	assert.Equal(t, "https://openrouter.ai/api/v1/chat/completions", exec.endpoint)
	assert.Equal(t, domain.BackendCloud, exec.Kind())
	assert.True(t, exec.Available(domain.ServiceSummarizer))
}
