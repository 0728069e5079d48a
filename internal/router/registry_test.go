package router

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mineradorx/relay/internal/logger"
)

func createTestLogger() *logger.StyledLogger {
	return logger.NewPlainStyledLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type markingAdapters struct{}

func mark(header string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(header, "1")
			next.ServeHTTP(w, r)
		})
	}
}

func (markingAdapters) CreateChainMiddleware() func(http.Handler) http.Handler {
	return mark("X-Chain")
}

func (markingAdapters) CreateRateLimitMiddleware() func(http.Handler) http.Handler {
	return mark("X-Rate")
}

func ok(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestWireUpWithSecurityChain(t *testing.T) {
	reg := NewRouteRegistry(createTestLogger()).Quiet()
	reg.RegisterInferenceRoute("/generate", ok, "Generate")
	reg.Register("/version", ok, "Version")

	mux := http.NewServeMux()
	reg.WireUpWithSecurityChain(mux, markingAdapters{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/generate", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-Chain"))
	assert.Empty(t, rec.Header().Get("X-Rate"))

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-Rate"))
	assert.Empty(t, rec.Header().Get("X-Chain"))
}

func TestMethodGuard(t *testing.T) {
	reg := NewRouteRegistry(createTestLogger()).Quiet()
	reg.RegisterInferenceRoute("/summarize", ok, "Summarize")
	reg.Register("/internal/health", ok, "Health")

	mux := http.NewServeMux()
	reg.WireUp(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/summarize", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
	assert.JSONEq(t, `{"detail":"Method Not Allowed"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/internal/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "HEAD is allowed on GET routes")
}

func TestRegistrationOrder(t *testing.T) {
	reg := NewRouteRegistry(createTestLogger())
	reg.Register("/b", ok, "B")
	reg.Register("/a", ok, "A")

	routes := reg.GetRoutes()
	require.Len(t, routes, 2)
	assert.Less(t, routes["/b"].Order, routes["/a"].Order)
	assert.Equal(t, http.MethodGet, routes["/a"].Method)
	assert.False(t, routes["/a"].IsInference)
}
