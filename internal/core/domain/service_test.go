package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceDescriptor_Validate(t *testing.T) {
	tests := []struct {
		name    string
		desc    ServiceDescriptor
		wantErr bool
	}{
		{name: "local", desc: ServiceDescriptor{Name: ServiceSummarizer, Kind: BackendLocal, LocalPath: "/models/a.gguf"}},
		{name: "cloud", desc: ServiceDescriptor{Name: ServicePrimaryGenerator, Kind: BackendCloud, CloudModelID: "vendor/modelX"}},
		{name: "both populated", desc: ServiceDescriptor{Name: ServiceSummarizer, Kind: BackendLocal, LocalPath: "/m.gguf", CloudModelID: "x"}, wantErr: true},
		{name: "local without path", desc: ServiceDescriptor{Name: ServiceSummarizer, Kind: BackendLocal}, wantErr: true},
		{name: "cloud without id", desc: ServiceDescriptor{Name: ServiceSummarizer, Kind: BackendCloud}, wantErr: true},
		{name: "missing kind", desc: ServiceDescriptor{Name: ServiceSummarizer, LocalPath: "/m.gguf"}, wantErr: true},
		{name: "unknown kind passes validation", desc: ServiceDescriptor{Name: ServiceSummarizer, Kind: "quantum", CloudModelID: "q"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.desc.Validate()
			if tt.wantErr {
				var cfgErr *ConfigValidationError
				require.ErrorAs(t, err, &cfgErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestServiceDescriptor_ModelLabel(t *testing.T) {
	local := &ServiceDescriptor{Kind: BackendLocal, LocalPath: "/home/u/.cache/models/mistral-7b.Q4.gguf"}
	cloud := &ServiceDescriptor{Kind: BackendCloud, CloudModelID: "vendor/modelX"}

	assert.Equal(t, "mistral-7b.Q4.gguf", local.ModelLabel())
	assert.Equal(t, "vendor/modelX", cloud.ModelLabel())
	assert.Equal(t, "unconfigured", (&ServiceDescriptor{}).ModelLabel())
}

func TestServiceDescriptor_CloneIsIndependent(t *testing.T) {
	orig := &ServiceDescriptor{Name: ServiceSummarizer, Kind: BackendCloud, CloudModelID: "a"}
	c := orig.Clone()
	c.CloudModelID = "b"

	assert.Equal(t, "a", orig.CloudModelID)
}

func TestKnownServices(t *testing.T) {
	assert.Equal(t, []ServiceName{"summarizer", "primary_generator"}, KnownServices())
	assert.True(t, ServiceName("summarizer").IsKnown())
	assert.False(t, ServiceName("translator").IsKnown())
}

func TestRetrievedContext_Join(t *testing.T) {
	rc := RetrievedContext{"P1", "P2", "P3"}
	assert.Equal(t, "P1\n\nP2\n\nP3", rc.Join())
	assert.True(t, RetrievedContext{}.IsEmpty())
}

func TestInferenceParams_Merge(t *testing.T) {
	base := InferenceParams{"temperature": 0.7, "max_tokens": 512}
	merged := base.Merge(InferenceParams{"max_tokens": 64, "stop": []string{"</s>"}})

	assert.Equal(t, 0.7, merged["temperature"])
	assert.Equal(t, 64, merged["max_tokens"])
	assert.Equal(t, 512, base["max_tokens"], "base must not change")
}

func TestErrorKind_HTTPStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{NewNotFoundError("translator"), http.StatusNotFound},
		{NewUnavailableError(ServiceSummarizer, "model unavailable"), http.StatusServiceUnavailable},
		{NewTimeoutError(ServiceSummarizer, 180*time.Second), http.StatusRequestTimeout},
		{NewBackendError(ServicePrimaryGenerator, errors.New("boom")), http.StatusInternalServerError},
		{NewNotImplementedError(ServiceSummarizer, "quantum"), http.StatusNotImplemented},
		{errors.New("untyped"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.status, StatusOf(tt.err))
		})
	}
}

func TestInferenceError_Messages(t *testing.T) {
	timeout := NewTimeoutError(ServiceSummarizer, 180*time.Second)
	assert.Contains(t, timeout.Error(), "summarizer")
	assert.Contains(t, timeout.Error(), "180s")

	backend := NewBackendError(ServicePrimaryGenerator, errors.New("HTTP 502: bad gateway"))
	assert.Contains(t, backend.Error(), "HTTP 502: bad gateway")

	assert.Contains(t, NewNotImplementedError(ServiceSummarizer, "quantum").Error(), "quantum")
}

func TestInferenceError_IsAndWrapping(t *testing.T) {
	wrapped := fmt.Errorf("dispatch: %w", NewTimeoutError(ServiceSummarizer, time.Second))

	assert.ErrorIs(t, wrapped, ErrInferenceTimeout)
	assert.NotErrorIs(t, wrapped, ErrBackendFailure)
	assert.Equal(t, ErrorKindTimeout, KindOf(wrapped))
}
