package ports

import (
	"context"

	"github.com/mineradorx/relay/internal/core/domain"
)

// ServiceRegistry resolves logical service names to their descriptors
type ServiceRegistry interface {
	Resolve(name domain.ServiceName) (*domain.ServiceDescriptor, error)
	All() []*domain.ServiceDescriptor
}

// Executor runs a single inference call against one kind of backend.
// New backends are added as new implementations keyed by their kind.
type Executor interface {
	Kind() domain.BackendKind
	Execute(ctx context.Context, call *domain.InferenceCall) (string, error)
}

// AvailabilityReporter is implemented by executors that can tell in advance
// whether a service will be able to serve requests
type AvailabilityReporter interface {
	Available(service domain.ServiceName) bool
}

// LocalModel is an opaque, loaded local model. Complete blocks until the
// model finishes and is not guaranteed to observe cancellation.
type LocalModel interface {
	Complete(prompt string, params domain.InferenceParams) (string, error)
	Info() domain.LocalModelInfo
	Close() error
}

// ModelLoader turns a model path plus load parameters into a LocalModel
type ModelLoader interface {
	Load(ctx context.Context, path string, loadParams map[string]any) (LocalModel, error)
}

// InferenceService is what the HTTP front end calls
type InferenceService interface {
	Infer(ctx context.Context, service domain.ServiceName, prompt string) (string, error)
}
