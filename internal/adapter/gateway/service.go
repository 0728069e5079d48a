package gateway

/*
	Relay Inference Dispatcher
	Resolves a logical service, picks the executor registered for its
	backend kind and runs the call with the shared inference defaults.

	Executors are keyed by kind, so adding a backend means registering one
	more ports.Executor. A descriptor whose kind has no executor is reported
	as not implemented rather than rejected at load time.
*/

import (
	"context"
	"strings"
	"time"

	"github.com/mineradorx/relay/internal/core/constants"
	"github.com/mineradorx/relay/internal/core/domain"
	"github.com/mineradorx/relay/internal/core/ports"
	"github.com/mineradorx/relay/internal/logger"
)

type Options struct {
	Defaults     domain.InferenceParams
	LocalTimeout time.Duration
	CloudTimeout time.Duration
}

// ServiceStatus is what /internal/status/services reports per service
type ServiceStatus struct {
	Name      domain.ServiceName `json:"name"`
	Kind      domain.BackendKind `json:"type"`
	Model     string             `json:"model"`
	Reason    string             `json:"reason,omitempty"`
	Available bool               `json:"available"`
}

// loadErrorReporter is implemented by executors that load models up front
type loadErrorReporter interface {
	LoadError(service domain.ServiceName) error
}

type Service struct {
	registry  ports.ServiceRegistry
	stats     ports.StatsCollector
	executors map[domain.BackendKind]ports.Executor
	timeouts  map[domain.BackendKind]time.Duration
	defaults  domain.InferenceParams
	logger    *logger.StyledLogger
}

func NewService(registry ports.ServiceRegistry, executors []ports.Executor, opts Options, stats ports.StatsCollector, logger *logger.StyledLogger) *Service {
	byKind := make(map[domain.BackendKind]ports.Executor, len(executors))
	for _, e := range executors {
		byKind[e.Kind()] = e
	}

	localTimeout := opts.LocalTimeout
	if localTimeout <= 0 {
		localTimeout = constants.DefaultLocalTimeout
	}
	cloudTimeout := opts.CloudTimeout
	if cloudTimeout <= 0 {
		cloudTimeout = constants.DefaultCloudTimeout
	}

	return &Service{
		registry:  registry,
		stats:     stats,
		executors: byKind,
		timeouts: map[domain.BackendKind]time.Duration{
			domain.BackendLocal: localTimeout,
			domain.BackendCloud: cloudTimeout,
		},
		defaults: domain.InferenceParams{}.Merge(opts.Defaults),
		logger:   logger,
	}
}

// Infer runs prompt against the named service and returns the trimmed text.
// Errors are always *domain.InferenceError.
func (s *Service) Infer(ctx context.Context, name domain.ServiceName, prompt string) (string, error) {
	desc, err := s.registry.Resolve(name)
	if err != nil {
		return "", err
	}

	executor, ok := s.executors[desc.Kind]
	if !ok {
		s.logger.WarnWithService("No executor for service type", name.String(), "type", desc.Kind)
		return "", domain.NewNotImplementedError(name, desc.Kind)
	}

	call := &domain.InferenceCall{
		Service: desc,
		Prompt:  prompt,
		Params:  s.defaults.Merge(nil),
		Timeout: s.timeouts[desc.Kind],
	}

	log := s.logger
	if requestID, ok := ctx.Value(constants.ContextRequestIdKey).(string); ok && requestID != "" {
		log = log.WithRequestID(requestID)
	}
	log.Debug("Dispatching inference", "service", name, "type", desc.Kind, "model", desc.ModelLabel(),
		"prompt_chars", len(prompt))

	start := time.Now()
	text, err := executor.Execute(ctx, call)
	latency := time.Since(start)

	if err != nil {
		kind := domain.KindOf(err)
		if kind == domain.ErrorKindUnknown {
			// executors should not do this, keep the contract anyway
			err = domain.NewBackendError(name, err)
			kind = domain.ErrorKindBackendFailure
		}
		s.record(name, desc.Kind, kind, latency, false)
		log.WarnWithService("Inference failed", name.String(), "type", desc.Kind, "kind", kind,
			"latency", latency.Round(time.Millisecond), "error", err)
		return "", err
	}

	s.record(name, desc.Kind, domain.ErrorKindUnknown, latency, true)
	log.InfoWithService("Inference completed", name.String(), "type", desc.Kind,
		"latency", latency.Round(time.Millisecond), "chars", len(text))

	return strings.TrimSpace(text), nil
}

func (s *Service) record(name domain.ServiceName, kind domain.BackendKind, outcome domain.ErrorKind, latency time.Duration, success bool) {
	if s.stats != nil {
		s.stats.RecordInference(name, kind, outcome, latency, success)
	}
}

// Statuses reports every registered service and whether it can serve
// requests right now
func (s *Service) Statuses() []ServiceStatus {
	descs := s.registry.All()
	out := make([]ServiceStatus, 0, len(descs))

	for _, desc := range descs {
		st := ServiceStatus{
			Name:      desc.Name,
			Kind:      desc.Kind,
			Model:     desc.ModelLabel(),
			Available: true,
		}

		executor, ok := s.executors[desc.Kind]
		switch {
		case !ok:
			st.Available = false
			st.Reason = "service type not implemented"
		default:
			if reporter, ok := executor.(ports.AvailabilityReporter); ok && !reporter.Available(desc.Name) {
				st.Available = false
				st.Reason = "unavailable"
				if ler, ok := executor.(loadErrorReporter); ok {
					if err := ler.LoadError(desc.Name); err != nil {
						st.Reason = err.Error()
					}
				}
			}
		}

		out = append(out, st)
	}
	return out
}

// Defaults is a copy of the shared inference parameters
func (s *Service) Defaults() domain.InferenceParams {
	return s.defaults.Merge(nil)
}
