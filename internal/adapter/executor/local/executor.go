package local

/*
	Relay Local Executor
	Every local service gets one handle, loaded eagerly at startup. A handle
	runs one completion at a time (semaphore of weight 1) because a loaded
	model holds mutable inference state.

	A call runs on its own worker goroutine and races a deadline. When the
	deadline wins the caller gets a timeout error and the worker is ABANDONED,
	not stopped: the model keeps computing and keeps the handle's slot until
	it returns. Abandoned workers are counted in stats so a pile-up is visible.
	Close() is the only thing that interrupts them.
*/

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/mineradorx/relay/internal/core/constants"
	"github.com/mineradorx/relay/internal/core/domain"
	"github.com/mineradorx/relay/internal/core/ports"
	"github.com/mineradorx/relay/internal/logger"
)

const DefaultMaxConcurrentLoads = 2

// AbandonRecorder is the slice of the stats collector the executor needs
type AbandonRecorder interface {
	RecordAbandoned(service domain.ServiceName, delta int)
}

type Options struct {
	LoadParams         map[string]any
	MaxConcurrentLoads int
}

type handle struct {
	model   ports.LocalModel
	loadErr error
	sem     *semaphore.Weighted
	desc    *domain.ServiceDescriptor
}

type Executor struct {
	handles   map[domain.ServiceName]*handle
	recorder  AbandonRecorder
	logger    *logger.StyledLogger
	workers   sync.WaitGroup
	abandoned atomic.Int64
	closeOnce sync.Once
}

type completion struct {
	err  error
	text string
}

const (
	workerRunning int32 = iota
	workerDelivered
	workerAbandoned
)

// NewExecutor loads every local descriptor before returning. A model that
// fails to load is logged and leaves its service unavailable, only a
// cancelled ctx fails construction.
func NewExecutor(ctx context.Context, loader ports.ModelLoader, descriptors []*domain.ServiceDescriptor, opts Options, recorder AbandonRecorder, logger *logger.StyledLogger) (*Executor, error) {
	e := &Executor{
		handles:  make(map[domain.ServiceName]*handle),
		recorder: recorder,
		logger:   logger,
	}

	for _, desc := range descriptors {
		if desc.Kind != domain.BackendLocal {
			continue
		}
		e.handles[desc.Name] = &handle{
			desc: desc.Clone(),
			sem:  semaphore.NewWeighted(1),
		}
	}

	limit := opts.MaxConcurrentLoads
	if limit <= 0 {
		limit = DefaultMaxConcurrentLoads
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, h := range e.handles {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			model, err := loader.Load(gctx, h.desc.LocalPath, opts.LoadParams)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				h.loadErr = err
				logger.WarnWithService("Local model failed to load, service unavailable", h.desc.Name.String(),
					"path", h.desc.LocalPath, "error", err)
				return nil
			}
			h.model = model
			logger.InfoServiceBackend("Loaded local model", h.desc.Name.String(), domain.BackendLocal.String(), h.desc.LocalPath,
				"duration", time.Since(start).Round(time.Millisecond))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		e.Close()
		return nil, fmt.Errorf("loading local models: %w", err)
	}

	return e, nil
}

func (e *Executor) Kind() domain.BackendKind {
	return domain.BackendLocal
}

func (e *Executor) Available(service domain.ServiceName) bool {
	h, ok := e.handles[service]
	return ok && h.model != nil
}

// LoadError reports why a service has no model, nil when it loaded fine
func (e *Executor) LoadError(service domain.ServiceName) error {
	if h, ok := e.handles[service]; ok {
		return h.loadErr
	}
	return nil
}

func (e *Executor) ModelInfo(service domain.ServiceName) (domain.LocalModelInfo, bool) {
	h, ok := e.handles[service]
	if !ok || h.model == nil {
		return domain.LocalModelInfo{}, false
	}
	return h.model.Info(), true
}

// Abandoned is the number of timed out workers that are still running
func (e *Executor) Abandoned() int64 {
	return e.abandoned.Load()
}

func (e *Executor) Execute(ctx context.Context, call *domain.InferenceCall) (string, error) {
	name := call.Service.Name

	h, ok := e.handles[name]
	if !ok || h.model == nil {
		return "", domain.NewUnavailableError(name, "model unavailable")
	}

	timeout := call.Timeout
	if timeout <= 0 {
		timeout = constants.DefaultLocalTimeout
	}
	deadline, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// waiting behind a busy handle counts against the same limit
	if err := h.sem.Acquire(deadline, 1); err != nil {
		return "", e.deadlineError(ctx, name, timeout)
	}

	params := withStopSequences(call.Params)
	resultCh := make(chan completion, 1)
	var state atomic.Int32

	e.workers.Add(1)
	go func() {
		defer e.workers.Done()
		defer h.sem.Release(1)

		res := runModel(h.model, call.Prompt, params)

		if state.CompareAndSwap(workerRunning, workerDelivered) {
			resultCh <- res
			return
		}
		e.abandoned.Add(-1)
		if e.recorder != nil {
			e.recorder.RecordAbandoned(name, -1)
		}
		e.logger.Debug("Abandoned local worker finished", "service", name, "error", res.err)
	}()

	select {
	case res := <-resultCh:
		return e.result(name, res)
	case <-deadline.Done():
		if !state.CompareAndSwap(workerRunning, workerAbandoned) {
			// worker finished in the same instant, its result is already buffered
			return e.result(name, <-resultCh)
		}
		e.abandoned.Add(1)
		if e.recorder != nil {
			e.recorder.RecordAbandoned(name, 1)
		}
		return "", e.deadlineError(ctx, name, timeout)
	}
}

func (e *Executor) result(name domain.ServiceName, res completion) (string, error) {
	if res.err != nil {
		return "", domain.NewBackendError(name, res.err)
	}
	return res.text, nil
}

// deadlineError distinguishes our own limit from the caller going away
func (e *Executor) deadlineError(parent context.Context, name domain.ServiceName, timeout time.Duration) error {
	if err := parent.Err(); err != nil {
		return domain.NewBackendError(name, err)
	}
	return domain.NewTimeoutError(name, timeout)
}

func runModel(model ports.LocalModel, prompt string, params domain.InferenceParams) (res completion) {
	defer func() {
		if r := recover(); r != nil {
			res = completion{err: fmt.Errorf("local model panicked: %v", r)}
		}
	}()
	text, err := model.Complete(prompt, params)
	return completion{text: text, err: err}
}

// withStopSequences appends the defaults to whatever stop list the call carries
func withStopSequences(params domain.InferenceParams) domain.InferenceParams {
	existing, err := stringList(params[stopParam])
	if err != nil {
		// leave the bad value in place so the runner reports it
		return params
	}

	stops := make([]string, 0, len(existing)+len(constants.DefaultLocalStopSequences))
	stops = append(stops, existing...)
	for _, def := range constants.DefaultLocalStopSequences {
		if !contains(stops, def) {
			stops = append(stops, def)
		}
	}
	return params.Merge(domain.InferenceParams{stopParam: stops})
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Wait blocks until every worker, abandoned ones included, has returned or ctx ends
func (e *Executor) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.workers.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases every loaded model
func (e *Executor) Close() {
	e.closeOnce.Do(func() {
		for name, h := range e.handles {
			if h.model == nil {
				continue
			}
			if err := h.model.Close(); err != nil {
				e.logger.Warn("Failed to close local model", "service", name, "error", err)
			}
		}
	})
}
