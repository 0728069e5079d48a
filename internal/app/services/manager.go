package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mineradorx/relay/internal/logger"
)

// ManagedService is one piece of the gateway with a start/stop lifecycle.
// Dependencies name the services that must be started first.
type ManagedService interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Dependencies() []string
}

// ServiceManager starts services in dependency order and stops them in
// reverse. A failed start stops whatever already started.
type ServiceManager struct {
	services   map[string]ManagedService
	registry   *ServiceRegistry
	logger     *logger.StyledLogger
	startOrder []string
	mu         sync.RWMutex
}

func NewServiceManager(logger *logger.StyledLogger) *ServiceManager {
	return &ServiceManager{
		services: make(map[string]ManagedService),
		registry: NewServiceRegistry(),
		logger:   logger,
	}
}

func (sm *ServiceManager) Register(service ManagedService) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	name := service.Name()
	if _, exists := sm.services[name]; exists {
		return fmt.Errorf("service %s already registered", name)
	}

	sm.services[name] = service
	sm.registry.Register(name, service)
	sm.logger.Debug("Service registered", "name", name)
	return nil
}

// resolveDependencies is Kahn's algorithm over the dependency graph. Ties
// are broken by name so the start order is the same on every run.
func (sm *ServiceManager) resolveDependencies() ([]string, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	dependants := make(map[string][]string)
	inDegree := make(map[string]int)

	for name := range sm.services {
		inDegree[name] = 0
	}

	for name, service := range sm.services {
		for _, dep := range service.Dependencies() {
			if _, exists := sm.services[dep]; !exists {
				return nil, fmt.Errorf("service %s depends on %s which is not registered", name, dep)
			}
			dependants[dep] = append(dependants[dep], name)
			inDegree[name]++
		}
	}

	var ready []string
	for name, degree := range inDegree {
		if degree == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(sm.services))
	for len(ready) > 0 {
		current := ready[0]
		ready = ready[1:]
		order = append(order, current)

		next := dependants[current]
		sort.Strings(next)
		for _, name := range next {
			inDegree[name]--
			if inDegree[name] == 0 {
				ready = append(ready, name)
			}
		}
	}

	if len(order) != len(sm.services) {
		return nil, fmt.Errorf("circular dependency detected")
	}
	return order, nil
}

func (sm *ServiceManager) Start(ctx context.Context) error {
	order, err := sm.resolveDependencies()
	if err != nil {
		return fmt.Errorf("failed to resolve dependencies: %w", err)
	}

	sm.mu.Lock()
	sm.startOrder = order
	sm.mu.Unlock()

	sm.logger.Debug("Starting services", "order", order)

	started := make([]string, 0, len(order))
	for _, name := range order {
		service := sm.services[name]

		if err := service.Start(ctx); err != nil {
			sm.logger.Error("Failed to start service", "name", name, "error", err)
			reverse(started)
			_ = sm.stopServices(ctx, started)
			return fmt.Errorf("failed to start service %s: %w", name, err)
		}

		started = append(started, name)
		sm.logger.Debug("Service started", "name", name)
	}
	return nil
}

// Stop shuts down in reverse start order, every service gets a chance to
// stop and the first error is returned
func (sm *ServiceManager) Stop(ctx context.Context) error {
	sm.mu.RLock()
	order := make([]string, len(sm.startOrder))
	copy(order, sm.startOrder)
	sm.mu.RUnlock()

	reverse(order)

	sm.logger.Debug("Stopping services", "order", order)
	return sm.stopServices(ctx, order)
}

func (sm *ServiceManager) stopServices(ctx context.Context, names []string) error {
	var firstErr error

	for _, name := range names {
		service, exists := sm.services[name]
		if !exists {
			continue
		}

		if err := service.Stop(ctx); err != nil {
			sm.logger.Error("Failed to stop service", "name", name, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		sm.logger.Debug("Service stopped", "name", name)
	}

	return firstErr
}

func (sm *ServiceManager) Get(name string) (ManagedService, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	service, exists := sm.services[name]
	return service, exists
}

func (sm *ServiceManager) GetRegistry() *ServiceRegistry {
	return sm.registry
}

func reverse(names []string) {
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
}
