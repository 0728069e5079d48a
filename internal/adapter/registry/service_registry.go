package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/mineradorx/relay/internal/core/domain"
)

var ErrRegistrySealed = errors.New("service registry is sealed, restart the gateway to reconfigure")

// StaticServiceRegistry maps logical service names to descriptors. It is
// reconfigurable until Seal, after which it is read-only for the life of
// the process.
type StaticServiceRegistry struct {
	services map[domain.ServiceName]*domain.ServiceDescriptor
	order    []domain.ServiceName
	mu       sync.RWMutex
	sealed   bool
}

func NewStaticServiceRegistry(descriptors []*domain.ServiceDescriptor) (*StaticServiceRegistry, error) {
	r := &StaticServiceRegistry{
		services: make(map[domain.ServiceName]*domain.ServiceDescriptor, len(descriptors)),
	}
	for _, d := range descriptors {
		if err := r.Reconfigure(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Resolve returns a copy of the descriptor bound to name
func (r *StaticServiceRegistry) Resolve(name domain.ServiceName) (*domain.ServiceDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.services[name]
	if !ok {
		return nil, domain.NewNotFoundError(name)
	}
	return d.Clone(), nil
}

// All returns copies of every descriptor in registration order
func (r *StaticServiceRegistry) All() []*domain.ServiceDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.ServiceDescriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.services[name].Clone())
	}
	return out
}

// Reconfigure adds or replaces a descriptor, only allowed before Seal
func (r *StaticServiceRegistry) Reconfigure(d *domain.ServiceDescriptor) error {
	if d == nil {
		return fmt.Errorf("nil service descriptor")
	}
	if err := d.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return ErrRegistrySealed
	}
	if _, exists := r.services[d.Name]; !exists {
		r.order = append(r.order, d.Name)
	}
	r.services[d.Name] = d.Clone()
	return nil
}

// Seal freezes the registry, called just before the gateway starts serving
func (r *StaticServiceRegistry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

func (r *StaticServiceRegistry) IsSealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// OfKind returns the descriptors served by one backend kind
func (r *StaticServiceRegistry) OfKind(kind domain.BackendKind) []*domain.ServiceDescriptor {
	var out []*domain.ServiceDescriptor
	for _, d := range r.All() {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}
