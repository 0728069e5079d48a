package services

import (
	"fmt"
)

const (
	ServiceNameStats     = "stats"
	ServiceNameSecurity  = "security"
	ServiceNameInference = "inference"
	ServiceNameHTTP      = "http"
)

// ServiceRegistry gives typed access to registered services once the
// manager has them
type ServiceRegistry struct {
	services map[string]ManagedService
}

func NewServiceRegistry() *ServiceRegistry {
	return &ServiceRegistry{
		services: make(map[string]ManagedService),
	}
}

func (r *ServiceRegistry) Register(name string, service ManagedService) {
	r.services[name] = service
}

func (r *ServiceRegistry) Get(name string) (ManagedService, error) {
	service, exists := r.services[name]
	if !exists {
		return nil, fmt.Errorf("service %s not found", name)
	}
	return service, nil
}

func getAs[T ManagedService](r *ServiceRegistry, name string) (T, error) {
	var zero T
	service, err := r.Get(name)
	if err != nil {
		return zero, err
	}
	typed, ok := service.(T)
	if !ok {
		return zero, fmt.Errorf("service %s has unexpected type %T", name, service)
	}
	return typed, nil
}

func (r *ServiceRegistry) GetStats() (*StatsService, error) {
	return getAs[*StatsService](r, ServiceNameStats)
}

func (r *ServiceRegistry) GetSecurity() (*SecurityService, error) {
	return getAs[*SecurityService](r, ServiceNameSecurity)
}

func (r *ServiceRegistry) GetInference() (*InferenceService, error) {
	return getAs[*InferenceService](r, ServiceNameInference)
}

func (r *ServiceRegistry) GetHTTP() (*HTTPService, error) {
	return getAs[*HTTPService](r, ServiceNameHTTP)
}
