package app

import (
	"context"
	"fmt"
	"time"

	"github.com/mineradorx/relay/internal/app/services"
	"github.com/mineradorx/relay/internal/config"
	"github.com/mineradorx/relay/internal/core/ports"
	"github.com/mineradorx/relay/internal/logger"
)

// Application is the gateway process: stats, security, inference and
// HTTP services under one manager
type Application struct {
	StartTime time.Time
	config    *config.Config
	manager   *services.ServiceManager
	inference *services.InferenceService
	http      *services.HTTPService
	logger    *logger.StyledLogger
}

// New wires the services, nothing is loaded or bound until Start. A nil
// loader means the llama.cpp runner.
func New(startTime time.Time, cfg *config.Config, loader ports.ModelLoader, logger *logger.StyledLogger) (*Application, error) {
	manager := services.NewServiceManager(logger)

	statsSvc := services.NewStatsService(logger)
	securitySvc := services.NewSecurityService(cfg, statsSvc, logger)
	inferenceSvc := services.NewInferenceService(cfg, statsSvc, logger)
	if loader != nil {
		inferenceSvc.SetModelLoader(loader)
	}
	httpSvc := services.NewHTTPService(cfg, logger)

	for _, svc := range []services.ManagedService{statsSvc, securitySvc, inferenceSvc, httpSvc} {
		if err := manager.Register(svc); err != nil {
			return nil, fmt.Errorf("failed to register %s service: %w", svc.Name(), err)
		}
	}

	if err := wireHTTP(manager.GetRegistry(), httpSvc); err != nil {
		return nil, err
	}

	return &Application{
		StartTime: startTime,
		config:    cfg,
		manager:   manager,
		inference: inferenceSvc,
		http:      httpSvc,
		logger:    logger,
	}, nil
}

func (a *Application) Start(ctx context.Context) error {
	if err := a.manager.Start(ctx); err != nil {
		return err
	}
	a.logger.Info("Startup complete", "took", time.Since(a.StartTime).Round(time.Millisecond))
	return nil
}

func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}

// Addr is where the gateway is listening, empty before Start
func (a *Application) Addr() string {
	return a.http.Addr()
}

// Errors reports a listener failure after a successful Start
func (a *Application) Errors() <-chan error {
	return a.http.Errors()
}

// wireHTTP hands the HTTP service the services it serves from, resolved
// through the registry so a missing registration fails here
func wireHTTP(registry *services.ServiceRegistry, httpSvc *services.HTTPService) error {
	statsSvc, err := registry.GetStats()
	if err != nil {
		return err
	}
	securitySvc, err := registry.GetSecurity()
	if err != nil {
		return err
	}
	inferenceSvc, err := registry.GetInference()
	if err != nil {
		return err
	}
	httpSvc.SetDependencies(statsSvc, securitySvc, inferenceSvc)
	return nil
}
