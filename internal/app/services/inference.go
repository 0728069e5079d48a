package services

import (
	"context"
	"fmt"
	"time"

	"github.com/mineradorx/relay/internal/adapter/executor/cloud"
	"github.com/mineradorx/relay/internal/adapter/executor/local"
	"github.com/mineradorx/relay/internal/adapter/factory"
	"github.com/mineradorx/relay/internal/adapter/gateway"
	"github.com/mineradorx/relay/internal/adapter/registry"
	"github.com/mineradorx/relay/internal/config"
	"github.com/mineradorx/relay/internal/core/domain"
	"github.com/mineradorx/relay/internal/core/ports"
	"github.com/mineradorx/relay/internal/logger"
)

// abandonDrainTimeout is how long Stop waits for timed out local workers
// before closing the models underneath them
const abandonDrainTimeout = 5 * time.Second

// InferenceService builds the service registry from the services file,
// loads local models, and wires both executors into the dispatcher
type InferenceService struct {
	config        *config.Config
	statsService  *StatsService
	loader        ports.ModelLoader
	clientFactory *factory.SharedClientFactory
	registry      *registry.StaticServiceRegistry
	localExecutor *local.Executor
	dispatcher    *gateway.Service
	logger        *logger.StyledLogger
}

func NewInferenceService(cfg *config.Config, statsService *StatsService, logger *logger.StyledLogger) *InferenceService {
	return &InferenceService{
		config:        cfg,
		statsService:  statsService,
		clientFactory: factory.NewSharedClientFactory(),
		logger:        logger,
	}
}

// SetModelLoader replaces the llama.cpp loader, tests use it to avoid
// needing the runner binary
func (s *InferenceService) SetModelLoader(loader ports.ModelLoader) {
	s.loader = loader
}

func (s *InferenceService) Name() string {
	return ServiceNameInference
}

func (s *InferenceService) Start(ctx context.Context) error {
	collector, err := s.statsService.GetCollector()
	if err != nil {
		return fmt.Errorf("failed to get stats collector: %w", err)
	}

	servicesFile, err := config.LoadServices(s.config.ServicesFile)
	if err != nil {
		return err
	}

	descriptors, ignored := servicesFile.Descriptors()
	for _, name := range ignored {
		s.logger.Warn("Ignoring unknown service in services file", "service", name, "file", s.config.ServicesFile)
	}
	for _, name := range servicesFile.Missing() {
		s.logger.WarnWithService("Service not configured, requests will get 404", name.String())
	}

	s.registry, err = registry.NewStaticServiceRegistry(descriptors)
	if err != nil {
		return fmt.Errorf("invalid services file %s: %w", s.config.ServicesFile, err)
	}

	for _, desc := range s.registry.All() {
		s.logger.InfoServiceBackend("Service configured", desc.Name.String(), desc.Kind.String(), desc.ModelLabel())
	}

	loader := s.loader
	if loader == nil {
		loader = local.NewLlamaCppLoader(s.config.Local.RunnerBinary, s.logger)
	}

	s.localExecutor, err = local.NewExecutor(ctx, loader, s.registry.OfKind(domain.BackendLocal), local.Options{
		LoadParams:         servicesFile.LocalLoadParams,
		MaxConcurrentLoads: s.config.Local.MaxConcurrentLoads,
	}, collector, s.logger)
	if err != nil {
		return err
	}

	cloudExecutor := cloud.NewExecutor(s.clientFactory.Client(s.config.Inference.CloudTimeout), cloud.Options{
		BaseURL: s.config.Cloud.BaseURL,
		APIKey:  s.config.CloudAPIKey(),
		Referer: s.config.Cloud.Referer,
		Title:   s.config.Cloud.Title,
	}, s.logger)

	if len(s.registry.OfKind(domain.BackendCloud)) > 0 && !cloudExecutor.Available("") {
		s.logger.Warn("Cloud services configured but no API key set, they will answer 503",
			"env", s.config.Cloud.APIKeyEnv)
	}

	s.dispatcher = gateway.NewService(s.registry, []ports.Executor{s.localExecutor, cloudExecutor}, gateway.Options{
		Defaults:     servicesFile.InferenceDefaults,
		LocalTimeout: s.config.Inference.LocalTimeout,
		CloudTimeout: s.config.Inference.CloudTimeout,
	}, collector, s.logger)

	return nil
}

// Stop gives abandoned local workers a short grace period, then closes
// the models, which kills any runner still going
func (s *InferenceService) Stop(ctx context.Context) error {
	if s.localExecutor != nil {
		if n := s.localExecutor.Abandoned(); n > 0 {
			s.logger.Warn("Waiting for abandoned local workers", "count", n)
		}
		drainCtx, cancel := context.WithTimeout(ctx, abandonDrainTimeout)
		if err := s.localExecutor.Wait(drainCtx); err != nil {
			s.logger.Warn("Local workers still running at shutdown, closing models", "count", s.localExecutor.Abandoned())
		}
		cancel()
		s.localExecutor.Close()
	}
	s.clientFactory.CloseIdleConnections()
	return nil
}

func (s *InferenceService) Dependencies() []string {
	return []string{ServiceNameStats}
}

func (s *InferenceService) GetDispatcher() (*gateway.Service, error) {
	if s.dispatcher == nil {
		return nil, fmt.Errorf("inference dispatcher not initialised")
	}
	return s.dispatcher, nil
}

func (s *InferenceService) GetRegistry() (*registry.StaticServiceRegistry, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("service registry not initialised")
	}
	return s.registry, nil
}
