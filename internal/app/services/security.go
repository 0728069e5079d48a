package services

import (
	"context"
	"fmt"

	"github.com/mineradorx/relay/internal/adapter/security"
	"github.com/mineradorx/relay/internal/config"
	"github.com/mineradorx/relay/internal/logger"
)

// SecurityService builds the rate and size limiters that sit in front of
// the inference routes
type SecurityService struct {
	config       *config.Config
	statsService *StatsService
	adapters     *security.Adapters
	logger       *logger.StyledLogger
}

func NewSecurityService(cfg *config.Config, statsService *StatsService, logger *logger.StyledLogger) *SecurityService {
	return &SecurityService{
		config:       cfg,
		statsService: statsService,
		logger:       logger,
	}
}

func (s *SecurityService) Name() string {
	return ServiceNameSecurity
}

func (s *SecurityService) Start(ctx context.Context) error {
	collector, err := s.statsService.GetCollector()
	if err != nil {
		return fmt.Errorf("failed to get stats collector: %w", err)
	}

	s.adapters = security.NewSecurityAdapters(s.config, collector, s.logger)

	limits := s.config.Server
	s.logger.Info("Security limits applied",
		"global_rpm", limits.RateLimits.GlobalRequestsPerMinute,
		"per_ip_rpm", limits.RateLimits.PerIPRequestsPerMinute,
		"max_body", limits.RequestLimits.MaxBodySize)
	return nil
}

func (s *SecurityService) Stop(ctx context.Context) error {
	if s.adapters != nil {
		s.adapters.Stop()
	}
	return nil
}

func (s *SecurityService) Dependencies() []string {
	return []string{ServiceNameStats}
}

func (s *SecurityService) GetAdapters() (*security.Adapters, error) {
	if s.adapters == nil {
		return nil, fmt.Errorf("security adapters not initialised")
	}
	return s.adapters, nil
}
