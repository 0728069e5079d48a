package services

import (
	"context"
	"fmt"

	"github.com/mineradorx/relay/internal/adapter/stats"
	"github.com/mineradorx/relay/internal/logger"
)

// StatsService owns the per-service counters. Everything else records
// into it so it starts first.
type StatsService struct {
	collector *stats.Collector
	logger    *logger.StyledLogger
}

func NewStatsService(logger *logger.StyledLogger) *StatsService {
	return &StatsService{
		logger: logger,
	}
}

func (s *StatsService) Name() string {
	return ServiceNameStats
}

func (s *StatsService) Start(ctx context.Context) error {
	s.collector = stats.NewCollector(s.logger)
	s.logger.Debug("Stats collector initialised")
	return nil
}

// Stop logs a one-line summary per service, the counters are in memory only
func (s *StatsService) Stop(ctx context.Context) error {
	if s.collector == nil {
		return nil
	}
	for _, st := range s.collector.SortedServiceStats() {
		s.logger.InfoWithService("Service summary", st.Name,
			"requests", st.TotalRequests,
			"failed", st.FailedRequests,
			"abandoned_workers", st.AbandonedWorkers,
			"avg_latency_ms", st.AverageLatency)
	}
	return nil
}

func (s *StatsService) Dependencies() []string {
	return nil
}

func (s *StatsService) GetCollector() (*stats.Collector, error) {
	if s.collector == nil {
		return nil, fmt.Errorf("stats collector not initialised")
	}
	return s.collector, nil
}
