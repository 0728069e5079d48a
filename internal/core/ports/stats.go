package ports

import (
	"time"

	"github.com/mineradorx/relay/internal/core/domain"
)

type StatsCollector interface {
	RecordInference(service domain.ServiceName, kind domain.BackendKind, outcome domain.ErrorKind, latency time.Duration, success bool)
	RecordAbandoned(service domain.ServiceName, delta int)
	RecordSecurityViolation(violation SecurityViolation)

	GetServiceStats() map[domain.ServiceName]ServiceStats
	GetSecurityStats() SecurityStats
}

type ServiceStats struct {
	LastUsed           time.Time        `json:"last_used,omitempty"`
	Failures           map[string]int64 `json:"failures_by_kind,omitempty"`
	Name               string           `json:"name"`
	Backend            string           `json:"backend"`
	TotalRequests      int64            `json:"total_requests"`
	SuccessfulRequests int64            `json:"successful_requests"`
	FailedRequests     int64            `json:"failed_requests"`
	AbandonedWorkers   int64            `json:"abandoned_workers"`
	AverageLatency     int64            `json:"avg_latency_ms"`
	MinLatency         int64            `json:"min_latency_ms"`
	MaxLatency         int64            `json:"max_latency_ms"`
	SuccessRate        float64          `json:"success_rate_percent"`
}

type SecurityStats struct {
	RateLimitViolations  int64 `json:"rate_limit_violations"`
	SizeLimitViolations  int64 `json:"size_limit_violations"`
	UniqueRateLimitedIPs int   `json:"unique_rate_limited_ips"`
}
