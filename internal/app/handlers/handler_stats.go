package handlers

import (
	"net/http"
	"sort"
	"time"

	"github.com/mineradorx/relay/internal/core/ports"
	"github.com/mineradorx/relay/pkg/format"
)

type ServiceStatsSummary struct {
	Failures         map[string]int64 `json:"failures_by_kind,omitempty"`
	Name             string           `json:"name"`
	Backend          string           `json:"backend"`
	SuccessRate      string           `json:"success_rate"`
	AverageLatency   string           `json:"average_latency"`
	MinLatency       string           `json:"min_latency"`
	MaxLatency       string           `json:"max_latency"`
	LastUsed         string           `json:"last_used"`
	TotalRequests    int64            `json:"total_requests"`
	FailedRequests   int64            `json:"failed_requests"`
	AbandonedWorkers int64            `json:"abandoned_workers"`
}

type ServiceStatsResponse struct {
	Timestamp time.Time             `json:"timestamp"`
	Services  []ServiceStatsSummary `json:"services"`
	Security  ports.SecurityStats   `json:"security"`
	Uptime    string                `json:"uptime"`
}

func (a *Application) servicesStatsHandler(w http.ResponseWriter, r *http.Request) {
	raw := a.statsCollector.GetServiceStats()

	services := make([]ServiceStatsSummary, 0, len(raw))
	for _, s := range raw {
		services = append(services, ServiceStatsSummary{
			Name:             s.Name,
			Backend:          s.Backend,
			TotalRequests:    s.TotalRequests,
			FailedRequests:   s.FailedRequests,
			AbandonedWorkers: s.AbandonedWorkers,
			Failures:         s.Failures,
			SuccessRate:      format.Percentage(s.SuccessRate),
			AverageLatency:   format.Latency(s.AverageLatency),
			MinLatency:       format.Latency(s.MinLatency),
			MaxLatency:       format.Latency(s.MaxLatency),
			LastUsed:         format.TimeAgo(s.LastUsed),
		})
	}
	sort.Slice(services, func(i, j int) bool {
		return services[i].Name < services[j].Name
	})

	a.writeJSON(w, http.StatusOK, ServiceStatsResponse{
		Timestamp: time.Now(),
		Services:  services,
		Security:  a.statsCollector.GetSecurityStats(),
		Uptime:    format.Duration(time.Since(a.StartTime)),
	})
}
