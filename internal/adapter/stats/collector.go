package stats

/*
				Relay Stats Collector
	Collector tracks per-service inference outcomes: how many calls each logical
	service handled, how they ended (by error kind), latency and how many local
	workers are still running after their caller gave up on them.

	Abandoned workers are the number to watch. A local model call that times out
	keeps running until the model returns, so a steadily climbing count means the
	model is too slow for the configured limit and memory/CPU is being held.

	Thread-safe, everything is xsync counters or atomics.
*/

import (
	"math"
	"sort"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/mineradorx/relay/internal/core/constants"
	"github.com/mineradorx/relay/internal/core/domain"
	"github.com/mineradorx/relay/internal/core/ports"
	"github.com/mineradorx/relay/internal/logger"
)

type Collector struct {
	logger *logger.StyledLogger

	services             *xsync.Map[domain.ServiceName, *serviceData]
	uniqueRateLimitedIPs *xsync.Map[string, int64]

	rateLimitViolations *xsync.Counter
	sizeLimitViolations *xsync.Counter
}

type serviceData struct {
	failures   *xsync.Map[string, *xsync.Counter]
	total      *xsync.Counter
	successful *xsync.Counter
	failed     *xsync.Counter
	latencySum *xsync.Counter
	abandoned  *xsync.Counter
	name       domain.ServiceName
	backend    atomic.Value // domain.BackendKind
	minLatency int64
	maxLatency int64
	lastUsed   int64
}

func NewCollector(logger *logger.StyledLogger) *Collector {
	return &Collector{
		logger:               logger,
		services:             xsync.NewMap[domain.ServiceName, *serviceData](),
		uniqueRateLimitedIPs: xsync.NewMap[string, int64](),
		rateLimitViolations:  xsync.NewCounter(),
		sizeLimitViolations:  xsync.NewCounter(),
	}
}

func (c *Collector) getOrInit(name domain.ServiceName) *serviceData {
	if data, ok := c.services.Load(name); ok {
		return data
	}
	fresh := &serviceData{
		name:       name,
		failures:   xsync.NewMap[string, *xsync.Counter](),
		total:      xsync.NewCounter(),
		successful: xsync.NewCounter(),
		failed:     xsync.NewCounter(),
		latencySum: xsync.NewCounter(),
		abandoned:  xsync.NewCounter(),
		minLatency: math.MaxInt64,
	}
	actual, _ := c.services.LoadOrStore(name, fresh)
	return actual
}

func (c *Collector) RecordInference(service domain.ServiceName, kind domain.BackendKind, outcome domain.ErrorKind, latency time.Duration, success bool) {
	data := c.getOrInit(service)
	if kind != "" {
		data.backend.Store(kind)
	}

	latencyMs := latency.Milliseconds()
	data.total.Inc()
	data.latencySum.Add(latencyMs)
	atomic.StoreInt64(&data.lastUsed, time.Now().UnixNano())
	updateMin(&data.minLatency, latencyMs)
	updateMax(&data.maxLatency, latencyMs)

	if success {
		data.successful.Inc()
		return
	}

	data.failed.Inc()
	counter, _ := data.failures.LoadOrStore(outcome.String(), xsync.NewCounter())
	counter.Inc()
}

// RecordAbandoned adjusts the count of local workers still running after
// their caller timed out, +1 on abandon and -1 when the worker finishes
func (c *Collector) RecordAbandoned(service domain.ServiceName, delta int) {
	data := c.getOrInit(service)
	data.abandoned.Add(int64(delta))

	if delta > 0 {
		c.logger.WarnWithService("Local worker abandoned after timeout", string(service),
			"still_running", data.abandoned.Value())
	}
}

func (c *Collector) RecordSecurityViolation(violation ports.SecurityViolation) {
	switch violation.ViolationType {
	case constants.ViolationRateLimit:
		c.rateLimitViolations.Inc()
		c.uniqueRateLimitedIPs.Store(violation.ClientID, violation.Timestamp.UnixNano())
	case constants.ViolationSizeLimit:
		c.sizeLimitViolations.Inc()
	}
}

func (c *Collector) GetServiceStats() map[domain.ServiceName]ports.ServiceStats {
	result := make(map[domain.ServiceName]ports.ServiceStats)

	c.services.Range(func(name domain.ServiceName, data *serviceData) bool {
		result[name] = data.snapshot()
		return true
	})
	return result
}

// SortedServiceStats returns stats ordered by service name, for tables
func (c *Collector) SortedServiceStats() []ports.ServiceStats {
	all := c.GetServiceStats()
	out := make([]ports.ServiceStats, 0, len(all))
	for _, s := range all {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

func (c *Collector) GetSecurityStats() ports.SecurityStats {
	unique := 0
	c.uniqueRateLimitedIPs.Range(func(string, int64) bool {
		unique++
		return true
	})
	return ports.SecurityStats{
		RateLimitViolations:  c.rateLimitViolations.Value(),
		SizeLimitViolations:  c.sizeLimitViolations.Value(),
		UniqueRateLimitedIPs: unique,
	}
}

func (d *serviceData) snapshot() ports.ServiceStats {
	total := d.total.Value()
	successful := d.successful.Value()

	s := ports.ServiceStats{
		Name:               string(d.name),
		TotalRequests:      total,
		SuccessfulRequests: successful,
		FailedRequests:     d.failed.Value(),
		AbandonedWorkers:   d.abandoned.Value(),
	}
	if kind, ok := d.backend.Load().(domain.BackendKind); ok {
		s.Backend = string(kind)
	}

	if total > 0 {
		s.AverageLatency = d.latencySum.Value() / total
		s.MinLatency = atomic.LoadInt64(&d.minLatency)
		s.MaxLatency = atomic.LoadInt64(&d.maxLatency)
		s.SuccessRate = float64(successful) / float64(total) * 100
	}
	if last := atomic.LoadInt64(&d.lastUsed); last > 0 {
		s.LastUsed = time.Unix(0, last)
	}

	d.failures.Range(func(kind string, counter *xsync.Counter) bool {
		if s.Failures == nil {
			s.Failures = make(map[string]int64)
		}
		s.Failures[kind] = counter.Value()
		return true
	})
	return s
}

func updateMin(addr *int64, v int64) {
	for {
		cur := atomic.LoadInt64(addr)
		if v >= cur || atomic.CompareAndSwapInt64(addr, cur, v) {
			return
		}
	}
}

func updateMax(addr *int64, v int64) {
	for {
		cur := atomic.LoadInt64(addr)
		if v <= cur || atomic.CompareAndSwapInt64(addr, cur, v) {
			return
		}
	}
}
