package security

/*
				Relay Security Adapter - Rate Limit Validator
	RateLimitValidator enforces global and per-IP token buckets in front of the
	inference routes. A local model call can hold a worker for minutes, so a
	client hammering /generate can starve everyone else without this.

	Health checks get their own, looser bucket so monitoring never trips
	the inference limit.

	References:
	- https://pkg.go.dev/golang.org/x/time/rate
	- https://datatracker.ietf.org/doc/draft-ietf-httpapi-ratelimit-headers/
*/

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/mineradorx/relay/internal/config"
	"github.com/mineradorx/relay/internal/core/constants"
	"github.com/mineradorx/relay/internal/core/ports"
	"github.com/mineradorx/relay/internal/logger"
	"github.com/mineradorx/relay/internal/util"
)

const staleLimiterAge = 10 * time.Minute

type RateLimitValidator struct {
	recorder ViolationRecorder
	logger   *logger.StyledLogger

	globalLimiter           *rate.Limiter
	cleanupTicker           *time.Ticker
	stopCleanup             chan struct{}
	ipLimiters              sync.Map
	trustedCIDRs            []*net.IPNet
	perIPRequestsPerMinute  int
	burstSize               int
	healthRequestsPerMinute int
	stopOnce                sync.Once
	trustProxyHeaders       bool
}

type ipLimiterInfo struct {
	lastAccess  time.Time
	windowStart time.Time
	limiter     *rate.Limiter
	tokensUsed  int
	mu          sync.Mutex
}

func NewRateLimitValidator(limits config.ServerRateLimits, recorder ViolationRecorder, logger *logger.StyledLogger) *RateLimitValidator {
	burst := limits.BurstSize
	if burst <= 0 {
		burst = 1
	}

	rl := &RateLimitValidator{
		perIPRequestsPerMinute:  limits.PerIPRequestsPerMinute,
		burstSize:               burst,
		healthRequestsPerMinute: limits.HealthRequestsPerMinute,
		trustProxyHeaders:       limits.TrustProxyHeaders,
		trustedCIDRs:            limits.TrustedProxyCIDRsParsed,
		recorder:                recorder,
		logger:                  logger,
		stopCleanup:             make(chan struct{}),
	}

	if limits.GlobalRequestsPerMinute > 0 {
		globalRate := rate.Limit(float64(limits.GlobalRequestsPerMinute) / 60.0)
		rl.globalLimiter = rate.NewLimiter(globalRate, burst)
	}

	if limits.CleanupInterval > 0 {
		rl.cleanupTicker = time.NewTicker(limits.CleanupInterval)
		go rl.cleanupRoutine()
	}

	return rl
}

func (rl *RateLimitValidator) Name() string {
	return constants.ViolationRateLimit
}

// Validate applies the global bucket then the caller's own bucket
func (rl *RateLimitValidator) Validate(ctx context.Context, req ports.SecurityRequest) (ports.SecurityResult, error) {
	now := time.Now()

	limit := rl.perIPRequestsPerMinute
	if req.IsHealthCheck {
		limit = rl.healthRequestsPerMinute
	}

	if limit <= 0 {
		return ports.SecurityResult{Allowed: true, ResetTime: now.Add(time.Minute)}, nil
	}

	if rl.globalLimiter != nil && !req.IsHealthCheck {
		reservation := rl.globalLimiter.ReserveN(now, 1)
		if !reservation.OK() || reservation.DelayFrom(now) > 0 {
			reservation.CancelAt(now)
			return ports.SecurityResult{
				Allowed:    false,
				RetryAfter: 60,
				RateLimit:  limit,
				ResetTime:  now.Add(time.Minute),
				Reason:     "Global rate limit exceeded",
				StatusCode: http.StatusTooManyRequests,
			}, nil
		}
	}

	return rl.checkIPLimit(req.ClientID, limit, now, req.IsHealthCheck), nil
}

func (rl *RateLimitValidator) checkIPLimit(clientIP string, limit int, now time.Time, isHealth bool) ports.SecurityResult {
	bucketKey := clientIP
	if isHealth {
		bucketKey = clientIP + ":health"
	}

	info := rl.getOrCreateLimiter(bucketKey, limit, now)
	info.mu.Lock()
	defer info.mu.Unlock()

	info.lastAccess = now
	if now.Sub(info.windowStart) >= time.Minute {
		info.windowStart = now
		info.tokensUsed = 0
	}

	reservation := info.limiter.ReserveN(now, 1)
	if !reservation.OK() || reservation.DelayFrom(now) > 0 {
		delay := reservation.DelayFrom(now)
		reservation.CancelAt(now)

		retryAfter := int(delay.Seconds()) + 1
		if !reservation.OK() {
			retryAfter = 60
		}
		return ports.SecurityResult{
			Allowed:    false,
			RetryAfter: retryAfter,
			RateLimit:  limit,
			Remaining:  remaining(info, limit),
			ResetTime:  info.windowStart.Add(time.Minute),
			Reason:     "Rate limit exceeded",
			StatusCode: http.StatusTooManyRequests,
		}
	}

	info.tokensUsed++
	return ports.SecurityResult{
		Allowed:   true,
		RateLimit: limit,
		Remaining: remaining(info, limit),
		ResetTime: info.windowStart.Add(time.Minute),
	}
}

func remaining(info *ipLimiterInfo, limit int) int {
	if r := limit - info.tokensUsed; r > 0 {
		return r
	}
	return 0
}

func (rl *RateLimitValidator) getOrCreateLimiter(key string, limit int, now time.Time) *ipLimiterInfo {
	if existing, ok := rl.ipLimiters.Load(key); ok {
		return existing.(*ipLimiterInfo)
	}

	fresh := &ipLimiterInfo{
		limiter:     rate.NewLimiter(rate.Limit(float64(limit)/60.0), rl.burstSize),
		lastAccess:  now,
		windowStart: now,
	}
	actual, _ := rl.ipLimiters.LoadOrStore(key, fresh)
	return actual.(*ipLimiterInfo)
}

func (rl *RateLimitValidator) cleanupRoutine() {
	for {
		select {
		case <-rl.stopCleanup:
			return
		case <-rl.cleanupTicker.C:
			rl.cleanupOldLimiters(time.Now())
		}
	}
}

// cleanupOldLimiters drops per-IP buckets nobody has touched recently
func (rl *RateLimitValidator) cleanupOldLimiters(now time.Time) {
	cutoff := now.Add(-staleLimiterAge)

	rl.ipLimiters.Range(func(key, value any) bool {
		info, ok := value.(*ipLimiterInfo)
		if !ok {
			return true
		}
		info.mu.Lock()
		stale := info.lastAccess.Before(cutoff)
		info.mu.Unlock()

		if stale {
			rl.ipLimiters.Delete(key)
		}
		return true
	})
}

func (rl *RateLimitValidator) Stop() {
	rl.stopOnce.Do(func() {
		if rl.cleanupTicker != nil {
			rl.cleanupTicker.Stop()
		}
		close(rl.stopCleanup)
	})
}

func (rl *RateLimitValidator) CreateMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := util.GetClientIP(r, rl.trustProxyHeaders, rl.trustedCIDRs)

			req := ports.SecurityRequest{
				ClientID:      clientIP,
				Endpoint:      r.URL.Path,
				Method:        r.Method,
				IsHealthCheck: r.URL.Path == constants.DefaultHealthCheckEndpoint,
			}

			result, err := rl.Validate(r.Context(), req)
			if err != nil {
				writeDetail(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			if result.RateLimit > 0 {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.RateLimit))
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetTime.Unix(), 10))
			}

			if !result.Allowed {
				w.Header().Set(constants.HeaderRetryAfter, strconv.Itoa(result.RetryAfter))

				if rl.recorder != nil {
					rl.recorder.RecordSecurityViolation(ports.SecurityViolation{
						ClientID:      clientIP,
						ViolationType: constants.ViolationRateLimit,
						Endpoint:      r.URL.Path,
						Timestamp:     time.Now(),
					})
				}

				rl.logger.Warn("Rate limit exceeded",
					"client_ip", clientIP,
					"method", r.Method,
					"path", r.URL.Path,
					"limit", result.RateLimit,
					"retry_after", result.RetryAfter)

				writeDetail(w, http.StatusTooManyRequests, result.Reason)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
