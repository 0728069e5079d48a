package security

import (
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/mineradorx/relay/internal/config"
	"github.com/mineradorx/relay/internal/core/constants"
	"github.com/mineradorx/relay/internal/core/domain"
	"github.com/mineradorx/relay/internal/core/ports"
	"github.com/mineradorx/relay/internal/logger"
)

// ViolationRecorder receives rejected requests, the stats collector implements it
type ViolationRecorder interface {
	RecordSecurityViolation(violation ports.SecurityViolation)
}

type Adapters struct {
	RateLimit      *RateLimitValidator
	SizeValidation *SizeValidator
	Chain          *ports.SecurityChain
}

// NewSecurityAdapters wires the validators in the order requests meet them
func NewSecurityAdapters(cfg *config.Config, recorder ViolationRecorder, logger *logger.StyledLogger) *Adapters {
	rateLimitValidator := NewRateLimitValidator(cfg.Server.RateLimits, recorder, logger)
	sizeValidator := NewSizeValidator(cfg.Server.RequestLimits, recorder, logger)

	return &Adapters{
		RateLimit:      rateLimitValidator,
		SizeValidation: sizeValidator,
		Chain:          ports.NewSecurityChain(rateLimitValidator, sizeValidator),
	}
}

func (sa *Adapters) Stop() {
	if sa.RateLimit != nil {
		sa.RateLimit.Stop()
	}
}

// CreateChainMiddleware applies rate limiting then size limits, used on the
// inference routes
func (sa *Adapters) CreateChainMiddleware() func(http.Handler) http.Handler {
	rateLimit := sa.RateLimit.CreateMiddleware()
	size := sa.SizeValidation.CreateMiddleware()
	return func(next http.Handler) http.Handler {
		return rateLimit(size(next))
	}
}

// CreateRateLimitMiddleware is used on the internal and version routes
func (sa *Adapters) CreateRateLimitMiddleware() func(http.Handler) http.Handler {
	if sa.RateLimit != nil {
		return sa.RateLimit.CreateMiddleware()
	}
	return func(next http.Handler) http.Handler {
		return next
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set(constants.ContentTypeHeader, constants.ContentTypeJSON)
	w.WriteHeader(status)
	_ = jsoniter.ConfigFastest.NewEncoder(w).Encode(domain.ErrorResponse{Detail: detail})
}
