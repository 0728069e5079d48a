package config

import (
	"fmt"
	"net"
	"time"
)

// Config holds all configuration for the gateway
type Config struct {
	Filename     string          `yaml:"-" mapstructure:"-"`
	ServicesFile string          `yaml:"services_file" mapstructure:"services_file"`
	Logging      LoggingConfig   `yaml:"logging" mapstructure:"logging"`
	Cloud        CloudConfig     `yaml:"cloud" mapstructure:"cloud"`
	Local        LocalConfig     `yaml:"local" mapstructure:"local"`
	Server       ServerConfig    `yaml:"server" mapstructure:"server"`
	Inference    InferenceConfig `yaml:"inference" mapstructure:"inference"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string              `yaml:"host" mapstructure:"host"`
	RateLimits      ServerRateLimits    `yaml:"rate_limits" mapstructure:"rate_limits"`
	RequestLimits   ServerRequestLimits `yaml:"request_limits" mapstructure:"request_limits"`
	Port            int                 `yaml:"port" mapstructure:"port"`
	ReadTimeout     time.Duration       `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration       `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout     time.Duration       `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration       `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	RequestLogging  bool                `yaml:"request_logging" mapstructure:"request_logging"`
}

// GetAddress returns the server address in host:port format
func (s *ServerConfig) GetAddress() string {
	return net.JoinHostPort(s.Host, fmt.Sprintf("%d", s.Port))
}

// ServerRequestLimits defines request size limits
type ServerRequestLimits struct {
	MaxBodySize   int64 `yaml:"max_body_size" mapstructure:"max_body_size"`
	MaxHeaderSize int64 `yaml:"max_header_size" mapstructure:"max_header_size"`
}

// ServerRateLimits defines rate limiting configuration
type ServerRateLimits struct {
	TrustedProxyCIDRs       []string      `yaml:"trusted_proxy_cidrs" mapstructure:"trusted_proxy_cidrs"`
	TrustedProxyCIDRsParsed []*net.IPNet  `yaml:"-" mapstructure:"-"`
	GlobalRequestsPerMinute int           `yaml:"global_requests_per_minute" mapstructure:"global_requests_per_minute"`
	PerIPRequestsPerMinute  int           `yaml:"per_ip_requests_per_minute" mapstructure:"per_ip_requests_per_minute"`
	BurstSize               int           `yaml:"burst_size" mapstructure:"burst_size"`
	HealthRequestsPerMinute int           `yaml:"health_requests_per_minute" mapstructure:"health_requests_per_minute"`
	CleanupInterval         time.Duration `yaml:"cleanup_interval" mapstructure:"cleanup_interval"`
	TrustProxyHeaders       bool          `yaml:"trust_proxy_headers" mapstructure:"trust_proxy_headers"`
}

// InferenceConfig holds the per-backend call limits
type InferenceConfig struct {
	LocalTimeout time.Duration `yaml:"local_timeout" mapstructure:"local_timeout"`
	CloudTimeout time.Duration `yaml:"cloud_timeout" mapstructure:"cloud_timeout"`
}

// CloudConfig describes the OpenAI-compatible chat completions API
type CloudConfig struct {
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	APIKeyEnv string `yaml:"api_key_env" mapstructure:"api_key_env"`
	Referer   string `yaml:"referer" mapstructure:"referer"`
	Title     string `yaml:"title" mapstructure:"title"`
}

// LocalConfig describes where local models live and how they run
type LocalConfig struct {
	ModelsDir          string `yaml:"models_dir" mapstructure:"models_dir"`
	RunnerBinary       string `yaml:"runner_binary" mapstructure:"runner_binary"`
	MaxConcurrentLoads int    `yaml:"max_concurrent_loads" mapstructure:"max_concurrent_loads"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
	Theme string `yaml:"theme" mapstructure:"theme"`
}
