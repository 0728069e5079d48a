package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mineradorx/relay/internal/core/constants"
	"github.com/mineradorx/relay/internal/util"
)

const (
	DefaultPort         = 8000
	DefaultHost         = "127.0.0.1"
	DefaultServicesFile = "config/services.yaml"

	EnvPrefix     = "RELAY"
	EnvConfigFile = "RELAY_CONFIG_FILE"
)

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		ServicesFile: DefaultServicesFile,
		Server: ServerConfig{
			Host:            DefaultHost,
			Port:            DefaultPort,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    0, // local inference can take minutes
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RequestLimits: ServerRequestLimits{
				MaxBodySize:   10 << 20,
				MaxHeaderSize: 512 << 10,
			},
			RateLimits: ServerRateLimits{
				GlobalRequestsPerMinute: 1000,
				PerIPRequestsPerMinute:  100,
				BurstSize:               50,
				HealthRequestsPerMinute: 1000,
				CleanupInterval:         5 * time.Minute,
			},
		},
		Inference: InferenceConfig{
			LocalTimeout: constants.DefaultLocalTimeout,
			CloudTimeout: constants.DefaultCloudTimeout,
		},
		Cloud: CloudConfig{
			BaseURL:   constants.DefaultCloudBaseURL,
			APIKeyEnv: constants.DefaultCloudKeyEnv,
			Title:     "relay",
		},
		Local: LocalConfig{
			ModelsDir:          constants.DefaultLocalModelDir,
			RunnerBinary:       constants.DefaultRunnerBinary,
			MaxConcurrentLoads: 2,
		},
		Logging: LoggingConfig{
			Level: "info",
			Theme: "default",
		},
	}
}

// Load reads relay.yaml from . or ./config, then RELAY_* environment overrides
func Load() (*Config, error) {
	config := DefaultConfig()

	v := viper.New()
	v.SetConfigName("relay")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindDefaults(v, config)

	if configFile := os.Getenv(EnvConfigFile); configFile != "" {
		v.SetConfigFile(configFile)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// no file is fine, defaults and env apply
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	config.Filename = v.ConfigFileUsed()

	if err := config.finalise(); err != nil {
		return nil, err
	}
	return config, nil
}

// bindDefaults registers every key viper should resolve from the environment,
// AutomaticEnv only applies to keys viper already knows about
func bindDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("services_file", c.ServicesFile)
	v.SetDefault("server.host", c.Server.Host)
	v.SetDefault("server.port", c.Server.Port)
	v.SetDefault("server.read_timeout", c.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", c.Server.WriteTimeout)
	v.SetDefault("server.idle_timeout", c.Server.IdleTimeout)
	v.SetDefault("server.shutdown_timeout", c.Server.ShutdownTimeout)
	v.SetDefault("server.request_logging", c.Server.RequestLogging)
	v.SetDefault("server.request_limits.max_body_size", c.Server.RequestLimits.MaxBodySize)
	v.SetDefault("server.request_limits.max_header_size", c.Server.RequestLimits.MaxHeaderSize)
	v.SetDefault("server.rate_limits.global_requests_per_minute", c.Server.RateLimits.GlobalRequestsPerMinute)
	v.SetDefault("server.rate_limits.per_ip_requests_per_minute", c.Server.RateLimits.PerIPRequestsPerMinute)
	v.SetDefault("server.rate_limits.burst_size", c.Server.RateLimits.BurstSize)
	v.SetDefault("server.rate_limits.health_requests_per_minute", c.Server.RateLimits.HealthRequestsPerMinute)
	v.SetDefault("server.rate_limits.cleanup_interval", c.Server.RateLimits.CleanupInterval)
	v.SetDefault("server.rate_limits.trust_proxy_headers", c.Server.RateLimits.TrustProxyHeaders)
	v.SetDefault("inference.local_timeout", c.Inference.LocalTimeout)
	v.SetDefault("inference.cloud_timeout", c.Inference.CloudTimeout)
	v.SetDefault("cloud.base_url", c.Cloud.BaseURL)
	v.SetDefault("cloud.api_key_env", c.Cloud.APIKeyEnv)
	v.SetDefault("cloud.referer", c.Cloud.Referer)
	v.SetDefault("cloud.title", c.Cloud.Title)
	v.SetDefault("local.models_dir", c.Local.ModelsDir)
	v.SetDefault("local.runner_binary", c.Local.RunnerBinary)
	v.SetDefault("local.max_concurrent_loads", c.Local.MaxConcurrentLoads)
	v.SetDefault("logging.level", c.Logging.Level)
	v.SetDefault("logging.theme", c.Logging.Theme)
}

func (c *Config) finalise() error {
	cidrs, err := util.ParseTrustedCIDRs(c.Server.RateLimits.TrustedProxyCIDRs)
	if err != nil {
		return fmt.Errorf("server.rate_limits.trusted_proxy_cidrs: %w", err)
	}
	c.Server.RateLimits.TrustedProxyCIDRsParsed = cidrs

	c.Cloud.BaseURL = util.NormaliseBaseURL(c.Cloud.BaseURL)
	c.Local.ModelsDir = ExpandHome(c.Local.ModelsDir)

	if c.Inference.LocalTimeout <= 0 {
		c.Inference.LocalTimeout = constants.DefaultLocalTimeout
	}
	if c.Inference.CloudTimeout <= 0 {
		c.Inference.CloudTimeout = constants.DefaultCloudTimeout
	}
	if c.Local.MaxConcurrentLoads <= 0 {
		c.Local.MaxConcurrentLoads = 1
	}
	return nil
}

// CloudAPIKey reads the cloud credential from the configured env var
func (c *Config) CloudAPIKey() string {
	return strings.TrimSpace(os.Getenv(c.Cloud.APIKeyEnv))
}

// ExpandHome replaces a leading ~ with the user's home directory
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
