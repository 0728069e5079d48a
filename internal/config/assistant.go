package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mineradorx/relay/internal/core/constants"
	"github.com/mineradorx/relay/internal/util"
)

const (
	AssistantEnvPrefix     = "RELAY_ASSISTANT"
	AssistantEnvConfigFile = "RELAY_ASSISTANT_CONFIG_FILE"
)

// AssistantConfig configures the RAG orchestration client
type AssistantConfig struct {
	Filename           string         `yaml:"-" mapstructure:"-"`
	GatewayURL         string         `yaml:"gateway_url" mapstructure:"gateway_url"`
	PromptsFile        string         `yaml:"prompts_file" mapstructure:"prompts_file"`
	ContextsFile       string         `yaml:"contexts_file" mapstructure:"contexts_file"`
	ServicesFile       string         `yaml:"services_file" mapstructure:"services_file"`
	Logging            LoggingConfig  `yaml:"logging" mapstructure:"logging"`
	Qdrant             QdrantConfig   `yaml:"qdrant" mapstructure:"qdrant"`
	Embedder           EmbedderConfig `yaml:"embedder" mapstructure:"embedder"`
	RequestTimeout     time.Duration  `yaml:"request_timeout" mapstructure:"request_timeout"`
	TopK               int            `yaml:"top_k" mapstructure:"top_k"`
	Summarize          bool           `yaml:"summarize" mapstructure:"summarize"`
	StopOnSummaryError bool           `yaml:"stop_on_summary_error" mapstructure:"stop_on_summary_error"`
}

type QdrantConfig struct {
	URL       string        `yaml:"url" mapstructure:"url"`
	APIKeyEnv string        `yaml:"api_key_env" mapstructure:"api_key_env"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

type EmbedderConfig struct {
	BaseURL   string        `yaml:"base_url" mapstructure:"base_url"`
	Model     string        `yaml:"model" mapstructure:"model"`
	APIKeyEnv string        `yaml:"api_key_env" mapstructure:"api_key_env"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

func DefaultAssistantConfig() *AssistantConfig {
	return &AssistantConfig{
		GatewayURL:     constants.DefaultGatewayURL,
		PromptsFile:    "config/prompts.yaml",
		ContextsFile:   "config/contexts.yaml",
		ServicesFile:   DefaultServicesFile,
		RequestTimeout: constants.DefaultClientTimeout,
		TopK:           constants.DefaultRetrievalK,
		Summarize:      true,
		Logging: LoggingConfig{
			Level: "warn",
			Theme: "default",
		},
		Qdrant: QdrantConfig{
			URL:       "http://127.0.0.1:6333",
			APIKeyEnv: "QDRANT_API_KEY",
			Timeout:   30 * time.Second,
		},
		Embedder: EmbedderConfig{
			BaseURL:   "https://api.openai.com/v1",
			Model:     "text-embedding-3-small",
			APIKeyEnv: "OPENAI_API_KEY",
			Timeout:   30 * time.Second,
		},
	}
}

// LoadAssistant reads assistant.yaml from . or ./config with RELAY_ASSISTANT_* overrides
func LoadAssistant() (*AssistantConfig, error) {
	config := DefaultAssistantConfig()

	v := viper.New()
	v.SetConfigName("assistant")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix(AssistantEnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("gateway_url", config.GatewayURL)
	v.SetDefault("prompts_file", config.PromptsFile)
	v.SetDefault("contexts_file", config.ContextsFile)
	v.SetDefault("services_file", config.ServicesFile)
	v.SetDefault("request_timeout", config.RequestTimeout)
	v.SetDefault("top_k", config.TopK)
	v.SetDefault("summarize", config.Summarize)
	v.SetDefault("stop_on_summary_error", config.StopOnSummaryError)
	v.SetDefault("logging.level", config.Logging.Level)
	v.SetDefault("logging.theme", config.Logging.Theme)
	v.SetDefault("qdrant.url", config.Qdrant.URL)
	v.SetDefault("qdrant.api_key_env", config.Qdrant.APIKeyEnv)
	v.SetDefault("qdrant.timeout", config.Qdrant.Timeout)
	v.SetDefault("embedder.base_url", config.Embedder.BaseURL)
	v.SetDefault("embedder.model", config.Embedder.Model)
	v.SetDefault("embedder.api_key_env", config.Embedder.APIKeyEnv)
	v.SetDefault("embedder.timeout", config.Embedder.Timeout)

	if configFile := os.Getenv(AssistantEnvConfigFile); configFile != "" {
		v.SetConfigFile(configFile)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading assistant config: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode assistant config: %w", err)
	}
	config.Filename = v.ConfigFileUsed()

	config.GatewayURL = util.NormaliseBaseURL(config.GatewayURL)
	config.Qdrant.URL = util.NormaliseBaseURL(config.Qdrant.URL)
	config.Embedder.BaseURL = util.NormaliseBaseURL(config.Embedder.BaseURL)
	if config.TopK <= 0 {
		config.TopK = constants.DefaultRetrievalK
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = constants.DefaultClientTimeout
	}
	return config, nil
}
