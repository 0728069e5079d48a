package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mineradorx/relay/internal/core/domain"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, DefaultHost, cfg.Server.Host)
	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1:8000", cfg.Server.GetAddress())
	assert.Equal(t, 180*time.Second, cfg.Inference.LocalTimeout)
	assert.Equal(t, 180*time.Second, cfg.Inference.CloudTimeout)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.Cloud.BaseURL)
	assert.Equal(t, "OPENROUTER_API_KEY", cfg.Cloud.APIKeyEnv)
	assert.Zero(t, cfg.Server.WriteTimeout, "write timeout must not cut off long local calls")
}

func TestLoad_WithoutFile(t *testing.T) {
	t.Setenv(EnvConfigFile, "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, DefaultHost, cfg.Server.Host)
}

func TestLoad_FromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "relay.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
server:
  port: 9100
  rate_limits:
    trusted_proxy_cidrs: ["10.0.0.0/8"]
inference:
  local_timeout: 90s
cloud:
  base_url: https://example.test/api/v1/
`), 0644))

	t.Setenv(EnvConfigFile, file)
	t.Setenv("RELAY_SERVER_HOST", "0.0.0.0")
	t.Setenv("RELAY_CLOUD_API_KEY_ENV", "MY_KEY")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, file, cfg.Filename)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 90*time.Second, cfg.Inference.LocalTimeout)
	assert.Equal(t, 180*time.Second, cfg.Inference.CloudTimeout)
	assert.Equal(t, "https://example.test/api/v1", cfg.Cloud.BaseURL)
	assert.Equal(t, "MY_KEY", cfg.Cloud.APIKeyEnv)
	assert.Len(t, cfg.Server.RateLimits.TrustedProxyCIDRsParsed, 1)
}

func TestLoad_InvalidCIDR(t *testing.T) {
	file := filepath.Join(t.TempDir(), "relay.yaml")
	require.NoError(t, os.WriteFile(file, []byte("server:\n  rate_limits:\n    trusted_proxy_cidrs: [\"nope\"]\n"), 0644))
	t.Setenv(EnvConfigFile, file)

	_, err := Load()
	assert.Error(t, err)
}

func TestCloudAPIKey(t *testing.T) {
	cfg := DefaultConfig()
	t.Setenv("OPENROUTER_API_KEY", "  sk-test  ")
	assert.Equal(t, "sk-test", cfg.CloudAPIKey())
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".cache/instructlab/models"), ExpandHome("~/.cache/instructlab/models"))
	assert.Equal(t, "/abs/path", ExpandHome("/abs/path"))
}

func TestServicesFile_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "services.yaml")

	sf := NewDefaultServicesFile()
	sf.Set(&domain.ServiceDescriptor{Name: domain.ServiceSummarizer, Kind: domain.BackendLocal, LocalPath: "/models/a.gguf"})
	sf.Set(&domain.ServiceDescriptor{Name: domain.ServicePrimaryGenerator, Kind: domain.BackendCloud, CloudModelID: "vendor/modelX"})
	require.NoError(t, SaveServices(path, sf))

	loaded, err := LoadServices(path)
	require.NoError(t, err)

	descs, ignored := loaded.Descriptors()
	require.Len(t, descs, 2)
	assert.Empty(t, ignored)
	assert.Empty(t, loaded.Missing())

	assert.Equal(t, domain.ServiceSummarizer, descs[0].Name)
	assert.Equal(t, domain.BackendLocal, descs[0].Kind)
	assert.Equal(t, "/models/a.gguf", descs[0].LocalPath)
	assert.Equal(t, domain.ServicePrimaryGenerator, descs[1].Name)
	assert.Equal(t, "vendor/modelX", descs[1].CloudModelID)
	assert.Equal(t, 0.7, loaded.InferenceDefaults["temperature"])
}

func TestServicesFile_IgnoresUnknownAndReportsMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "services.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
services:
  summarizer: {type: cloud, cloud_model_id: vendor/small}
  translator: {type: cloud, cloud_model_id: vendor/other}
`), 0644))

	sf, err := LoadServices(path)
	require.NoError(t, err)

	descs, ignored := sf.Descriptors()
	assert.Len(t, descs, 1)
	assert.Equal(t, []string{"translator"}, ignored)
	assert.Equal(t, []domain.ServiceName{domain.ServicePrimaryGenerator}, sf.Missing())
}

func TestServicesFile_SetClearsOtherBackend(t *testing.T) {
	sf := NewDefaultServicesFile()
	sf.Set(&domain.ServiceDescriptor{Name: domain.ServiceSummarizer, Kind: domain.BackendLocal, LocalPath: "/m.gguf", CloudModelID: "stale"})

	assert.Empty(t, sf.Services["summarizer"].CloudModelID)
}

func TestLoadServices_Missing(t *testing.T) {
	_, err := LoadServices(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadAssistant_Defaults(t *testing.T) {
	t.Setenv(AssistantEnvConfigFile, "")
	t.Setenv("RELAY_ASSISTANT_TOP_K", "5")

	cfg, err := LoadAssistant()
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:8000", cfg.GatewayURL)
	assert.Equal(t, 300*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 5, cfg.TopK)
	assert.True(t, cfg.Summarize)
	assert.False(t, cfg.StopOnSummaryError)
}
