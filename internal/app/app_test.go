package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mineradorx/relay/internal/assistant"
	"github.com/mineradorx/relay/internal/config"
	"github.com/mineradorx/relay/internal/core/domain"
	"github.com/mineradorx/relay/internal/core/ports"
	"github.com/mineradorx/relay/internal/logger"
)

func createTestLogger() *logger.StyledLogger {
	return logger.NewPlainStyledLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type echoModel struct{ path string }

func (m *echoModel) Complete(prompt string, _ domain.InferenceParams) (string, error) {
	return "  local: " + prompt + "\n", nil
}

func (m *echoModel) Info() domain.LocalModelInfo { return domain.LocalModelInfo{Path: m.path} }
func (m *echoModel) Close() error                { return nil }

type echoLoader struct{}

func (echoLoader) Load(_ context.Context, path string, _ map[string]any) (ports.LocalModel, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return &echoModel{path: path}, nil
}

func writeServicesFile(t *testing.T, dir string, services map[string]config.ServiceEntry) string {
	t.Helper()
	sf := config.NewDefaultServicesFile()
	sf.Services = services
	path := filepath.Join(dir, "services.yaml")
	require.NoError(t, config.SaveServices(path, sf))
	return path
}

func startApp(t *testing.T, cfg *config.Config) *Application {
	t.Helper()
	application, err := New(time.Now(), cfg, echoLoader{}, createTestLogger())
	require.NoError(t, err)
	require.NoError(t, application.Start(context.Background()))
	t.Cleanup(func() {
		_ = application.Stop(context.Background())
	})
	return application
}

func postPrompt(t *testing.T, addr, path, prompt string) (int, map[string]string) {
	t.Helper()
	body, _ := jsoniter.Marshal(map[string]string{"prompt": prompt})
	resp, err := http.Post("http://"+addr+path, "application/json", strings.NewReader(string(body)))
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]string{}
	require.NoError(t, jsoniter.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestApplication_ServesLocalAndCloud(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "granite.gguf")
	require.NoError(t, os.WriteFile(modelPath, []byte("GGUF"), 0o644))

	cloudAPI := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"cloud answer"}}]}`))
	}))
	defer cloudAPI.Close()

	t.Setenv("RELAY_TEST_CLOUD_KEY", "sk-test")

	cfg := config.DefaultConfig()
	cfg.Server.Port = 0
	cfg.Cloud.BaseURL = cloudAPI.URL
	cfg.Cloud.APIKeyEnv = "RELAY_TEST_CLOUD_KEY"
	cfg.ServicesFile = writeServicesFile(t, dir, map[string]config.ServiceEntry{
		"summarizer":        {Type: "local", LocalPath: modelPath},
		"primary_generator": {Type: "cloud", CloudModelID: "vendor/model-x"},
	})

	application := startApp(t, cfg)
	addr := application.Addr()
	require.NotEmpty(t, addr)

	status, body := postPrompt(t, addr, "/summarize", "long text")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "local: long text", body["texto_gerado"])

	status, body = postPrompt(t, addr, "/generate", "question")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "cloud answer", body["texto_gerado"])

	registry, err := application.inference.GetRegistry()
	require.NoError(t, err)
	assert.True(t, registry.IsSealed())
}

func TestApplication_MissingModelIsUnavailable(t *testing.T) {
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Server.Port = 0
	cfg.Cloud.APIKeyEnv = "RELAY_TEST_UNSET_KEY"
	cfg.ServicesFile = writeServicesFile(t, dir, map[string]config.ServiceEntry{
		"summarizer":        {Type: "local", LocalPath: filepath.Join(dir, "missing.gguf")},
		"primary_generator": {Type: "cloud", CloudModelID: "vendor/model-x"},
	})

	application := startApp(t, cfg)

	status, body := postPrompt(t, application.Addr(), "/summarize", "x")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Contains(t, body["detail"], "summarizer")

	status, _ = postPrompt(t, application.Addr(), "/generate", "x")
	assert.Equal(t, http.StatusServiceUnavailable, status, "no API key means the cloud service is unavailable")
}

func TestApplication_StartFailsWithoutServicesFile(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.Port = 0
	cfg.ServicesFile = filepath.Join(t.TempDir(), "nope.yaml")

	application, err := New(time.Now(), cfg, echoLoader{}, createTestLogger())
	require.NoError(t, err)

	err = application.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start service inference")
}

func TestApplication_AssistantClientRoundTrip(t *testing.T) {
	dir := t.TempDir()

	cloudAPI := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":" Hello there "}}]}`))
	}))
	defer cloudAPI.Close()

	t.Setenv("RELAY_TEST_CLOUD_KEY", "sk-test")

	cfg := config.DefaultConfig()
	cfg.Server.Port = 0
	cfg.Cloud.BaseURL = cloudAPI.URL
	cfg.Cloud.APIKeyEnv = "RELAY_TEST_CLOUD_KEY"
	cfg.ServicesFile = writeServicesFile(t, dir, map[string]config.ServiceEntry{
		"summarizer":        {Type: "local", LocalPath: filepath.Join(dir, "missing.gguf")},
		"primary_generator": {Type: "cloud", CloudModelID: "vendor/model-x"},
	})

	application := startApp(t, cfg)
	client := assistant.NewGatewayClient("http://"+application.Addr(), 5*time.Second, createTestLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result := client.Do(ctx, assistant.EndpointGenerate, "p")
	require.False(t, result.Failed(), result.Text)
	assert.Equal(t, "Hello there", result.Text)
	assert.Equal(t, http.StatusOK, result.Status)

	result = client.Do(ctx, assistant.EndpointSummarize, "p")
	require.True(t, result.Failed())
	assert.Equal(t, http.StatusServiceUnavailable, result.Status)
	assert.True(t, strings.HasPrefix(result.Text, assistant.ErrorPrefix+": /summarize returned HTTP 503"), result.Text)
	assert.Contains(t, result.Text, "summarizer")
}
