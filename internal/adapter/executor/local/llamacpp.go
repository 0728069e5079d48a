package local

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"

	"github.com/mineradorx/relay/internal/core/domain"
	"github.com/mineradorx/relay/internal/core/ports"
	"github.com/mineradorx/relay/internal/logger"
)

// generation params understood by the llama.cpp CLI
var generationFlags = map[string]string{
	"max_tokens":     "-n",
	"n_predict":      "-n",
	"temperature":    "--temp",
	"top_p":          "--top-p",
	"top_k":          "--top-k",
	"min_p":          "--min-p",
	"repeat_penalty": "--repeat-penalty",
	"seed":           "--seed",
}

// load params, fixed for the life of the handle
var loadFlags = map[string]string{
	"n_ctx":        "-c",
	"n_threads":    "-t",
	"n_gpu_layers": "-ngl",
	"n_batch":      "-b",
}

const stopParam = "stop"

// LlamaCppLoader validates a GGUF file and binds it to the llama.cpp CLI
type LlamaCppLoader struct {
	logger *logger.StyledLogger
	binary string
	// lookPath is swapped in tests
	lookPath func(string) (string, error)
}

func NewLlamaCppLoader(binary string, logger *logger.StyledLogger) *LlamaCppLoader {
	return &LlamaCppLoader{
		binary:   binary,
		logger:   logger,
		lookPath: exec.LookPath,
	}
}

func (l *LlamaCppLoader) Load(ctx context.Context, path string, loadParams map[string]any) (ports.LocalModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := ReadGGUFHeader(path)
	if err != nil {
		return nil, err
	}

	loadArgs, err := flagArgs(loadParams, loadFlags)
	if err != nil {
		return nil, fmt.Errorf("load parameters: %w", err)
	}

	bin, err := l.lookPath(l.binary)
	if err != nil {
		return nil, fmt.Errorf("llama.cpp runner %q not found: %w", l.binary, err)
	}

	l.logger.Debug("Bound GGUF model to llama.cpp runner", "path", path, "runner", bin,
		"gguf_version", info.Version, "tensors", info.TensorCount)

	return &LlamaCppModel{
		binary:   bin,
		info:     info,
		loadArgs: loadArgs,
		running:  make(map[*exec.Cmd]struct{}),
	}, nil
}

// LlamaCppModel runs one llama.cpp process per completion. The process is
// not tied to the caller's deadline, Close kills whatever is still running.
type LlamaCppModel struct {
	running  map[*exec.Cmd]struct{}
	binary   string
	loadArgs []string
	info     domain.LocalModelInfo
	mu       sync.Mutex
	closed   bool
}

func (m *LlamaCppModel) Info() domain.LocalModelInfo {
	return m.info
}

// Complete passes the prompt through a temp file, a single argv entry is
// capped at 128 KiB on Linux and request bodies can be far larger
func (m *LlamaCppModel) Complete(prompt string, params domain.InferenceParams) (string, error) {
	promptFile, err := writePromptFile(prompt)
	if err != nil {
		return "", err
	}
	defer os.Remove(promptFile)

	args, stops, err := m.buildArgs(promptFile, params)
	if err != nil {
		return "", err
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(m.binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := m.track(cmd); err != nil {
		return "", err
	}
	defer m.untrack(cmd)

	if err := cmd.Wait(); err != nil {
		return "", fmt.Errorf("llama.cpp exited: %w: %s", err, tail(stderr.String(), 400))
	}

	return cutAtStop(stdout.String(), stops), nil
}

func writePromptFile(prompt string) (string, error) {
	f, err := os.CreateTemp("", "relay-prompt-*.txt")
	if err != nil {
		return "", fmt.Errorf("creating prompt file: %w", err)
	}
	if _, err := f.WriteString(prompt); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("writing prompt file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("writing prompt file: %w", err)
	}
	return f.Name(), nil
}

func (m *LlamaCppModel) track(cmd *exec.Cmd) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("model %s is closed", m.info.Path)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting llama.cpp: %w", err)
	}
	m.running[cmd] = struct{}{}
	return nil
}

func (m *LlamaCppModel) untrack(cmd *exec.Cmd) {
	m.mu.Lock()
	delete(m.running, cmd)
	m.mu.Unlock()
}

// Close kills in-flight completions, abandoned ones included
func (m *LlamaCppModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	for cmd := range m.running {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
	}
	return nil
}

func (m *LlamaCppModel) buildArgs(promptFile string, params domain.InferenceParams) ([]string, []string, error) {
	stops, err := stringList(params[stopParam])
	if err != nil {
		return nil, nil, fmt.Errorf("parameter %q: %w", stopParam, err)
	}

	gen := make(map[string]any, len(params))
	for k, v := range params {
		if k != stopParam {
			gen[k] = v
		}
	}
	genArgs, err := flagArgs(gen, generationFlags)
	if err != nil {
		return nil, nil, err
	}

	args := []string{"-m", m.info.Path, "--no-display-prompt", "-no-cnv", "--simple-io"}
	args = append(args, m.loadArgs...)
	args = append(args, genArgs...)
	args = append(args, "-f", promptFile)
	return args, stops, nil
}

// flagArgs maps params onto CLI flags in a stable order, unknown keys are an error
func flagArgs(params map[string]any, flags map[string]string) ([]string, error) {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		flag, ok := flags[k]
		if !ok {
			return nil, fmt.Errorf("unsupported parameter %q", k)
		}
		val, err := numericArg(params[k])
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", k, err)
		}
		args = append(args, flag, val)
	}
	return args, nil
}

func numericArg(v any) (string, error) {
	switch n := v.(type) {
	case int, int32, int64, uint, uint32, uint64:
		return fmt.Sprintf("%d", n), nil
	case float32, float64:
		return fmt.Sprintf("%g", n), nil
	default:
		return "", fmt.Errorf("expected a number, got %T", v)
	}
}

func stringList(v any) ([]string, error) {
	switch s := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{s}, nil
	case []string:
		return s, nil
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected strings, got %T", item)
			}
			out = append(out, str)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a string list, got %T", v)
	}
}

// cutAtStop truncates text at the earliest stop sequence
func cutAtStop(text string, stops []string) string {
	cut := len(text)
	for _, stop := range stops {
		if stop == "" {
			continue
		}
		if idx := strings.Index(text, stop); idx >= 0 && idx < cut {
			cut = idx
		}
	}
	return text[:cut]
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
