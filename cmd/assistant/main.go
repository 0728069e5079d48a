package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pterm/pterm"

	"github.com/mineradorx/relay/internal/adapter/embedding"
	"github.com/mineradorx/relay/internal/adapter/factory"
	"github.com/mineradorx/relay/internal/adapter/vectorstore/qdrant"
	"github.com/mineradorx/relay/internal/assistant"
	"github.com/mineradorx/relay/internal/config"
	"github.com/mineradorx/relay/internal/env"
	"github.com/mineradorx/relay/internal/logger"
	"github.com/mineradorx/relay/internal/util"
	"github.com/mineradorx/relay/internal/version"
)

const (
	directChatOption = "direct"
	usage            = "usage: relay-assistant [--context <id>|--direct] [--no-summary] [--version]"
)

type options struct {
	contextID   string
	noSummary   bool
	chosenByArg bool
}

func main() {
	opts, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	_ = godotenv.Load()

	cfg, err := config.LoadAssistant()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load assistant configuration: %v\n", err)
		os.Exit(1)
	}

	logInstance, styledLogger, cleanup, err := logger.NewWithTheme(&logger.Config{
		Level:      cfg.Logging.Level,
		Theme:      cfg.Logging.Theme,
		FileOutput: env.GetEnvBoolOrDefault("RELAY_ASSISTANT_FILE_OUTPUT", false),
		LogDir:     env.GetEnvOrDefault("RELAY_ASSISTANT_LOG_DIR", "./logs"),
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     30,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()
	slog.SetDefault(logInstance)

	if err := run(cfg, opts, styledLogger); err != nil {
		logger.FatalWithLogger(logInstance, "Assistant stopped", "error", err)
	}
}

func parseArgs(args []string) (options, error) {
	var opts options
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--version", "-v":
			version.PrintVersionInfo(true, log.New(os.Stdout, "", 0))
			os.Exit(0)
		case "--direct":
			opts.contextID = directChatOption
			opts.chosenByArg = true
		case "--context":
			if i+1 >= len(args) {
				return opts, errors.New("--context needs a context id")
			}
			i++
			opts.contextID = args[i]
			opts.chosenByArg = true
		case "--no-summary":
			opts.noSummary = true
		default:
			return opts, fmt.Errorf("unknown argument %q", args[i])
		}
	}
	return opts, nil
}

func run(cfg *config.AssistantConfig, opts options, styledLogger *logger.StyledLogger) error {
	prompts, err := assistant.LoadPrompts(cfg.PromptsFile, assistant.TemplateSummarization, assistant.TemplateRAGGeneration)
	if err != nil {
		return err
	}
	contexts, err := assistant.LoadContexts(cfg.ContextsFile)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	printActiveModels(cfg.ServicesFile)

	clients := factory.NewSharedClientFactory()
	defer clients.CloseIdleConnections()
	lookupClient := func(timeout time.Duration) *http.Client {
		if timeout <= 0 {
			return clients.LookupClient()
		}
		return clients.Client(timeout)
	}

	gateway := assistant.NewGatewayClient(cfg.GatewayURL, cfg.RequestTimeout, styledLogger)
	embedder := embedding.NewClient(lookupClient(cfg.Embedder.Timeout), embedding.Options{
		BaseURL: cfg.Embedder.BaseURL,
		Model:   cfg.Embedder.Model,
		APIKey:  os.Getenv(cfg.Embedder.APIKeyEnv),
	})
	newStore := func(collection string) *qdrant.Store {
		return qdrant.NewStore(lookupClient(cfg.Qdrant.Timeout), embedder, qdrant.Options{
			URL:        cfg.Qdrant.URL,
			APIKey:     os.Getenv(cfg.Qdrant.APIKeyEnv),
			Collection: collection,
		})
	}

	interactive := util.IsInputTerminal()
	choice := opts.contextID
	if !opts.chosenByArg {
		if !interactive {
			choice = directChatOption
		} else if choice, err = chooseMode(ctx, contexts, newStore); err != nil {
			return err
		}
	}

	if choice == directChatOption {
		return assistant.NewSession(assistant.NewDirectChat(gateway), os.Stdin, os.Stdout,
			"Direct chat with the primary generator", styledLogger).Run(ctx)
	}

	def, ok := findContext(contexts, choice)
	if !ok {
		return fmt.Errorf("context %q is not defined in %s", choice, cfg.ContextsFile)
	}

	store := newStore(def.Collection)
	indexed, err := store.Exists(ctx)
	if err != nil {
		return fmt.Errorf("checking collection %s: %w", def.Collection, err)
	}
	if !indexed {
		return fmt.Errorf("context %q has no indexed collection %q, index its documents first", def.ID, def.Collection)
	}

	summarize := cfg.Summarize && !opts.noSummary
	if interactive && !opts.chosenByArg {
		summarize, err = pterm.DefaultInteractiveConfirm.
			WithDefaultValue(summarize).
			Show("Summarize retrieved documents before answering?")
		if err != nil {
			return err
		}
	}

	styledLogger.Debug("Starting RAG session", "context", def.ID, "collection", def.Collection,
		"summarize", summarize, "top_k", cfg.TopK)

	pipeline := assistant.NewPipeline(gateway, store, prompts, assistant.PipelineOptions{
		TopK:               cfg.TopK,
		Summarize:          summarize,
		StopOnSummaryError: cfg.StopOnSummaryError,
	}, styledLogger)

	return assistant.NewSession(pipeline, os.Stdin, os.Stdout,
		fmt.Sprintf("Chatting with %s", def.DisplayName), styledLogger).Run(ctx)
}

// chooseMode shows direct chat plus every context with its index status
func chooseMode(ctx context.Context, contexts []assistant.ContextDef, newStore func(string) *qdrant.Store) (string, error) {
	labels := []string{"Direct chat (no documents)"}
	ids := []string{directChatOption}

	for _, def := range contexts {
		status := "indexed"
		if ok, err := newStore(def.Collection).Exists(ctx); err != nil {
			status = "unreachable"
		} else if !ok {
			status = "not indexed"
		}
		labels = append(labels, fmt.Sprintf("%s [%s]", def.DisplayName, status))
		ids = append(ids, def.ID)
	}

	selected, err := pterm.DefaultInteractiveSelect.
		WithOptions(labels).
		WithDefaultOption(labels[0]).
		Show("Choose how to chat")
	if err != nil {
		return "", err
	}
	for i, label := range labels {
		if label == selected {
			return ids[i], nil
		}
	}
	return "", fmt.Errorf("unexpected selection %q", selected)
}

func findContext(contexts []assistant.ContextDef, id string) (assistant.ContextDef, bool) {
	for _, def := range contexts {
		if strings.EqualFold(def.ID, id) {
			return def, true
		}
	}
	return assistant.ContextDef{}, false
}

func printActiveModels(servicesFile string) {
	data := [][]string{{"SERVICE", "TYPE", "MODEL"}}
	for _, m := range assistant.ActiveModels(servicesFile) {
		kind := string(m.Kind)
		if kind == "" {
			kind = "-"
		}
		data = append(data, []string{m.Service.String(), kind, m.Model})
	}

	pterm.DefaultSection.Println("Active models")
	table, _ := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	fmt.Println(table)
}
