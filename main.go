package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"sort"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mineradorx/relay/internal/app"
	"github.com/mineradorx/relay/internal/config"
	"github.com/mineradorx/relay/internal/env"
	"github.com/mineradorx/relay/internal/logger"
	"github.com/mineradorx/relay/internal/setup"
	"github.com/mineradorx/relay/internal/util"
	"github.com/mineradorx/relay/internal/version"
	"github.com/mineradorx/relay/pkg/format"
	"github.com/mineradorx/relay/pkg/nerdstats"
)

func main() {
	startTime := time.Now()
	vlog := log.New(log.Writer(), "", 0)

	runSetup := false
	for _, arg := range os.Args[1:] {
		switch arg {
		case "--version", "-v":
			version.PrintVersionInfo(true, vlog)
			os.Exit(0)
		case "--setup":
			runSetup = true
		default:
			fmt.Fprintf(os.Stderr, "unknown argument %q, usage: relay [--setup] [--version]\n", arg)
			os.Exit(2)
		}
	}
	version.PrintVersionInfo(false, vlog)

	// credentials live in .env, a missing file is fine
	_ = godotenv.Load()

	logInstance, styledLogger, cleanup, err := logger.NewWithTheme(buildLoggerConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()
	slog.SetDefault(logInstance)

	styledLogger.Info("Initialising", "version", version.Version, "pid", os.Getpid())

	cfg, err := config.Load()
	if err != nil {
		logger.FatalWithLogger(logInstance, "Failed to load configuration", "error", err)
	}
	if cfg.Filename != "" {
		styledLogger.Info("Loaded configuration", "file", cfg.Filename)
	}

	if err := ensureServices(cfg, runSetup, styledLogger); err != nil {
		logger.FatalWithLogger(logInstance, "Service setup failed", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	application, err := app.New(startTime, cfg, nil, styledLogger)
	if err != nil {
		logger.FatalWithLogger(logInstance, "Failed to create application", "error", err)
	}

	if err := application.Start(ctx); err != nil {
		logger.FatalWithLogger(logInstance, "Failed to start application", "error", err)
	}

	select {
	case sig := <-sigCh:
		styledLogger.Info("Shutdown signal received", "signal", sig.String())
	case err := <-application.Errors():
		styledLogger.Error("Gateway stopped serving", "error", err)
	}
	cancel()

	if err := application.Stop(context.Background()); err != nil {
		styledLogger.Error("Error during shutdown", "error", err)
	}

	reportProcessStats(styledLogger, startTime)

	styledLogger.Info("Relay has shutdown")
}

// ensureServices runs the setup wizard when asked to, or when the services
// file can't serve both fixed services yet
func ensureServices(cfg *config.Config, force bool, styledLogger *logger.StyledLogger) error {
	sf, needed, err := setup.NeedsSetup(cfg.ServicesFile)
	if err != nil {
		return err
	}
	if !force && !needed {
		return nil
	}
	if !util.IsInputTerminal() {
		if force {
			return errors.New("--setup needs an interactive terminal")
		}
		styledLogger.Warn("Services file incomplete and no terminal to run setup, missing services answer 404",
			"file", cfg.ServicesFile, "missing", sf.Missing())
		return nil
	}

	wizard := setup.NewWizard(setup.TerminalPrompter{}, cfg.Local.ModelsDir, cfg.Cloud.APIKeyEnv, cfg.CloudAPIKey)
	if err := wizard.Run(sf); err != nil {
		return err
	}
	if err := config.SaveServices(cfg.ServicesFile, sf); err != nil {
		return err
	}
	styledLogger.Info("Saved service configuration", "file", cfg.ServicesFile)
	return nil
}

func reportProcessStats(logger *logger.StyledLogger, startTime time.Time) {
	runtime.GC()

	stats := nerdstats.Snapshot(startTime)

	logger.Info("Process Memory Stats",
		"heap_alloc", format.Bytes(stats.HeapAlloc),
		"heap_sys", format.Bytes(stats.HeapSys),
		"heap_inuse", format.Bytes(stats.HeapInuse),
		"heap_released", format.Bytes(stats.HeapReleased),
		"stack_inuse", format.Bytes(stats.StackInuse),
		"total_alloc", format.Bytes(stats.TotalAlloc),
		"memory_pressure", stats.GetMemoryPressure(),
	)

	logger.Info("Process Allocation Stats",
		"total_mallocs", stats.Mallocs,
		"total_frees", stats.Frees,
		"net_objects", stats.NetObjects(),
	)

	if stats.NumGC > 0 {
		logger.Info("Garbage Collection Stats",
			"num_gc_cycles", stats.NumGC,
			"last_gc", stats.LastGC.Format(time.RFC3339),
			"total_gc_time", format.Duration(stats.TotalGCTime),
			"gc_cpu_fraction", fmt.Sprintf("%.4f%%", stats.GCCPUFraction*100),
		)
	}

	logger.Info("Runtime Stats",
		"uptime", format.Duration(stats.Uptime),
		"goroutines", stats.NumGoroutines,
		"goroutine_health", stats.GetGoroutineHealthStatus(),
		"go_version", stats.GoVersion,
		"gomaxprocs", stats.GOMAXPROCS,
		"avg_gc_pause", nerdstats.CalculateAverageGCPause(stats),
	)

	if buildInfo := stats.GetBuildInfoSummary(); len(buildInfo) > 0 {
		keys := make([]string, 0, len(buildInfo))
		for k := range buildInfo {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buildArgs := make([]any, 0, len(keys)*2)
		for _, k := range keys {
			buildArgs = append(buildArgs, k, buildInfo[k])
		}
		logger.Info("Build Info", buildArgs...)
	}
}

func buildLoggerConfig() *logger.Config {
	return &logger.Config{
		Level:      env.GetEnvOrDefault("RELAY_LOG_LEVEL", "info"),
		FileOutput: env.GetEnvBoolOrDefault("RELAY_FILE_OUTPUT", false),
		LogDir:     env.GetEnvOrDefault("RELAY_LOG_DIR", "./logs"),
		MaxSize:    env.GetEnvIntOrDefault("RELAY_MAX_SIZE", 100),
		MaxBackups: env.GetEnvIntOrDefault("RELAY_MAX_BACKUPS", 5),
		MaxAge:     env.GetEnvIntOrDefault("RELAY_MAX_AGE", 30),
		Theme:      env.GetEnvOrDefault("RELAY_THEME", "default"),
	}
}
