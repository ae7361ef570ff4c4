package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/mnemos/mnemos/config"
	"github.com/mnemos/mnemos/pkg/engine"
	"github.com/mnemos/mnemos/pkg/logger"
	"github.com/mnemos/mnemos/pkg/metrics"
	"github.com/mnemos/mnemos/pkg/telemetry/tracing"
	"github.com/mnemos/mnemos/pkg/version"
)

var (
	configPath  = flag.String("config", "", "Path to configuration file")
	versionFlag = flag.Bool("version", false, "Print version information")
	helpFlag    = flag.Bool("help", false, "Print help information")

	// CLI overrides
	appName     = flag.String("app-name", "", "Override app name")
	logLevel    = flag.String("log-level", "", "Override log level")
	storagePath = flag.String("storage-path", "", "Override storage path")
)

func main() {
	flag.Parse()

	if *helpFlag {
		printHelp()
		os.Exit(0)
	}
	if *versionFlag {
		printVersion()
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath, buildOverrides())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration:\n%s\n", err)
		os.Exit(1)
	}

	log := logger.New(&logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	defer log.Close()

	log.Info("Starting mnemos",
		"version", version.Version,
		"buildTime", version.BuildTime,
		"gitCommit", version.GitCommit,
		"app", cfg.App.Name,
		"environment", cfg.App.Environment,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, cfg.App.Name, version.Version, log)
	if err != nil {
		log.Error("Failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	metricsManager := metrics.NewManager(metrics.Config{
		Enabled:              cfg.Metrics.Enabled,
		Port:                 cfg.Metrics.Port,
		Path:                 cfg.Metrics.Path,
		RetrievalBuckets:     metrics.DefaultConfig().RetrievalBuckets,
		ConsolidationBuckets: metrics.DefaultConfig().ConsolidationBuckets,
	})
	if metricsManager.Enabled() {
		go func() {
			log.Info("Starting metrics server", "port", cfg.Metrics.Port, "path", cfg.Metrics.Path)
			if err := metricsManager.StartServer(ctx, cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
				log.Error("Metrics server error", "error", err)
			}
		}()
	}

	eng, err := engine.New(cfg,
		engine.WithLogger(log),
		engine.WithMetrics(metricsManager),
	)
	if err != nil {
		log.Error("Failed to create engine", "error", err)
		os.Exit(1)
	}
	if err := eng.Start(ctx); err != nil {
		log.Error("Failed to start engine", "error", err)
		os.Exit(1)
	}

	stopWatching := watchConfig(ctx, *configPath, cfg, log)
	defer stopWatching()

	log.Info("mnemos is running",
		"storage", cfg.Storage.Backend,
		"metrics_port", cfg.Metrics.Port,
	)
	log.Info("Press Ctrl+C to stop")

	select {
	case sig := <-sigChan:
		log.Info("Received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		log.Info("Context cancelled")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Info("Stopping engine")
	if err := eng.Stop(shutdownCtx); err != nil {
		log.Error("Error during engine shutdown", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("Error during tracing shutdown", "error", err)
	}

	log.Info("mnemos stopped gracefully")
}

// watchConfig hot-reloads the live-safe configuration subset when the
// config file changes. Without a config file there is nothing to watch.
func watchConfig(ctx context.Context, path string, cfg *config.Config, log *logger.SlogLogger) func() {
	if path == "" {
		return func() {}
	}

	watcher, err := config.NewWatcher(path, config.NewLoader(), config.WithWatcherLogger(log))
	if err != nil {
		log.Warn("Config watcher unavailable", "error", err)
		return func() {}
	}

	var mu sync.Mutex
	current := config.ExtractHotReloadable(cfg)
	watcher.OnChange(func(next *config.Config) {
		mu.Lock()
		defer mu.Unlock()
		reloaded := config.ExtractHotReloadable(next)
		if !current.Changed(reloaded) {
			return
		}
		if reloaded.LogLevel != current.LogLevel {
			log.SetLevel(logger.ParseLevel(reloaded.LogLevel))
			log.Info("Log level changed", "level", reloaded.LogLevel)
		}
		current = reloaded
		log.Info("Configuration reloaded", "path", path)
	})

	go func() {
		if err := watcher.Watch(ctx); err != nil && ctx.Err() == nil {
			log.Warn("Config watcher stopped", "error", err)
		}
	}()

	return func() { _ = watcher.Stop() }
}

func buildOverrides() map[string]interface{} {
	overrides := make(map[string]interface{})

	if *appName != "" {
		overrides["app.name"] = *appName
	}
	if *logLevel != "" {
		overrides["log.level"] = *logLevel
	}
	if *storagePath != "" {
		overrides["storage.path"] = *storagePath
	}

	return overrides
}

func printVersion() {
	fmt.Printf("Mnemos - Biologically-Inspired Memory Engine\n")
	fmt.Printf("Version:    %s\n", version.Version)
	fmt.Printf("Build Time: %s\n", version.BuildTime)
	fmt.Printf("Git Commit: %s\n", version.GitCommit)
	fmt.Printf("Go Version: %s\n", version.GoVersion)
}

func printHelp() {
	fmt.Printf("Mnemos - memory engine for long-running agents\n\n")
	fmt.Printf("Usage: mnemosd [options]\n\n")
	fmt.Printf("Options:\n")
	flag.PrintDefaults()
	fmt.Printf("\nExamples:\n")
	fmt.Printf("  mnemosd                             # Run with default config\n")
	fmt.Printf("  mnemosd -config config.yaml         # Use specific config file\n")
	fmt.Printf("  mnemosd -log-level debug            # Override specific options\n")
	fmt.Printf("  mnemosd -version                    # Print version info\n")
}
