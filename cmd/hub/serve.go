package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gophpeek/mlxhub/internal/api"
	"github.com/gophpeek/mlxhub/internal/audit"
	"github.com/gophpeek/mlxhub/internal/config"
	"github.com/gophpeek/mlxhub/internal/hub"
	"github.com/gophpeek/mlxhub/internal/logger"
	"github.com/gophpeek/mlxhub/internal/metrics"
	"github.com/gophpeek/mlxhub/internal/preflight"
	"github.com/gophpeek/mlxhub/internal/schedule"
	"github.com/gophpeek/mlxhub/internal/signals"
	"github.com/gophpeek/mlxhub/internal/tracing"
	"github.com/gophpeek/mlxhub/internal/watcher"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the hub daemon",
	Long:  `Start the hub in daemon mode, launching the configured model catalog.`,
	Run:   runServe,
}

var (
	dryRun    bool
	watchMode bool
)

func init() {
	serveCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate configuration without starting any model")
	serveCmd.Flags().BoolVar(&watchMode, "watch", false, "Reconcile against the config file automatically when it changes on disk")
}

func runServe(cmd *cobra.Command, args []string) {
	cfgPath := getConfigPath()

	cfg, err := config.LoadWithEnvExpansion(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if dryRun {
		runDryRun(cfg, cfgPath)
		return
	}

	log := logger.New(cfg.LogLevel, cfg.Global.LogFormat)
	slog.SetDefault(log)

	slog.Info("hub starting",
		"version", version,
		"pid", os.Getpid(),
		"models", len(cfg.Models),
		"groups", len(cfg.Groups),
		"log_level", cfg.LogLevel,
	)

	if err := preflight.NewChecker(log).Run(cfg); err != nil {
		slog.Error("preflight checks failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracingProvider, err := tracing.NewProvider(ctx, tracing.TracerConfig{
		Enabled:     cfg.Global.TracingEnabled,
		Exporter:    cfg.Global.TracingExporter,
		Endpoint:    cfg.Global.TracingEndpoint,
		SampleRate:  1.0,
		ServiceName: "hub",
		Version:     version,
	}, log)
	if err != nil {
		slog.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracingProvider.Shutdown(shutdownCtx); err != nil {
			slog.Warn("tracing shutdown error", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	go signals.ReapZombies(5 * time.Second)

	auditLogger := audit.NewLogger(log, cfg.Global.AuditEnabled)
	auditLogger.LogSystemStart(version)

	sampler := metrics.NewResourceCollector(30*time.Second, 120, log)
	runtime := hub.New(cfg, cfgPath, log, auditLogger, sampler)
	runtime.Start(ctx)

	prewarmScheduler := schedule.NewScheduler(hub.NewPrewarmExecutor(runtime.Coordinator), 20, log)
	for _, m := range cfg.Models {
		if m.PrewarmSchedule == "" {
			continue
		}
		if err := prewarmScheduler.AddJob(m.Name, m.PrewarmSchedule, ""); err != nil {
			slog.Error("failed to register pre-warm schedule", "model", m.Name, "schedule", m.PrewarmSchedule, "error", err)
		}
	}
	prewarmScheduler.Start()
	defer prewarmScheduler.Stop()

	var metricsServer *metrics.Server
	if cfg.Global.MetricsEnabled {
		metricsPort := cfg.Global.MetricsPort
		if metricsPort == 0 {
			metricsPort = 9090
		}
		metricsPath := cfg.Global.MetricsPath
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
		metricsServer = metrics.NewServer(metricsPort, metricsPath, cfg.Global.ACL, cfg.Global.TLS, log)
		if err := metricsServer.Start(ctx); err != nil {
			slog.Warn("failed to start metrics server, continuing without it", "error", err)
			metricsServer = nil
		} else {
			metrics.SetBuildInfo(version, "go1.x")
			slog.Info("metrics server started", "port", metricsPort, "path", metricsPath)
		}
	}

	apiServer := api.NewServer(cfg.Port, cfg.Global.APIAuth, cfg.Global.ACL, cfg.Global.TLS, cfg.Global.AuditEnabled, cfg.EnableStatusPage, runtime, log)
	if err := apiServer.Start(ctx); err != nil {
		slog.Error("failed to start control plane", "error", err)
		os.Exit(1)
	}
	slog.Info("control plane started", "host", cfg.Host, "port", cfg.Port)

	var configWatcher *watcher.Watcher
	reloadChan := make(chan struct{}, 1)
	if watchMode || cfg.Global.WatchConfig {
		configWatcher, err = watcher.New(watcher.Config{
			ConfigPath: cfgPath,
			Handler: func() error {
				select {
				case reloadChan <- struct{}{}:
					slog.Info("config change detected, reload queued")
				default:
				}
				return nil
			},
			Logger:   log,
			Debounce: 2 * time.Second,
		})
		if err != nil {
			slog.Error("failed to create config watcher", "error", err)
			os.Exit(1)
		}
		if err := configWatcher.Start(ctx); err != nil {
			slog.Error("failed to start config watcher", "error", err)
			os.Exit(1)
		}
		defer configWatcher.Stop()
	}

	for {
		reason := waitForShutdownOrReload(sigChan, reloadChan, runtime.Shutdown.Done())
		if reason == "config_reload" {
			if err := runtime.Reload(ctx); err != nil {
				slog.Error("config reload failed", "error", err)
			} else {
				slog.Info("config reload completed")
			}
			continue
		}

		performGracefulShutdown(cfg, runtime, apiServer, metricsServer, auditLogger, reason)
		break
	}
}

func runDryRun(cfg *config.HubConfig, cfgPath string) {
	log := logger.New(cfg.LogLevel, cfg.Global.LogFormat)
	slog.SetDefault(log)

	result, err := cfg.ValidateComprehensive()
	if err != nil {
		fmt.Fprint(os.Stderr, config.FormatValidationReport(result))
		os.Exit(1)
	}

	fmt.Printf("configuration valid: %s\n", cfgPath)
	fmt.Printf("  models: %d, groups: %d\n", len(cfg.Models), len(cfg.Groups))
	if result.TotalIssues() > 0 {
		fmt.Print(config.FormatValidationReport(result))
	}
	os.Exit(0)
}

func waitForShutdownOrReload(sigChan chan os.Signal, reloadChan chan struct{}, shutdownCh <-chan struct{}) string {
	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig.String())
		return fmt.Sprintf("signal: %s", sig.String())
	case <-reloadChan:
		return "config_reload"
	case <-shutdownCh:
		slog.Info("shutdown requested via control plane")
		return "api request"
	}
}

func performGracefulShutdown(cfg *config.HubConfig, runtime *hub.Runtime, apiServer *api.Server, metricsServer *metrics.Server, auditLogger *audit.Logger, reason string) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Global.ShutdownTimeout)*time.Second)
	defer cancel()

	slog.Info("initiating graceful shutdown", "reason", reason)

	runtime.Shutdown.RequestShutdown()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		slog.Warn("control plane shutdown error", "error", err)
	}
	runtime.Coordinator.StopAllModels()
	if metricsServer != nil {
		if err := metricsServer.Stop(shutdownCtx); err != nil {
			slog.Warn("metrics server shutdown error", "error", err)
		}
	}

	auditLogger.LogSystemShutdown(reason, true)
	slog.Info("hub shutdown complete")
}
