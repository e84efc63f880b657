package hub

import (
	"context"
	"log/slog"
	"time"

	"github.com/gophpeek/mlxhub/internal/audit"
	"github.com/gophpeek/mlxhub/internal/config"
)

// Runtime is the assembled Hub Runtime: Process Table, Launcher, Health
// Prober, Lifecycle Coordinator, Monitor Loop, Status Projector and
// Shutdown Controller wired together over one HubConfig (spec §2).
type Runtime struct {
	Table       *Table
	Coordinator *Coordinator
	Monitor     *Monitor
	Projector   *Projector
	Shutdown    *ShutdownController

	cfg     *config.HubConfig
	cfgPath string
}

// New builds a Runtime from a loaded HubConfig. sampler may be nil to
// disable the cpu_percent/rss_bytes status fields.
func New(cfg *config.HubConfig, cfgPath string, log *slog.Logger, auditLogger *audit.Logger, sampler ResourceSampler) *Runtime {
	table := NewTable(cfg)
	launcher := NewLauncher(cfg.LogPath, log)
	prober := NewHealthProber(
		time.Duration(cfg.Global.HealthIntervalSeconds)*time.Second,
		time.Duration(cfg.Global.HealthTimeoutSeconds)*time.Second,
	)
	shutdownGrace := time.Duration(cfg.Global.ShutdownTimeoutSeconds) * time.Second
	coordinator := NewCoordinator(table, launcher, prober, log, auditLogger, shutdownGrace)

	pollInterval := time.Duration(cfg.Global.PollIntervalSeconds) * time.Second
	monitor := NewMonitor(table, coordinator, log, pollInterval)

	hostCfg := func() (string, int, int, bool, string) {
		return cfg.Host, cfg.Port, cfg.ModelStartingPort, cfg.EnableStatusPage, cfg.LogLevel
	}
	projector := NewProjector(table, monitor, cfg.LogPath, hostCfg, sampler)

	shutdown := NewShutdownController(log, monitor)

	return &Runtime{
		Table:       table,
		Coordinator: coordinator,
		Monitor:     monitor,
		Projector:   projector,
		Shutdown:    shutdown,
		cfg:         cfg,
		cfgPath:     cfgPath,
	}
}

// Start boots the monitor loop and the non-JIT catalog (start_initial_models).
func (r *Runtime) Start(ctx context.Context) {
	go r.Monitor.Run()
	r.Coordinator.StartInitialModels(ctx)
}

// Reload reloads the backing config file and reconciles the table against it.
func (r *Runtime) Reload(ctx context.Context) error {
	return r.Coordinator.ReloadConfig(ctx, r.cfgPath)
}
