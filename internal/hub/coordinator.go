package hub

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/gophpeek/mlxhub/internal/audit"
	"github.com/gophpeek/mlxhub/internal/config"
	"github.com/gophpeek/mlxhub/internal/metrics"
	"github.com/gophpeek/mlxhub/internal/tracing"
)

// Coordinator is the Lifecycle Coordinator (spec §4.E): the public surface
// of the Hub Runtime. It composes the Launcher, Health Prober and Group
// Policy under the Process Table's lock, following the uniform pattern of
// spec §5: take lock, flip to an in-flight sentinel, release, do blocking
// I/O, reacquire, finalize.
type Coordinator struct {
	table    *Table
	launcher *Launcher
	prober   *HealthProber
	log      *slog.Logger
	audit    *audit.Logger

	shutdownTimeout time.Duration
}

// NewCoordinator wires a Coordinator over an existing table.
func NewCoordinator(table *Table, launcher *Launcher, prober *HealthProber, log *slog.Logger, auditLogger *audit.Logger, shutdownTimeout time.Duration) *Coordinator {
	return &Coordinator{
		table:           table,
		launcher:        launcher,
		prober:          prober,
		log:             log,
		audit:           auditLogger,
		shutdownTimeout: shutdownTimeout,
	}
}

// StartModel implements start_model(name) (spec §4.E).
func (c *Coordinator) StartModel(ctx context.Context, name string) error {
	ctx, span := tracing.StartProcessSpan(ctx, name, "start", 0)
	defer span.End()

	err := c.startModel(ctx, name)
	if err != nil {
		tracing.RecordError(span, err, "start_model failed")
	} else {
		tracing.RecordSuccess(span)
	}
	return err
}

func (c *Coordinator) startModel(ctx context.Context, name string) error {
	c.table.Lock()
	state := c.table.Get(name)
	if state == nil {
		c.table.Unlock()
		return unknownModel(name)
	}

	// A second concurrent caller for the same name waits on the state's
	// condition variable rather than racing the in-flight transition or
	// failing Busy (SPEC_FULL.md Open Question resolution: cond-wait).
	for state.Status == StatusStarting || state.Status == StatusStopping {
		state.cond.Wait()
	}

	if state.hasHandle() {
		state.Status = StatusRunning
		state.LastError = ""
		state.LastActive = time.Now()
		c.table.Unlock()
		return nil
	}

	group := c.table.Group(state.Spec.Group)
	running := c.table.RunningInGroup(state.Spec.Group, name)
	evictName := selectEvictionCandidate(group, running)

	state.Status = StatusStarting
	state.LastError = ""
	state.ReturnCode = nil
	c.table.Unlock()

	if evictName != "" {
		c.table.Lock()
		evictState := c.table.Get(evictName)
		c.table.Unlock()
		if evictState != nil {
			c.stopProcess(evictState, false)
		}
	}

	// The child must outlive this call: a request-scoped ctx (e.g. an HTTP
	// handler's r.Context()) is canceled the instant the handler returns,
	// and exec.CommandContext kills the child on cancellation. Strip
	// cancellation but keep values (trace span, etc.) for the launch call —
	// the daemon, not the caller, owns the child's lifetime from here on.
	h, err := c.launcher.Launch(context.WithoutCancel(ctx), state.Spec, state.logBuffer)
	if err != nil {
		c.table.Lock()
		state.Status = StatusFailed
		state.LastError = err.Error()
		state.cond.Broadcast()
		c.table.Unlock()
		if c.audit != nil {
			c.audit.LogSystemError(name, err.Error())
		}
		return startFailed(name, err)
	}

	c.table.Lock()
	state.Cmd = h.cmd
	state.PID = h.cmd.Process.Pid
	state.StartTimestamp = time.Now()
	state.waiter = h.doneCh
	c.table.Unlock()

	if c.audit != nil {
		c.audit.LogProcessStart(name, state.PID, 1)
	}
	metrics.RecordProcessStart(name, name, float64(state.StartTimestamp.Unix()))

	healthCtx, healthSpan := tracing.StartHealthCheckSpan(ctx, name, "http")
	healthy := c.prober.WaitReady(healthCtx, state.Spec, func() bool {
		select {
		case <-h.doneCh:
			return false
		default:
			return true
		}
	})
	tracing.SetAttributes(healthSpan, attribute.Bool("health_check.passed", healthy))
	healthSpan.End()

	if healthy {
		c.table.Lock()
		state.Status = StatusRunning
		state.LastActive = time.Now()
		state.cond.Broadcast()
		c.table.Unlock()
		return nil
	}

	c.stopProcess(state, true)
	c.table.Lock()
	state.Status = StatusFailed
	state.cond.Broadcast()
	c.table.Unlock()
	return healthCheckFailed(name)
}

// StopModel implements stop_model(name) (spec §4.E). Idempotent.
func (c *Coordinator) StopModel(name string) error {
	ctx, span := tracing.StartProcessSpan(context.Background(), name, "stop", 0)
	defer span.End()

	c.table.Lock()
	state := c.table.Get(name)
	c.table.Unlock()
	if state == nil {
		err := unknownModel(name)
		tracing.RecordError(span, err, "stop_model failed")
		return err
	}
	c.stopProcessCtx(ctx, state, false)
	tracing.RecordSuccess(span)
	return nil
}

// LoadModel is an alias of StartModel for non-JIT operator intent logging
// (spec §4.E load_model/unload_model — behavior identical to start/stop).
func (c *Coordinator) LoadModel(ctx context.Context, name string) error {
	c.log.Info("load requested", "model", name)
	return c.StartModel(ctx, name)
}

// UnloadModel is an alias of StopModel, see LoadModel.
func (c *Coordinator) UnloadModel(name string) error {
	c.log.Info("unload requested", "model", name)
	return c.StopModel(name)
}

// StopAllModels implements stop_all_models(): best-effort graceful stop of
// every model in the table. Does not stop the daemon itself.
func (c *Coordinator) StopAllModels() {
	c.table.Lock()
	names := c.table.Names()
	c.table.Unlock()

	for _, name := range names {
		c.table.Lock()
		state := c.table.Get(name)
		c.table.Unlock()
		if state != nil {
			c.stopProcess(state, false)
		}
	}
}

// StartInitialModels implements start_initial_models(): boots every
// non-JIT model that is not already running. Errors are logged, not
// propagated, so one bad model does not block the rest of the catalog.
func (c *Coordinator) StartInitialModels(ctx context.Context) {
	c.table.Lock()
	var names []string
	for _, s := range c.table.All() {
		if !s.Spec.JITEnabled && !s.hasHandle() {
			names = append(names, s.Spec.Name)
		}
	}
	c.table.Unlock()

	for _, name := range names {
		if err := c.StartModel(ctx, name); err != nil {
			c.log.Error("failed to start initial model", "model", name, "error", err)
		}
	}
}

// stopProcessCtx wraps stopProcess with a supervisor span for call sites
// that already hold a request-scoped context (spec §4.E stop_model).
func (c *Coordinator) stopProcessCtx(ctx context.Context, state *ModelState, kill bool) {
	_, span := tracing.StartSupervisorSpan(ctx, state.Spec.Name, "stop_process")
	defer span.End()
	c.stopProcess(state, kill)
}

// stopProcess is the internal stop_process(state, kill) helper (spec §4.E).
func (c *Coordinator) stopProcess(state *ModelState, kill bool) {
	c.table.Lock()
	if !state.hasHandle() {
		state.Status = StatusStopped
		state.ReturnCode = nil
		state.LastActive = time.Now()
		state.cond.Broadcast()
		c.table.Unlock()
		return
	}

	state.Status = StatusStopping
	pid := state.PID
	waiter := state.waiter
	if kill {
		killChild(pid)
	} else {
		stopChild(pid)
	}
	c.table.Unlock()

	exited := waitForExit(waiter, c.shutdownTimeout)
	if !exited {
		killChild(pid)
		exited = waitForExit(waiter, 5*time.Second)
		if !exited {
			c.log.Warn("process did not exit after hard kill", "pid", pid)
		}
	}

	c.table.Lock()
	defer func() {
		state.cond.Broadcast()
		c.table.Unlock()
	}()

	code := 0
	if state.Cmd != nil && state.Cmd.ProcessState != nil {
		code = state.Cmd.ProcessState.ExitCode()
	}
	state.ReturnCode = &code
	state.Cmd = nil
	state.PID = 0
	state.waiter = nil
	state.LastActive = time.Now()

	if c.audit != nil {
		c.audit.LogProcessStop(state.Spec.Name, pid, "stop_process")
	}
	metrics.RecordProcessStop(state.Spec.Name, state.Spec.Name, code)

	if code != 0 {
		if state.LastError == "" {
			state.LastError = fmt.Sprintf("exited with code %d", code)
		}
		state.Status = StatusFailed
	} else {
		state.Status = StatusStopped
		if state.LastError != "" {
			state.LastError = ""
		}
	}
}

// waitForExit blocks on waiter until it closes or timeout elapses.
func waitForExit(waiter chan struct{}, timeout time.Duration) bool {
	if waiter == nil {
		return true
	}
	select {
	case <-waiter:
		return true
	case <-time.After(timeout):
		return false
	}
}

// ReloadConfig implements reload_config() (spec §4.E): reconcile the table
// against a freshly loaded HubConfig, preserving live handles for
// process-compatible specs and restarting anything else.
func (c *Coordinator) ReloadConfig(ctx context.Context, path string) error {
	c.table.Lock()
	persistedPorts := make(map[string]int, len(c.table.states))
	for name, s := range c.table.states {
		persistedPorts[name] = s.Spec.Port
	}
	c.table.Unlock()

	newCfg, err := config.LoadWithPersistedPorts(path, persistedPorts)
	if err != nil {
		return reloadFailed(err)
	}

	c.table.Lock()
	oldStates := c.table.states

	newGroups := make(map[string]*config.GroupSpec, len(newCfg.Groups))
	for _, g := range newCfg.Groups {
		newGroups[g.Name] = g
	}

	keep := make(map[string]bool, len(newCfg.Models))
	newStates := make(map[string]*ModelState, len(newCfg.Models))

	for _, spec := range newCfg.Models {
		keep[spec.Name] = true
		old, existed := oldStates[spec.Name]

		if existed && old.Spec.Equal(spec) && old.hasHandle() {
			fresh := newModelState(spec, &c.table.mu)
			fresh.Status = old.Status
			fresh.Cmd = old.Cmd
			fresh.PID = old.PID
			fresh.ReturnCode = old.ReturnCode
			fresh.LastError = old.LastError
			fresh.StartTimestamp = old.StartTimestamp
			fresh.LastActive = old.LastActive
			fresh.waiter = old.waiter
			fresh.logBuffer = old.logBuffer
			newStates[spec.Name] = fresh
			continue
		}

		newStates[spec.Name] = newModelState(spec, &c.table.mu)
	}

	var toStop []*ModelState
	for name, old := range oldStates {
		if !keep[name] {
			toStop = append(toStop, old)
			continue
		}
		if fresh := newStates[name]; fresh.Cmd == nil && old.hasHandle() {
			// process-incompatible: stop the old handle, the fresh state
			// already starts clean (configured/stopped).
			toStop = append(toStop, old)
		}
	}

	c.table.replace(newStates, newGroups)
	c.table.Unlock()

	for _, s := range toStop {
		c.stopProcess(s, false)
	}

	c.StartInitialModels(ctx)
	return nil
}
