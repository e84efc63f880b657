// Package hub implements the Hub Runtime: the concurrent state machine that
// owns the mutable process table for a fixed catalog of inference-server
// subprocesses, enforces per-group capacity, drives health-gated startup,
// reconciles against reloaded configuration, and auto-unloads idle
// just-in-time models.
package hub

import (
	"os/exec"
	"sync"
	"time"

	"github.com/gophpeek/mlxhub/internal/config"
	"github.com/gophpeek/mlxhub/internal/logger"
)

// Status is one of the ModelState lifecycle states (spec §3).
type Status string

const (
	StatusConfigured Status = "configured"
	StatusStopped    Status = "stopped"
	StatusStarting   Status = "starting"
	StatusRunning    Status = "running"
	StatusStopping   Status = "stopping"
	StatusFailed     Status = "failed"
)

// ModelState is the mutable per-model record kept in the Process Table
// (spec §3). All field mutation happens with the table lock held; blocking
// I/O (health probe, process wait) happens with the lock released — see
// Coordinator.
type ModelState struct {
	Spec *config.ModelSpec

	Status      Status
	Cmd         *exec.Cmd
	PID         int
	ReturnCode  *int
	LastError   string

	StartTimestamp time.Time
	LastActive     time.Time

	// waiter is closed by the goroutine that reaps this child's exit,
	// letting stop_process wait for exit without double-calling Cmd.Wait.
	waiter   chan struct{}
	waitOnce sync.Once

	// cond lets a second concurrent start_model caller for the same name
	// block on the in-flight starting/stopping sentinel rather than racing
	// it or failing with Busy (SPEC_FULL.md Open Question resolution).
	cond *sync.Cond

	logBuffer *logger.LogBuffer
}

func newModelState(spec *config.ModelSpec, mu *sync.Mutex) *ModelState {
	status := StatusStopped
	if spec.JITEnabled {
		status = StatusConfigured
	}
	return &ModelState{
		Spec:      spec,
		Status:    status,
		cond:      sync.NewCond(mu),
		logBuffer: logger.NewLogBuffer(1000),
	}
}

// hasHandle reports invariant-1/2 membership: a live OS process handle.
func (s *ModelState) hasHandle() bool {
	return s.Cmd != nil && s.Cmd.Process != nil
}

// LogBuffer returns the model's ring buffer of recent supervisor log lines.
func (s *ModelState) LogBuffer() *logger.LogBuffer {
	return s.logBuffer
}

// Table is the `name -> ModelState` mapping guarded by a single mutex (the
// "table lock", spec §4.A/§5). All mutation of any ModelState field happens
// with this lock held; blocking I/O never happens while it is held.
type Table struct {
	mu     sync.Mutex
	states map[string]*ModelState
	groups map[string]*config.GroupSpec
}

// NewTable builds a fresh table from a HubConfig. Initial status follows
// spec §3 invariant 5: configured if JIT-enabled, else stopped.
func NewTable(cfg *config.HubConfig) *Table {
	t := &Table{
		states: make(map[string]*ModelState, len(cfg.Models)),
		groups: make(map[string]*config.GroupSpec, len(cfg.Groups)),
	}
	for _, g := range cfg.Groups {
		t.groups[g.Name] = g
	}
	for _, m := range cfg.Models {
		t.states[m.Name] = newModelState(m, &t.mu)
	}
	return t
}

// Lock/Unlock expose the table lock directly to the Coordinator, which needs
// fine-grained control over when it is held (spec §5's "release lock around
// blocking I/O" discipline does not map cleanly onto a narrower API).
func (t *Table) Lock()   { t.mu.Lock() }
func (t *Table) Unlock() { t.mu.Unlock() }

// Get returns the state for name, or nil if absent. Caller must hold the lock.
func (t *Table) Get(name string) *ModelState {
	return t.states[name]
}

// Group returns the group spec for name, or nil. Caller must hold the lock.
func (t *Table) Group(name string) *config.GroupSpec {
	if name == "" {
		return nil
	}
	return t.groups[name]
}

// Names returns a snapshot of all model names. Caller must hold the lock.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.states))
	for name := range t.states {
		names = append(names, name)
	}
	return names
}

// All returns a snapshot slice of every state. Caller must hold the lock.
func (t *Table) All() []*ModelState {
	all := make([]*ModelState, 0, len(t.states))
	for _, s := range t.states {
		all = append(all, s)
	}
	return all
}

// RunningInGroup returns the states with a live handle in the named group,
// excluding exclude (the target of an in-progress start). Caller must hold
// the lock.
func (t *Table) RunningInGroup(group string, exclude string) []*ModelState {
	var out []*ModelState
	for name, s := range t.states {
		if name == exclude {
			continue
		}
		if s.Spec.Group == group && s.hasHandle() {
			out = append(out, s)
		}
	}
	return out
}

// replace installs a freshly-built states/groups map atomically (used only
// by reload_config, which assembles the replacement under a separate
// mapping per spec §9 "Config reload atomicity"). Caller must hold the lock.
func (t *Table) replace(states map[string]*ModelState, groups map[string]*config.GroupSpec) {
	t.states = states
	t.groups = groups
}
