package hub

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gophpeek/mlxhub/internal/metrics"
)

// Monitor is the Monitor Loop (spec §4.F): a dedicated goroutine reaping
// exited children and applying the idle-unload policy on every tick.
type Monitor struct {
	table       *Table
	coordinator *Coordinator
	log         *slog.Logger
	interval    time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewMonitor builds a Monitor ticking every interval (HUB_POLL_INTERVAL_SECONDS).
func NewMonitor(table *Table, coordinator *Coordinator, log *slog.Logger, interval time.Duration) *Monitor {
	return &Monitor{
		table:       table,
		coordinator: coordinator,
		log:         log,
		interval:    interval,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Run executes the monitor loop until Stop is called. Intended to run in
// its own goroutine for the lifetime of the daemon.
func (m *Monitor) Run() {
	defer close(m.doneCh)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.tick()
		}
	}
}

// Stop signals the loop to exit and waits up to 1 second for it to finish
// (spec §4.F: "joined during shutdown with a 1-second budget").
func (m *Monitor) Stop() {
	close(m.stopCh)
	select {
	case <-m.doneCh:
	case <-time.After(1 * time.Second):
	}
}

func (m *Monitor) tick() {
	m.reap()
	m.idleUnload()
}

// reap implements spec §4.F step 1: poll every handle for exit, recording
// return code and transitioning status without blocking on wait().
func (m *Monitor) reap() {
	m.table.Lock()
	var exited []*ModelState
	for _, s := range m.table.All() {
		if s.hasHandle() && s.Cmd.ProcessState != nil {
			exited = append(exited, s)
		}
	}
	m.table.Unlock()

	for _, s := range exited {
		m.table.Lock()
		code := s.Cmd.ProcessState.ExitCode()
		s.ReturnCode = &code
		s.Cmd = nil
		s.PID = 0
		s.waiter = nil
		s.LastActive = time.Now()
		if code != 0 {
			if s.LastError == "" {
				s.LastError = fmt.Sprintf("exited with code %d", code)
			}
			s.Status = StatusFailed
		} else {
			s.Status = StatusStopped
		}
		name := s.Spec.Name
		s.cond.Broadcast()
		m.table.Unlock()

		metrics.RecordProcessStop(name, name, code)
		m.log.Info("reaped exited child", "model", name, "exit_code", code)
	}
}

// idleUnload implements spec §4.F step 2: JIT models in a group with
// idle_unload_trigger_min are stopped once idle past the trigger.
func (m *Monitor) idleUnload() {
	m.table.Lock()
	var toStop []*ModelState
	now := time.Now()
	for _, s := range m.table.All() {
		if !s.Spec.JITEnabled || s.Status != StatusRunning || s.Spec.Group == "" {
			continue
		}
		group := m.table.Group(s.Spec.Group)
		if group == nil || group.IdleUnloadTriggerMin == nil {
			continue
		}
		reference := s.LastActive
		if reference.IsZero() {
			reference = s.StartTimestamp
		}
		trigger := time.Duration(*group.IdleUnloadTriggerMin) * time.Minute
		if now.Sub(reference) >= trigger {
			toStop = append(toStop, s)
		}
	}
	m.table.Unlock()

	for _, s := range toStop {
		m.log.Info("auto-unloading idle JIT model", "model", s.Spec.Name, "group", s.Spec.Group)
		m.coordinator.stopProcess(s, false)
	}
}
