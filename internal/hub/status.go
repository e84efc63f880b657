package hub

import "time"

// ModelStatus is the per-model status payload (spec §6.3), with
// cpu_percent/rss_bytes as a SPEC_FULL.md additive field populated by the
// resource sampler when available.
type ModelStatus struct {
	Name           string  `json:"name"`
	Status         string  `json:"status"`
	PID            int     `json:"pid,omitempty"`
	Host           string  `json:"host"`
	Port           int     `json:"port"`
	Group          string  `json:"group,omitempty"`
	JITEnabled     bool    `json:"jit_enabled"`
	ReturnCode     *int    `json:"return_code,omitempty"`
	LastError      string  `json:"last_error,omitempty"`
	StartTimestamp string  `json:"start_timestamp,omitempty"`
	LastActive     string  `json:"last_active,omitempty"`
	UptimeSeconds  float64 `json:"uptime_seconds,omitempty"`
	SupervisorLog  string  `json:"supervisor_log"`
	CPUPercent     float64 `json:"cpu_percent,omitempty"`
	RSSBytes       uint64  `json:"rss_bytes,omitempty"`
}

// GroupStatus summarizes capacity usage for one group (spec §6.3).
type GroupStatus struct {
	Name      string `json:"name"`
	Running   int    `json:"running"`
	Total     int    `json:"total"`
	MaxLoaded *int   `json:"max_loaded,omitempty"`
}

// Status is the full status payload returned by GET /hub/status.
type Status struct {
	Host              string        `json:"host"`
	Port              int           `json:"port"`
	ModelStartingPort int           `json:"model_starting_port"`
	EnableStatusPage  bool          `json:"enable_status_page"`
	LogLevel          string        `json:"log_level"`
	Models            []ModelStatus `json:"models"`
	Groups            []GroupStatus `json:"groups"`
}

// ResourceSampler reports live CPU/RSS for a PID (SPEC_FULL.md additive
// field, backed by internal/metrics' gopsutil-based resource collector).
// Returning ok=false omits the fields rather than reporting stale zeros.
type ResourceSampler interface {
	Sample(model string, pid int) (cpuPercent float64, rssBytes uint64, ok bool)
}

// Projector is the Status Projector (spec §4.G).
type Projector struct {
	table    *Table
	monitor  *Monitor
	logPath  string
	hostCfg  func() (host string, port, startingPort int, enableStatusPage bool, logLevel string)
	sampler  ResourceSampler
}

// NewProjector builds a Projector. hostCfg supplies the daemon-wide bind
// fields that live outside the Table; sampler may be nil to omit resource
// fields entirely.
func NewProjector(table *Table, monitor *Monitor, logPath string, hostCfg func() (string, int, int, bool, string), sampler ResourceSampler) *Projector {
	return &Projector{table: table, monitor: monitor, logPath: logPath, hostCfg: hostCfg, sampler: sampler}
}

// Snapshot runs the Reap pass then projects the table into a Status
// (spec §4.G: "Before projecting, runs the Reap pass").
func (p *Projector) Snapshot() Status {
	if p.monitor != nil {
		p.monitor.reap()
	}

	p.table.Lock()
	defer p.table.Unlock()

	now := time.Now()
	models := make([]ModelStatus, 0, len(p.table.states))
	groupCounts := make(map[string]int, len(p.table.groups))
	groupTotals := make(map[string]int, len(p.table.groups))

	for _, s := range p.table.All() {
		ms := ModelStatus{
			Name:          s.Spec.Name,
			Status:        string(s.Status),
			PID:           s.PID,
			Host:          s.Spec.Host,
			Port:          s.Spec.Port,
			Group:         s.Spec.Group,
			JITEnabled:    s.Spec.JITEnabled,
			ReturnCode:    s.ReturnCode,
			LastError:     s.LastError,
			SupervisorLog: p.logPath + "/" + s.Spec.Name + ".supervisor.log",
		}
		if !s.StartTimestamp.IsZero() {
			ms.StartTimestamp = s.StartTimestamp.Format(time.RFC3339)
			if s.hasHandle() {
				ms.UptimeSeconds = now.Sub(s.StartTimestamp).Seconds()
			}
		}
		if !s.LastActive.IsZero() {
			ms.LastActive = s.LastActive.Format(time.RFC3339)
		}
		if p.sampler != nil && s.hasHandle() {
			if cpu, rss, ok := p.sampler.Sample(s.Spec.Name, s.PID); ok {
				ms.CPUPercent = cpu
				ms.RSSBytes = rss
			}
		}
		models = append(models, ms)

		if s.Spec.Group != "" {
			groupTotals[s.Spec.Group]++
			if s.hasHandle() {
				groupCounts[s.Spec.Group]++
			}
		}
	}

	groups := make([]GroupStatus, 0, len(p.table.groups))
	for name, g := range p.table.groups {
		groups = append(groups, GroupStatus{
			Name:      name,
			Running:   groupCounts[name],
			Total:     groupTotals[name],
			MaxLoaded: g.MaxLoaded,
		})
	}

	host, port, startingPort, enableStatusPage, logLevel := p.hostCfg()
	return Status{
		Host:              host,
		Port:              port,
		ModelStartingPort: startingPort,
		EnableStatusPage:  enableStatusPage,
		LogLevel:          logLevel,
		Models:            models,
		Groups:            groups,
	}
}
