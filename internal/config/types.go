package config

// HubConfig represents the complete hub configuration: daemon bind info plus
// the fixed catalog of models and groups it supervises.
type HubConfig struct {
	Version           string       `yaml:"version" json:"version"`
	Host              string       `yaml:"host" json:"host"`
	Port              int          `yaml:"port" json:"port"`
	ModelStartingPort int          `yaml:"model_starting_port" json:"model_starting_port"`
	EnableStatusPage  bool         `yaml:"enable_status_page" json:"enable_status_page"`
	LogLevel          string       `yaml:"log_level" json:"log_level"`
	LogPath           string       `yaml:"log_path" json:"log_path"`
	Global            GlobalConfig `yaml:"global" json:"global"`
	Models            []*ModelSpec `yaml:"models" json:"models"`
	Groups            []*GroupSpec `yaml:"groups" json:"groups"`
}

// GlobalConfig contains daemon-wide settings: ambient stack tunables and the
// four Hub Runtime tunables from spec §6.4.
type GlobalConfig struct {
	LogFormat       string `yaml:"log_format" json:"log_format"` // json | text
	ShutdownTimeout int    `yaml:"shutdown_timeout" json:"shutdown_timeout"`
	AuditEnabled    bool   `yaml:"audit_enabled" json:"audit_enabled"`
	WatchConfig     bool   `yaml:"watch_config" json:"watch_config"`

	MetricsEnabled bool   `yaml:"metrics_enabled" json:"metrics_enabled"`
	MetricsPort    int    `yaml:"metrics_port" json:"metrics_port"`
	MetricsPath    string `yaml:"metrics_path" json:"metrics_path"`

	TracingEnabled  bool   `yaml:"tracing_enabled" json:"tracing_enabled"`
	TracingExporter string `yaml:"tracing_exporter" json:"tracing_exporter"` // stdout | otlp
	TracingEndpoint string `yaml:"tracing_endpoint" json:"tracing_endpoint"`

	APIAuth string      `yaml:"api_auth" json:"api_auth"` // Bearer token, empty disables auth
	ACL     *ACLConfig  `yaml:"acl" json:"acl"`
	TLS     *TLSConfig  `yaml:"tls" json:"tls"`

	// Hub Runtime tunables (spec §6.4).
	PollIntervalSeconds   int `yaml:"poll_interval_seconds" json:"poll_interval_seconds"`
	HealthIntervalSeconds int `yaml:"health_interval_seconds" json:"health_interval_seconds"`
	HealthTimeoutSeconds  int `yaml:"health_timeout_seconds" json:"health_timeout_seconds"`
	ShutdownTimeoutSeconds int `yaml:"shutdown_grace_seconds" json:"shutdown_grace_seconds"`
}

// ACLConfig restricts control-plane access by client IP (spec §6.5).
type ACLConfig struct {
	Enabled    bool     `yaml:"enabled" json:"enabled"`
	Mode       string   `yaml:"mode" json:"mode"` // "allow" or "deny"
	AllowList  []string `yaml:"allow_list" json:"allow_list"`
	DenyList   []string `yaml:"deny_list" json:"deny_list"`
	TrustProxy bool     `yaml:"trust_proxy" json:"trust_proxy"`
}

// TLSConfig enables TLS termination on the control plane.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	CertFile string `yaml:"cert_file" json:"cert_file"`
	KeyFile  string `yaml:"key_file" json:"key_file"`
}

// ModelSpec is the immutable-once-loaded description of one managed
// inference server (spec §3). Two specs are process-compatible iff every
// field below is equal — see (*ModelSpec).Equal.
type ModelSpec struct {
	Name  string `yaml:"name" json:"name"`
	Group string `yaml:"group" json:"group"`

	ModelPath string `yaml:"model_path" json:"model_path"`
	ModelType string `yaml:"model_type" json:"model_type"`
	Host      string `yaml:"host" json:"host"`
	Port      int    `yaml:"port" json:"port"`

	ContextLength   int `yaml:"context_length" json:"context_length"`
	MaxConcurrency  int `yaml:"max_concurrency" json:"max_concurrency"`
	QueueTimeout    int `yaml:"queue_timeout" json:"queue_timeout"`
	QueueSize       int `yaml:"queue_size" json:"queue_size"`

	LogLevel   string `yaml:"log_level" json:"log_level"`
	LogFile    string `yaml:"log_file" json:"log_file"`
	NoLogFile  bool   `yaml:"no_log_file" json:"no_log_file"`
	Debug      bool   `yaml:"debug" json:"debug"`

	ConfigName         string   `yaml:"config_name" json:"config_name"`
	Quantize           string   `yaml:"quantize" json:"quantize"`
	DisableAutoResize  bool     `yaml:"disable_auto_resize" json:"disable_auto_resize"`
	LoraPaths          []string `yaml:"lora_paths" json:"lora_paths"`
	LoraScales         []string `yaml:"lora_scales" json:"lora_scales"`

	EnableAutoToolChoice bool   `yaml:"enable_auto_tool_choice" json:"enable_auto_tool_choice"`
	ToolCallParser       string `yaml:"tool_call_parser" json:"tool_call_parser"`
	ReasoningParser      string `yaml:"reasoning_parser" json:"reasoning_parser"`
	MessageConverter     string `yaml:"message_converter" json:"message_converter"`
	TrustRemoteCode      bool   `yaml:"trust_remote_code" json:"trust_remote_code"`
	ChatTemplateFile     string `yaml:"chat_template_file" json:"chat_template_file"`

	JITEnabled bool `yaml:"jit_enabled" json:"jit_enabled"`

	// PrewarmSchedule is a supplemented feature (SPEC_FULL.md): an optional
	// cron expression that starts a JIT model ahead of an expected traffic
	// window. Empty disables scheduled pre-warm for this model.
	PrewarmSchedule string `yaml:"prewarm_schedule,omitempty" json:"prewarm_schedule,omitempty"`

	// Logging configures the supervisor log-capture pipeline for this
	// model's child stdout/stderr. Nil uses the daemon defaults.
	Logging *LoggingConfig `yaml:"logging,omitempty" json:"-"`
}

// Equal reports whether two specs are process-compatible (spec §3): every
// field that the Launcher's argv or the daemon's supervision behavior
// depends on must match, or the running child must be stopped and replaced
// rather than handed over across a reload.
func (m *ModelSpec) Equal(o *ModelSpec) bool {
	if m == nil || o == nil {
		return m == o
	}
	if m.Name != o.Name || m.Group != o.Group ||
		m.ModelPath != o.ModelPath || m.ModelType != o.ModelType ||
		m.Host != o.Host || m.Port != o.Port ||
		m.ContextLength != o.ContextLength || m.MaxConcurrency != o.MaxConcurrency ||
		m.QueueTimeout != o.QueueTimeout || m.QueueSize != o.QueueSize ||
		m.LogLevel != o.LogLevel || m.LogFile != o.LogFile ||
		m.NoLogFile != o.NoLogFile || m.Debug != o.Debug ||
		m.ConfigName != o.ConfigName || m.Quantize != o.Quantize ||
		m.DisableAutoResize != o.DisableAutoResize ||
		m.EnableAutoToolChoice != o.EnableAutoToolChoice ||
		m.ToolCallParser != o.ToolCallParser || m.ReasoningParser != o.ReasoningParser ||
		m.MessageConverter != o.MessageConverter || m.TrustRemoteCode != o.TrustRemoteCode ||
		m.ChatTemplateFile != o.ChatTemplateFile || m.JITEnabled != o.JITEnabled {
		return false
	}
	if len(m.LoraPaths) != len(o.LoraPaths) || len(m.LoraScales) != len(o.LoraScales) {
		return false
	}
	for i := range m.LoraPaths {
		if m.LoraPaths[i] != o.LoraPaths[i] {
			return false
		}
	}
	for i := range m.LoraScales {
		if m.LoraScales[i] != o.LoraScales[i] {
			return false
		}
	}
	return true
}

// GroupSpec is a named capacity bucket shared by models (spec §3).
type GroupSpec struct {
	Name                 string `yaml:"name" json:"name"`
	MaxLoaded            *int   `yaml:"max_loaded,omitempty" json:"max_loaded,omitempty"`
	IdleUnloadTriggerMin *int   `yaml:"idle_unload_trigger_min,omitempty" json:"idle_unload_trigger_min,omitempty"`
}

// LoggingConfig configures the per-model supervisor log-capture pipeline:
// multiline joining, redaction, JSON parsing, level detection and filters,
// applied to a model's child stdout/stderr before it reaches the supervisor
// log file and the in-memory ring buffer backing GET /hub/models/{name}/logs.
type LoggingConfig struct {
	MinLevel       string                `yaml:"min_level" json:"min_level"`
	Redaction      *RedactionConfig      `yaml:"redaction" json:"redaction"`
	Multiline      *MultilineConfig      `yaml:"multiline" json:"multiline"`
	JSON           *JSONConfig           `yaml:"json" json:"json"`
	LevelDetection *LevelDetectionConfig `yaml:"level_detection" json:"level_detection"`
	Filters        *FilterConfig         `yaml:"filters" json:"filters"`
}

// RedactionConfig configures sensitive data redaction in captured output.
type RedactionConfig struct {
	Enabled  bool               `yaml:"enabled" json:"enabled"`
	Patterns []RedactionPattern `yaml:"patterns" json:"patterns"`
}

// RedactionPattern defines a regex pattern for redacting sensitive data.
type RedactionPattern struct {
	Name        string `yaml:"name" json:"name"`
	Pattern     string `yaml:"pattern" json:"pattern"`
	Replacement string `yaml:"replacement" json:"replacement"`
}

// MultilineConfig configures multiline log handling (e.g. stack traces).
type MultilineConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	Pattern  string `yaml:"pattern" json:"pattern"`
	MaxLines int    `yaml:"max_lines" json:"max_lines"`
	Timeout  int    `yaml:"timeout" json:"timeout"`
}

// JSONConfig configures JSON log parsing.
type JSONConfig struct {
	Enabled        bool `yaml:"enabled" json:"enabled"`
	DetectAuto     bool `yaml:"detect_auto" json:"detect_auto"`
	ExtractLevel   bool `yaml:"extract_level" json:"extract_level"`
	ExtractMessage bool `yaml:"extract_message" json:"extract_message"`
	MergeFields    bool `yaml:"merge_fields" json:"merge_fields"`
}

// LevelDetectionConfig configures log level detection from log content.
type LevelDetectionConfig struct {
	Enabled      bool              `yaml:"enabled" json:"enabled"`
	Patterns     map[string]string `yaml:"patterns" json:"patterns"`
	DefaultLevel string            `yaml:"default_level" json:"default_level"`
}

// FilterConfig configures log filtering.
type FilterConfig struct {
	Exclude []string `yaml:"exclude" json:"exclude"`
	Include []string `yaml:"include" json:"include"`
}

// SetDefaults sets sensible default values for the configuration.
func (c *HubConfig) SetDefaults() {
	if c.Version == "" {
		c.Version = "1.0"
	}
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 8000
	}
	if c.ModelStartingPort == 0 {
		c.ModelStartingPort = 8001
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogPath == "" {
		c.LogPath = "/var/log/mlxhub"
	}

	if c.Global.LogFormat == "" {
		c.Global.LogFormat = "json"
	}
	if c.Global.ShutdownTimeout == 0 {
		c.Global.ShutdownTimeout = 30
	}
	if c.Global.MetricsPort == 0 {
		c.Global.MetricsPort = 9090
	}
	if c.Global.MetricsPath == "" {
		c.Global.MetricsPath = "/metrics"
	}
	if c.Global.TracingExporter == "" {
		c.Global.TracingExporter = "stdout"
	}

	// Hub Runtime tunables (spec §6.4, defaults listed in SPEC_FULL.md).
	if c.Global.PollIntervalSeconds == 0 {
		c.Global.PollIntervalSeconds = 5
	}
	if c.Global.HealthIntervalSeconds == 0 {
		c.Global.HealthIntervalSeconds = 2
	}
	if c.Global.HealthTimeoutSeconds == 0 {
		c.Global.HealthTimeoutSeconds = 60
	}
	if c.Global.ShutdownTimeoutSeconds == 0 {
		c.Global.ShutdownTimeoutSeconds = 10
	}

	for _, m := range c.Models {
		if m.Host == "" {
			m.Host = "0.0.0.0"
		}
		if m.LogLevel == "" {
			m.LogLevel = "info"
		}
		if m.MaxConcurrency == 0 {
			m.MaxConcurrency = 1
		}
		if m.QueueSize == 0 {
			m.QueueSize = 100
		}
		if m.Logging != nil {
			if m.Logging.MinLevel == "" {
				m.Logging.MinLevel = "info"
			}
			if m.Logging.Multiline != nil {
				if m.Logging.Multiline.MaxLines == 0 {
					m.Logging.Multiline.MaxLines = 100
				}
				if m.Logging.Multiline.Timeout == 0 {
					m.Logging.Multiline.Timeout = 1
				}
			}
			if m.Logging.LevelDetection != nil && m.Logging.LevelDetection.DefaultLevel == "" {
				m.Logging.LevelDetection.DefaultLevel = "info"
			}
		}
	}
}
