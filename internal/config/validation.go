package config

import (
	"fmt"
	"os"
)

// ValidationSeverity represents the severity level of a validation issue.
type ValidationSeverity string

const (
	SeverityError      ValidationSeverity = "error"
	SeverityWarning    ValidationSeverity = "warning"
	SeveritySuggestion ValidationSeverity = "suggestion"
)

// ValidationIssue represents a single validation problem.
type ValidationIssue struct {
	Severity   ValidationSeverity
	Field      string // e.g. "global.log_level", "models.alpha.port"
	Message    string
	Suggestion string
	ModelName  string // Optional: which model this relates to
}

// ValidationResult contains all validation issues found.
type ValidationResult struct {
	Errors      []ValidationIssue
	Warnings    []ValidationIssue
	Suggestions []ValidationIssue
}

// NewValidationResult creates an empty validation result.
func NewValidationResult() *ValidationResult {
	return &ValidationResult{
		Errors:      []ValidationIssue{},
		Warnings:    []ValidationIssue{},
		Suggestions: []ValidationIssue{},
	}
}

func (vr *ValidationResult) AddError(field, message, suggestion string) {
	vr.Errors = append(vr.Errors, ValidationIssue{Severity: SeverityError, Field: field, Message: message, Suggestion: suggestion})
}

func (vr *ValidationResult) AddWarning(field, message, suggestion string) {
	vr.Warnings = append(vr.Warnings, ValidationIssue{Severity: SeverityWarning, Field: field, Message: message, Suggestion: suggestion})
}

func (vr *ValidationResult) AddSuggestion(field, message, suggestion string) {
	vr.Suggestions = append(vr.Suggestions, ValidationIssue{Severity: SeveritySuggestion, Field: field, Message: message, Suggestion: suggestion})
}

func (vr *ValidationResult) AddModelError(modelName, field, message, suggestion string) {
	vr.Errors = append(vr.Errors, ValidationIssue{Severity: SeverityError, Field: field, Message: message, Suggestion: suggestion, ModelName: modelName})
}

func (vr *ValidationResult) AddModelWarning(modelName, field, message, suggestion string) {
	vr.Warnings = append(vr.Warnings, ValidationIssue{Severity: SeverityWarning, Field: field, Message: message, Suggestion: suggestion, ModelName: modelName})
}

func (vr *ValidationResult) AddModelSuggestion(modelName, field, message, suggestion string) {
	vr.Suggestions = append(vr.Suggestions, ValidationIssue{Severity: SeveritySuggestion, Field: field, Message: message, Suggestion: suggestion, ModelName: modelName})
}

func (vr *ValidationResult) HasErrors() bool      { return len(vr.Errors) > 0 }
func (vr *ValidationResult) HasWarnings() bool    { return len(vr.Warnings) > 0 }
func (vr *ValidationResult) HasSuggestions() bool { return len(vr.Suggestions) > 0 }
func (vr *ValidationResult) TotalIssues() int {
	return len(vr.Errors) + len(vr.Warnings) + len(vr.Suggestions)
}

func (vr *ValidationResult) ToError() error {
	if !vr.HasErrors() {
		return nil
	}
	return fmt.Errorf("%d configuration error(s): %s", len(vr.Errors), vr.Errors[0].Message)
}

// ValidateComprehensive runs Validate (blocking errors) plus a non-blocking
// lint pass (warnings and suggestions), used by `hub check-config` to give
// an operator a full report instead of stopping at the first error.
func (c *HubConfig) ValidateComprehensive() (*ValidationResult, error) {
	result := NewValidationResult()

	if err := c.Validate(); err != nil {
		result.AddError("", err.Error(), "fix the configuration error above")
	}

	c.validateGlobalSettings(result)
	c.validateModels(result)
	c.lintConfiguration(result)

	return result, result.ToError()
}

func (c *HubConfig) validateGlobalSettings(result *ValidationResult) {
	if c.Global.PollIntervalSeconds > 0 && c.Global.PollIntervalSeconds < 1 {
		result.AddWarning("global.poll_interval_seconds", "poll interval below 1s", "use a poll interval of at least 1 second to avoid busy-looping")
	}
	if c.Global.HealthTimeoutSeconds < c.Global.HealthIntervalSeconds {
		result.AddWarning("global.health_timeout_seconds", "health timeout is shorter than the health interval", "increase health_timeout_seconds so at least one probe can run")
	}
	if !c.Global.MetricsEnabled {
		result.AddSuggestion("global.metrics_enabled", "metrics are disabled", "enable metrics_enabled to get per-model and per-group gauges")
	}
	if c.Global.APIAuth == "" {
		result.AddSuggestion("global.api_auth", "control plane has no bearer token configured", "set api_auth to require authentication on /hub/* routes")
	}
}

func (c *HubConfig) validateModels(result *ValidationResult) {
	if len(c.Models) == 0 {
		result.AddWarning("models", "no models configured", "add at least one model entry")
		return
	}

	for _, m := range c.Models {
		if _, err := os.Stat(m.ModelPath); err != nil {
			result.AddModelSuggestion(m.Name, "model_path", fmt.Sprintf("model_path %q is not reachable from this host: %v", m.ModelPath, err), "verify the path or mount before starting the daemon")
		}
		if m.TrustRemoteCode {
			result.AddModelWarning(m.Name, "trust_remote_code", "trust_remote_code executes arbitrary code bundled with the model", "only enable this for models from a trusted source")
		}
		if m.Group == "" && m.JITEnabled {
			result.AddModelSuggestion(m.Name, "group", "jit_enabled model has no group", "JIT models without a group are never auto-evicted or auto-unloaded by idle policy")
		}
		if m.PrewarmSchedule != "" && !m.JITEnabled {
			result.AddModelWarning(m.Name, "prewarm_schedule", "prewarm_schedule is set on a non-JIT model", "prewarm only has an effect on jit_enabled models that are not already running at boot")
		}
	}
}

// lintConfiguration applies best-practice checks that don't block startup.
func (c *HubConfig) lintConfiguration(result *ValidationResult) {
	ports := map[int]string{}
	for _, m := range c.Models {
		if existing, ok := ports[m.Port]; ok {
			result.AddModelError(m.Name, "port", fmt.Sprintf("port %d is already used by model %q", m.Port, existing), "give each model a distinct port")
			continue
		}
		ports[m.Port] = m.Name
	}

	for _, g := range c.Groups {
		total := 0
		for _, m := range c.Models {
			if m.Group == g.Name {
				total++
			}
		}
		if total == 0 {
			result.AddWarning(fmt.Sprintf("groups.%s", g.Name), "group has no members", "remove the group or assign models to it")
		}
		if g.MaxLoaded != nil && *g.MaxLoaded > total && total > 0 {
			result.AddSuggestion(fmt.Sprintf("groups.%s", g.Name), fmt.Sprintf("max_loaded (%d) exceeds the group's member count (%d)", *g.MaxLoaded, total), "max_loaded above the member count can never evict anything")
		}
	}
}
