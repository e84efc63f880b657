package config

import (
	"fmt"
)

// Load loads configuration from a YAML file and environment variables.
// Priority: environment variables > YAML file > defaults.
func Load(path string) (*HubConfig, error) {
	return LoadWithEnvExpansion(path)
}

// Validate validates the configuration, enforcing the invariants of spec §3.
func (c *HubConfig) Validate() error {
	if c.Global.ShutdownTimeout < 0 {
		return fmt.Errorf("shutdown_timeout must be positive")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level: %s", c.LogLevel)
	}
	switch c.Global.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log_format: %s", c.Global.LogFormat)
	}

	seen := make(map[string]bool, len(c.Models))
	for _, m := range c.Models {
		if m.Name == "" {
			return fmt.Errorf("model entry missing name")
		}
		if seen[m.Name] {
			return fmt.Errorf("duplicate model name: %s", m.Name)
		}
		seen[m.Name] = true
		if m.ModelPath == "" {
			return fmt.Errorf("model %s has no model_path", m.Name)
		}
		if m.Port <= 0 {
			return fmt.Errorf("model %s has invalid port: %d", m.Name, m.Port)
		}
	}

	groups := make(map[string]*GroupSpec, len(c.Groups))
	for _, g := range c.Groups {
		if g.Name == "" {
			return fmt.Errorf("group entry missing name")
		}
		if groups[g.Name] != nil {
			return fmt.Errorf("duplicate group name: %s", g.Name)
		}
		groups[g.Name] = g
		if g.MaxLoaded != nil && *g.MaxLoaded < 1 {
			return fmt.Errorf("group %s has invalid max_loaded: %d", g.Name, *g.MaxLoaded)
		}
	}

	// spec §3 GroupSpec invariant: idle_unload_trigger_min requires every
	// member of the group to be jit_enabled.
	for _, g := range c.Groups {
		if g.IdleUnloadTriggerMin == nil {
			continue
		}
		if *g.IdleUnloadTriggerMin < 1 {
			return fmt.Errorf("group %s has invalid idle_unload_trigger_min: %d", g.Name, *g.IdleUnloadTriggerMin)
		}
		for _, m := range c.Models {
			if m.Group == g.Name && !m.JITEnabled {
				return fmt.Errorf("group %s sets idle_unload_trigger_min but member %q is not jit_enabled", g.Name, m.Name)
			}
		}
	}

	for _, m := range c.Models {
		if m.Group != "" && groups[m.Group] == nil {
			return fmt.Errorf("model %s references unknown group: %s", m.Name, m.Group)
		}
	}

	return nil
}
