// Package preflight runs boot-time environment checks before the Hub
// Runtime starts launching models: log directory writability, model_path
// existence per catalog entry, and presence of the inference-server binary
// on PATH. Adapted from the teacher's internal/setup permission/config
// validators (filesystem.go, validator.go), generalized from PHP-FPM/Nginx
// binary checks to the Hub's own mlx-openai-server dependency.
package preflight

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/gophpeek/mlxhub/internal/config"
)

// inferenceServerBinary is the child process every managed model spawns
// (internal/hub/launcher.go).
const inferenceServerBinary = "mlx-openai-server"

// Checker runs boot-time environment validation against a loaded config.
type Checker struct {
	logger *slog.Logger
}

// NewChecker builds a Checker.
func NewChecker(log *slog.Logger) *Checker {
	return &Checker{logger: log}
}

// Run validates the log directory and the configured models, logging a
// warning for soft problems (a model whose model_path is missing won't
// start, but other models in the catalog still can) and returning an error
// only for conditions that would prevent the daemon itself from running.
func (c *Checker) Run(cfg *config.HubConfig) error {
	c.logger.Info("running preflight checks")

	if err := c.ensureWritableDir(cfg.LogPath); err != nil {
		return fmt.Errorf("log_path %q is not usable: %w", cfg.LogPath, err)
	}
	c.logger.Debug("log_path is writable", "path", cfg.LogPath)

	if _, err := exec.LookPath(inferenceServerBinary); err != nil {
		c.logger.Warn("inference server binary not found on PATH; models will fail to start",
			"binary", inferenceServerBinary)
	} else {
		c.logger.Debug("inference server binary found on PATH", "binary", inferenceServerBinary)
	}

	for _, m := range cfg.Models {
		c.checkModelPath(m)
	}

	c.logger.Info("preflight checks complete")
	return nil
}

func (c *Checker) checkModelPath(m *config.ModelSpec) {
	if m.ModelPath == "" {
		return
	}
	if _, err := os.Stat(m.ModelPath); err != nil {
		c.logger.Warn("model_path does not exist; this model will fail health checks at start",
			"model", m.Name, "model_path", m.ModelPath, "error", err)
	}
}

// ensureWritableDir creates dir if missing and verifies it is writable by
// actually creating and removing a probe file (teacher's
// setup.EnsureWritableDir, simplified: the Hub always runs with a single,
// operator-chosen log_path rather than the teacher's read-only-root /run
// fallback, since the daemon owns its own deployment rather than running
// inside an arbitrary PHP container image).
func (c *Checker) ensureWritableDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	probe := filepath.Join(dir, ".preflight-write-test")
	f, err := os.OpenFile(probe, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("directory is not writable: %w", err)
	}
	f.Close()
	os.Remove(probe)
	return nil
}
