package hub

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/gophpeek/mlxhub/internal/config"
	"github.com/gophpeek/mlxhub/internal/logger"
)

// Launcher builds a managed model's child argv and spawns it in its own
// process group, with stdout/stderr captured through the supervisor
// log-capture pipeline into <log_path>/<name>.supervisor.log (spec §4.B,
// §6.2).
type Launcher struct {
	logPath string
	log     *slog.Logger
}

// NewLauncher returns a Launcher writing supervisor logs under logPath.
func NewLauncher(logPath string, log *slog.Logger) *Launcher {
	return &Launcher{logPath: logPath, log: log}
}

// handle is everything the Coordinator needs to retain about a spawned
// child: the live exec.Cmd, a channel closed on exit, and the writers that
// must be flushed when it does.
type handle struct {
	cmd          *exec.Cmd
	doneCh       chan struct{}
	stdoutWriter *logger.ProcessWriter
	stderrWriter *logger.ProcessWriter
}

// buildArgs constructs the child argv in the exact order spec §6.2
// mandates for bit-exact compatibility with operator tooling.
func buildArgs(spec *config.ModelSpec) []string {
	args := []string{
		"--model-path", spec.ModelPath,
		"--model-type", spec.ModelType,
		"--port", strconv.Itoa(spec.Port),
		"--host", spec.Host,
		"--max-concurrency", strconv.Itoa(spec.MaxConcurrency),
		"--queue-timeout", strconv.Itoa(spec.QueueTimeout),
		"--queue-size", strconv.Itoa(spec.QueueSize),
		"--log-level", spec.LogLevel,
	}

	if spec.ContextLength > 0 {
		args = append(args, "--context-length", strconv.Itoa(spec.ContextLength))
	}
	if spec.ConfigName != "" {
		args = append(args, "--config-name", spec.ConfigName)
	}
	if spec.Quantize != "" {
		args = append(args, "--quantize", spec.Quantize)
	}
	if spec.DisableAutoResize {
		args = append(args, "--disable-auto-resize")
	}
	if spec.LogFile != "" {
		args = append(args, "--log-file", spec.LogFile)
	}
	if spec.NoLogFile {
		args = append(args, "--no-log-file")
	}
	if len(spec.LoraPaths) > 0 {
		args = append(args, "--lora-paths", strings.Join(spec.LoraPaths, ","))
	}
	if len(spec.LoraScales) > 0 {
		args = append(args, "--lora-scales", strings.Join(spec.LoraScales, ","))
	}
	if spec.EnableAutoToolChoice {
		args = append(args, "--enable-auto-tool-choice")
	}
	if spec.ToolCallParser != "" {
		args = append(args, "--tool-call-parser", spec.ToolCallParser)
	}
	if spec.ReasoningParser != "" {
		args = append(args, "--reasoning-parser", spec.ReasoningParser)
	}
	if spec.MessageConverter != "" {
		args = append(args, "--message-converter", spec.MessageConverter)
	}
	if spec.TrustRemoteCode {
		args = append(args, "--trust-remote-code")
	}
	if spec.ChatTemplateFile != "" {
		args = append(args, "--chat-template-file", spec.ChatTemplateFile)
	}
	if spec.Debug {
		args = append(args, "--debug")
	}

	return args
}

// Launch spawns the child for spec, returning a live handle or an error.
// The caller (Coordinator) holds no lock during this call — see spec §5.
func (l *Launcher) Launch(ctx context.Context, spec *config.ModelSpec, ring *logger.LogBuffer) (*handle, error) {
	logFile := filepath.Join(l.logPath, spec.Name+".supervisor.log")
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open supervisor log: %w", err)
	}

	stdoutWriter, err := logger.NewProcessWriter(l.log, spec.Name, "stdout", spec.Logging, ring)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("build stdout writer: %w", err)
	}
	stderrWriter, err := logger.NewProcessWriter(l.log, spec.Name, "stderr", spec.Logging, ring)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("build stderr writer: %w", err)
	}

	// Bin name is the daemon-wide inference server executable; kept
	// configurable via PATH resolution like the rest of the child argv.
	cmd := exec.CommandContext(ctx, "mlx-openai-server", buildArgs(spec)...)
	// Raw bytes always go to the append-mode supervisor log file (spec §6.2
	// bit-exact compatibility); they are also tee'd through the ProcessWriter
	// pipeline for redaction, structured emission and the in-memory ring
	// buffer backing GET /hub/models/{name}/logs.
	cmd.Stdout = io.MultiWriter(f, stdoutWriter)
	cmd.Stderr = io.MultiWriter(f, stderrWriter)
	cmd.Env = append(os.Environ(), "PYTHONUNBUFFERED=1")
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		f.Close()
		return nil, err
	}

	h := &handle{
		cmd:          cmd,
		doneCh:       make(chan struct{}),
		stdoutWriter: stdoutWriter,
		stderrWriter: stderrWriter,
	}

	go func() {
		defer f.Close()
		defer close(h.doneCh)
		cmd.Wait()
		stdoutWriter.Flush()
		stderrWriter.Flush()
	}()

	return h, nil
}

// stopChild sends SIGTERM to the whole process group (spec §4.E
// stop_process's graceful path; the hard-kill path is killChild).
func stopChild(pid int) {
	pgid, err := syscall.Getpgid(pid)
	if err != nil {
		return
	}
	syscall.Kill(-pgid, syscall.SIGTERM)
}

func killChild(pid int) {
	pgid, err := syscall.Getpgid(pid)
	if err != nil {
		return
	}
	syscall.Kill(-pgid, syscall.SIGKILL)
}
