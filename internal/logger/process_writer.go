package logger

import (
	"bufio"
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gophpeek/mlxhub/internal/config"
)

// ProcessWriter captures a managed model's child stdout/stderr and runs it
// through the full supervisor log-capture pipeline: Multiline -> Redaction
// -> JSON -> Level -> Filters, emitting structured slog records and, if a
// ring buffer is attached, appending each processed entry so it can be
// served back via GET /hub/models/{name}/logs.
type ProcessWriter struct {
	Logger *slog.Logger
	Model  string
	Stream string // stdout or stderr

	redactor      *Redactor
	multiline     *MultilineBuffer
	jsonParser    *JSONParser
	levelDetector *LevelDetector
	filters       *LogFilters

	ring *LogBuffer

	buffer bytes.Buffer
}

// NewProcessWriter creates a ProcessWriter for one model's stdout or stderr
// stream. ring may be nil to disable the in-memory tail buffer.
func NewProcessWriter(logger *slog.Logger, model, stream string, cfg *config.LoggingConfig, ring *LogBuffer) (*ProcessWriter, error) {
	pw := &ProcessWriter{
		Logger: logger,
		Model:  model,
		Stream: stream,
		ring:   ring,
	}

	if cfg == nil {
		return pw, nil
	}

	var err error
	pw.redactor, err = NewRedactor(cfg.Redaction)
	if err != nil {
		return nil, fmt.Errorf("failed to create redactor: %w", err)
	}

	pw.multiline, err = NewMultilineBuffer(cfg.Multiline)
	if err != nil {
		return nil, fmt.Errorf("failed to create multiline buffer: %w", err)
	}

	pw.jsonParser = NewJSONParser(cfg.JSON)

	pw.levelDetector, err = NewLevelDetector(cfg.LevelDetection)
	if err != nil {
		return nil, fmt.Errorf("failed to create level detector: %w", err)
	}

	pw.filters, err = NewLogFilters(cfg.Filters, cfg.MinLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create log filters: %w", err)
	}

	return pw, nil
}

// Write implements io.Writer, processing complete lines through the pipeline.
func (pw *ProcessWriter) Write(p []byte) (n int, err error) {
	pw.buffer.Write(p)

	scanner := bufio.NewScanner(&pw.buffer)
	var remaining bytes.Buffer

	for scanner.Scan() {
		pw.processLine(scanner.Text())
	}

	if pw.multiline != nil && pw.multiline.ShouldFlush() {
		if entry := pw.multiline.Flush(); entry != "" {
			pw.processEntry(entry)
		}
	}

	if pw.buffer.Len() > 0 {
		remaining.Write(pw.buffer.Bytes())
	}
	pw.buffer = remaining

	return len(p), nil
}

func (pw *ProcessWriter) processLine(line string) {
	if pw.multiline != nil && pw.multiline.IsEnabled() {
		complete, entry := pw.multiline.Add(line)
		if !complete {
			return
		}
		if entry != "" {
			pw.processEntry(entry)
		}
		return
	}

	pw.processEntry(line)
}

// processEntry applies Redaction -> JSON -> Level -> Filters -> emit.
func (pw *ProcessWriter) processEntry(entry string) {
	if pw.redactor != nil && pw.redactor.IsEnabled() {
		entry = pw.redactor.Redact(entry)
	}

	var message string
	var level slog.Level
	var attrs []slog.Attr

	if pw.jsonParser != nil && pw.jsonParser.IsEnabled() {
		isJSON, data := pw.jsonParser.Parse(entry)
		if isJSON {
			message, level, attrs = pw.jsonParser.ToLogAttrs(data)
			if message == "" {
				message = entry
			}
		} else {
			message = entry
			level = slog.LevelInfo
		}
	} else {
		message = entry
		level = slog.LevelInfo
	}

	if pw.levelDetector != nil && pw.levelDetector.IsEnabled() && level == slog.LevelInfo {
		level = pw.levelDetector.Detect(entry)
	}

	if pw.filters != nil && !pw.filters.ShouldLog(entry, level) {
		return
	}

	baseAttrs := []any{"model", pw.Model, "stream", pw.Stream}
	for _, attr := range attrs {
		baseAttrs = append(baseAttrs, attr.Key, attr.Value)
	}

	switch level {
	case slog.LevelDebug:
		pw.Logger.Debug(message, baseAttrs...)
	case slog.LevelWarn:
		pw.Logger.Warn(message, baseAttrs...)
	case slog.LevelError:
		pw.Logger.Error(message, baseAttrs...)
	default:
		pw.Logger.Info(message, baseAttrs...)
	}

	if pw.ring != nil {
		pw.ring.Add(LogEntry{
			Timestamp:   time.Now(),
			ProcessName: pw.Model,
			Stream:      pw.Stream,
			Message:     message,
			Level:       strings.ToLower(level.String()),
		})
	}
}

// GetLogs returns every entry currently held in the ring buffer, oldest
// first. Returns an empty (non-nil) slice if no ring buffer is attached.
func (pw *ProcessWriter) GetLogs() []LogEntry {
	if pw.ring == nil {
		return []LogEntry{}
	}
	return pw.ring.GetAll()
}

// GetRecentLogs returns the last n entries from the ring buffer.
func (pw *ProcessWriter) GetRecentLogs(n int) []LogEntry {
	if pw.ring == nil {
		return []LogEntry{}
	}
	return pw.ring.GetRecent(n)
}

// AddEvent records a lifecycle event (e.g. "started", "stopped") directly
// into the ring buffer, bypassing the log-capture pipeline.
func (pw *ProcessWriter) AddEvent(message string) {
	if pw.ring == nil {
		return
	}
	pw.ring.Add(LogEntry{
		Timestamp:   time.Now(),
		ProcessName: pw.Model,
		Stream:      "event",
		Message:     message,
		Level:       "event",
	})
}

// Flush flushes any remaining buffered output. Must be called when the
// child exits to avoid losing a final partial line.
func (pw *ProcessWriter) Flush() {
	if pw.buffer.Len() > 0 {
		line := pw.buffer.String()
		pw.buffer.Reset()
		if line != "" {
			pw.processLine(line)
		}
	}

	if pw.multiline != nil && pw.multiline.BufferSize() > 0 {
		if entry := pw.multiline.Flush(); entry != "" {
			pw.processEntry(entry)
		}
	}
}
