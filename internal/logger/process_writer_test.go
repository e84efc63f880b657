package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/gophpeek/mlxhub/internal/config"
)

func TestNewProcessWriter_NilConfig(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ring := NewLogBuffer(100)

	pw, err := NewProcessWriter(logger, "qwen-7b", "stdout", nil, ring)
	if err != nil {
		t.Fatalf("NewProcessWriter() error = %v", err)
	}

	if pw.Model != "qwen-7b" {
		t.Errorf("Model = %s, want qwen-7b", pw.Model)
	}
	if pw.Stream != "stdout" {
		t.Errorf("Stream = %s, want stdout", pw.Stream)
	}
}

func TestNewProcessWriter_NilRing(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	pw, err := NewProcessWriter(logger, "qwen-7b", "stdout", nil, nil)
	if err != nil {
		t.Fatalf("NewProcessWriter() error = %v", err)
	}

	// Must not panic when no ring buffer is attached.
	pw.Write([]byte("hello\n"))
	pw.AddEvent("started")

	if logs := pw.GetLogs(); logs == nil || len(logs) != 0 {
		t.Errorf("expected empty non-nil slice with no ring, got %v", logs)
	}
}

func TestNewProcessWriter_WithConfig(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	cfg := &config.LoggingConfig{
		Redaction: &config.RedactionConfig{
			Enabled: true,
			Patterns: []config.RedactionPattern{
				{
					Name:        "email",
					Pattern:     `\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`,
					Replacement: "***@***",
				},
			},
		},
		Multiline: &config.MultilineConfig{
			Enabled:  true,
			Pattern:  `^\[`,
			MaxLines: 100,
			Timeout:  1,
		},
		JSON: &config.JSONConfig{
			Enabled: true,
		},
		LevelDetection: &config.LevelDetectionConfig{
			Enabled:      true,
			DefaultLevel: "info",
			Patterns: map[string]string{
				"error": `(?i)(error|exception|fatal)`,
			},
		},
		Filters: &config.FilterConfig{
			Include: []string{"test"},
		},
		MinLevel: "info",
	}

	pw, err := NewProcessWriter(logger, "qwen-7b", "stdout", cfg, nil)
	if err != nil {
		t.Fatalf("NewProcessWriter() error = %v", err)
	}

	if pw.redactor == nil {
		t.Error("redactor should be initialized")
	}
	if pw.multiline == nil {
		t.Error("multiline should be initialized")
	}
	if pw.jsonParser == nil {
		t.Error("jsonParser should be initialized")
	}
	if pw.levelDetector == nil {
		t.Error("levelDetector should be initialized")
	}
	if pw.filters == nil {
		t.Error("filters should be initialized")
	}
}

func TestNewProcessWriter_InvalidRedactor(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	cfg := &config.LoggingConfig{
		Redaction: &config.RedactionConfig{
			Enabled: true,
			Patterns: []config.RedactionPattern{
				{
					Name:    "invalid",
					Pattern: "[invalid(regex",
				},
			},
		},
	}

	_, err := NewProcessWriter(logger, "test", "stdout", cfg, nil)
	if err == nil {
		t.Fatal("expected error for invalid redactor pattern")
	}
	if !strings.Contains(err.Error(), "failed to create redactor") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestProcessWriter_Write_SimpleLine(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ring := NewLogBuffer(100)

	pw, err := NewProcessWriter(logger, "qwen-7b", "stdout", nil, ring)
	if err != nil {
		t.Fatalf("NewProcessWriter() error = %v", err)
	}

	input := "Test log message\n"
	n, err := pw.Write([]byte(input))
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if n != len(input) {
		t.Errorf("Write() wrote %d bytes, want %d", n, len(input))
	}

	logs := pw.GetLogs()
	if len(logs) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(logs))
	}
	if logs[0].Message != "Test log message" {
		t.Errorf("log message = %q, want %q", logs[0].Message, "Test log message")
	}
	if logs[0].ProcessName != "qwen-7b" {
		t.Errorf("ProcessName = %q, want qwen-7b", logs[0].ProcessName)
	}
}

func TestProcessWriter_Write_MultipleLines(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ring := NewLogBuffer(100)

	pw, err := NewProcessWriter(logger, "qwen-7b", "stdout", nil, ring)
	if err != nil {
		t.Fatalf("NewProcessWriter() error = %v", err)
	}

	input := "Line 1\nLine 2\nLine 3\n"
	pw.Write([]byte(input))

	logs := pw.GetLogs()
	if len(logs) != 3 {
		t.Fatalf("expected 3 log entries, got %d", len(logs))
	}
}

func TestProcessWriter_Write_PartialLine(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ring := NewLogBuffer(100)

	pw, err := NewProcessWriter(logger, "qwen-7b", "stdout", nil, ring)
	if err != nil {
		t.Fatalf("NewProcessWriter() error = %v", err)
	}

	// bufio.Scanner treats data without a trailing newline as a complete
	// line once the scanner hits EOF, so "Partial" is processed immediately.
	pw.Write([]byte("Partial"))

	logs := pw.GetLogs()
	if len(logs) != 1 {
		t.Fatalf("expected 1 log, got %d", len(logs))
	}
	if logs[0].Message != "Partial" {
		t.Errorf("log message = %q, want %q", logs[0].Message, "Partial")
	}
}

func TestProcessWriter_Flush(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ring := NewLogBuffer(100)

	pw, err := NewProcessWriter(logger, "qwen-7b", "stdout", nil, ring)
	if err != nil {
		t.Fatalf("NewProcessWriter() error = %v", err)
	}

	pw.Write([]byte("Incomplete"))

	logs := pw.GetLogs()
	if len(logs) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(logs))
	}

	beforeFlush := len(pw.GetLogs())
	pw.Flush()
	afterFlush := len(pw.GetLogs())

	if afterFlush != beforeFlush {
		t.Errorf("Flush with empty buffer should not add logs, had %d, now %d", beforeFlush, afterFlush)
	}
}

func TestProcessWriter_WithRedaction(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ring := NewLogBuffer(100)

	cfg := &config.LoggingConfig{
		Redaction: &config.RedactionConfig{
			Enabled: true,
			Patterns: []config.RedactionPattern{
				{
					Name:        "email",
					Pattern:     `\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`,
					Replacement: "***@***",
				},
			},
		},
	}

	pw, err := NewProcessWriter(logger, "qwen-7b", "stdout", cfg, ring)
	if err != nil {
		t.Fatalf("NewProcessWriter() error = %v", err)
	}

	pw.Write([]byte("User: user@example.com\n"))

	logs := pw.GetLogs()
	if len(logs) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(logs))
	}
	if !strings.Contains(logs[0].Message, "***@***") {
		t.Errorf("expected redacted email, got: %s", logs[0].Message)
	}
	if strings.Contains(logs[0].Message, "user@example.com") {
		t.Error("email should be redacted")
	}
}

func TestProcessWriter_WithJSONParsing(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ring := NewLogBuffer(100)

	cfg := &config.LoggingConfig{
		JSON: &config.JSONConfig{
			Enabled:        true,
			ExtractLevel:   true,
			ExtractMessage: true,
			MergeFields:    true,
		},
	}

	pw, err := NewProcessWriter(logger, "qwen-7b", "stdout", cfg, ring)
	if err != nil {
		t.Fatalf("NewProcessWriter() error = %v", err)
	}

	jsonLog := `{"level":"error","message":"Database error","user_id":123}`
	pw.Write([]byte(jsonLog + "\n"))

	logs := pw.GetLogs()
	if len(logs) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(logs))
	}

	if !strings.Contains(logs[0].Message, "Database error") && !strings.Contains(logs[0].Message, jsonLog) {
		t.Errorf("log message should contain 'Database error' or full JSON, got: %q", logs[0].Message)
	}
}

func TestProcessWriter_WithLevelDetection(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ring := NewLogBuffer(100)

	cfg := &config.LoggingConfig{
		LevelDetection: &config.LevelDetectionConfig{
			Enabled:      true,
			DefaultLevel: "info",
			Patterns: map[string]string{
				"error": `(?i)error`,
				"warn":  `(?i)warning`,
			},
		},
	}

	pw, err := NewProcessWriter(logger, "qwen-7b", "stdout", cfg, ring)
	if err != nil {
		t.Fatalf("NewProcessWriter() error = %v", err)
	}

	tests := []struct {
		input         string
		expectedLevel string
	}{
		{"ERROR: Something went wrong", "error"},
		{"WARNING: Check this", "warn"},
		{"INFO: Normal operation", "info"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			ring.Clear()

			pw.Write([]byte(tt.input + "\n"))

			logs := pw.GetLogs()
			if len(logs) != 1 {
				t.Fatalf("expected 1 log entry, got %d", len(logs))
			}
			if logs[0].Level != tt.expectedLevel {
				t.Errorf("log level = %q, want %q", logs[0].Level, tt.expectedLevel)
			}
		})
	}
}

func TestProcessWriter_WithFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ring := NewLogBuffer(100)

	cfg := &config.LoggingConfig{
		Filters: &config.FilterConfig{
			Exclude: []string{"debug"},
		},
		MinLevel: "info",
	}

	pw, err := NewProcessWriter(logger, "qwen-7b", "stdout", cfg, ring)
	if err != nil {
		t.Fatalf("NewProcessWriter() error = %v", err)
	}

	pw.Write([]byte("debug message\n"))

	logs := pw.GetLogs()
	if len(logs) != 0 {
		t.Errorf("expected filtered log to be dropped, got %d logs", len(logs))
	}

	pw.Write([]byte("info message\n"))

	logs = pw.GetLogs()
	if len(logs) != 1 {
		t.Errorf("expected 1 log entry, got %d", len(logs))
	}
}

func TestProcessWriter_WithMultiline(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ring := NewLogBuffer(100)

	cfg := &config.LoggingConfig{
		Multiline: &config.MultilineConfig{
			Enabled:  true,
			Pattern:  `^\[ERROR\]`,
			MaxLines: 10,
			Timeout:  1,
		},
	}

	pw, err := NewProcessWriter(logger, "qwen-7b", "stdout", cfg, ring)
	if err != nil {
		t.Fatalf("NewProcessWriter() error = %v", err)
	}

	pw.Write([]byte("[ERROR] Exception\n"))
	pw.Write([]byte("  at line 1\n"))
	pw.Write([]byte("  at line 2\n"))

	logs := pw.GetLogs()
	if len(logs) != 0 {
		t.Errorf("expected multiline to be buffered, got %d logs", len(logs))
	}

	pw.Write([]byte("[ERROR] Another error\n"))

	logs = pw.GetLogs()
	if len(logs) != 1 {
		t.Fatalf("expected 1 log entry (flushed), got %d", len(logs))
	}

	expected := "[ERROR] Exception\n  at line 1\n  at line 2"
	if logs[0].Message != expected {
		t.Errorf("multiline message = %q, want %q", logs[0].Message, expected)
	}
}

func TestProcessWriter_GetLogs_NilRing(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	pw := &ProcessWriter{Logger: logger, Model: "test", Stream: "stdout"}

	logs := pw.GetLogs()
	if logs == nil {
		t.Error("GetLogs() should return empty slice, not nil")
	}
	if len(logs) != 0 {
		t.Errorf("expected empty slice, got %d logs", len(logs))
	}
}

func TestProcessWriter_GetRecentLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ring := NewLogBuffer(100)

	pw, err := NewProcessWriter(logger, "qwen-7b", "stdout", nil, ring)
	if err != nil {
		t.Fatalf("NewProcessWriter() error = %v", err)
	}

	for i := 1; i <= 10; i++ {
		pw.Write([]byte("Log line " + string(rune('0'+i)) + "\n"))
	}

	recent := pw.GetRecentLogs(3)
	if len(recent) != 3 {
		t.Fatalf("expected 3 recent logs, got %d", len(recent))
	}

	expected := []string{"Log line 8", "Log line 9", "Log line :"}
	for i, log := range recent {
		if log.Message != expected[i] {
			t.Errorf("recent[%d] = %q, want %q", i, log.Message, expected[i])
		}
	}
}

func TestProcessWriter_GetRecentLogs_NilRing(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	pw := &ProcessWriter{Logger: logger, Model: "test", Stream: "stdout"}

	logs := pw.GetRecentLogs(5)
	if logs == nil {
		t.Error("GetRecentLogs() should return empty slice, not nil")
	}
	if len(logs) != 0 {
		t.Errorf("expected empty slice, got %d logs", len(logs))
	}
}

func TestProcessWriter_LogEntryMetadata(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ring := NewLogBuffer(100)

	pw, err := NewProcessWriter(logger, "nginx-gateway", "stderr", nil, ring)
	if err != nil {
		t.Fatalf("NewProcessWriter() error = %v", err)
	}

	before := time.Now()
	pw.Write([]byte("Test message\n"))
	after := time.Now()

	logs := pw.GetLogs()
	if len(logs) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(logs))
	}

	log := logs[0]
	if log.ProcessName != "nginx-gateway" {
		t.Errorf("ProcessName = %s, want nginx-gateway", log.ProcessName)
	}
	if log.Stream != "stderr" {
		t.Errorf("Stream = %s, want stderr", log.Stream)
	}
	if log.Timestamp.Before(before) || log.Timestamp.After(after) {
		t.Errorf("Timestamp %v outside expected range [%v, %v]", log.Timestamp, before, after)
	}
}

func TestProcessWriter_MultilineTimeout(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ring := NewLogBuffer(100)

	cfg := &config.LoggingConfig{
		Multiline: &config.MultilineConfig{
			Enabled:  true,
			Pattern:  `^\[ERROR\]`,
			MaxLines: 100,
			Timeout:  1,
		},
	}

	pw, err := NewProcessWriter(logger, "qwen-7b", "stdout", cfg, ring)
	if err != nil {
		t.Fatalf("NewProcessWriter() error = %v", err)
	}

	pw.Write([]byte("[ERROR] Exception\n"))
	pw.Write([]byte("  stack line 1\n"))

	time.Sleep(1100 * time.Millisecond)

	pw.Write([]byte(""))

	logs := pw.GetLogs()
	if len(logs) == 0 {
		t.Error("expected timeout to flush multiline buffer")
	}
}

func TestProcessWriter_FlushMultilineBuffer(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ring := NewLogBuffer(100)

	cfg := &config.LoggingConfig{
		Multiline: &config.MultilineConfig{
			Enabled:  true,
			Pattern:  `^\[ERROR\]`,
			MaxLines: 100,
			Timeout:  10,
		},
	}

	pw, err := NewProcessWriter(logger, "qwen-7b", "stdout", cfg, ring)
	if err != nil {
		t.Fatalf("NewProcessWriter() error = %v", err)
	}

	pw.Write([]byte("[ERROR] Test\n"))
	pw.Write([]byte("  stack\n"))

	pw.Flush()

	logs := pw.GetLogs()
	if len(logs) != 1 {
		t.Fatalf("expected 1 log after flush, got %d", len(logs))
	}

	expected := "[ERROR] Test\n  stack"
	if logs[0].Message != expected {
		t.Errorf("message = %q, want %q", logs[0].Message, expected)
	}
}

func TestProcessWriter_EmptyFlush(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ring := NewLogBuffer(100)

	pw, err := NewProcessWriter(logger, "qwen-7b", "stdout", nil, ring)
	if err != nil {
		t.Fatalf("NewProcessWriter() error = %v", err)
	}

	pw.Flush()

	logs := pw.GetLogs()
	if len(logs) != 0 {
		t.Errorf("expected 0 logs after empty flush, got %d", len(logs))
	}
}

func TestProcessWriter_AddEvent(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ring := NewLogBuffer(100)

	pw, err := NewProcessWriter(logger, "qwen-7b", "stdout", nil, ring)
	if err != nil {
		t.Fatalf("NewProcessWriter() error = %v", err)
	}

	pw.AddEvent("Process started")

	logs := pw.GetLogs()
	if len(logs) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(logs))
	}

	event := logs[0]
	if event.Message != "Process started" {
		t.Errorf("event message = %q, want %q", event.Message, "Process started")
	}
	if event.Level != "event" {
		t.Errorf("event level = %q, want %q", event.Level, "event")
	}
	if event.Stream != "event" {
		t.Errorf("event stream = %q, want %q", event.Stream, "event")
	}
	if event.ProcessName != "qwen-7b" {
		t.Errorf("event ProcessName = %q, want %q", event.ProcessName, "qwen-7b")
	}
}

func TestProcessWriter_AddEvent_NilRing(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	pw := &ProcessWriter{Logger: logger, Model: "test", Stream: "stdout"}

	// Should not panic.
	pw.AddEvent("Test event")
}

func TestNewProcessWriter_InvalidMultiline(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	cfg := &config.LoggingConfig{
		Multiline: &config.MultilineConfig{
			Enabled: true,
			Pattern: "[invalid(regex",
		},
	}

	_, err := NewProcessWriter(logger, "test", "stdout", cfg, nil)
	if err == nil {
		t.Fatal("expected error for invalid multiline pattern")
	}
	if !strings.Contains(err.Error(), "failed to create multiline buffer") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewProcessWriter_InvalidLevelDetector(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	cfg := &config.LoggingConfig{
		LevelDetection: &config.LevelDetectionConfig{
			Enabled: true,
			Patterns: map[string]string{
				"error": "[invalid(regex",
			},
		},
	}

	_, err := NewProcessWriter(logger, "test", "stdout", cfg, nil)
	if err == nil {
		t.Fatal("expected error for invalid level detector pattern")
	}
	if !strings.Contains(err.Error(), "failed to create level detector") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewProcessWriter_InvalidFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	cfg := &config.LoggingConfig{
		Filters: &config.FilterConfig{
			Include: []string{"[invalid(regex"},
		},
	}

	_, err := NewProcessWriter(logger, "test", "stdout", cfg, nil)
	if err == nil {
		t.Fatal("expected error for invalid filter pattern")
	}
	if !strings.Contains(err.Error(), "failed to create log filters") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestProcessWriter_FlushWithBufferedData(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ring := NewLogBuffer(100)

	pw, err := NewProcessWriter(logger, "qwen-7b", "stdout", nil, ring)
	if err != nil {
		t.Fatalf("NewProcessWriter() error = %v", err)
	}

	pw.buffer.WriteString("buffered content")

	pw.Flush()

	logs := pw.GetLogs()
	if len(logs) == 0 {
		t.Error("expected log entry after flushing buffered content")
	}
}

func TestProcessWriter_Write_JSONWithLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ring := NewLogBuffer(100)

	cfg := &config.LoggingConfig{
		JSON: &config.JSONConfig{
			Enabled:        true,
			ExtractLevel:   true,
			ExtractMessage: true,
		},
	}

	pw, err := NewProcessWriter(logger, "qwen-7b", "stdout", cfg, ring)
	if err != nil {
		t.Fatalf("NewProcessWriter() error = %v", err)
	}

	pw.Write([]byte(`{"level":"warn","message":"Warning message"}` + "\n"))

	logs := pw.GetLogs()
	if len(logs) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(logs))
	}

	if logs[0].Level != "warn" {
		t.Errorf("expected level 'warn', got %q", logs[0].Level)
	}
}

func TestProcessWriter_Write_JSONWithEmptyMessage(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ring := NewLogBuffer(100)

	cfg := &config.LoggingConfig{
		JSON: &config.JSONConfig{
			Enabled:        true,
			ExtractLevel:   true,
			ExtractMessage: true,
		},
	}

	pw, err := NewProcessWriter(logger, "qwen-7b", "stdout", cfg, ring)
	if err != nil {
		t.Fatalf("NewProcessWriter() error = %v", err)
	}

	jsonLog := `{"level":"info","user_id":123}`
	pw.Write([]byte(jsonLog + "\n"))

	logs := pw.GetLogs()
	if len(logs) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(logs))
	}

	if !strings.Contains(logs[0].Message, "user_id") {
		t.Errorf("expected fallback to original JSON, got: %q", logs[0].Message)
	}
}

func TestProcessWriter_Write_DefaultLevelSwitch(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ring := NewLogBuffer(100)

	cfg := &config.LoggingConfig{
		JSON: &config.JSONConfig{
			Enabled:        true,
			ExtractLevel:   true,
			ExtractMessage: true,
		},
	}

	pw, err := NewProcessWriter(logger, "qwen-7b", "stdout", cfg, ring)
	if err != nil {
		t.Fatalf("NewProcessWriter() error = %v", err)
	}

	pw.Write([]byte(`{"level":"trace","message":"Trace message"}` + "\n"))

	logs := pw.GetLogs()
	if len(logs) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(logs))
	}

	if logs[0].Level != "info" {
		t.Errorf("expected 'info' for unknown level, got: %q", logs[0].Level)
	}
}
