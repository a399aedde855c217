package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  slog.Level
	}{
		{"info", "info", slog.LevelInfo},
		{"debug", "debug", slog.LevelDebug},
		{"trace", "trace", LevelTrace},
		{"uppercase INFO", "INFO", slog.LevelInfo},
		{"uppercase DEBUG", "DEBUG", slog.LevelDebug},
		{"uppercase TRACE", "TRACE", LevelTrace},
		{"mixed case Debug", "Debug", slog.LevelDebug},
		{"unknown defaults to info", "unknown", slog.LevelInfo},
		{"empty defaults to info", "", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseLevel(tt.input)
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		name       string
		level      string
		logAtDebug bool
		logAtInfo  bool
	}{
		{"info filters debug", "info", false, true},
		{"debug passes debug", "debug", true, true},
		{"trace passes debug", "trace", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(tt.level, &buf)

			logger.Debug("debug message")
			hasDebug := strings.Contains(buf.String(), "debug message")
			if hasDebug != tt.logAtDebug {
				t.Errorf("debug message visible = %v, want %v (buf: %q)", hasDebug, tt.logAtDebug, buf.String())
			}

			buf.Reset()
			logger.Info("info message")
			hasInfo := strings.Contains(buf.String(), "info message")
			if hasInfo != tt.logAtInfo {
				t.Errorf("info message visible = %v, want %v (buf: %q)", hasInfo, tt.logAtInfo, buf.String())
			}
		})
	}
}

func TestLevelTrace(t *testing.T) {
	// Trace should be below debug (more verbose)
	if LevelTrace >= slog.LevelDebug {
		t.Errorf("LevelTrace (%d) should be less than LevelDebug (%d)", LevelTrace, slog.LevelDebug)
	}
}

func TestNewAuditLogger_WritesEvents(t *testing.T) {
	dir := t.TempDir()
	al := NewAuditLogger(dir)
	defer al.Close()

	al.Log(map[string]any{"event": "round_complete", "expanded": 3})

	path := filepath.Join(dir, "audit.jsonl")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read audit.jsonl: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("failed to parse JSONL entry: %v", err)
	}

	if entry["event"] != "round_complete" {
		t.Errorf("event = %v, want round_complete", entry["event"])
	}
	if entry["expanded"] != float64(3) {
		t.Errorf("expanded = %v, want 3", entry["expanded"])
	}
	if _, ok := entry["time"]; !ok {
		t.Error("expected 'time' field in audit entry")
	}
}

func TestNewAuditLogger_MultipleWrites(t *testing.T) {
	dir := t.TempDir()
	al := NewAuditLogger(dir)
	defer al.Close()

	al.Log(map[string]any{"event": "first"})
	al.Log(map[string]any{"event": "second"})

	path := filepath.Join(dir, "audit.jsonl")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read audit.jsonl: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), string(data))
	}

	var first, second map[string]any
	json.Unmarshal([]byte(lines[0]), &first)
	json.Unmarshal([]byte(lines[1]), &second)

	if first["event"] != "first" {
		t.Errorf("first event = %v, want 'first'", first["event"])
	}
	if second["event"] != "second" {
		t.Errorf("second event = %v, want 'second'", second["event"])
	}
}

func TestAuditLogger_NilSafety(t *testing.T) {
	// nil AuditLogger should not panic
	var al *AuditLogger
	al.Log(map[string]any{"event": "should_not_panic"})
	al.Close()
}

func TestAuditLogger_DoesNotMutateCallerMap(t *testing.T) {
	dir := t.TempDir()
	al := NewAuditLogger(dir)
	defer al.Close()

	event := map[string]any{"event": "test"}
	al.Log(event)

	if _, hasTime := event["time"]; hasTime {
		t.Error("Log() should not mutate caller's map, but 'time' was injected")
	}
}

func TestAuditLogger_LogAfterClose(t *testing.T) {
	dir := t.TempDir()
	al := NewAuditLogger(dir)

	al.Log(map[string]any{"event": "before_close"})
	al.Close()

	// Should be a no-op, not panic or error
	al.Log(map[string]any{"event": "after_close"})
}

func TestNewAuditLogger_CreatesDir(t *testing.T) {
	base := t.TempDir()
	nestedDir := filepath.Join(base, "sub", "dir")

	al := NewAuditLogger(nestedDir)
	if al == nil {
		t.Fatal("expected non-nil AuditLogger when dir needs creation")
	}
	defer al.Close()

	al.Log(map[string]any{"event": "dir_create_test"})

	path := filepath.Join(nestedDir, "audit.jsonl")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("audit.jsonl should exist after dir creation: %v", err)
	}
}
