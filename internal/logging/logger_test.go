package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"socialprobe/internal/logging/adapters"
)

func newBufferedLogger(t *testing.T, format string) (*MultiLogger, *bytes.Buffer) {
	t.Helper()

	buf := &bytes.Buffer{}
	logger := NewMultiLogger()
	if err := logger.AddAdapter(adapters.NewStdoutAdapter("test", adapters.StdoutConfig{Format: format, Output: buf})); err != nil {
		t.Fatalf("AddAdapter() error = %v", err)
	}
	return logger, buf
}

func TestLevelFiltering(t *testing.T) {
	logger, buf := newBufferedLogger(t, "json")
	logger.SetLevel(WarnLevel)

	logger.Info("dropped", nil)
	logger.Warn("kept", map[string]interface{}{"provider": "apify-profile"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("invalid json line: %v", err)
	}
	if entry["message"] != "kept" || entry["level"] != "warn" || entry["provider"] != "apify-profile" {
		t.Errorf("entry = %v", entry)
	}
}

func TestDerivedLoggersShareSink(t *testing.T) {
	logger, buf := newBufferedLogger(t, "text")

	child := logger.WithField("component", "pipeline").WithError(errors.New("boom"))
	child.Info("attempt failed", map[string]interface{}{"attempt": 2})

	out := buf.String()
	for _, want := range []string{"[INFO] attempt failed", "attempt=2", "component=pipeline", "error=boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}

	// fields on the child do not leak to the parent
	buf.Reset()
	logger.Info("parent", nil)
	if strings.Contains(buf.String(), "component=") {
		t.Errorf("parent logger inherited child fields: %q", buf.String())
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   DebugLevel,
		"INFO":    InfoLevel,
		"warning": WarnLevel,
		"error":   ErrorLevel,
		"bogus":   InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
