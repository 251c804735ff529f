package app

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/orangehats/orangehats/internal/config"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := NewLogger(config.LoggingConfig{Level: tt.level, Format: "text"}, &bytes.Buffer{})
			if !logger.Enabled(context.Background(), tt.want) {
				t.Errorf("level %s should be enabled", tt.want)
			}
			if tt.want > slog.LevelDebug && logger.Enabled(context.Background(), tt.want-4) {
				t.Errorf("level below %s should be disabled", tt.want)
			}
		})
	}
}

func TestNewLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(config.LoggingConfig{Level: "info", Format: "json"}, &buf).Info("started", "component", "http")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("json format produced %q: %v", buf.String(), err)
	}
	if entry["msg"] != "started" || entry["component"] != "http" {
		t.Errorf("unexpected entry: %v", entry)
	}

	buf.Reset()
	NewLogger(config.LoggingConfig{Level: "info", Format: "text"}, &buf).Info("started")
	if !strings.Contains(buf.String(), "msg=started") {
		t.Errorf("text format produced %q", buf.String())
	}

	buf.Reset()
	NewLogger(config.LoggingConfig{Level: "info", Format: "console"}, &buf).Info("started")
	if !strings.Contains(buf.String(), "started") {
		t.Errorf("console format produced %q", buf.String())
	}
}
