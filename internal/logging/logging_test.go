package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tc := range cases {
		if got := ParseLevel(tc.in); got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNewLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "info")

	WithComponent(logger, "scanner").Info("slate found", "frame", 20)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["msg"] != "slate found" || entry["component"] != "scanner" {
		t.Errorf("log entry = %v", entry)
	}
	if entry["frame"] != float64(20) {
		t.Errorf("frame attribute = %v, want 20", entry["frame"])
	}
}

func TestNewLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "error")

	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info record emitted at error level: %q", buf.String())
	}
	logger.Error("shown")
	if buf.Len() == 0 {
		t.Error("error record suppressed at error level")
	}
}

func TestSanitizePath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")

	if got := SanitizePath("/home/tester/media/clip.mp4"); got != "~/media/clip.mp4" {
		t.Errorf("SanitizePath = %q, want ~/media/clip.mp4", got)
	}
	if got := SanitizePath("/srv/media/clip.mp4"); got != "/srv/media/clip.mp4" {
		t.Errorf("SanitizePath changed a path outside home: %q", got)
	}
}
