package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// isolateEnv points HOME at a temp dir and clears every SLATESCAN_* override
// so tests never read a developer's real config.
func isolateEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{
		EnvConfigPath, EnvDataDir, EnvOutputDir, EnvLogLevel,
		EnvWorkers, EnvFFmpegBin, EnvFFprobeBin,
	} {
		t.Setenv(key, "")
	}
	return home
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	home := isolateEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load error = %v", err)
	}
	if cfg.OutputDir != DefaultOutputDir {
		t.Errorf("output dir = %q, want %q", cfg.OutputDir, DefaultOutputDir)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("log level = %q, want info", cfg.LogLevel)
	}
	if cfg.DataDir != filepath.Join(home, DefaultDataDir) {
		t.Errorf("data dir = %q, want under %q", cfg.DataDir, home)
	}
	if cfg.Scan.FramesToCheck != 60 || cfg.Scan.TargetFrame != 20 || cfg.Scan.Threshold != 0.8 {
		t.Errorf("scan defaults = %+v", cfg.Scan)
	}
	if cfg.Classifier.BlackRatioMin != 0.5 || cfg.Classifier.EdgeThreshold != 128 {
		t.Errorf("classifier defaults = %+v", cfg.Classifier)
	}
	if !cfg.History.Enabled {
		t.Error("history should be enabled by default")
	}
	if cfg.Serve.Port != 8791 {
		t.Errorf("serve port = %d, want 8791", cfg.Serve.Port)
	}
}

func TestLoad_TOMLFile(t *testing.T) {
	isolateEnv(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
output_dir = "/srv/slates"
log_level = "debug"

[scan]
frames_to_check = 120
threshold = 0.75
once_per_folder = true

[classifier]
black_ratio_min = 0.7
white_ratio_min = 0.01
white_ratio_max = 0.3
edge_threshold = 128
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error = %v", err)
	}
	if cfg.OutputDir != "/srv/slates" || cfg.LogLevel != "debug" {
		t.Errorf("top-level settings not applied: %+v", cfg)
	}
	if cfg.Scan.FramesToCheck != 120 || cfg.Scan.Threshold != 0.75 || !cfg.Scan.OncePerFolder {
		t.Errorf("scan settings not applied: %+v", cfg.Scan)
	}
	if cfg.Classifier.BlackRatioMin != 0.7 {
		t.Errorf("classifier settings not applied: %+v", cfg.Classifier)
	}
	// Unset keys keep their defaults.
	if cfg.Scan.TargetFrame != 20 {
		t.Errorf("target frame = %d, want default 20", cfg.Scan.TargetFrame)
	}
}

func TestLoad_ExplicitMissingFileIsError(t *testing.T) {
	isolateEnv(t)

	missing := filepath.Join(t.TempDir(), "nope.toml")
	if _, err := Load(missing); err == nil {
		t.Fatal("expected error for explicitly named missing config")
	}
}

func TestLoad_MalformedTOML(t *testing.T) {
	isolateEnv(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("output_dir = [broken"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error for malformed TOML")
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	isolateEnv(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`output_dir = "/from/file"`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv(EnvOutputDir, "/from/env")
	t.Setenv(EnvWorkers, "4")
	t.Setenv(EnvFFmpegBin, "/opt/ffmpeg/bin/ffmpeg")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error = %v", err)
	}
	if cfg.OutputDir != "/from/env" {
		t.Errorf("output dir = %q, want env override", cfg.OutputDir)
	}
	if cfg.Scan.Workers != 4 {
		t.Errorf("workers = %d, want 4", cfg.Scan.Workers)
	}
	if cfg.FFmpegBin != "/opt/ffmpeg/bin/ffmpeg" {
		t.Errorf("ffmpeg bin = %q", cfg.FFmpegBin)
	}
}

func TestLoad_ConfigPathFromEnv(t *testing.T) {
	isolateEnv(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`log_level = "warn"`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(EnvConfigPath, path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load error = %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("log level = %q, want warn from env-selected file", cfg.LogLevel)
	}
}

func TestValidate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"threshold above one", func(c *Config) { c.Scan.Threshold = 1.5 }, "scan.threshold"},
		{"zero frames to check", func(c *Config) { c.Scan.FramesToCheck = 0 }, "scan.frames_to_check"},
		{"negative target frame", func(c *Config) { c.Scan.TargetFrame = -1 }, "scan.target_frame"},
		{"negative workers", func(c *Config) { c.Scan.Workers = -2 }, "scan.workers"},
		{"inverted white band", func(c *Config) {
			c.Classifier.WhiteRatioMin = 0.5
			c.Classifier.WhiteRatioMax = 0.4
		}, "white ratio band"},
		{"port out of range", func(c *Config) { c.Serve.Port = 0 }, "serve.port"},
	}
	for _, tc := range cases {
		cfg := Default()
		tc.mutate(&cfg)
		err := cfg.Validate()
		if err == nil {
			t.Errorf("%s: expected validation error", tc.name)
			continue
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: error %q does not mention %q", tc.name, err, tc.want)
		}
	}
}

func TestValidate_DefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config failed validation: %v", err)
	}
}

func TestSampleConfigLoads(t *testing.T) {
	isolateEnv(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample error = %v", err)
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("embedded sample config does not load: %v", err)
	}
}

func TestDBPath(t *testing.T) {
	cfg := Config{DataDir: "/var/lib/slatescan"}
	want := filepath.Join("/var/lib/slatescan", DBFilename)
	if got := cfg.DBPath(); got != want {
		t.Errorf("DBPath = %q, want %q", got, want)
	}
}
