// Package config provides configuration management for slatescan. Settings
// come from built-in defaults, an optional TOML file, and SLATESCAN_*
// environment variable overrides, in that order; command-line flags override
// all three at the CLI layer.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

const (
	EnvConfigPath = "SLATESCAN_CONFIG"
	EnvDataDir    = "SLATESCAN_DATA_DIR"
	EnvOutputDir  = "SLATESCAN_OUTPUT_DIR"
	EnvLogLevel   = "SLATESCAN_LOG_LEVEL"
	EnvWorkers    = "SLATESCAN_WORKERS"
	EnvFFmpegBin  = "SLATESCAN_FFMPEG"
	EnvFFprobeBin = "SLATESCAN_FFPROBE"

	DefaultOutputDir = "./slate_output"
	DefaultDataDir   = ".slatescan"
	DBFilename       = "slatescan.db"
)

// Config is the full application configuration.
type Config struct {
	OutputDir string `toml:"output_dir"`
	LogLevel  string `toml:"log_level"`
	DataDir   string `toml:"data_dir"`

	FFmpegBin  string `toml:"ffmpeg_bin"`
	FFprobeBin string `toml:"ffprobe_bin"`

	Scan       ScanConfig       `toml:"scan"`
	Classifier ClassifierConfig `toml:"classifier"`
	History    HistoryConfig    `toml:"history"`
	Serve      ServeConfig      `toml:"serve"`
}

// ScanConfig bounds the per-video search and the fan-out.
type ScanConfig struct {
	FramesToCheck int     `toml:"frames_to_check"`
	TargetFrame   int     `toml:"target_frame"`
	Threshold     float64 `toml:"threshold"`
	Workers       int     `toml:"workers"` // 0 = number of CPUs
	OncePerFolder bool    `toml:"once_per_folder"`
	VideoTimeout  int     `toml:"video_timeout"` // seconds, 0 disables
}

// ClassifierConfig exposes the slate gate parameters as tunables. Defaults
// are the lenient historical variant.
type ClassifierConfig struct {
	BlackRatioMin float64 `toml:"black_ratio_min"`
	WhiteRatioMin float64 `toml:"white_ratio_min"`
	WhiteRatioMax float64 `toml:"white_ratio_max"`
	EdgeThreshold int     `toml:"edge_threshold"`
}

// HistoryConfig controls the SQLite run history.
type HistoryConfig struct {
	Enabled bool `toml:"enabled"`
}

// ServeConfig configures the local review server.
type ServeConfig struct {
	Port int `toml:"port"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		OutputDir: DefaultOutputDir,
		LogLevel:  "info",
		DataDir:   defaultDataDir(),
		Scan: ScanConfig{
			FramesToCheck: 60,
			TargetFrame:   20,
			Threshold:     0.8,
			Workers:       0,
			OncePerFolder: false,
			VideoTimeout:  0,
		},
		Classifier: ClassifierConfig{
			BlackRatioMin: 0.5,
			WhiteRatioMin: 0.005,
			WhiteRatioMax: 0.4,
			EdgeThreshold: 128,
		},
		History: HistoryConfig{Enabled: true},
		Serve:   ServeConfig{Port: 8791},
	}
}

// Load builds the effective configuration. path selects the TOML file; when
// empty, SLATESCAN_CONFIG and then the default location are tried, and a
// missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if path == "" {
		path = os.Getenv(EnvConfigPath)
		explicit = path != ""
	}
	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		// No config file is fine; defaults apply.
	default:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvDataDir); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv(EnvOutputDir); v != "" {
		cfg.OutputDir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(EnvWorkers); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Scan.Workers = n
		}
	}
	if v := os.Getenv(EnvFFmpegBin); v != "" {
		cfg.FFmpegBin = v
	}
	if v := os.Getenv(EnvFFprobeBin); v != "" {
		cfg.FFprobeBin = v
	}
}

// Validate rejects configurations the scanner cannot honor.
func (c *Config) Validate() error {
	if c.Scan.Threshold < 0 || c.Scan.Threshold > 1 {
		return fmt.Errorf("scan.threshold must be in [0,1], got %v", c.Scan.Threshold)
	}
	if c.Scan.FramesToCheck < 1 {
		return fmt.Errorf("scan.frames_to_check must be at least 1, got %d", c.Scan.FramesToCheck)
	}
	if c.Scan.TargetFrame < 0 {
		return fmt.Errorf("scan.target_frame must not be negative, got %d", c.Scan.TargetFrame)
	}
	if c.Scan.Workers < 0 {
		return fmt.Errorf("scan.workers must not be negative, got %d", c.Scan.Workers)
	}
	if c.Classifier.BlackRatioMin < 0 || c.Classifier.BlackRatioMin > 1 {
		return fmt.Errorf("classifier.black_ratio_min must be in [0,1], got %v", c.Classifier.BlackRatioMin)
	}
	if c.Classifier.WhiteRatioMin < 0 || c.Classifier.WhiteRatioMax > 1 ||
		c.Classifier.WhiteRatioMin >= c.Classifier.WhiteRatioMax {
		return fmt.Errorf("classifier white ratio band [%v, %v] is invalid",
			c.Classifier.WhiteRatioMin, c.Classifier.WhiteRatioMax)
	}
	if c.Serve.Port < 1 || c.Serve.Port > 65535 {
		return fmt.Errorf("serve.port must be between 1 and 65535, got %d", c.Serve.Port)
	}
	return nil
}

// DBPath returns the full path to the SQLite history database.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, DBFilename)
}

// DefaultConfigPath returns the default config file location inside the data
// directory.
func DefaultConfigPath() string {
	return filepath.Join(defaultDataDir(), "config.toml")
}

// CreateSample writes the embedded sample configuration to path.
func CreateSample(path string) error {
	return os.WriteFile(path, []byte(sampleConfig), 0644)
}

// Sample returns the embedded sample configuration text.
func Sample() string {
	return sampleConfig
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}
