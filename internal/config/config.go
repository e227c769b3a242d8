package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	OutputDir  string `toml:"output_dir"`
	LogDir     string `toml:"log_dir"`
}

// Dubbing contains the language pair and silence detection settings.
type Dubbing struct {
	SourceLanguage string `toml:"source_language"`
	TargetLanguage string `toml:"target_language"`
	// SilenceThresholdDB is the noise floor, in dBFS, below which the
	// detector treats audio as silent.
	SilenceThresholdDB float64 `toml:"silence_threshold_db"`
	// SilenceMinDuration is the minimum span, in seconds, the detector
	// reports as silence at all.
	SilenceMinDuration float64 `toml:"silence_min_duration"`
}

// STT contains configuration for the speech-to-text API.
type STT struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Translate contains configuration for the translation API.
type Translate struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// TTS contains configuration for the speech synthesis API.
type TTS struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Voice          string `toml:"voice"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Alignment contains the temporal alignment policy. These mirror the engine
// defaults in internal/timeline and exist so operators can widen or narrow
// the operating window without a rebuild.
type Alignment struct {
	MinGapDuration    float64 `toml:"min_gap_duration"`
	RatioEpsilon      float64 `toml:"ratio_epsilon"`
	TempoMinFactor    float64 `toml:"tempo_min_factor"`
	TempoMaxFactor    float64 `toml:"tempo_max_factor"`
	MaxTotalStretch   float64 `toml:"max_total_stretch"`
	DurationTolerance float64 `toml:"duration_tolerance"`
	SynthesisWorkers  int     `toml:"synthesis_workers"`
}

// Tools names the external binaries the pipeline shells out to.
type Tools struct {
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
	YtDlp   string `toml:"ytdlp"`
}

// Workflow contains queue processing timing.
type Workflow struct {
	QueuePollInterval int `toml:"queue_poll_interval"`
}

// Logging contains log output configuration.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config is the root configuration document.
type Config struct {
	Paths     Paths     `toml:"paths"`
	Dubbing   Dubbing   `toml:"dubbing"`
	STT       STT       `toml:"stt"`
	Translate Translate `toml:"translate"`
	TTS       TTS       `toml:"tts"`
	Alignment Alignment `toml:"alignment"`
	Tools     Tools     `toml:"tools"`
	Workflow  Workflow  `toml:"workflow"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the expected location of the user config file.
func DefaultConfigPath() string {
	return filepath.Join("~", ".config", "aivideodub", "config.toml")
}

// Load reads the configuration at path, layering it over the repository
// defaults. An empty path means the default location; a missing file yields
// the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) == "" {
		path = DefaultConfigPath()
	}
	expanded, err := ExpandPath(path)
	if err != nil {
		return nil, fmt.Errorf("expand config path: %w", err)
	}

	data, err := os.ReadFile(expanded)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// Defaults only.
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", expanded, err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", expanded, err)
		}
	}

	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// WriteSample writes the annotated sample configuration to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := ExpandPath(path)
	if err != nil {
		return fmt.Errorf("expand config path: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config already exists at %s", expanded)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("ensure config directory: %w", err)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// EnsureDirectories creates the staging, output, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.OutputDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ExpandPath resolves a leading ~ to the current user's home directory.
func ExpandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" || !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}
