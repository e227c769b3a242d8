package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Dubbing.SourceLanguage != defaultSourceLanguage {
		t.Errorf("source language = %q, want default %q", cfg.Dubbing.SourceLanguage, defaultSourceLanguage)
	}
	if cfg.Alignment.TempoMaxFactor != defaultTempoMaxFactor {
		t.Errorf("tempo max = %v, want default %v", cfg.Alignment.TempoMaxFactor, defaultTempoMaxFactor)
	}
}

func TestLoadLayersFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[dubbing]
target_language = "DE"

[alignment]
max_total_stretch = 6.0
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Dubbing.TargetLanguage != "de" {
		t.Errorf("target language = %q, want lowercased %q", cfg.Dubbing.TargetLanguage, "de")
	}
	if cfg.Alignment.MaxTotalStretch != 6.0 {
		t.Errorf("max stretch = %v, want 6.0", cfg.Alignment.MaxTotalStretch)
	}
	// Untouched sections keep their defaults.
	if cfg.TTS.Voice != defaultTTSVoice {
		t.Errorf("voice = %q, want default %q", cfg.TTS.Voice, defaultTTSVoice)
	}
}

func TestValidateRejectsBadTempoWindow(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "same source and target language",
			mutate: func(c *Config) { c.Dubbing.TargetLanguage = c.Dubbing.SourceLanguage },
			want:   "source and target",
		},
		{
			name:   "min factor at or above one",
			mutate: func(c *Config) { c.Alignment.TempoMinFactor = 1.2 },
			want:   "tempo_min_factor",
		},
		{
			name:   "max factor at or below one",
			mutate: func(c *Config) { c.Alignment.TempoMaxFactor = 0.9 },
			want:   "tempo_max_factor",
		},
		{
			name:   "min factor below atempo floor",
			mutate: func(c *Config) { c.Alignment.TempoMinFactor = 0.25 },
			want:   "atempo floor",
		},
		{
			name: "max factor above atempo ceiling",
			mutate: func(c *Config) {
				c.Alignment.TempoMaxFactor = 3.0
				c.Alignment.MaxTotalStretch = 6.0
			},
			want: "atempo ceiling",
		},
		{
			name: "stretch cap below single step",
			mutate: func(c *Config) {
				c.Alignment.MaxTotalStretch = 1.5
			},
			want: "max_total_stretch",
		},
		{
			name:   "non-negative silence threshold",
			mutate: func(c *Config) { c.Dubbing.SilenceThresholdDB = 3 },
			want:   "silence_threshold_db",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate accepted invalid config")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := WriteSample(path); err != nil {
		t.Fatalf("WriteSample: %v", err)
	}
	if err := WriteSample(path); err == nil {
		t.Fatal("WriteSample overwrote an existing config")
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}
	got, err := ExpandPath("~/staging")
	if err != nil {
		t.Fatalf("ExpandPath: %v", err)
	}
	if got != filepath.Join(home, "staging") {
		t.Errorf("ExpandPath = %q, want under %q", got, home)
	}
}
