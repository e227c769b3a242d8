package config

import (
	"fmt"
	"strings"
)

// Normalize expands paths and fills empty fields with defaults so the rest of
// the pipeline never has to guard against blanks.
func (c *Config) Normalize() error {
	defaults := Default()

	var err error
	if c.Paths.StagingDir, err = expandOrDefault(c.Paths.StagingDir, defaults.Paths.StagingDir); err != nil {
		return err
	}
	if c.Paths.OutputDir, err = expandOrDefault(c.Paths.OutputDir, defaults.Paths.OutputDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandOrDefault(c.Paths.LogDir, defaults.Paths.LogDir); err != nil {
		return err
	}

	c.Dubbing.SourceLanguage = strings.ToLower(strings.TrimSpace(c.Dubbing.SourceLanguage))
	c.Dubbing.TargetLanguage = strings.ToLower(strings.TrimSpace(c.Dubbing.TargetLanguage))
	if c.Dubbing.SourceLanguage == "" {
		c.Dubbing.SourceLanguage = defaults.Dubbing.SourceLanguage
	}
	if c.Dubbing.TargetLanguage == "" {
		c.Dubbing.TargetLanguage = defaults.Dubbing.TargetLanguage
	}
	if c.Dubbing.SilenceThresholdDB == 0 {
		c.Dubbing.SilenceThresholdDB = defaults.Dubbing.SilenceThresholdDB
	}
	if c.Dubbing.SilenceMinDuration <= 0 {
		c.Dubbing.SilenceMinDuration = defaults.Dubbing.SilenceMinDuration
	}

	fillString(&c.STT.BaseURL, defaults.STT.BaseURL)
	fillString(&c.STT.Model, defaults.STT.Model)
	fillInt(&c.STT.TimeoutSeconds, defaults.STT.TimeoutSeconds)
	fillString(&c.Translate.BaseURL, defaults.Translate.BaseURL)
	fillString(&c.Translate.Model, defaults.Translate.Model)
	fillInt(&c.Translate.TimeoutSeconds, defaults.Translate.TimeoutSeconds)
	fillString(&c.TTS.BaseURL, defaults.TTS.BaseURL)
	fillString(&c.TTS.Model, defaults.TTS.Model)
	fillString(&c.TTS.Voice, defaults.TTS.Voice)
	fillInt(&c.TTS.TimeoutSeconds, defaults.TTS.TimeoutSeconds)

	if c.Alignment.MinGapDuration <= 0 {
		c.Alignment.MinGapDuration = defaults.Alignment.MinGapDuration
	}
	if c.Alignment.RatioEpsilon <= 0 {
		c.Alignment.RatioEpsilon = defaults.Alignment.RatioEpsilon
	}
	if c.Alignment.TempoMinFactor <= 0 {
		c.Alignment.TempoMinFactor = defaults.Alignment.TempoMinFactor
	}
	if c.Alignment.TempoMaxFactor <= 0 {
		c.Alignment.TempoMaxFactor = defaults.Alignment.TempoMaxFactor
	}
	if c.Alignment.MaxTotalStretch <= 0 {
		c.Alignment.MaxTotalStretch = defaults.Alignment.MaxTotalStretch
	}
	if c.Alignment.DurationTolerance <= 0 {
		c.Alignment.DurationTolerance = defaults.Alignment.DurationTolerance
	}
	if c.Alignment.SynthesisWorkers <= 0 {
		c.Alignment.SynthesisWorkers = defaults.Alignment.SynthesisWorkers
	}

	fillString(&c.Tools.FFmpeg, defaults.Tools.FFmpeg)
	fillString(&c.Tools.FFprobe, defaults.Tools.FFprobe)
	fillString(&c.Tools.YtDlp, defaults.Tools.YtDlp)
	fillInt(&c.Workflow.QueuePollInterval, defaults.Workflow.QueuePollInterval)
	fillString(&c.Logging.Level, defaults.Logging.Level)
	fillString(&c.Logging.Format, defaults.Logging.Format)

	return nil
}

// atempo keeps its pitch correction accurate only within this window, and
// the ffmpeg wrapper rejects per-step factors outside it. A config allowed
// past these bounds would fail every out-of-epsilon speech block at run time.
const (
	atempoFloor   = 0.5
	atempoCeiling = 2.0
)

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Dubbing.SourceLanguage == c.Dubbing.TargetLanguage {
		return fmt.Errorf("dubbing: source and target language are both %q", c.Dubbing.SourceLanguage)
	}
	if c.Dubbing.SilenceThresholdDB >= 0 {
		return fmt.Errorf("dubbing: silence_threshold_db %.1f must be negative", c.Dubbing.SilenceThresholdDB)
	}
	if c.Alignment.TempoMinFactor >= 1 {
		return fmt.Errorf("alignment: tempo_min_factor %.2f must be below 1", c.Alignment.TempoMinFactor)
	}
	if c.Alignment.TempoMaxFactor <= 1 {
		return fmt.Errorf("alignment: tempo_max_factor %.2f must be above 1", c.Alignment.TempoMaxFactor)
	}
	if c.Alignment.TempoMinFactor < atempoFloor {
		return fmt.Errorf("alignment: tempo_min_factor %.2f is below the atempo floor %.1f",
			c.Alignment.TempoMinFactor, atempoFloor)
	}
	if c.Alignment.TempoMaxFactor > atempoCeiling {
		return fmt.Errorf("alignment: tempo_max_factor %.2f is above the atempo ceiling %.1f",
			c.Alignment.TempoMaxFactor, atempoCeiling)
	}
	if c.Alignment.MaxTotalStretch < c.Alignment.TempoMaxFactor {
		return fmt.Errorf("alignment: max_total_stretch %.2f must be at least tempo_max_factor %.2f",
			c.Alignment.MaxTotalStretch, c.Alignment.TempoMaxFactor)
	}
	return nil
}

func expandOrDefault(value, fallback string) (string, error) {
	if strings.TrimSpace(value) == "" {
		value = fallback
	}
	return ExpandPath(value)
}

func fillString(value *string, fallback string) {
	if strings.TrimSpace(*value) == "" {
		*value = fallback
	}
}

func fillInt(value *int, fallback int) {
	if *value <= 0 {
		*value = fallback
	}
}
