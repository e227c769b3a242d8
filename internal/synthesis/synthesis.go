// Package synthesis renders the translated text into a duration-matched
// dubbed audio track. It builds the speech/silence timeline from the recorded
// silence map, distributes the translation across speech blocks, and drives
// per-block rendering with tempo correction.
package synthesis

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"aivideodub/internal/config"
	"aivideodub/internal/logging"
	"aivideodub/internal/media/ffprobe"
	"aivideodub/internal/queue"
	"aivideodub/internal/services"
	"aivideodub/internal/services/ffmpeg"
	"aivideodub/internal/services/tts"
	"aivideodub/internal/stage"
	"aivideodub/internal/timeline"
	"aivideodub/internal/workspace"
)

// SpeechService renders text to a speech audio file.
type SpeechService interface {
	Synthesize(ctx context.Context, text, destPath string) error
}

// AudioProcessor covers the ffmpeg operations assembly needs.
type AudioProcessor interface {
	TranscodeSegment(ctx context.Context, source, dest string) error
	ApplyTempoChain(ctx context.Context, source string, factors []float64, dest string) error
	GenerateSilence(ctx context.Context, seconds float64, dest string) error
	Concatenate(ctx context.Context, inputs []string, dest string) error
}

// DurationProber reports the duration of a media file in seconds.
type DurationProber func(ctx context.Context, binary, path string) (float64, error)

// Synthesizer is the stage handler producing the dubbed track.
type Synthesizer struct {
	cfg       *config.Config
	store     *queue.Store
	logger    *slog.Logger
	speech    SpeechService
	processor AudioProcessor
	probe     DurationProber
}

// NewSynthesizer constructs the synthesis stage with stock collaborators.
func NewSynthesizer(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Synthesizer {
	return NewSynthesizerWithDependencies(
		cfg, store, logger,
		tts.NewClient(tts.Config{
			APIKey:         cfg.TTS.APIKey,
			BaseURL:        cfg.TTS.BaseURL,
			Model:          cfg.TTS.Model,
			Voice:          cfg.TTS.Voice,
			TimeoutSeconds: cfg.TTS.TimeoutSeconds,
		}),
		ffmpeg.NewService(cfg.Tools.FFmpeg),
		ffprobe.Duration,
	)
}

// NewSynthesizerWithDependencies allows injecting collaborators (used in tests).
func NewSynthesizerWithDependencies(
	cfg *config.Config,
	store *queue.Store,
	logger *slog.Logger,
	speech SpeechService,
	processor AudioProcessor,
	probe DurationProber,
) *Synthesizer {
	return &Synthesizer{
		cfg:       cfg,
		store:     store,
		logger:    logging.NewComponentLogger(logger, "synthesis"),
		speech:    speech,
		processor: processor,
		probe:     probe,
	}
}

func (s *Synthesizer) Prepare(ctx context.Context, item *queue.Item) error {
	item.InitProgress("Synthesizing", "Preparing speech synthesis")
	item.ErrorMessage = ""
	return nil
}

func (s *Synthesizer) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, s.logger)
	if strings.TrimSpace(item.TranslatedText) == "" {
		return services.Wrap(services.ErrValidation, "synthesizing", "validate inputs",
			"queue item has no translated text; run translation first", nil)
	}
	if item.TotalDuration <= 0 {
		return services.Wrap(services.ErrValidation, "synthesizing", "validate inputs",
			"queue item has no total duration; run transcription first", nil)
	}
	intervals, err := item.SilenceIntervals()
	if err != nil {
		return services.Wrap(services.ErrValidation, "synthesizing", "decode silence map", "", err)
	}

	ws, err := workspace.New(s.cfg.Paths.StagingDir, item.ID)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "synthesizing", "create workspace", "", err)
	}

	built, err := timeline.Build(intervals, item.TotalDuration, s.cfg.Alignment.MinGapDuration)
	if err != nil {
		return services.Wrap(services.ErrValidation, "synthesizing", "build timeline", "", err)
	}
	distributed, err := timeline.Distribute(built, item.TranslatedText)
	if err != nil {
		return services.Wrap(services.ErrValidation, "synthesizing", "distribute text", "", err)
	}

	logger.Info("timeline ready",
		logging.Int("blocks", len(distributed.Blocks)),
		logging.Int("speech_blocks", distributed.SpeechBlockCount()),
		logging.Float64("total_duration", distributed.TotalDuration),
	)
	item.SetProgress(10, "Rendering speech blocks")
	if err := s.store.UpdateProgress(ctx, item); err != nil {
		logger.Warn("failed to persist progress", logging.Error(err))
	}

	scratch := newScratchNamer(ws)
	assembler := timeline.NewAssembler(
		timeline.AssemblerConfig{
			Plan: timeline.PlanConfig{
				MinFactor:       s.cfg.Alignment.TempoMinFactor,
				MaxFactor:       s.cfg.Alignment.TempoMaxFactor,
				RatioEpsilon:    s.cfg.Alignment.RatioEpsilon,
				MaxTotalStretch: s.cfg.Alignment.MaxTotalStretch,
			},
			DurationTolerance: s.cfg.Alignment.DurationTolerance,
			Workers:           s.cfg.Alignment.SynthesisWorkers,
		},
		&segmentRenderer{synthesis: s, scratch: scratch},
		&audioBridge{synthesis: s, scratch: scratch},
		logger,
	)

	track, err := assembler.Assemble(ctx, distributed)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "synthesizing", "assemble track", "", err)
	}
	for _, warning := range track.Warnings {
		logger.Warn("sync quality warning", logging.String("warning", warning.String()))
	}

	dubbed := ws.Path("dubbed.wav")
	if err := os.Rename(track.Handle, dubbed); err != nil {
		os.Remove(track.Handle)
		return services.Wrap(services.ErrExternalTool, "synthesizing", "store dubbed track", "", err)
	}

	item.DubbedAudio = dubbed
	item.SetProgress(100, "Synthesis complete")
	logger.Info("synthesis complete",
		logging.String("dubbed_audio", dubbed),
		logging.Float64("track_duration", track.Duration),
		logging.Int("warnings", len(track.Warnings)),
	)
	return nil
}

func (s *Synthesizer) HealthCheck(ctx context.Context) stage.Health {
	const name = "synthesis"
	if _, err := exec.LookPath(s.cfg.Tools.FFmpeg); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("ffmpeg binary %q not found", s.cfg.Tools.FFmpeg))
	}
	if strings.TrimSpace(s.cfg.TTS.APIKey) == "" {
		return stage.Unhealthy(name, "text-to-speech API key missing")
	}
	return stage.Healthy(name)
}
