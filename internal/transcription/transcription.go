// Package transcription extracts the original audio, transcribes it, and
// records the silence intervals that drive timeline construction.
package transcription

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
	"aivideodub/internal/services/stt"
	"aivideodub/internal/stage"
	"aivideodub/internal/timeline"
	"aivideodub/internal/workspace"
)

// AudioAnalyzer covers the ffmpeg operations this stage needs.
type AudioAnalyzer interface {
	ExtractAudio(ctx context.Context, source, dest string) error
	DetectSilence(ctx context.Context, source string, thresholdDB, minDuration, totalDuration float64) ([]timeline.Interval, error)
}

// SpeechRecognizer converts an audio file into text.
type SpeechRecognizer interface {
	Transcribe(ctx context.Context, audioPath, language string) (string, error)
}

// DurationProber reports the duration of a media file in seconds.
type DurationProber func(ctx context.Context, binary, path string) (float64, error)

// Transcriber is the stage handler producing transcript and silence map.
type Transcriber struct {
	cfg        *config.Config
	store      *queue.Store
	logger     *slog.Logger
	analyzer   AudioAnalyzer
	recognizer SpeechRecognizer
	probe      DurationProber
}

// NewTranscriber constructs the transcription stage with stock collaborators.
func NewTranscriber(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Transcriber {
	return NewTranscriberWithDependencies(
		cfg, store, logger,
		ffmpeg.NewService(cfg.Tools.FFmpeg),
		stt.NewClient(stt.Config{
			APIKey:         cfg.STT.APIKey,
			BaseURL:        cfg.STT.BaseURL,
			Model:          cfg.STT.Model,
			TimeoutSeconds: cfg.STT.TimeoutSeconds,
		}),
		ffprobe.Duration,
	)
}

// NewTranscriberWithDependencies allows injecting collaborators (used in tests).
func NewTranscriberWithDependencies(
	cfg *config.Config,
	store *queue.Store,
	logger *slog.Logger,
	analyzer AudioAnalyzer,
	recognizer SpeechRecognizer,
	probe DurationProber,
) *Transcriber {
	return &Transcriber{
		cfg:        cfg,
		store:      store,
		logger:     logging.NewComponentLogger(logger, "transcription"),
		analyzer:   analyzer,
		recognizer: recognizer,
		probe:      probe,
	}
}

func (t *Transcriber) Prepare(ctx context.Context, item *queue.Item) error {
	item.InitProgress("Transcribing", "Preparing transcription")
	item.ErrorMessage = ""
	return nil
}

func (t *Transcriber) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, t.logger)
	video := strings.TrimSpace(item.VideoFile)
	if video == "" {
		return services.Wrap(services.ErrValidation, "transcribing", "validate inputs",
			"queue item has no video file; run download first", nil)
	}
	if _, err := os.Stat(video); err != nil {
		return services.Wrap(services.ErrNotFound, "transcribing", "validate inputs",
			fmt.Sprintf("video file %s is missing", video), err)
	}

	ws, err := workspace.New(t.cfg.Paths.StagingDir, item.ID)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "transcribing", "create workspace", "", err)
	}

	duration, err := t.probe(ctx, t.cfg.Tools.FFprobe, video)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "transcribing", "probe duration", "", err)
	}
	item.TotalDuration = duration

	item.SetProgress(20, "Extracting audio")
	t.persistProgress(ctx, item, logger)

	audioPath := ws.Path("source-audio.wav")
	if err := t.analyzer.ExtractAudio(ctx, video, audioPath); err != nil {
		return services.Wrap(services.ErrExternalTool, "transcribing", "extract audio", "", err)
	}
	item.AudioFile = audioPath

	item.SetProgress(40, "Detecting silence")
	t.persistProgress(ctx, item, logger)

	intervals, err := t.analyzer.DetectSilence(ctx, audioPath,
		t.cfg.Dubbing.SilenceThresholdDB, t.cfg.Dubbing.SilenceMinDuration, duration)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "transcribing", "detect silence", "", err)
	}
	if err := item.SetSilenceIntervals(intervals); err != nil {
		return services.Wrap(services.ErrTransient, "transcribing", "encode silence map", "", err)
	}

	item.SetProgress(60, "Uploading audio for transcription")
	t.persistProgress(ctx, item, logger)

	transcript, err := t.recognizer.Transcribe(ctx, audioPath, t.cfg.Dubbing.SourceLanguage)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "transcribing", "transcribe audio", "", err)
	}
	item.Transcript = transcript

	item.SetProgress(100, "Transcription complete")
	logger.Info("transcription complete",
		logging.Float64("total_duration", duration),
		logging.Int("silence_intervals", len(intervals)),
		logging.Int("transcript_chars", len(transcript)),
	)
	return nil
}

func (t *Transcriber) HealthCheck(ctx context.Context) stage.Health {
	const name = "transcription"
	if _, err := exec.LookPath(t.cfg.Tools.FFmpeg); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("ffmpeg binary %q not found", t.cfg.Tools.FFmpeg))
	}
	if strings.TrimSpace(t.cfg.STT.APIKey) == "" {
		return stage.Unhealthy(name, "speech-to-text API key missing")
	}
	return stage.Healthy(name)
}

func (t *Transcriber) persistProgress(ctx context.Context, item *queue.Item, logger *slog.Logger) {
	if err := t.store.UpdateProgress(ctx, item); err != nil {
		logger.Warn("failed to persist progress", logging.Error(err))
	}
}
