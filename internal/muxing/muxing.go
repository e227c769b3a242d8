// Package muxing replaces the original audio with the dubbed track and
// delivers the final file into the output directory.
package muxing

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"aivideodub/internal/config"
	"aivideodub/internal/logging"
	"aivideodub/internal/media/ffprobe"
	"aivideodub/internal/queue"
	"aivideodub/internal/services"
	"aivideodub/internal/services/ffmpeg"
	"aivideodub/internal/stage"
	"aivideodub/internal/workspace"
)

// ContainerMuxer covers the ffmpeg operations this stage needs.
type ContainerMuxer interface {
	ReplaceAudio(ctx context.Context, video, audio, dest string) error
	AdjustDuration(ctx context.Context, source string, targetSeconds float64, dest string) error
}

// DurationProber reports the duration of a media file in seconds.
type DurationProber func(ctx context.Context, binary, path string) (float64, error)

// Muxer is the stage handler producing the final dubbed video.
type Muxer struct {
	cfg    *config.Config
	store  *queue.Store
	logger *slog.Logger
	muxer  ContainerMuxer
	probe  DurationProber
}

// NewMuxer constructs the muxing stage with the stock ffmpeg service.
func NewMuxer(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Muxer {
	return NewMuxerWithDependencies(cfg, store, logger, ffmpeg.NewService(cfg.Tools.FFmpeg), ffprobe.Duration)
}

// NewMuxerWithDependencies allows injecting collaborators (used in tests).
func NewMuxerWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, muxer ContainerMuxer, probe DurationProber) *Muxer {
	return &Muxer{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "muxing"),
		muxer:  muxer,
		probe:  probe,
	}
}

func (m *Muxer) Prepare(ctx context.Context, item *queue.Item) error {
	item.InitProgress("Muxing", "Preparing final mux")
	item.ErrorMessage = ""
	return nil
}

func (m *Muxer) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, m.logger)
	video := strings.TrimSpace(item.VideoFile)
	dubbed := strings.TrimSpace(item.DubbedAudio)
	if video == "" || dubbed == "" {
		return services.Wrap(services.ErrValidation, "muxing", "validate inputs",
			"queue item needs both a video file and a dubbed track", nil)
	}
	if _, err := os.Stat(dubbed); err != nil {
		return services.Wrap(services.ErrNotFound, "muxing", "validate inputs",
			fmt.Sprintf("dubbed track %s is missing", dubbed), err)
	}

	ws, err := workspace.New(m.cfg.Paths.StagingDir, item.ID)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "muxing", "create workspace", "", err)
	}

	item.SetProgress(20, "Replacing audio track")
	if err := m.store.UpdateProgress(ctx, item); err != nil {
		logger.Warn("failed to persist progress", logging.Error(err))
	}

	muxed := ws.ScratchPath("muxed.mp4")
	if err := m.muxer.ReplaceAudio(ctx, video, dubbed, muxed); err != nil {
		return services.Wrap(services.ErrExternalTool, "muxing", "replace audio", "", err)
	}

	// Coarse duration correction: the dubbed track can run slightly short or
	// long even after per-block tempo work. Pad or trim the container when the
	// drift exceeds the alignment tolerance.
	if item.TotalDuration > 0 {
		muxedDuration, err := m.probe(ctx, m.cfg.Tools.FFprobe, muxed)
		if err != nil {
			return services.Wrap(services.ErrExternalTool, "muxing", "probe result", "", err)
		}
		if drift := math.Abs(muxedDuration - item.TotalDuration); drift > m.cfg.Alignment.DurationTolerance {
			logger.Warn("correcting container duration",
				logging.Float64("muxed_duration", muxedDuration),
				logging.Float64("target_duration", item.TotalDuration),
			)
			item.SetProgress(60, "Correcting duration")
			adjusted := ws.ScratchPath("adjusted.mp4")
			if err := m.muxer.AdjustDuration(ctx, muxed, item.TotalDuration, adjusted); err != nil {
				return services.Wrap(services.ErrExternalTool, "muxing", "adjust duration", "", err)
			}
			os.Remove(muxed)
			muxed = adjusted
		}
	}

	item.SetProgress(80, "Delivering final file")
	finalPath := filepath.Join(m.cfg.Paths.OutputDir, outputName(item))
	if err := moveFile(muxed, finalPath); err != nil {
		return services.Wrap(services.ErrExternalTool, "muxing", "deliver file", "", err)
	}
	item.FinalFile = finalPath

	if err := ws.Cleanup(); err != nil {
		logger.Warn("workspace cleanup failed", logging.Error(err))
	}

	item.SetProgress(100, "Dubbing complete")
	logger.Info("muxing complete", logging.String("final_file", finalPath))
	return nil
}

func (m *Muxer) HealthCheck(ctx context.Context) stage.Health {
	const name = "muxing"
	if _, err := exec.LookPath(m.cfg.Tools.FFmpeg); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("ffmpeg binary %q not found", m.cfg.Tools.FFmpeg))
	}
	if err := os.MkdirAll(m.cfg.Paths.OutputDir, 0o755); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("output directory unavailable: %v", err))
	}
	return stage.Healthy(name)
}

func outputName(item *queue.Item) string {
	title := strings.TrimSpace(item.Title)
	if title == "" {
		base := filepath.Base(item.VideoFile)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return sanitizeFilename(title) + ".dubbed.mp4"
}

func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer("/", "-", "\\", "-", ":", "-", "*", "", "?", "", "\"", "", "<", "", ">", "", "|", "")
	cleaned := strings.TrimSpace(replacer.Replace(name))
	if cleaned == "" {
		return "dubbed"
	}
	return cleaned
}

// moveFile renames when possible and falls back to copy for cross-device moves.
func moveFile(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.Rename(src, dest); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return fmt.Errorf("copy file: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		return fmt.Errorf("flush destination: %w", err)
	}
	return os.Remove(src)
}
