// Package download fetches source videos into the item workspace.
package download

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"

	"aivideodub/internal/config"
	"aivideodub/internal/logging"
	"aivideodub/internal/queue"
	"aivideodub/internal/services"
	"aivideodub/internal/services/ytdlp"
	"aivideodub/internal/stage"
	"aivideodub/internal/workspace"
)

// Fetcher downloads a remote video into a destination directory and returns
// the resulting file path.
type Fetcher interface {
	Download(ctx context.Context, url, destDir string) (string, error)
}

// Downloader is the stage handler that resolves a queued URL to a local file.
type Downloader struct {
	cfg     *config.Config
	store   *queue.Store
	logger  *slog.Logger
	fetcher Fetcher
}

// NewDownloader constructs the download stage with the stock yt-dlp fetcher.
func NewDownloader(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Downloader {
	return NewDownloaderWithFetcher(cfg, store, logger, ytdlp.NewService(cfg.Tools.YtDlp))
}

// NewDownloaderWithFetcher allows injecting the fetcher (used in tests).
func NewDownloaderWithFetcher(cfg *config.Config, store *queue.Store, logger *slog.Logger, fetcher Fetcher) *Downloader {
	return &Downloader{
		cfg:     cfg,
		store:   store,
		logger:  logging.NewComponentLogger(logger, "download"),
		fetcher: fetcher,
	}
}

func (d *Downloader) Prepare(ctx context.Context, item *queue.Item) error {
	item.InitProgress("Downloading", "Preparing download")
	item.ErrorMessage = ""
	return nil
}

func (d *Downloader) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, d.logger)
	url := strings.TrimSpace(item.SourceURL)
	if url == "" {
		return services.Wrap(services.ErrValidation, "downloading", "validate inputs",
			"queue item has no source URL", nil)
	}

	ws, err := workspace.New(d.cfg.Paths.StagingDir, item.ID)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "downloading", "create workspace", "", err)
	}

	item.SetProgress(10, "Fetching video")
	if err := d.store.UpdateProgress(ctx, item); err != nil {
		logger.Warn("failed to persist progress", logging.Error(err))
	}

	logger.Info("downloading source video", logging.String("url", url))
	path, err := d.fetcher.Download(ctx, url, ws.Root)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "downloading", "fetch video",
			fmt.Sprintf("failed to download %s", url), err)
	}

	item.VideoFile = path
	if strings.TrimSpace(item.Title) == "" {
		base := filepath.Base(path)
		item.Title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	item.SetProgress(100, "Download complete")
	logger.Info("download complete",
		logging.String("video_file", path),
		logging.String("title", item.Title),
	)
	return nil
}

func (d *Downloader) HealthCheck(ctx context.Context) stage.Health {
	const name = "download"
	if _, err := exec.LookPath(d.cfg.Tools.YtDlp); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("yt-dlp binary %q not found", d.cfg.Tools.YtDlp))
	}
	return stage.Healthy(name)
}
