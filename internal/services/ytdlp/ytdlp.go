// Package ytdlp wraps the yt-dlp binary for fetching source videos.
package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

type commandRunner func(ctx context.Context, name string, args ...string) (string, error)

func defaultRunner(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	return string(output), err
}

// Service invokes yt-dlp to download videos into a staging directory.
type Service struct {
	binary string
	runner commandRunner
}

// NewService creates a yt-dlp service around the given binary.
func NewService(binary string) *Service {
	if strings.TrimSpace(binary) == "" {
		binary = "yt-dlp"
	}
	return &Service{binary: binary, runner: defaultRunner}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner commandRunner) {
	if runner != nil {
		s.runner = runner
	}
}

// Download fetches the video behind url into destDir and returns the path of
// the downloaded file. The container is forced to mp4 so every later stage
// sees a predictable layout.
func (s *Service) Download(ctx context.Context, url, destDir string) (string, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return "", errors.New("ytdlp download: url required")
	}
	if destDir = strings.TrimSpace(destDir); destDir == "" {
		return "", errors.New("ytdlp download: destination directory required")
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("ytdlp download: create destination: %w", err)
	}

	args := []string{
		"--no-playlist",
		"--no-progress",
		"-f", "bv*+ba/b",
		"--merge-output-format", "mp4",
		"-o", filepath.Join(destDir, "%(title).150B.%(ext)s"),
		"--print", "after_move:filepath",
		"--no-simulate",
		url,
	}
	output, err := s.runner(ctx, s.binary, args...)
	if err != nil {
		return "", fmt.Errorf("ytdlp download: %w: %s", err, lastLine(output))
	}

	path := downloadedPath(output)
	if path == "" {
		return "", fmt.Errorf("ytdlp download: no output path reported: %s", lastLine(output))
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("ytdlp download: reported file missing: %w", err)
	}
	return path, nil
}

// Version reports the installed yt-dlp version, used by preflight.
func (s *Service) Version(ctx context.Context) (string, error) {
	output, err := s.runner(ctx, s.binary, "--version")
	if err != nil {
		return "", fmt.Errorf("ytdlp version: %w", err)
	}
	return strings.TrimSpace(output), nil
}

// downloadedPath picks the printed filepath out of the command output. The
// path print lands on its own line; warnings and progress noise around it are
// skipped by keeping the last line that looks like an absolute path.
func downloadedPath(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if filepath.IsAbs(line) {
			return line
		}
	}
	return ""
}

func lastLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
