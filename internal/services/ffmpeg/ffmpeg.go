package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Segment audio format shared by every intermediate the pipeline produces,
// so the concat demuxer can join them without re-encoding surprises.
const (
	segmentSampleRate = "44100"
	segmentChannels   = "1"
	segmentCodec      = "pcm_s16le"
)

// atempo in widely deployed ffmpeg builds accepts factors in [0.5, 2.0];
// the tempo planner is expected to deliver factors inside that window.
const (
	atempoMin = 0.5
	atempoMax = 2.0
)

type commandRunner func(ctx context.Context, name string, args ...string) (string, error)

func defaultRunner(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	return string(output), err
}

// Service invokes ffmpeg for the dubbing pipeline.
type Service struct {
	binary string
	runner commandRunner
}

// NewService creates an ffmpeg service around the given binary.
func NewService(binary string) *Service {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	return &Service{binary: binary, runner: defaultRunner}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner commandRunner) {
	if runner != nil {
		s.runner = runner
	}
}

func (s *Service) run(ctx context.Context, args ...string) (string, error) {
	output, err := s.runner(ctx, s.binary, args...)
	if err != nil {
		return output, fmt.Errorf("ffmpeg: %w: %s", err, lastLine(output))
	}
	return output, nil
}

// ExtractAudio pulls the first audio stream out of a container as a mono
// 16 kHz WAV suitable for transcription upload.
func (s *Service) ExtractAudio(ctx context.Context, source, dest string) error {
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", source,
		"-vn", "-sn", "-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", segmentCodec,
		dest,
	}
	_, err := s.run(ctx, args...)
	if err != nil {
		return fmt.Errorf("extract audio: %w", err)
	}
	return nil
}

// TranscodeSegment rewrites any rendered audio into the shared segment
// format so tempo transforms and concatenation operate on uniform input.
func (s *Service) TranscodeSegment(ctx context.Context, source, dest string) error {
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", source,
		"-ac", segmentChannels,
		"-ar", segmentSampleRate,
		"-c:a", segmentCodec,
		dest,
	}
	if _, err := s.run(ctx, args...); err != nil {
		return fmt.Errorf("transcode segment: %w", err)
	}
	return nil
}

// ApplyTempoChain applies the ordered tempo factors to source, writing the
// result to dest. Factors are applied sequentially in a single filter chain.
func (s *Service) ApplyTempoChain(ctx context.Context, source string, factors []float64, dest string) error {
	filter, err := buildTempoFilter(factors)
	if err != nil {
		return err
	}
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", source,
		"-filter:a", filter,
		"-ac", segmentChannels,
		"-ar", segmentSampleRate,
		"-c:a", segmentCodec,
		dest,
	}
	if _, err := s.run(ctx, args...); err != nil {
		return fmt.Errorf("apply tempo chain: %w", err)
	}
	return nil
}

// GenerateSilence writes an exact-duration muted segment to dest.
func (s *Service) GenerateSilence(ctx context.Context, seconds float64, dest string) error {
	if seconds <= 0 {
		return fmt.Errorf("generate silence: non-positive duration %.3f", seconds)
	}
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "lavfi",
		"-i", fmt.Sprintf("anullsrc=r=%s:cl=mono", segmentSampleRate),
		"-t", formatSeconds(seconds),
		"-c:a", segmentCodec,
		dest,
	}
	if _, err := s.run(ctx, args...); err != nil {
		return fmt.Errorf("generate silence: %w", err)
	}
	return nil
}

// Concatenate joins the inputs, strictly in the order given, into dest using
// the concat demuxer. Inputs must share the segment format.
func (s *Service) Concatenate(ctx context.Context, inputs []string, dest string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("concatenate: no inputs")
	}
	listFile, err := writeConcatList(filepath.Dir(dest), inputs)
	if err != nil {
		return err
	}
	defer os.Remove(listFile)

	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c", "copy",
		dest,
	}
	if _, err := s.run(ctx, args...); err != nil {
		return fmt.Errorf("concatenate: %w", err)
	}
	return nil
}

// ReplaceAudio muxes the dubbed track into the video container, copying the
// video stream untouched.
func (s *Service) ReplaceAudio(ctx context.Context, video, audio, dest string) error {
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", video,
		"-i", audio,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", "aac",
		dest,
	}
	if _, err := s.run(ctx, args...); err != nil {
		return fmt.Errorf("replace audio: %w", err)
	}
	return nil
}

// AdjustDuration pads the audio stream with silence and cuts the container at
// the target duration. Used as the final coarse correction when the muxed
// result still drifts from the original.
func (s *Service) AdjustDuration(ctx context.Context, source string, targetSeconds float64, dest string) error {
	if targetSeconds <= 0 {
		return fmt.Errorf("adjust duration: non-positive target %.3f", targetSeconds)
	}
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", source,
		"-af", "apad",
		"-t", formatSeconds(targetSeconds),
		"-c:v", "copy",
		dest,
	}
	if _, err := s.run(ctx, args...); err != nil {
		return fmt.Errorf("adjust duration: %w", err)
	}
	return nil
}

func buildTempoFilter(factors []float64) (string, error) {
	if len(factors) == 0 {
		return "", fmt.Errorf("tempo filter: empty factor chain")
	}
	parts := make([]string, len(factors))
	for i, factor := range factors {
		if factor < atempoMin || factor > atempoMax {
			return "", fmt.Errorf("tempo filter: factor %.4f outside atempo range [%.1f, %.1f]", factor, atempoMin, atempoMax)
		}
		parts[i] = fmt.Sprintf("atempo=%s", formatFactor(factor))
	}
	return strings.Join(parts, ","), nil
}

func writeConcatList(dir string, inputs []string) (string, error) {
	file, err := os.CreateTemp(dir, "concat-*.txt")
	if err != nil {
		return "", fmt.Errorf("concatenate: create list file: %w", err)
	}
	defer file.Close()
	for _, input := range inputs {
		abs, err := filepath.Abs(input)
		if err != nil {
			os.Remove(file.Name())
			return "", fmt.Errorf("concatenate: resolve %s: %w", input, err)
		}
		// concat demuxer quoting: single quotes with embedded quote escaping.
		escaped := strings.ReplaceAll(abs, "'", `'\''`)
		if _, err := fmt.Fprintf(file, "file '%s'\n", escaped); err != nil {
			os.Remove(file.Name())
			return "", fmt.Errorf("concatenate: write list file: %w", err)
		}
	}
	return file.Name(), nil
}

func formatSeconds(seconds float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.3f", seconds), "0"), ".")
}

func formatFactor(factor float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.6f", factor), "0"), ".")
}

func lastLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
