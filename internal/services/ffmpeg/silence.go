package ffmpeg

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"aivideodub/internal/timeline"
)

// DetectSilence runs the silencedetect filter over the source audio and
// returns structured silence intervals. thresholdDB is the noise floor in
// dBFS (negative), minDuration the shortest silence reported, and
// totalDuration closes a silence that runs to the end of the track.
//
// The raw detector report never leaves this package; the alignment engine
// only ever sees the parsed intervals.
func (s *Service) DetectSilence(ctx context.Context, source string, thresholdDB, minDuration, totalDuration float64) ([]timeline.Interval, error) {
	args := []string{
		"-hide_banner",
		"-i", source,
		"-af", fmt.Sprintf("silencedetect=noise=%.1fdB:d=%s", thresholdDB, formatSeconds(minDuration)),
		"-f", "null", "-",
	}
	// silencedetect reports on stderr, which the runner folds into output;
	// the command itself succeeds, so parse regardless of noise around it.
	output, err := s.run(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("detect silence: %w", err)
	}
	return parseSilenceReport(output, totalDuration), nil
}

// parseSilenceReport extracts intervals from silencedetect log lines of the
// form:
//
//	[silencedetect @ 0x...] silence_start: 41.2418
//	[silencedetect @ 0x...] silence_end: 50.08 | silence_duration: 8.8382
//
// A dangling silence_start is closed at totalDuration.
func parseSilenceReport(output string, totalDuration float64) []timeline.Interval {
	var intervals []timeline.Interval
	start := -1.0

	for _, line := range strings.Split(output, "\n") {
		if value, ok := extractField(line, "silence_start:"); ok {
			start = value
			continue
		}
		if value, ok := extractField(line, "silence_end:"); ok && start >= 0 {
			if value > start {
				intervals = append(intervals, timeline.Interval{Start: start, End: value})
			}
			start = -1
		}
	}
	if start >= 0 && totalDuration > start {
		intervals = append(intervals, timeline.Interval{Start: start, End: totalDuration})
	}
	return intervals
}

func extractField(line, field string) (float64, bool) {
	idx := strings.Index(line, field)
	if idx < 0 {
		return 0, false
	}
	rest := strings.TrimSpace(line[idx+len(field):])
	if cut := strings.IndexAny(rest, " |"); cut >= 0 {
		rest = rest[:cut]
	}
	value, err := strconv.ParseFloat(rest, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}
