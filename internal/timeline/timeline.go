package timeline

import (
	"errors"
	"fmt"
	"sort"
)

// ContiguityEpsilon is the slack allowed when verifying that blocks cover the
// full track without gaps.
const ContiguityEpsilon = 0.05

var (
	// ErrMalformedIntervals marks silence interval data that cannot describe
	// a valid timeline even after sanitizing.
	ErrMalformedIntervals = errors.New("malformed silence intervals")
	// ErrNoSpeechBlocks marks a timeline with nothing to speak.
	ErrNoSpeechBlocks = errors.New("timeline has no speech blocks")
	// ErrDegenerateTimeline marks a timeline whose speech blocks carry no duration.
	ErrDegenerateTimeline = errors.New("timeline speech duration is zero")
)

// BlockKind distinguishes speech spans from silence spans.
type BlockKind int

const (
	Speech BlockKind = iota
	Silence
)

func (k BlockKind) String() string {
	switch k {
	case Speech:
		return "speech"
	case Silence:
		return "silence"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Interval is a structured silence interval reported by the detection
// collaborator. Times are seconds from track start.
type Interval struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns the interval length in seconds.
func (iv Interval) Duration() float64 {
	return iv.End - iv.Start
}

// Block is one contiguous span of the timeline. Text is empty until
// Distribute assigns translated words to speech blocks.
type Block struct {
	Kind  BlockKind
	Start float64
	End   float64
	Text  string
}

// Duration returns the block length in seconds.
func (b Block) Duration() float64 {
	return b.End - b.Start
}

// Timeline is the ordered, gap-free block sequence for one track.
type Timeline struct {
	Blocks        []Block
	TotalDuration float64
}

// SpeechDuration sums the duration of every speech block.
func (t Timeline) SpeechDuration() float64 {
	var total float64
	for _, block := range t.Blocks {
		if block.Kind == Speech {
			total += block.Duration()
		}
	}
	return total
}

// SpeechBlockCount returns the number of speech blocks.
func (t Timeline) SpeechBlockCount() int {
	count := 0
	for _, block := range t.Blocks {
		if block.Kind == Speech {
			count++
		}
	}
	return count
}

// Build converts silence intervals plus the track duration into an ordered,
// gap-free timeline of speech and silence blocks.
//
// Intervals are sanitized first: zero and negative duration entries are
// dropped, overlapping or directly adjacent entries are merged, and the result
// is sorted by start time. Intervals shorter than minGapDuration are absorbed
// into the surrounding speech span so short pauses do not fragment synthesis.
// Build is deterministic; identical input yields an identical timeline.
func Build(intervals []Interval, totalDuration, minGapDuration float64) (Timeline, error) {
	if totalDuration <= 0 {
		return Timeline{}, fmt.Errorf("%w: total duration %.3f must be positive", ErrMalformedIntervals, totalDuration)
	}

	merged := sanitize(intervals)
	for _, iv := range merged {
		if iv.Start < 0 || iv.End > totalDuration {
			return Timeline{}, fmt.Errorf("%w: interval [%.3f, %.3f] outside track [0, %.3f]",
				ErrMalformedIntervals, iv.Start, iv.End, totalDuration)
		}
	}

	kept := merged[:0]
	for _, iv := range merged {
		if iv.Duration() >= minGapDuration {
			kept = append(kept, iv)
		}
	}

	timeline := Timeline{TotalDuration: totalDuration}
	cursor := 0.0
	for _, iv := range kept {
		if iv.Start > cursor {
			timeline.Blocks = append(timeline.Blocks, Block{Kind: Speech, Start: cursor, End: iv.Start})
		}
		timeline.Blocks = append(timeline.Blocks, Block{Kind: Silence, Start: iv.Start, End: iv.End})
		cursor = iv.End
	}
	if cursor < totalDuration {
		timeline.Blocks = append(timeline.Blocks, Block{Kind: Speech, Start: cursor, End: totalDuration})
	}
	if len(timeline.Blocks) == 0 {
		timeline.Blocks = append(timeline.Blocks, Block{Kind: Speech, Start: 0, End: totalDuration})
	}
	return timeline, nil
}

// sanitize drops degenerate intervals, sorts the rest, and merges overlapping
// or directly adjacent entries. The input slice is not modified.
func sanitize(intervals []Interval) []Interval {
	cleaned := make([]Interval, 0, len(intervals))
	for _, iv := range intervals {
		if iv.Duration() > 0 {
			cleaned = append(cleaned, iv)
		}
	}
	sort.Slice(cleaned, func(i, j int) bool {
		if cleaned[i].Start == cleaned[j].Start {
			return cleaned[i].End < cleaned[j].End
		}
		return cleaned[i].Start < cleaned[j].Start
	})

	merged := cleaned[:0]
	for _, iv := range cleaned {
		if len(merged) == 0 {
			merged = append(merged, iv)
			continue
		}
		last := &merged[len(merged)-1]
		if iv.Start <= last.End {
			if iv.End > last.End {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}
