package synthesis

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"aivideodub/internal/timeline"
	"aivideodub/internal/workspace"
)

// scratchNamer hands out collision-free scratch paths inside the workspace.
type scratchNamer struct {
	ws      *workspace.Workspace
	counter atomic.Uint64
}

func newScratchNamer(ws *workspace.Workspace) *scratchNamer {
	return &scratchNamer{ws: ws}
}

func (n *scratchNamer) next(prefix string) string {
	return n.ws.ScratchPath(fmt.Sprintf("%s-%04d.wav", prefix, n.counter.Add(1)))
}

// segmentRenderer adapts the TTS client plus segment transcoding into the
// per-block synthesizer the assembler drives. Raw TTS output is normalized to
// the shared segment format before its duration is measured, so the tempo
// plan operates on exactly the audio that will be concatenated.
type segmentRenderer struct {
	synthesis *Synthesizer
	scratch   *scratchNamer
}

func (r *segmentRenderer) Synthesize(ctx context.Context, text string) (timeline.Segment, error) {
	raw := r.scratch.next("tts-raw")
	if err := r.synthesis.speech.Synthesize(ctx, text, raw); err != nil {
		return timeline.Segment{}, fmt.Errorf("render speech: %w", err)
	}
	defer os.Remove(raw)

	segment := r.scratch.next("segment")
	if err := r.synthesis.processor.TranscodeSegment(ctx, raw, segment); err != nil {
		return timeline.Segment{}, fmt.Errorf("normalize segment: %w", err)
	}
	duration, err := r.synthesis.probe(ctx, r.synthesis.cfg.Tools.FFprobe, segment)
	if err != nil {
		os.Remove(segment)
		return timeline.Segment{}, fmt.Errorf("measure segment: %w", err)
	}
	return timeline.Segment{Handle: segment, Duration: duration}, nil
}

// audioBridge adapts the ffmpeg service to the assembler's audio operations.
// Handles are plain file paths; Release deletes them.
type audioBridge struct {
	synthesis *Synthesizer
	scratch   *scratchNamer
}

func (b *audioBridge) ApplyTempo(ctx context.Context, handle string, factors []float64) (timeline.Segment, error) {
	out := b.scratch.next("tempo")
	if err := b.synthesis.processor.ApplyTempoChain(ctx, handle, factors, out); err != nil {
		return timeline.Segment{}, err
	}
	duration, err := b.synthesis.probe(ctx, b.synthesis.cfg.Tools.FFprobe, out)
	if err != nil {
		os.Remove(out)
		return timeline.Segment{}, fmt.Errorf("measure tempo output: %w", err)
	}
	return timeline.Segment{Handle: out, Duration: duration}, nil
}

func (b *audioBridge) GenerateSilence(ctx context.Context, duration float64) (timeline.Segment, error) {
	out := b.scratch.next("silence")
	if err := b.synthesis.processor.GenerateSilence(ctx, duration, out); err != nil {
		return timeline.Segment{}, err
	}
	return timeline.Segment{Handle: out, Duration: duration}, nil
}

func (b *audioBridge) Concatenate(ctx context.Context, handles []string) (timeline.Segment, error) {
	out := b.scratch.next("track")
	if err := b.synthesis.processor.Concatenate(ctx, handles, out); err != nil {
		return timeline.Segment{}, err
	}
	duration, err := b.synthesis.probe(ctx, b.synthesis.cfg.Tools.FFprobe, out)
	if err != nil {
		os.Remove(out)
		return timeline.Segment{}, fmt.Errorf("measure track: %w", err)
	}
	return timeline.Segment{Handle: out, Duration: duration}, nil
}

func (b *audioBridge) Release(handle string) {
	os.Remove(handle)
}
