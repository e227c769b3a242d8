package timeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
)

// fakeSynth renders segments whose duration is proportional to word count.
type fakeSynth struct {
	mu              sync.Mutex
	calls           []string
	secondsPerWord  float64
	failOnSubstring string
}

func (f *fakeSynth) Synthesize(ctx context.Context, text string) (Segment, error) {
	if err := ctx.Err(); err != nil {
		return Segment{}, err
	}
	f.mu.Lock()
	f.calls = append(f.calls, text)
	id := len(f.calls)
	f.mu.Unlock()
	if f.failOnSubstring != "" && strings.Contains(text, f.failOnSubstring) {
		return Segment{}, errors.New("synthesis backend unavailable")
	}
	duration := float64(len(strings.Fields(text))) * f.secondsPerWord
	return Segment{Handle: fmt.Sprintf("render-%d", id), Duration: duration}, nil
}

// fakeAudio models an audio backend with handle tracking.
type fakeAudio struct {
	mu       sync.Mutex
	created  int
	issued   []string
	released map[string]bool
	concats  [][]string
}

func newFakeAudio() *fakeAudio {
	return &fakeAudio{released: make(map[string]bool)}
}

func (f *fakeAudio) newHandle(prefix string) string {
	f.created++
	handle := fmt.Sprintf("%s-%d", prefix, f.created)
	f.issued = append(f.issued, handle)
	return handle
}

func (f *fakeAudio) ApplyTempo(ctx context.Context, handle string, factors []float64) (Segment, error) {
	if err := ctx.Err(); err != nil {
		return Segment{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	// The fake has no real durations per handle; tests that need duration
	// math use blocks whose rendered duration is derived from text length,
	// so tempo output duration is not tracked here.
	return Segment{Handle: f.newHandle("tempo")}, nil
}

func (f *fakeAudio) GenerateSilence(ctx context.Context, duration float64) (Segment, error) {
	if err := ctx.Err(); err != nil {
		return Segment{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return Segment{Handle: f.newHandle("silence"), Duration: duration}, nil
}

func (f *fakeAudio) Concatenate(ctx context.Context, handles []string) (Segment, error) {
	if err := ctx.Err(); err != nil {
		return Segment{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.concats = append(f.concats, append([]string(nil), handles...))
	return Segment{Handle: f.newHandle("track"), Duration: 100}, nil
}

func (f *fakeAudio) Release(handle string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released[handle] = true
}

func buildDistributedTimeline(t *testing.T, words int) Timeline {
	t.Helper()
	tl, err := Build([]Interval{{Start: 40, End: 50}}, 100, 2)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	tl, err = Distribute(tl, wordText(words))
	if err != nil {
		t.Fatalf("Distribute: %v", err)
	}
	return tl
}

func TestAssemblePreservesTimelineOrder(t *testing.T) {
	tl := buildDistributedTimeline(t, 90)
	synth := &fakeSynth{secondsPerWord: 1}
	audio := newFakeAudio()
	assembler := NewAssembler(DefaultAssemblerConfig(), synth, audio, nil)

	track, err := assembler.Assemble(context.Background(), tl)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if track.Handle == "" {
		t.Fatal("assembled track has no handle")
	}
	if len(audio.concats) != 1 {
		t.Fatalf("concatenate called %d times, want 1", len(audio.concats))
	}
	handles := audio.concats[0]
	if len(handles) != len(tl.Blocks) {
		t.Fatalf("concatenated %d segments, want %d", len(handles), len(tl.Blocks))
	}
	// Middle block is silence; its slot must hold a silence handle no matter
	// which synthesis finished first.
	if !strings.HasPrefix(handles[1], "silence-") {
		t.Errorf("slot 1 = %q, want a silence segment", handles[1])
	}
	for _, idx := range []int{0, 2} {
		if strings.HasPrefix(handles[idx], "silence-") {
			t.Errorf("slot %d = %q, want a rendered segment", idx, handles[idx])
		}
	}
}

func TestAssembleReleasesIntermediatesAfterConcat(t *testing.T) {
	tl := buildDistributedTimeline(t, 90)
	synth := &fakeSynth{secondsPerWord: 1}
	audio := newFakeAudio()
	assembler := NewAssembler(DefaultAssemblerConfig(), synth, audio, nil)

	track, err := assembler.Assemble(context.Background(), tl)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	for _, handles := range audio.concats {
		for _, handle := range handles {
			if !audio.released[handle] {
				t.Errorf("intermediate %q was not released", handle)
			}
		}
	}
	if audio.released[track.Handle] {
		t.Error("final track handle was released")
	}
}

func TestAssembleSkipsSynthesisForEmptyText(t *testing.T) {
	tl, err := Build([]Interval{{Start: 5, End: 10}}, 20, 2)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	tl, err = Distribute(tl, "")
	if err != nil {
		t.Fatalf("Distribute: %v", err)
	}

	synth := &fakeSynth{secondsPerWord: 1}
	audio := newFakeAudio()
	assembler := NewAssembler(DefaultAssemblerConfig(), synth, audio, nil)
	if _, err := assembler.Assemble(context.Background(), tl); err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(synth.calls) != 0 {
		t.Errorf("synthesize called %d times for empty text, want 0", len(synth.calls))
	}
}

func TestAssembleAttachesClampedTempoWarning(t *testing.T) {
	// One 10-word block rendered at 1s/word against a 2s target implies a 5x
	// speed-up, beyond the 4x stretch cap.
	tl := Timeline{
		TotalDuration: 2,
		Blocks:        []Block{{Kind: Speech, Start: 0, End: 2, Text: wordText(10)}},
	}
	synth := &fakeSynth{secondsPerWord: 1}
	audio := newFakeAudio()
	assembler := NewAssembler(DefaultAssemblerConfig(), synth, audio, nil)

	track, err := assembler.Assemble(context.Background(), tl)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	var found *Warning
	for i := range track.Warnings {
		if track.Warnings[i].Kind == WarnClampedTempo {
			found = &track.Warnings[i]
		}
	}
	if found == nil {
		t.Fatalf("warnings = %+v, want a clamped tempo warning", track.Warnings)
	}
	if found.BlockIndex != 0 {
		t.Errorf("warning block index = %d, want 0", found.BlockIndex)
	}
	if math.Abs(found.ActualDuration-10) > 1e-9 || math.Abs(found.TargetDuration-2) > 1e-9 {
		t.Errorf("warning durations = %.2f/%.2f, want 10/2", found.ActualDuration, found.TargetDuration)
	}
}

func TestAssembleWarnsOnDurationDrift(t *testing.T) {
	// fakeAudio reports every concatenated track as 100s; a 40s timeline is
	// far outside the tolerance.
	tl, err := Build(nil, 40, 2)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	tl, err = Distribute(tl, wordText(40))
	if err != nil {
		t.Fatalf("Distribute: %v", err)
	}
	synth := &fakeSynth{secondsPerWord: 1}
	audio := newFakeAudio()
	assembler := NewAssembler(DefaultAssemblerConfig(), synth, audio, nil)

	track, err := assembler.Assemble(context.Background(), tl)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	found := false
	for _, warning := range track.Warnings {
		if warning.Kind == WarnAssemblyDrift && warning.BlockIndex == -1 {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings = %+v, want assembly drift warning", track.Warnings)
	}
}

func TestAssembleCollaboratorFailureReleasesSegments(t *testing.T) {
	tl := buildDistributedTimeline(t, 90)
	synth := &fakeSynth{secondsPerWord: 1, failOnSubstring: "w89"}
	audio := newFakeAudio()
	assembler := NewAssembler(DefaultAssemblerConfig(), synth, audio, nil)

	_, err := assembler.Assemble(context.Background(), tl)
	if err == nil {
		t.Fatal("expected assembly to fail")
	}
	if len(audio.concats) != 0 {
		t.Error("concatenate was called after a collaborator failure")
	}
	audio.mu.Lock()
	defer audio.mu.Unlock()
	for _, handle := range audio.issued {
		if !audio.released[handle] {
			t.Errorf("segment %q was not released after failure", handle)
		}
	}
}

func TestAssembleHonorsCancellation(t *testing.T) {
	tl := buildDistributedTimeline(t, 90)
	synth := &fakeSynth{secondsPerWord: 1}
	audio := newFakeAudio()
	assembler := NewAssembler(DefaultAssemblerConfig(), synth, audio, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := assembler.Assemble(ctx, tl); !errors.Is(err, context.Canceled) {
		t.Fatalf("Assemble error = %v, want context.Canceled", err)
	}
	if len(synth.calls) != 0 {
		t.Errorf("synthesize called %d times after cancellation, want 0", len(synth.calls))
	}
}

// cancellingSynth cancels the run on its first call but still returns a valid
// segment, modelling a backend that outlives the caller's deadline.
type cancellingSynth struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	calls  int
}

func (s *cancellingSynth) Synthesize(ctx context.Context, text string) (Segment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.cancel()
	return Segment{
		Handle:   fmt.Sprintf("render-%d", s.calls),
		Duration: float64(len(strings.Fields(text))),
	}, nil
}

// laxConcatAudio concatenates without consulting the context, like a backend
// that has already buffered its inputs.
type laxConcatAudio struct {
	*fakeAudio
}

func (f *laxConcatAudio) Concatenate(_ context.Context, handles []string) (Segment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.concats = append(f.concats, append([]string(nil), handles...))
	return Segment{Handle: f.newHandle("track"), Duration: 100}, nil
}

func TestAssembleMidRunCancellationSkipsConcatenate(t *testing.T) {
	tl := buildDistributedTimeline(t, 90)
	audio := &laxConcatAudio{fakeAudio: newFakeAudio()}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	synth := &cancellingSynth{cancel: cancel}

	cfg := DefaultAssemblerConfig()
	cfg.Workers = 1
	assembler := NewAssembler(cfg, synth, audio, nil)

	_, err := assembler.Assemble(ctx, tl)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Assemble error = %v, want context.Canceled", err)
	}
	if len(audio.concats) != 0 {
		t.Error("concatenate was called over a partially filled timeline")
	}
	// The one segment rendered before cancellation must still be released.
	if !audio.released["render-1"] {
		t.Error("rendered segment was not released after cancellation")
	}
}

func TestAssembleBoundedConcurrencyFillsAllSlots(t *testing.T) {
	intervals := []Interval{
		{Start: 10, End: 15},
		{Start: 25, End: 30},
		{Start: 40, End: 45},
		{Start: 55, End: 60},
	}
	tl, err := Build(intervals, 80, 2)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	tl, err = Distribute(tl, wordText(60))
	if err != nil {
		t.Fatalf("Distribute: %v", err)
	}

	cfg := DefaultAssemblerConfig()
	cfg.Workers = 3
	synth := &fakeSynth{secondsPerWord: 1}
	audio := newFakeAudio()
	assembler := NewAssembler(cfg, synth, audio, nil)

	if _, err := assembler.Assemble(context.Background(), tl); err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	handles := audio.concats[0]
	for i, handle := range handles {
		if handle == "" {
			t.Errorf("slot %d is empty", i)
		}
	}
	if len(handles) != len(tl.Blocks) {
		t.Errorf("filled %d slots, want %d", len(handles), len(tl.Blocks))
	}
}
