package timeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
)

// DefaultDurationTolerance is the allowed drift, in seconds, between the
// assembled track and the original timeline before a warning is raised.
const DefaultDurationTolerance = 1.0

// DefaultSynthesisWorkers bounds concurrent per-block rendering.
const DefaultSynthesisWorkers = 2

// Segment is a rendered piece of audio owned by a collaborator: an opaque
// handle (typically a temp file path) plus its measured duration.
type Segment struct {
	Handle   string
	Duration float64
}

// Synthesizer renders speech for one block of translated text.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (Segment, error)
}

// AudioTransformer performs the audio-domain operations assembly needs.
// Implementations own the handles they return; Release frees a handle that
// is no longer referenced.
type AudioTransformer interface {
	ApplyTempo(ctx context.Context, handle string, factors []float64) (Segment, error)
	GenerateSilence(ctx context.Context, duration float64) (Segment, error)
	Concatenate(ctx context.Context, handles []string) (Segment, error)
	Release(handle string)
}

// WarningKind classifies non-fatal sync-quality warnings.
type WarningKind string

const (
	WarnClampedTempo  WarningKind = "clamped_tempo"
	WarnAssemblyDrift WarningKind = "assembly_drift"
)

// Warning records a non-fatal alignment defect. Warnings are returned with
// the assembled track, never as errors.
type Warning struct {
	Kind           WarningKind
	BlockIndex     int // -1 for track-level warnings
	TargetDuration float64
	ActualDuration float64
}

func (w Warning) String() string {
	if w.BlockIndex >= 0 {
		return fmt.Sprintf("%s: block %d rendered %.2fs for a %.2fs target",
			w.Kind, w.BlockIndex, w.ActualDuration, w.TargetDuration)
	}
	return fmt.Sprintf("%s: track is %.2fs, timeline expects %.2fs",
		w.Kind, w.ActualDuration, w.TargetDuration)
}

// AlignedTrack is the assembled output: one continuous audio handle, its
// duration, and any non-fatal warnings gathered along the way.
type AlignedTrack struct {
	Handle   string
	Duration float64
	Warnings []Warning
}

// AssemblerConfig tunes assembly behavior.
type AssemblerConfig struct {
	Plan              PlanConfig
	DurationTolerance float64
	Workers           int
}

// DefaultAssemblerConfig returns the stock assembly tuning.
func DefaultAssemblerConfig() AssemblerConfig {
	return AssemblerConfig{
		Plan:              DefaultPlanConfig(),
		DurationTolerance: DefaultDurationTolerance,
		Workers:           DefaultSynthesisWorkers,
	}
}

func (c AssemblerConfig) normalized() AssemblerConfig {
	c.Plan = c.Plan.normalized()
	if c.DurationTolerance <= 0 {
		c.DurationTolerance = DefaultDurationTolerance
	}
	if c.Workers <= 0 {
		c.Workers = DefaultSynthesisWorkers
	}
	return c
}

// Assembler drives per-block rendering and reassembles the results, in strict
// timeline order, into one duration-matched track.
type Assembler struct {
	cfg    AssemblerConfig
	synth  Synthesizer
	audio  AudioTransformer
	logger *slog.Logger
}

// NewAssembler constructs an assembler over the given collaborators.
func NewAssembler(cfg AssemblerConfig, synth Synthesizer, audio AudioTransformer, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.New(discardHandler{})
	}
	return &Assembler{cfg: cfg.normalized(), synth: synth, audio: audio, logger: logger}
}

// Assemble renders every block of the timeline and concatenates the segments
// into one track.
//
// Speech blocks with text are synthesized (with bounded concurrency), tempo
// adjusted toward the block duration, and placed in their timeline slot;
// silence blocks and empty speech blocks become exact-duration muted
// segments. Results land in index-partitioned slots, so concurrency affects
// only when a render completes, never where it appears. Any collaborator
// failure aborts the run and releases every segment rendered so far.
func (a *Assembler) Assemble(ctx context.Context, t Timeline) (AlignedTrack, error) {
	if a.synth == nil || a.audio == nil {
		return AlignedTrack{}, fmt.Errorf("assemble: synthesizer and audio transformer are required")
	}
	if len(t.Blocks) == 0 {
		return AlignedTrack{}, fmt.Errorf("assemble: empty timeline")
	}
	// Cancellation checkpoint: nothing has been rendered yet.
	if err := ctx.Err(); err != nil {
		return AlignedTrack{}, err
	}

	slots := make([]Segment, len(t.Blocks))
	warnSlots := make([][]Warning, len(t.Blocks))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		mu.Unlock()
	}

	jobs := make(chan int)
	workers := a.cfg.Workers
	if workers > len(t.Blocks) {
		workers = len(t.Blocks)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if runCtx.Err() != nil {
					continue
				}
				segment, warnings, err := a.renderBlock(runCtx, t.Blocks[idx], idx)
				if err != nil {
					fail(err)
					continue
				}
				slots[idx] = segment
				warnSlots[idx] = warnings
			}
		}()
	}
	for idx := range t.Blocks {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	// A cancellation with no collaborator error leaves skipped slots empty;
	// concatenating them would feed blank handles downstream.
	if firstErr == nil {
		firstErr = ctx.Err()
	}
	if firstErr != nil {
		a.releaseSegments(slots)
		return AlignedTrack{}, firstErr
	}

	handles := make([]string, len(slots))
	for i, segment := range slots {
		handles[i] = segment.Handle
	}
	track, err := a.audio.Concatenate(ctx, handles)
	if err != nil {
		a.releaseSegments(slots)
		return AlignedTrack{}, fmt.Errorf("assemble: concatenate: %w", err)
	}
	a.releaseSegments(slots)

	var warnings []Warning
	for _, blockWarnings := range warnSlots {
		warnings = append(warnings, blockWarnings...)
	}
	if drift := math.Abs(track.Duration - t.TotalDuration); drift > a.cfg.DurationTolerance {
		warning := Warning{
			Kind:           WarnAssemblyDrift,
			BlockIndex:     -1,
			TargetDuration: t.TotalDuration,
			ActualDuration: track.Duration,
		}
		warnings = append(warnings, warning)
		a.logger.Warn("assembled track drifted from timeline",
			slog.Float64("target_duration", t.TotalDuration),
			slog.Float64("actual_duration", track.Duration),
			slog.Float64("tolerance", a.cfg.DurationTolerance),
		)
	}

	return AlignedTrack{Handle: track.Handle, Duration: track.Duration, Warnings: warnings}, nil
}

// renderBlock produces the segment for one timeline slot.
func (a *Assembler) renderBlock(ctx context.Context, block Block, index int) (Segment, []Warning, error) {
	if block.Kind == Silence || block.Text == "" {
		segment, err := a.audio.GenerateSilence(ctx, block.Duration())
		if err != nil {
			return Segment{}, nil, fmt.Errorf("assemble: silence for block %d: %w", index, err)
		}
		return segment, nil, nil
	}

	rendered, err := a.synth.Synthesize(ctx, block.Text)
	if err != nil {
		return Segment{}, nil, fmt.Errorf("assemble: synthesize block %d: %w", index, err)
	}

	plan, err := PlanTempo(rendered.Duration, block.Duration(), a.cfg.Plan)
	if err != nil {
		a.audio.Release(rendered.Handle)
		return Segment{}, nil, fmt.Errorf("assemble: block %d: %w", index, err)
	}

	var warnings []Warning
	if plan.Clamped {
		warnings = append(warnings, Warning{
			Kind:           WarnClampedTempo,
			BlockIndex:     index,
			TargetDuration: block.Duration(),
			ActualDuration: rendered.Duration,
		})
		a.logger.Warn("tempo plan clamped",
			slog.Int("block", index),
			slog.Float64("rendered_duration", rendered.Duration),
			slog.Float64("target_duration", block.Duration()),
		)
	}
	if plan.Empty() {
		return rendered, warnings, nil
	}

	adjusted, err := a.audio.ApplyTempo(ctx, rendered.Handle, plan.Factors)
	if err != nil {
		a.audio.Release(rendered.Handle)
		return Segment{}, nil, fmt.Errorf("assemble: tempo for block %d: %w", index, err)
	}
	a.audio.Release(rendered.Handle)
	return adjusted, warnings, nil
}

func (a *Assembler) releaseSegments(segments []Segment) {
	for _, segment := range segments {
		if segment.Handle != "" {
			a.audio.Release(segment.Handle)
		}
	}
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return discardHandler{} }
func (discardHandler) WithGroup(string) slog.Handler             { return discardHandler{} }
