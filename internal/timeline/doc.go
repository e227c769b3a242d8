// Package timeline implements the temporal alignment engine used by the
// synthesis stage.
//
// The engine re-times synthesized speech so the dubbed track matches the
// speech/silence structure and total duration of the original recording:
//
//   - Build reconstructs a gap-free sequence of speech and silence blocks
//     from structured silence intervals.
//   - Distribute allocates the translated text across speech blocks in
//     proportion to each block's share of the total speech time.
//   - PlanTempo decomposes the rendered-vs-target duration ratio into a
//     chain of bounded tempo factors.
//   - Assembler renders each block through its collaborators and
//     concatenates the results, with silence padding, into one track.
//
// The package never touches audio itself. Rendering, tempo transforms,
// silence generation, and concatenation are performed by collaborators
// passed in through narrow interfaces; the engine only sequences them and
// enforces the timing invariants.
package timeline
