package synthesis

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"aivideodub/internal/config"
	"aivideodub/internal/queue"
	"aivideodub/internal/services"
	"aivideodub/internal/testsupport"
	"aivideodub/internal/timeline"
)

type fakeSpeech struct {
	calls int
	err   error
}

func (f *fakeSpeech) Synthesize(ctx context.Context, text, destPath string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(destPath, []byte("tts:"+text), 0o644)
}

type fakeProcessor struct {
	concatInputs []string
	tempoCalls   int
}

func (f *fakeProcessor) TranscodeSegment(ctx context.Context, source, dest string) error {
	data, err := os.ReadFile(source)
	if err != nil {
		return err
	}
	return os.WriteFile(dest, data, 0o644)
}

func (f *fakeProcessor) ApplyTempoChain(ctx context.Context, source string, factors []float64, dest string) error {
	f.tempoCalls++
	return os.WriteFile(dest, []byte("tempo"), 0o644)
}

func (f *fakeProcessor) GenerateSilence(ctx context.Context, seconds float64, dest string) error {
	return os.WriteFile(dest, []byte("silence"), 0o644)
}

func (f *fakeProcessor) Concatenate(ctx context.Context, inputs []string, dest string) error {
	f.concatInputs = append([]string(nil), inputs...)
	return os.WriteFile(dest, []byte("track"), 0o644)
}

// pathProbe returns durations keyed by the scratch file prefix.
func pathProbe(totalDuration float64) DurationProber {
	return func(ctx context.Context, binary, path string) (float64, error) {
		base := filepath.Base(path)
		switch {
		case strings.Contains(base, "track"):
			return totalDuration, nil
		case strings.Contains(base, "tempo"):
			return 10.0, nil
		default:
			return 8.0, nil
		}
	}
}

func newTranslatedItem(t *testing.T, cfg *config.Config, store *queue.Store) *queue.Item {
	t.Helper()
	item, err := store.NewURL(context.Background(), "https://example.com/v")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	item.TotalDuration = 30
	item.TranslatedText = "um dois tres quatro cinco seis sete oito nove dez"
	if err := item.SetSilenceIntervals([]timeline.Interval{{Start: 10, End: 20}}); err != nil {
		t.Fatalf("set intervals: %v", err)
	}
	return item
}

func TestExecuteProducesDubbedTrack(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.NewStore(t, cfg)
	item := newTranslatedItem(t, cfg, store)

	speech := &fakeSpeech{}
	processor := &fakeProcessor{}
	handler := NewSynthesizerWithDependencies(cfg, store, nil, speech, processor, pathProbe(30))

	if err := handler.Prepare(context.Background(), item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if item.DubbedAudio == "" {
		t.Fatal("dubbed audio not recorded")
	}
	if _, err := os.Stat(item.DubbedAudio); err != nil {
		t.Errorf("dubbed audio missing on disk: %v", err)
	}
	// Timeline is speech [0,10), silence [10,20), speech [20,30): two renders
	// and three concatenated slots with silence in the middle.
	if speech.calls != 2 {
		t.Errorf("speech calls = %d, want 2", speech.calls)
	}
	if len(processor.concatInputs) != 3 {
		t.Fatalf("concat inputs = %d, want 3", len(processor.concatInputs))
	}
	if !strings.Contains(filepath.Base(processor.concatInputs[1]), "silence") {
		t.Errorf("middle slot should be silence, got %q", processor.concatInputs[1])
	}
	// Rendered 8s against a 10s target is outside epsilon, so tempo ran.
	if processor.tempoCalls != 2 {
		t.Errorf("tempo calls = %d, want 2", processor.tempoCalls)
	}
}

func TestExecuteRequiresTranslatedText(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.NewStore(t, cfg)

	handler := NewSynthesizerWithDependencies(cfg, store, nil, &fakeSpeech{}, &fakeProcessor{}, pathProbe(30))
	err := handler.Execute(context.Background(), &queue.Item{ID: 5, TotalDuration: 30})
	if !errors.Is(err, services.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestExecuteAllSilenceRoutesToReview(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.NewStore(t, cfg)
	item := newTranslatedItem(t, cfg, store)
	if err := item.SetSilenceIntervals([]timeline.Interval{{Start: 0, End: 30}}); err != nil {
		t.Fatalf("set intervals: %v", err)
	}

	handler := NewSynthesizerWithDependencies(cfg, store, nil, &fakeSpeech{}, &fakeProcessor{}, pathProbe(30))
	err := handler.Execute(context.Background(), item)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if services.FailureStatus(err) != queue.StatusReview {
		t.Error("all-silence timeline should route to review")
	}
}

func TestExecuteWrapsSpeechFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.NewStore(t, cfg)
	item := newTranslatedItem(t, cfg, store)

	handler := NewSynthesizerWithDependencies(cfg, store, nil,
		&fakeSpeech{err: errors.New("tts down")}, &fakeProcessor{}, pathProbe(30))
	err := handler.Execute(context.Background(), item)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Errorf("expected external tool error, got %v", err)
	}
	if item.DubbedAudio != "" {
		t.Error("dubbed audio should not be set on failure")
	}
}
