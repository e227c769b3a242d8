package muxing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"aivideodub/internal/config"
	"aivideodub/internal/queue"
	"aivideodub/internal/services"
	"aivideodub/internal/testsupport"
)

type fakeMuxer struct {
	replaceErr  error
	adjustCalls int
}

func (f *fakeMuxer) ReplaceAudio(ctx context.Context, video, audio, dest string) error {
	if f.replaceErr != nil {
		return f.replaceErr
	}
	return os.WriteFile(dest, []byte("muxed"), 0o644)
}

func (f *fakeMuxer) AdjustDuration(ctx context.Context, source string, targetSeconds float64, dest string) error {
	f.adjustCalls++
	return os.WriteFile(dest, []byte("adjusted"), 0o644)
}

func fixedProbe(duration float64) DurationProber {
	return func(ctx context.Context, binary, path string) (float64, error) {
		return duration, nil
	}
}

func newSynthesizedItem(t *testing.T, cfg *config.Config, store *queue.Store) *queue.Item {
	t.Helper()
	dir := t.TempDir()
	video := filepath.Join(dir, "clip.mp4")
	dubbed := filepath.Join(dir, "dubbed.wav")
	for _, path := range []string{video, dubbed} {
		if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
			t.Fatalf("write fixture: %v", err)
		}
	}
	item, err := store.NewFile(context.Background(), video)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	item.DubbedAudio = dubbed
	item.TotalDuration = 60
	return item
}

func TestExecuteDeliversFinalFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.NewStore(t, cfg)
	item := newSynthesizedItem(t, cfg, store)

	muxer := &fakeMuxer{}
	handler := NewMuxerWithDependencies(cfg, store, nil, muxer, fixedProbe(60))

	if err := handler.Prepare(context.Background(), item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if item.FinalFile == "" {
		t.Fatal("final file not recorded")
	}
	if filepath.Dir(item.FinalFile) != cfg.Paths.OutputDir {
		t.Errorf("final file outside output dir: %q", item.FinalFile)
	}
	if _, err := os.Stat(item.FinalFile); err != nil {
		t.Errorf("final file missing: %v", err)
	}
	if muxer.adjustCalls != 0 {
		t.Errorf("duration within tolerance should not adjust, got %d calls", muxer.adjustCalls)
	}
	// Workspace should be gone after delivery.
	wsRoot := filepath.Join(cfg.Paths.StagingDir, "item-1")
	if _, err := os.Stat(wsRoot); !os.IsNotExist(err) {
		t.Errorf("workspace should be cleaned up, stat err = %v", err)
	}
}

func TestExecuteCorrectsDriftedDuration(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.NewStore(t, cfg)
	item := newSynthesizedItem(t, cfg, store)

	muxer := &fakeMuxer{}
	// Muxed result probes 5 seconds short of the 60 second target.
	handler := NewMuxerWithDependencies(cfg, store, nil, muxer, fixedProbe(55))
	if err := handler.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if muxer.adjustCalls != 1 {
		t.Errorf("adjust calls = %d, want 1", muxer.adjustCalls)
	}
	data, err := os.ReadFile(item.FinalFile)
	if err != nil {
		t.Fatalf("read final: %v", err)
	}
	if string(data) != "adjusted" {
		t.Errorf("final content = %q, want adjusted output", data)
	}
}

func TestExecuteRequiresInputs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.NewStore(t, cfg)

	handler := NewMuxerWithDependencies(cfg, store, nil, &fakeMuxer{}, fixedProbe(60))
	err := handler.Execute(context.Background(), &queue.Item{ID: 9})
	if !errors.Is(err, services.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestExecuteWrapsMuxFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.NewStore(t, cfg)
	item := newSynthesizedItem(t, cfg, store)

	handler := NewMuxerWithDependencies(cfg, store, nil, &fakeMuxer{replaceErr: errors.New("codec mismatch")}, fixedProbe(60))
	err := handler.Execute(context.Background(), item)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Errorf("expected external tool error, got %v", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Plain Title", "Plain Title"},
		{"a/b\\c:d", "a-b-c-d"},
		{`what? "quotes" <here>`, "what quotes here"},
		{"   ", "dubbed"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
