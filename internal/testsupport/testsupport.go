// Package testsupport provides shared fixtures for package tests.
package testsupport

import (
	"testing"

	"aivideodub/internal/config"
	"aivideodub/internal/queue"
)

// NewConfig returns a validated config rooted in per-test temp directories.
func NewConfig(t *testing.T) *config.Config {
	t.Helper()
	defaults := config.Default()
	cfg := &defaults
	base := t.TempDir()
	cfg.Paths.StagingDir = base + "/staging"
	cfg.Paths.OutputDir = base + "/output"
	cfg.Paths.LogDir = base + "/logs"
	cfg.STT.APIKey = "test-key"
	cfg.Translate.APIKey = "test-key"
	cfg.TTS.APIKey = "test-key"
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate config: %v", err)
	}
	return cfg
}

// NewStore opens a queue store backed by the config's log directory and
// closes it when the test finishes.
func NewStore(t *testing.T, cfg *config.Config) *queue.Store {
	t.Helper()
	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store
}
