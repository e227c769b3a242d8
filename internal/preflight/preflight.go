// Package preflight verifies the environment before the daemon starts
// processing: directories, disk headroom, external binaries, and the
// speech and translation APIs.
package preflight

import (
	"context"

	"aivideodub/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDiskSpace("Staging disk space", cfg.Paths.StagingDir, minStagingBytes),
		CheckSTT(ctx, cfg.STT),
		CheckTranslate(ctx, cfg.Translate),
		CheckTTS(ctx, cfg.TTS),
	}
	return results
}
