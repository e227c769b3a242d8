// Package workspace owns the transient on-disk artifacts of a dubbing job.
// Every stage writes into the item-scoped directory; per-run scratch files
// carry a unique run id so a retried stage never collides with leftovers
// from an interrupted attempt. Cleanup removes the whole directory
// regardless of how the run ended.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Workspace is the scoped working directory for one queue item.
type Workspace struct {
	// RunID uniquely names this processing attempt.
	RunID string
	Root  string
}

// New opens (creating if needed) the workspace for the given queue item and
// assigns a fresh run id for this attempt.
func New(stagingDir string, itemID int64) (*Workspace, error) {
	root := filepath.Join(stagingDir, fmt.Sprintf("item-%d", itemID))
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Workspace{RunID: uuid.NewString(), Root: root}, nil
}

// Path returns the absolute path for a durable artifact inside the
// workspace. Durable artifacts are referenced from queue items and survive
// between stages.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.Root, name)
}

// ScratchPath returns a path namespaced by the run id, for intermediates
// that must not collide with a previous attempt's leftovers.
func (w *Workspace) ScratchPath(name string) string {
	return filepath.Join(w.Root, fmt.Sprintf("%s-%s", w.RunID, name))
}

// Cleanup removes the workspace directory and everything in it.
func (w *Workspace) Cleanup() error {
	if w == nil || w.Root == "" {
		return nil
	}
	if err := os.RemoveAll(w.Root); err != nil {
		return fmt.Errorf("remove workspace: %w", err)
	}
	return nil
}
