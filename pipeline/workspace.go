package pipeline

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Sukudo1234/sudoai-mvp/storage"
)

// Workspace is the per-job temporary directory. Everything the pipeline
// downloads or produces locally lives under it, so releasing resources
// is a single recursive removal that runs on every exit path.
type Workspace struct {
	dir string
}

func newWorkspace(taskID string) (*Workspace, error) {
	dir, err := os.MkdirTemp("", "sudoai-"+storage.SanitizeFilename(taskID)+"-")
	if err != nil {
		return nil, fmt.Errorf("pipeline: create workspace: %w", err)
	}
	return &Workspace{dir: dir}, nil
}

// Dir returns the workspace root.
func (w *Workspace) Dir() string { return w.dir }

// Path returns the workspace-local path for a sanitized file name.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.dir, storage.SanitizeFilename(name))
}

// Mkdir creates a named subdirectory and returns its path.
func (w *Workspace) Mkdir(name string) (string, error) {
	dir := w.Path(name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("pipeline: create %s: %w", dir, err)
	}
	return dir, nil
}

// Cleanup removes the workspace and everything in it.
func (w *Workspace) Cleanup(logger *slog.Logger) {
	if err := os.RemoveAll(w.dir); err != nil {
		logger.Warn("workspace cleanup failed", "dir", w.dir, "error", err)
	}
}
