// Package workspace owns the per-run scratch directory. Every intermediate
// clip, merge and audio file lives inside it and is removed by Close.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/alver/memory-ball-video/internal/logging"
	"github.com/alver/memory-ball-video/pkg/util"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Workspace is the scratch area of a single run
type Workspace struct {
	ID  string
	Dir string

	logger   zerolog.Logger
	rendered atomic.Int64
	merged   atomic.Int64
	closed   atomic.Bool
}

// Progress is a snapshot of the run counters
type Progress struct {
	Rendered int
	Merged   int
}

// New creates a fresh scratch directory under parent. An empty parent uses
// the system temp directory.
func New(parent string, logger zerolog.Logger) (*Workspace, error) {
	if parent == "" {
		parent = os.TempDir()
	}
	if err := util.EnsureDir(parent); err != nil {
		return nil, fmt.Errorf("failed to create temp parent %s: %w", parent, err)
	}

	id := uuid.NewString()
	dir, err := os.MkdirTemp(parent, "memoryball-"+id[:8]+"-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}

	ws := &Workspace{
		ID:     id,
		Dir:    dir,
		logger: logging.WithComponent(logger, "workspace").With().Str("run", id).Logger(),
	}
	ws.logger.Debug().Str("dir", dir).Msg("scratch directory created")
	return ws, nil
}

// Path returns the scratch path for name
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.Dir, name)
}

// ClipPath names the rendered clip for list position i
func (w *Workspace) ClipPath(i int) string {
	return w.Path(fmt.Sprintf("clip_%04d.mp4", i))
}

// MergePath names the output of pair i in the given round
func (w *Workspace) MergePath(round, i int) string {
	return w.Path(fmt.Sprintf("merge_r%d_%04d.mp4", round, i))
}

// Release deletes intermediate files that are no longer referenced
func (w *Workspace) Release(paths ...string) {
	util.CleanupFiles(paths...)
}

// MarkRendered records a finished still render
func (w *Workspace) MarkRendered() int {
	return int(w.rendered.Add(1))
}

// MarkMerged records a finished merge
func (w *Workspace) MarkMerged() int {
	return int(w.merged.Add(1))
}

// Progress returns the current counters
func (w *Workspace) Progress() Progress {
	return Progress{
		Rendered: int(w.rendered.Load()),
		Merged:   int(w.merged.Load()),
	}
}

// Close removes the scratch directory and everything in it. It is safe to
// call more than once.
func (w *Workspace) Close() error {
	if !w.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := os.RemoveAll(w.Dir); err != nil {
		w.logger.Error().Err(err).Str("dir", w.Dir).Msg("failed to remove scratch directory")
		return err
	}
	w.logger.Debug().Str("dir", w.Dir).Msg("scratch directory removed")
	return nil
}
