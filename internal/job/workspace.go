// Package job allocates the per-run identity and staging workspace.
package job

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/cododel/directus-alto/internal/store"
)

// Workspace is the isolated staging directory for one backup job. It is
// promoted into a record on success or swept into an error log on failure;
// it never outlives the run.
type Workspace struct {
	ID        string
	Path      string
	StartedAt time.Time
}

// NewID returns a job identifier unique with overwhelming probability.
// If the entropy source fails it degrades to a hash-of-timestamp token.
func NewID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		return fallbackID(time.Now())
	}
	return id.String()
}

// fallbackID derives a token from the current instant and pid. Weaker than
// a UUID but still unique across sequential cron runs.
func fallbackID(now time.Time) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%d-%d", now.UnixNano(), os.Getpid()))
	return hex.EncodeToString(sum[:16])
}

// Create allocates the staging directory temp_<id> under root. The
// directory exists before any data is written into it, so a crash earlier
// than this leaves no artifact behind.
func Create(root, id string, startedAt time.Time) (*Workspace, error) {
	path := filepath.Join(root, store.StagingPrefix+id)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create staging directory %q: %w", path, err)
	}
	return &Workspace{ID: id, Path: path, StartedAt: startedAt}, nil
}

// Remove deletes the staging directory and everything in it.
func (w *Workspace) Remove() error {
	return os.RemoveAll(w.Path)
}

// Exists reports whether the staging directory is still on disk. After a
// successful finalize the directory has been renamed away.
func (w *Workspace) Exists() bool {
	_, err := os.Stat(w.Path)
	return err == nil
}

// DumpPath is where the raw database dump is staged.
func (w *Workspace) DumpPath() string {
	return filepath.Join(w.Path, store.DumpName)
}

// UploadsPath is where the uploads tree is staged.
func (w *Workspace) UploadsPath() string {
	return filepath.Join(w.Path, store.UploadsName)
}
