package pipeline

import (
	"fmt"
	"os"
	"time"

	"github.com/cododel/directus-alto/internal/job"
	"github.com/cododel/directus-alto/internal/store"
)

// finalize promotes the staging directory into a permanently named record
// and repoints the latest symlink. A failure partway leaves whatever still
// exists of the staging directory intact for the error recorder.
func (p *Pipeline) finalize(ws *job.Workspace, now time.Time) (store.Record, error) {
	rec := store.NewRecord(p.cfg.BackupDir, now, p.cfg.DateFormat)

	if _, err := os.Stat(rec.Path); err == nil {
		return store.Record{}, fmt.Errorf("record %q already exists", rec.Name)
	}
	if err := os.Rename(ws.Path, rec.Path); err != nil {
		return store.Record{}, fmt.Errorf("promote staging to record: %w", err)
	}
	if err := store.SetLatest(p.cfg.BackupDir, rec); err != nil {
		return store.Record{}, fmt.Errorf("update latest pointer: %w", err)
	}
	return rec, nil
}
