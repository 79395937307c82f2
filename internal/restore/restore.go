// Package restore loads a backup record back into the running deployment:
// the database dump through psql inside the container, the uploads
// snapshot over the live uploads tree.
package restore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/cododel/directus-alto/internal/config"
	"github.com/cododel/directus-alto/internal/logger"
	"github.com/cododel/directus-alto/internal/pipeline"
	"github.com/cododel/directus-alto/internal/store"
	"github.com/cododel/directus-alto/internal/syncer"
)

// ErrNoRecord indicates the requested record directory does not exist or
// does not match the record naming convention.
var ErrNoRecord = errors.New("backup record not found")

// Restorer applies backup records to a deployment.
type Restorer struct {
	cfg    config.Config
	engine pipeline.Engine
	log    logger.Logger
}

// New builds a Restorer.
func New(cfg config.Config, engine pipeline.Engine, log logger.Logger) *Restorer {
	return &Restorer{cfg: cfg, engine: engine, log: log}
}

// Restore loads the record at recordPath. An empty recordPath selects the
// record behind the latest pointer of the configured backups root.
func (r *Restorer) Restore(ctx context.Context, recordPath string) error {
	rec, err := r.resolve(recordPath)
	if err != nil {
		return err
	}
	r.log.Info("restore started", "record", rec.Name)

	if err := r.restoreDatabase(ctx, rec); err != nil {
		return fmt.Errorf("database restore: %w", err)
	}
	if err := r.restoreUploads(rec); err != nil {
		return fmt.Errorf("uploads restore: %w", err)
	}

	r.log.Info("restore completed", "record", rec.Name)
	return nil
}

// SyncFrom restores this environment from the latest record of another
// environment's backups root.
func (r *Restorer) SyncFrom(ctx context.Context, sourceRoot string) error {
	rec, err := store.Latest(sourceRoot)
	if err != nil {
		return fmt.Errorf("source environment: %w", err)
	}
	r.log.Info("environment sync started", "source_root", sourceRoot, "record", rec.Name)
	return r.Restore(ctx, rec.Path)
}

func (r *Restorer) resolve(recordPath string) (store.Record, error) {
	if recordPath == "" {
		rec, err := store.Latest(r.cfg.BackupDir)
		if err != nil {
			return store.Record{}, fmt.Errorf("%w: %v", ErrNoRecord, err)
		}
		return rec, nil
	}

	abs, err := filepath.Abs(recordPath)
	if err != nil {
		return store.Record{}, err
	}
	rec, ok := store.ParseRecordName(filepath.Dir(abs), filepath.Base(abs))
	if !ok {
		return store.Record{}, fmt.Errorf("%w: %q is not a record directory", ErrNoRecord, recordPath)
	}
	if info, err := os.Stat(rec.Path); err != nil || !info.IsDir() {
		return store.Record{}, fmt.Errorf("%w: %s", ErrNoRecord, rec.Path)
	}
	return rec, nil
}

// restoreDatabase streams the dump artifact, gunzipping on the fly when
// needed, into psql inside the database container.
func (r *Restorer) restoreDatabase(ctx context.Context, rec store.Record) error {
	dumpPath, compressed, err := rec.DumpPath()
	if err != nil {
		return err
	}

	f, err := os.Open(dumpPath)
	if err != nil {
		return fmt.Errorf("open dump artifact: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f
	if compressed {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("open gzip stream: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	cmd := []string{
		"psql",
		"-U", r.cfg.DBUser,
		"-d", r.cfg.DBName,
		"-v", "ON_ERROR_STOP=1",
		"--quiet",
	}
	var env []string
	if r.cfg.DBPassword != "" {
		env = append(env, "PGPASSWORD="+r.cfg.DBPassword)
	}

	var stderr bytes.Buffer
	start := time.Now()
	code, err := r.engine.Exec(ctx, r.cfg.DBContainer, cmd, env, reader, io.Discard, &stderr)
	if err != nil {
		return err
	}
	if code != 0 {
		return fmt.Errorf("psql exited with code %d: %s", code, stderr.String())
	}

	r.log.Info("database restored",
		"artifact", filepath.Base(dumpPath),
		"compressed", compressed,
		"duration", time.Since(start).String(),
	)
	return nil
}

// restoreUploads replaces the live uploads tree with the record snapshot.
// A record without an uploads snapshot leaves the live tree alone.
func (r *Restorer) restoreUploads(rec store.Record) error {
	src := rec.UploadsPath()
	if info, err := os.Stat(src); err != nil || !info.IsDir() {
		r.log.Warn("record has no uploads snapshot, skipping", "record", rec.Name)
		return nil
	}

	if err := os.RemoveAll(r.cfg.UploadsDir); err != nil {
		return fmt.Errorf("clear uploads tree: %w", err)
	}
	stats, err := syncer.Mirror(src, r.cfg.UploadsDir, "")
	if err != nil {
		return err
	}
	r.log.Info("uploads restored", "files", stats.Copied)
	return nil
}
