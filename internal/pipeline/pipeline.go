// Package pipeline drives one backup job through its stages: preflight,
// workspace allocation, database dump, uploads sync, compression,
// finalization and retention pruning. Stages return errors and the driver
// short-circuits; the error recorder runs as a deferred block so a failed
// job always leaves a diagnostic directory instead of a staging one.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cododel/directus-alto/internal/config"
	"github.com/cododel/directus-alto/internal/job"
	"github.com/cododel/directus-alto/internal/logger"
	"github.com/cododel/directus-alto/internal/retention"
	"github.com/cododel/directus-alto/internal/store"
	"github.com/cododel/directus-alto/internal/syncer"
)

// Engine is the container runtime surface the pipeline needs: liveness and
// command execution inside the database container.
type Engine interface {
	Ping(ctx context.Context) error
	Exec(
		ctx context.Context,
		containerName string,
		cmd []string,
		env []string,
		stdin io.Reader,
		stdout, stderr io.Writer,
	) (int, error)
}

// ErrEmptyDump covers both a failed dump command and a zero-byte dump
// file. A zero-byte file is indistinguishable from total data loss and
// must never become a backup record.
var ErrEmptyDump = errors.New("empty or invalid database dump")

// Pipeline runs backup jobs against one configuration.
type Pipeline struct {
	cfg    config.Config
	engine Engine
	log    logger.Logger
}

// New builds a Pipeline.
func New(cfg config.Config, engine Engine, log logger.Logger) *Pipeline {
	return &Pipeline{cfg: cfg, engine: engine, log: log}
}

// Run executes one backup job. On success exactly one new record exists
// and the latest pointer references it. On failure no record is created,
// the previous pointer is untouched, and a diagnostic directory is left
// for postmortem.
func (p *Pipeline) Run(ctx context.Context) (err error) {
	now := p.cfg.Now()

	caps, err := p.preflight(ctx)
	if err != nil {
		return fmt.Errorf("preflight: %w", err)
	}

	ws, err := job.Create(p.cfg.BackupDir, caps.NewID(), now)
	if err != nil {
		return fmt.Errorf("allocate workspace: %w", err)
	}
	p.log.Info("job started", "job_id", ws.ID, "staging", ws.Path)

	// Guaranteed cleanup: capture diagnostics on failure, and never leave
	// a staging directory behind either way.
	defer func() {
		if err != nil {
			p.recordFailure(ws, err)
		} else if ws.Exists() {
			_ = ws.Remove()
		}
	}()

	dumpPath, err := p.produceDump(ctx, ws)
	if err != nil {
		return fmt.Errorf("database dump: %w", err)
	}

	if err = p.syncUploads(ws); err != nil {
		return fmt.Errorf("uploads sync: %w", err)
	}

	// Compression is a soft stage: failure changes the stored format, not
	// the outcome.
	p.compressDump(dumpPath, caps)

	rec, err := p.finalize(ws, now)
	if err != nil {
		return fmt.Errorf("finalize: %w", err)
	}
	p.log.Info("backup finalized", "record", rec.Name, "job_id", ws.ID)

	pruner := retention.New(p.cfg.BackupDir, p.cfg.ErrorLogDir, retention.Policy{
		MaxAgeDays:         p.cfg.RetentionDays,
		MinCount:           p.cfg.MinBackups,
		ErrorLogMaxAgeDays: p.cfg.ErrorLogRetentionDays,
	}, now, p.log)
	sum := pruner.Run()
	p.log.Info("retention pass complete",
		"aged_out", sum.AgedOut,
		"excess_removed", sum.ExcessRemoved,
		"orphans_removed", sum.OrphansRemoved,
		"malformed_removed", sum.MalformedRemoved,
		"error_logs_removed", sum.ErrorLogsRemoved,
		"remaining", sum.Remaining,
	)

	return nil
}

// syncUploads mirrors the uploads tree into staging, hardlinking against
// the previous record's snapshot when one exists.
func (p *Pipeline) syncUploads(ws *job.Workspace) error {
	base := ""
	if prev, err := store.Latest(p.cfg.BackupDir); err == nil {
		base = prev.UploadsPath()
	} else if !errors.Is(err, store.ErrNoLatest) {
		p.log.Warn("latest pointer unreadable, full copy", "error", err.Error())
	}

	dst := ws.UploadsPath()
	stats, err := syncer.Mirror(p.cfg.UploadsDir, dst, base)
	if err != nil {
		return err
	}
	p.log.Info("uploads synchronized",
		"copied", stats.Copied,
		"linked", stats.Linked,
		"incremental", base != "",
	)
	return nil
}
