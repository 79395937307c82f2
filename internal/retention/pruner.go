// Package retention prunes the backups root: abandoned staging areas,
// malformed record directories, aged-out and excess backups, and stale
// error logs. Pruning never fails the job that triggered it; every problem
// is logged and skipped.
package retention

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cododel/directus-alto/internal/logger"
	"github.com/cododel/directus-alto/internal/store"
)

// OrphanMaxAge is how long a staging directory may sit before it is
// considered abandoned by a crashed job.
const OrphanMaxAge = 24 * time.Hour

// Policy configures the pruner. Zero values disable the corresponding
// rule.
type Policy struct {
	// MaxAgeDays removes records older than this many days.
	MaxAgeDays int
	// MinCount is the floor of records that must survive pruning. It takes
	// precedence over age-based deletion, and when the count exceeds it
	// after the age pass, the oldest excess records are trimmed down to it.
	MinCount int
	// ErrorLogMaxAgeDays ages out diagnostic directories, independent of
	// record retention.
	ErrorLogMaxAgeDays int
}

// Summary reports what one pruning pass removed.
type Summary struct {
	OrphansRemoved   int
	MalformedRemoved int
	AgedOut          int
	ExcessRemoved    int
	ErrorLogsRemoved int
	Remaining        int
}

// Pruner applies a Policy to a backups root at a fixed instant.
type Pruner struct {
	root        string
	errorLogDir string
	policy      Policy
	now         time.Time
	log         logger.Logger
}

// New builds a Pruner. now is passed in rather than read from the clock so
// the timestamp override and tests see consistent cutoffs.
func New(root, errorLogDir string, policy Policy, now time.Time, log logger.Logger) *Pruner {
	return &Pruner{
		root:        root,
		errorLogDir: errorLogDir,
		policy:      policy,
		now:         now,
		log:         log,
	}
}

// Run executes the pruning passes in fixed order and returns a summary.
// It never returns an error: a backup that succeeded stays successful even
// when cleanup partially fails.
func (p *Pruner) Run() Summary {
	var sum Summary

	sum.OrphansRemoved = p.sweepOrphanStaging()
	sum.MalformedRemoved = p.sweepMalformed()

	records, err := store.List(p.root)
	if err != nil {
		p.log.Warn("retention: list records failed", "error", err.Error())
		return sum
	}
	count := len(records)

	if p.policy.MaxAgeDays > 0 {
		cutoff := p.now.AddDate(0, 0, -p.policy.MaxAgeDays)
		for _, rec := range records {
			if !rec.Time().Before(cutoff) {
				continue
			}
			if p.policy.MinCount > 0 && count <= p.policy.MinCount {
				// Deleting would drop below the floor; keep this one and
				// keep evaluating in case a later deletion frees room.
				continue
			}
			if p.remove(rec.Path, "aged-out record") {
				sum.AgedOut++
				count--
			}
		}
	}

	if p.policy.MinCount > 0 && count > p.policy.MinCount {
		remaining, err := store.List(p.root)
		if err != nil {
			p.log.Warn("retention: relist records failed", "error", err.Error())
			sum.Remaining = count
			return sum
		}
		for _, rec := range remaining {
			if count <= p.policy.MinCount {
				break
			}
			if p.remove(rec.Path, "excess record") {
				sum.ExcessRemoved++
				count--
			}
		}
	}
	sum.Remaining = count

	sum.ErrorLogsRemoved = p.sweepErrorLogs()
	return sum
}

// sweepOrphanStaging removes temp_ directories abandoned by crashed jobs.
// Fresh staging areas are left alone so a concurrent in-flight job is not
// destroyed.
func (p *Pruner) sweepOrphanStaging() int {
	entries, err := os.ReadDir(p.root)
	if err != nil {
		if !os.IsNotExist(err) {
			p.log.Warn("retention: read backups root failed", "error", err.Error())
		}
		return 0
	}

	removed := 0
	cutoff := p.now.Add(-OrphanMaxAge)
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), store.StagingPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if p.remove(filepath.Join(p.root, e.Name()), "orphaned staging directory") {
			removed++
		}
	}
	return removed
}

// sweepMalformed removes directories that look like records but fail the
// strict name pattern. They are incomplete or corrupt and must never be
// counted toward retention.
func (p *Pruner) sweepMalformed() int {
	entries, err := os.ReadDir(p.root)
	if err != nil {
		return 0
	}

	removed := 0
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || !strings.HasPrefix(name, store.RecordPrefix) {
			continue
		}
		if name == store.LatestName {
			continue
		}
		if _, ok := store.ParseRecordName(p.root, name); ok {
			continue
		}
		if p.remove(filepath.Join(p.root, name), "malformed record directory") {
			removed++
		}
	}
	return removed
}

// sweepErrorLogs ages out diagnostic directories.
func (p *Pruner) sweepErrorLogs() int {
	if p.policy.ErrorLogMaxAgeDays <= 0 {
		return 0
	}
	entries, err := os.ReadDir(p.errorLogDir)
	if err != nil {
		if !os.IsNotExist(err) {
			p.log.Warn("retention: read error log dir failed", "error", err.Error())
		}
		return 0
	}

	removed := 0
	cutoff := p.now.AddDate(0, 0, -p.policy.ErrorLogMaxAgeDays)
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), store.ErrorPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if p.remove(filepath.Join(p.errorLogDir, e.Name()), "stale error log") {
			removed++
		}
	}
	return removed
}

// remove deletes a directory tree, logging instead of failing.
func (p *Pruner) remove(path, what string) bool {
	if err := os.RemoveAll(path); err != nil {
		p.log.Warn("retention: remove failed",
			"kind", what,
			"path", path,
			"error", err.Error(),
		)
		return false
	}
	p.log.Info("retention: removed", "kind", what, "path", path)
	return true
}
