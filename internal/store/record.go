// Package store defines the on-disk layout of the backups root: finalized
// backup records, the latest pointer, staging areas and error logs. The
// layout is compatible with restores taken by the original shell tooling.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"
)

const (
	// RecordPrefix starts every finalized backup directory name.
	RecordPrefix = "backup_"
	// StagingPrefix starts every transient job workspace name.
	StagingPrefix = "temp_"
	// ErrorPrefix starts every diagnostic directory name.
	ErrorPrefix = "error_"
	// LatestName is the symlink pointing at the newest record.
	LatestName = "backup_latest"

	// DumpName is the raw database dump inside a record.
	DumpName = "db_backup.sql"
	// DumpNameGz is the compressed variant.
	DumpNameGz = "db_backup.sql.gz"
	// UploadsName is the synchronized file tree inside a record.
	UploadsName = "uploads"
)

// ErrNoDump indicates a record without a dump artifact in either format.
var ErrNoDump = errors.New("record contains no database dump")

// recordName enforces the strict record pattern: a human-readable date,
// then the unix timestamp as the final underscore-separated field.
var recordName = regexp.MustCompile(`^backup_(.+)_([0-9]+)$`)

// Record is one finalized, immutable backup: a dump artifact plus an
// uploads snapshot, named after both timestamp forms so lexicographic and
// chronological order agree.
type Record struct {
	Name  string
	Path  string
	Human string
	Unix  int64
}

// NewRecord builds the record identity for the given instant.
func NewRecord(root string, ts time.Time, dateFormat string) Record {
	human := ts.Format(dateFormat)
	name := fmt.Sprintf("%s%s_%d", RecordPrefix, human, ts.Unix())
	return Record{
		Name:  name,
		Path:  filepath.Join(root, name),
		Human: human,
		Unix:  ts.Unix(),
	}
}

// ParseRecordName parses a directory name into a Record, reporting whether
// it matches the strict record pattern.
func ParseRecordName(root, name string) (Record, bool) {
	m := recordName.FindStringSubmatch(name)
	if m == nil {
		return Record{}, false
	}
	unix, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return Record{}, false
	}
	return Record{
		Name:  name,
		Path:  filepath.Join(root, name),
		Human: m[1],
		Unix:  unix,
	}, true
}

// Time returns the record's creation instant.
func (r Record) Time() time.Time {
	return time.Unix(r.Unix, 0)
}

// DumpPath locates the dump artifact, compressed or raw, and reports
// whether it is gzipped.
func (r Record) DumpPath() (path string, compressed bool, err error) {
	gz := filepath.Join(r.Path, DumpNameGz)
	if _, err := os.Stat(gz); err == nil {
		return gz, true, nil
	}
	raw := filepath.Join(r.Path, DumpName)
	if _, err := os.Stat(raw); err == nil {
		return raw, false, nil
	}
	return "", false, fmt.Errorf("%w: %s", ErrNoDump, r.Name)
}

// UploadsPath returns the record's uploads snapshot directory.
func (r Record) UploadsPath() string {
	return filepath.Join(r.Path, UploadsName)
}

// List enumerates the valid records under root, oldest first. Entries
// matching the record prefix but failing the strict pattern are ignored
// here; the pruner removes them.
func List(root string) ([]Record, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read backups root %q: %w", root, err)
	}

	var records []Record
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if rec, ok := ParseRecordName(root, e.Name()); ok {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Unix < records[j].Unix
	})
	return records, nil
}
