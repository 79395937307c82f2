package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNoLatest indicates no backup has ever been finalized under this root.
var ErrNoLatest = errors.New("no latest backup pointer")

// Latest resolves the latest pointer to its record. The pointer is stored
// as a relative symlink so the backups root can be moved wholesale.
func Latest(root string) (Record, error) {
	link := filepath.Join(root, LatestName)
	target, err := os.Readlink(link)
	if err != nil {
		if os.IsNotExist(err) {
			return Record{}, ErrNoLatest
		}
		return Record{}, fmt.Errorf("read latest pointer: %w", err)
	}

	name := filepath.Base(target)
	rec, ok := ParseRecordName(root, name)
	if !ok {
		return Record{}, fmt.Errorf("latest pointer targets non-record %q", target)
	}
	if _, err := os.Stat(rec.Path); err != nil {
		return Record{}, fmt.Errorf("latest pointer target missing: %w", err)
	}
	return rec, nil
}

// SetLatest repoints the latest symlink at rec. The symlink is created
// under a temporary name and renamed into place, the closest available
// approximation to an atomic swap.
func SetLatest(root string, rec Record) error {
	link := filepath.Join(root, LatestName)
	tmp := link + ".tmp"

	_ = os.Remove(tmp)
	if err := os.Symlink(rec.Name, tmp); err != nil {
		return fmt.Errorf("create latest symlink: %w", err)
	}
	if err := os.Rename(tmp, link); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("swap latest symlink: %w", err)
	}
	return nil
}
