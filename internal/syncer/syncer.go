// Package syncer mirrors the uploads tree into a staging area, reusing
// unchanged files from the previous backup through filesystem hardlinks.
// The cost of a run is proportional to the changed files, not the tree
// size, which keeps frequent backups of large mostly-static trees cheap.
package syncer

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Stats summarizes one mirror pass.
type Stats struct {
	Linked int
	Copied int
}

// Mirror copies the tree at src into dst, which must not exist yet or be
// empty. When base is non-empty it points at the uploads snapshot of the
// previous record: files whose size and mtime are unchanged become
// hardlinks into that snapshot, everything else is copied fresh. Files
// absent from src are simply never created, giving mirror semantics.
func Mirror(src, dst, base string) (Stats, error) {
	var stats Stats

	srcInfo, err := os.Stat(src)
	if err != nil {
		return stats, fmt.Errorf("source tree %q: %w", src, err)
	}
	if !srcInfo.IsDir() {
		return stats, fmt.Errorf("source tree %q is not a directory", src)
	}

	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walk %q: %w", path, err)
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case d.IsDir():
			info, err := d.Info()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(target, info.Mode().Perm()); err != nil {
				return fmt.Errorf("create directory %q: %w", target, err)
			}
			return nil

		case d.Type()&fs.ModeSymlink != 0:
			dest, err := os.Readlink(path)
			if err != nil {
				return fmt.Errorf("read symlink %q: %w", path, err)
			}
			if err := os.Symlink(dest, target); err != nil {
				return fmt.Errorf("recreate symlink %q: %w", target, err)
			}
			return nil

		case d.Type().IsRegular():
			info, err := d.Info()
			if err != nil {
				return err
			}
			if base != "" {
				prev := filepath.Join(base, rel)
				if linkUnchanged(prev, target, info) {
					stats.Linked++
					return nil
				}
			}
			if err := copyFile(path, target, info); err != nil {
				return err
			}
			stats.Copied++
			return nil

		default:
			// Sockets, devices and the like do not belong in an uploads
			// tree; skip them rather than fail the job.
			return nil
		}
	})
	if err != nil {
		return stats, err
	}
	return stats, nil
}

// linkUnchanged hardlinks prev to target when prev matches the source
// file's size and mtime. A failed link (cross-device, permissions) falls
// back to a copy by reporting false.
func linkUnchanged(prev, target string, srcInfo fs.FileInfo) bool {
	prevInfo, err := os.Stat(prev)
	if err != nil || !prevInfo.Mode().IsRegular() {
		return false
	}
	if prevInfo.Size() != srcInfo.Size() || !prevInfo.ModTime().Equal(srcInfo.ModTime()) {
		return false
	}
	return os.Link(prev, target) == nil
}

// copyFile copies src to dst preserving mode and mtime. The mtime matters:
// it is what lets the next run hardlink this file again.
func copyFile(src, dst string, info fs.FileInfo) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %q: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create %q: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %q: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %q: %w", dst, err)
	}

	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return fmt.Errorf("preserve mtime on %q: %w", dst, err)
	}
	return nil
}
