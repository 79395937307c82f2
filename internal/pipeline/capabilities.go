package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/cododel/directus-alto/internal/job"
)

// ErrPreflight marks a fatal pre-flight failure: nothing has been mutated
// yet, so no diagnostic directory is produced.
var ErrPreflight = errors.New("preflight check failed")

// Capabilities is the immutable record produced by the preflight step.
// Later stages consume it instead of re-probing availability.
type Capabilities struct {
	// Compression reports whether the dump will be gzipped. Level 0
	// disables it; the job still succeeds with a raw dump.
	Compression bool
	// NewID generates job identifiers, already bound to its fallback.
	NewID func() string
}

// preflight verifies everything the job needs before any persistent state
// is touched: the container runtime answers, the uploads source is
// readable, and the backups root can be created.
func (p *Pipeline) preflight(ctx context.Context) (Capabilities, error) {
	caps := Capabilities{
		Compression: p.cfg.CompressionEnabled(),
		NewID:       job.NewID,
	}

	if err := p.engine.Ping(ctx); err != nil {
		return caps, fmt.Errorf("%w: %v", ErrPreflight, err)
	}

	f, err := os.Open(p.cfg.UploadsDir)
	if err != nil {
		return caps, fmt.Errorf("%w: uploads source unreadable: %v", ErrPreflight, err)
	}
	info, err := f.Stat()
	f.Close()
	if err != nil {
		return caps, fmt.Errorf("%w: uploads source unreadable: %v", ErrPreflight, err)
	}
	if !info.IsDir() {
		return caps, fmt.Errorf("%w: uploads source %q is not a directory", ErrPreflight, p.cfg.UploadsDir)
	}

	if err := os.MkdirAll(p.cfg.BackupDir, 0o755); err != nil {
		return caps, fmt.Errorf("%w: backups root: %v", ErrPreflight, err)
	}

	if !caps.Compression {
		p.log.Warn("compression disabled, dump will be stored raw")
	}
	return caps, nil
}
