package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cododel/directus-alto/internal/compress"
	"github.com/cododel/directus-alto/internal/job"
)

// DumpStderrName is the pg_dump diagnostic capture inside staging. It ends
// in .log so the error recorder picks it up.
const DumpStderrName = "pg_dump.log"

// produceDump runs pg_dump inside the database container, streaming stdout
// into the staging dump file and stderr into a diagnostic log. A non-zero
// exit and a zero-byte dump are the same failure class.
func (p *Pipeline) produceDump(ctx context.Context, ws *job.Workspace) (string, error) {
	dumpPath := ws.DumpPath()

	out, err := os.Create(dumpPath)
	if err != nil {
		return "", fmt.Errorf("create dump file: %w", err)
	}
	defer out.Close()

	errLog, err := os.Create(filepath.Join(ws.Path, DumpStderrName))
	if err != nil {
		return "", fmt.Errorf("create dump stderr log: %w", err)
	}
	defer errLog.Close()

	cmd := []string{
		"pg_dump",
		"-U", p.cfg.DBUser,
		"--clean",
		"--if-exists",
		p.cfg.DBName,
	}
	var env []string
	if p.cfg.DBPassword != "" {
		env = append(env, "PGPASSWORD="+p.cfg.DBPassword)
	}

	p.log.Info("dump started",
		"container", p.cfg.DBContainer,
		"database", p.cfg.DBName,
	)
	start := time.Now()

	code, err := p.engine.Exec(ctx, p.cfg.DBContainer, cmd, env, nil, out, errLog)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEmptyDump, err)
	}
	if code != 0 {
		return "", fmt.Errorf("%w: pg_dump exited with code %d", ErrEmptyDump, code)
	}
	if err := out.Sync(); err != nil {
		return "", fmt.Errorf("flush dump file: %w", err)
	}

	info, err := os.Stat(dumpPath)
	if err != nil {
		return "", fmt.Errorf("stat dump file: %w", err)
	}
	if info.Size() == 0 {
		return "", fmt.Errorf("%w: dump file is zero bytes", ErrEmptyDump)
	}

	p.log.Info("dump completed",
		"database", p.cfg.DBName,
		"size_bytes", info.Size(),
		"duration", time.Since(start).String(),
	)
	return dumpPath, nil
}

// compressDump gzips the staged dump. Any failure is soft: the raw dump is
// promoted unchanged and the job continues.
func (p *Pipeline) compressDump(dumpPath string, caps Capabilities) {
	if !caps.Compression {
		return
	}
	gz, err := compress.Compress(dumpPath, p.cfg.CompressionLevel)
	if err != nil {
		p.log.Warn("compression failed, promoting raw dump", "error", err.Error())
		return
	}
	p.log.Info("dump compressed", "path", gz, "level", p.cfg.CompressionLevel)
}
