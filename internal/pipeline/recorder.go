package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cododel/directus-alto/internal/job"
	"github.com/cododel/directus-alto/internal/store"
)

// recordFailure preserves diagnostics for a failed job: the process
// environment and any staging log artifacts go into a uniquely named
// directory under the error log root, then the staging directory is
// discarded. If staging is already gone there is nothing to capture.
func (p *Pipeline) recordFailure(ws *job.Workspace, cause error) {
	if !ws.Exists() {
		p.log.Error("job failed, no staging left to capture",
			"job_id", ws.ID,
			"error", cause.Error(),
		)
		return
	}

	name := fmt.Sprintf("%s%s_%s",
		store.ErrorPrefix,
		ws.StartedAt.Format(p.cfg.DateFormat),
		ws.ID,
	)
	dir := filepath.Join(p.cfg.ErrorLogDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		p.log.Error("create error log directory failed",
			"path", dir,
			"error", err.Error(),
		)
		return
	}

	if err := snapshotEnvironment(filepath.Join(dir, "environment.txt"), cause); err != nil {
		p.log.Warn("environment snapshot failed", "error", err.Error())
	}
	copied := copyStagingLogs(ws.Path, dir)

	if err := ws.Remove(); err != nil {
		p.log.Warn("remove staging after failure", "error", err.Error())
	}

	p.log.Error("job failed, diagnostics preserved",
		"job_id", ws.ID,
		"error_log", dir,
		"log_artifacts", copied,
		"error", cause.Error(),
	)
}

// snapshotEnvironment writes the failure cause and the sorted process
// environment for postmortem.
func snapshotEnvironment(path string, cause error) error {
	env := os.Environ()
	sort.Strings(env)

	var b strings.Builder
	fmt.Fprintf(&b, "error: %v\n\n", cause)
	for _, kv := range env {
		b.WriteString(kv)
		b.WriteByte('\n')
	}
	return os.WriteFile(path, []byte(b.String()), 0o600)
}

// copyStagingLogs copies *.log files from the staging root into the error
// directory and returns how many were preserved.
func copyStagingLogs(staging, dir string) int {
	matches, err := filepath.Glob(filepath.Join(staging, "*.log"))
	if err != nil {
		return 0
	}
	copied := 0
	for _, src := range matches {
		if copyPlain(src, filepath.Join(dir, filepath.Base(src))) == nil {
			copied++
		}
	}
	return copied
}

func copyPlain(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
