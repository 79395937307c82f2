package restore

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cododel/directus-alto/internal/config"
	"github.com/cododel/directus-alto/internal/logger"
	"github.com/cododel/directus-alto/internal/store"
)

type fakeEngine struct {
	exitCode  int
	stderrOut string
	stdinSeen bytes.Buffer
	cmdSeen   []string
}

func (f *fakeEngine) Ping(ctx context.Context) error { return nil }

func (f *fakeEngine) Exec(
	ctx context.Context,
	containerName string,
	cmd []string,
	env []string,
	stdin io.Reader,
	stdout, stderr io.Writer,
) (int, error) {
	f.cmdSeen = cmd
	if stdin != nil {
		_, _ = io.Copy(&f.stdinSeen, stdin)
	}
	_, _ = io.WriteString(stderr, f.stderrOut)
	return f.exitCode, nil
}

const dumpSQL = "CREATE TABLE directus_settings ();\nINSERT INTO directus_settings VALUES (1);\n"

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		BackupDir:   t.TempDir(),
		UploadsDir:  filepath.Join(t.TempDir(), "uploads"),
		DateFormat:  config.DefaultDateFormat,
		DBContainer: "directus-db",
		DBUser:      "directus",
		DBName:      "directus",
	}
}

// makeRecord writes a finalized record with an uploads snapshot and either
// a raw or gzipped dump, and repoints the latest symlink at it.
func makeRecord(t *testing.T, cfg config.Config, ts time.Time, compressed bool) store.Record {
	t.Helper()
	rec := store.NewRecord(cfg.BackupDir, ts, cfg.DateFormat)
	require.NoError(t, os.MkdirAll(rec.UploadsPath(), 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(rec.UploadsPath(), "logo.svg"), []byte("<svg/>"), 0o644))

	if compressed {
		f, err := os.Create(filepath.Join(rec.Path, store.DumpNameGz))
		require.NoError(t, err)
		gz := gzip.NewWriter(f)
		_, err = gz.Write([]byte(dumpSQL))
		require.NoError(t, err)
		require.NoError(t, gz.Close())
		require.NoError(t, f.Close())
	} else {
		require.NoError(t, os.WriteFile(
			filepath.Join(rec.Path, store.DumpName), []byte(dumpSQL), 0o644))
	}

	require.NoError(t, store.SetLatest(cfg.BackupDir, rec))
	return rec
}

func TestRestore_LatestCompressed(t *testing.T) {
	cfg := testConfig(t)
	makeRecord(t, cfg, time.Unix(1700000000, 0), true)

	// Live uploads contain junk that must be replaced by the snapshot.
	require.NoError(t, os.MkdirAll(cfg.UploadsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.UploadsDir, "junk.tmp"), []byte("x"), 0o644))

	engine := &fakeEngine{}
	err := New(cfg, engine, logger.Nop()).Restore(context.Background(), "")
	require.NoError(t, err)

	// The dump was decompressed on the fly and streamed into psql.
	assert.Equal(t, dumpSQL, engine.stdinSeen.String())
	assert.Equal(t, "psql", engine.cmdSeen[0])

	// Uploads mirror the snapshot exactly.
	_, err = os.Stat(filepath.Join(cfg.UploadsDir, "logo.svg"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(cfg.UploadsDir, "junk.tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestRestore_ExplicitRawRecord(t *testing.T) {
	cfg := testConfig(t)
	rec := makeRecord(t, cfg, time.Unix(1700000000, 0), false)

	engine := &fakeEngine{}
	err := New(cfg, engine, logger.Nop()).Restore(context.Background(), rec.Path)
	require.NoError(t, err)
	assert.Equal(t, dumpSQL, engine.stdinSeen.String())
}

func TestRestore_NoLatest(t *testing.T) {
	cfg := testConfig(t)
	err := New(cfg, &fakeEngine{}, logger.Nop()).Restore(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoRecord)
}

func TestRestore_BadRecordPath(t *testing.T) {
	cfg := testConfig(t)
	err := New(cfg, &fakeEngine{}, logger.Nop()).
		Restore(context.Background(), filepath.Join(cfg.BackupDir, "not_a_record"))
	assert.ErrorIs(t, err, ErrNoRecord)
}

func TestRestore_PsqlFailureSurfacesStderr(t *testing.T) {
	cfg := testConfig(t)
	makeRecord(t, cfg, time.Unix(1700000000, 0), true)

	engine := &fakeEngine{exitCode: 3, stderrOut: "FATAL: role does not exist"}
	err := New(cfg, engine, logger.Nop()).Restore(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "role does not exist")
}

func TestSyncFrom_UsesSourceLatest(t *testing.T) {
	cfg := testConfig(t)

	sourceRoot := t.TempDir()
	srcCfg := cfg
	srcCfg.BackupDir = sourceRoot
	makeRecord(t, srcCfg, time.Unix(1700000000, 0), true)

	engine := &fakeEngine{}
	err := New(cfg, engine, logger.Nop()).SyncFrom(context.Background(), sourceRoot)
	require.NoError(t, err)
	assert.Equal(t, dumpSQL, engine.stdinSeen.String())
	_, err = os.Stat(filepath.Join(cfg.UploadsDir, "logo.svg"))
	assert.NoError(t, err)
}

func TestSyncFrom_EmptySourceFails(t *testing.T) {
	cfg := testConfig(t)
	err := New(cfg, &fakeEngine{}, logger.Nop()).SyncFrom(context.Background(), t.TempDir())
	assert.Error(t, err)
}
