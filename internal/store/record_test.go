package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecordName(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
		unix  int64
		human string
	}{
		{"backup_2024-01-02_15-04-05_1704207845", true, 1704207845, "2024-01-02_15-04-05"},
		{"backup_2024-01-02_1704207845", true, 1704207845, "2024-01-02"},
		{"backup_latest", false, 0, ""},
		{"backup_", false, 0, ""},
		{"backup_nodigits", false, 0, ""},
		{"temp_abc123", false, 0, ""},
		{"backup_2024-01-02_", false, 0, ""},
	}
	for _, tt := range tests {
		rec, ok := ParseRecordName("/root", tt.name)
		assert.Equal(t, tt.valid, ok, tt.name)
		if tt.valid {
			assert.Equal(t, tt.unix, rec.Unix, tt.name)
			assert.Equal(t, tt.human, rec.Human, tt.name)
		}
	}
}

func TestNewRecordRoundTrips(t *testing.T) {
	ts := time.Unix(1700000000, 0)
	rec := NewRecord("/backups", ts, "2006-01-02_15-04-05")

	parsed, ok := ParseRecordName("/backups", rec.Name)
	require.True(t, ok)
	assert.Equal(t, rec.Unix, parsed.Unix)
	assert.Equal(t, rec.Human, parsed.Human)
	assert.Equal(t, rec.Path, parsed.Path)
}

func TestList_SortsOldestFirstAndSkipsInvalid(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{
		"backup_b_300",
		"backup_a_100",
		"backup_c_200",
		"backup_corrupt",
		"temp_inflight",
	} {
		require.NoError(t, os.Mkdir(filepath.Join(root, name), 0o755))
	}

	records, err := List(root)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, int64(100), records[0].Unix)
	assert.Equal(t, int64(200), records[1].Unix)
	assert.Equal(t, int64(300), records[2].Unix)
}

func TestList_MissingRootIsEmpty(t *testing.T) {
	records, err := List(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestLatestPointer(t *testing.T) {
	root := t.TempDir()

	_, err := Latest(root)
	assert.ErrorIs(t, err, ErrNoLatest)

	first := NewRecord(root, time.Unix(100, 0), DefaultTestDateFormat)
	second := NewRecord(root, time.Unix(200, 0), DefaultTestDateFormat)
	require.NoError(t, os.Mkdir(first.Path, 0o755))
	require.NoError(t, os.Mkdir(second.Path, 0o755))

	require.NoError(t, SetLatest(root, first))
	got, err := Latest(root)
	require.NoError(t, err)
	assert.Equal(t, first.Name, got.Name)

	// Repointing must survive an existing link.
	require.NoError(t, SetLatest(root, second))
	got, err = Latest(root)
	require.NoError(t, err)
	assert.Equal(t, second.Name, got.Name)

	// The previous target stays on disk.
	_, err = os.Stat(first.Path)
	assert.NoError(t, err)
}

func TestDumpPath(t *testing.T) {
	root := t.TempDir()
	rec := NewRecord(root, time.Unix(100, 0), DefaultTestDateFormat)
	require.NoError(t, os.Mkdir(rec.Path, 0o755))

	_, _, err := rec.DumpPath()
	assert.ErrorIs(t, err, ErrNoDump)

	require.NoError(t, os.WriteFile(filepath.Join(rec.Path, DumpName), []byte("sql"), 0o644))
	path, compressed, err := rec.DumpPath()
	require.NoError(t, err)
	assert.False(t, compressed)
	assert.Equal(t, filepath.Join(rec.Path, DumpName), path)

	// The compressed artifact wins when both exist.
	require.NoError(t, os.WriteFile(filepath.Join(rec.Path, DumpNameGz), []byte("gz"), 0o644))
	path, compressed, err = rec.DumpPath()
	require.NoError(t, err)
	assert.True(t, compressed)
	assert.Equal(t, filepath.Join(rec.Path, DumpNameGz), path)
}

// DefaultTestDateFormat matches the production default layout.
const DefaultTestDateFormat = "2006-01-02_15-04-05"
