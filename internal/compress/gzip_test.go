package compress

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompress_ReplacesOriginal(t *testing.T) {
	dir := t.TempDir()
	raw := filepath.Join(dir, "db_backup.sql")
	content := strings.Repeat("INSERT INTO directus_files VALUES (1);\n", 200)
	require.NoError(t, os.WriteFile(raw, []byte(content), 0o644))

	gz, err := Compress(raw, 6)
	require.NoError(t, err)
	assert.Equal(t, raw+".gz", gz)

	_, err = os.Stat(raw)
	assert.True(t, os.IsNotExist(err), "original must be removed after compression")

	info, err := os.Stat(gz)
	require.NoError(t, err)
	assert.Less(t, info.Size(), int64(len(content)))

	restored, err := Decompress(gz)
	require.NoError(t, err)
	got, err := os.ReadFile(restored)
	require.NoError(t, err)
	assert.Equal(t, content, string(got))
}

func TestCompress_InvalidLevelLeavesOriginal(t *testing.T) {
	dir := t.TempDir()
	raw := filepath.Join(dir, "db_backup.sql")
	require.NoError(t, os.WriteFile(raw, []byte("SELECT 1;"), 0o644))

	_, err := Compress(raw, 11)
	require.Error(t, err)

	// The raw dump survives a failed compression attempt.
	_, err = os.Stat(raw)
	assert.NoError(t, err)
}

func TestDecompress_RequiresGzSuffix(t *testing.T) {
	_, err := Decompress("/tmp/db_backup.sql")
	assert.Error(t, err)
}
