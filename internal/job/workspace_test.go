package job

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		id := NewID()
		require.NotEmpty(t, id)
		assert.False(t, seen[id], "duplicate job id %s", id)
		seen[id] = true
	}
}

func TestFallbackID(t *testing.T) {
	id := fallbackID(time.Unix(1700000000, 123))
	assert.Len(t, id, 32)
	assert.NotEqual(t, id, fallbackID(time.Unix(1700000000, 456)))
}

func TestCreateAndRemove(t *testing.T) {
	root := t.TempDir()
	ws, err := Create(root, "abc123", time.Now())
	require.NoError(t, err)

	assert.True(t, ws.Exists())
	info, err := os.Stat(ws.Path)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Contains(t, ws.Path, "temp_abc123")

	require.NoError(t, ws.Remove())
	assert.False(t, ws.Exists())
}
