package cmd

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheInfo_BeforeAndAfterLookup(t *testing.T) {
	// Given: an empty index location
	isolate(t)
	indexPath := filepath.Join(t.TempDir(), "index.json")

	// When: inspecting before any lookup
	before := run(t, "", "cache", "info", "--index-path", indexPath, "--json")

	// Then: nothing exists yet
	require.NoError(t, before.err)
	var info cacheInfo
	require.NoError(t, json.Unmarshal([]byte(before.stdout), &info))
	assert.Equal(t, indexPath, info.Path)
	assert.False(t, info.Exists)

	// When: a lookup populates the index
	require.NoError(t, run(t, "", "vscode", "--fixture", vscodeFixture, "--index-path", indexPath).err)
	after := run(t, "", "cache", "info", "--index-path", indexPath, "--json")

	// Then: one query is recorded
	require.NoError(t, after.err)
	require.NoError(t, json.Unmarshal([]byte(after.stdout), &info))
	assert.True(t, info.Exists)
	assert.Equal(t, 1, info.Records)
	assert.Positive(t, info.Entries)
	assert.Positive(t, info.Bytes)
	assert.Equal(t, "24h0m0s", info.MaxAge)
}

func TestCacheInfo_Text(t *testing.T) {
	isolate(t)
	indexPath := filepath.Join(t.TempDir(), "index.json")
	require.NoError(t, run(t, "", "vscode", "--fixture", vscodeFixture, "--index-path", indexPath).err)

	res := run(t, "", "cache", "info", "--index-path", indexPath)

	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, indexPath)
	assert.Contains(t, res.stdout, "Queries:")
}

func TestCacheRemove(t *testing.T) {
	isolate(t)
	indexPath := filepath.Join(t.TempDir(), "index.json")
	require.NoError(t, run(t, "", "vscode", "--fixture", vscodeFixture, "--index-path", indexPath).err)

	removed := run(t, "", "cache", "remove", "VSCode", "--index-path", indexPath)
	again := run(t, "", "cache", "remove", "vscode", "--index-path", indexPath)

	require.NoError(t, removed.err)
	assert.Contains(t, removed.stdout, `Removed "vscode"`)
	require.NoError(t, again.err)
	assert.Contains(t, again.stdout, "is not cached")
}

func TestCacheClear(t *testing.T) {
	isolate(t)
	indexPath := filepath.Join(t.TempDir(), "index.json")
	require.NoError(t, run(t, "", "vscode", "--fixture", vscodeFixture, "--index-path", indexPath).err)
	require.FileExists(t, indexPath)

	res := run(t, "", "cache", "clear", "--index-path", indexPath)

	require.NoError(t, res.err)
	assert.NoFileExists(t, indexPath)
	assert.Contains(t, res.stdout, "Cleared")

	// Clearing twice is not an error
	require.NoError(t, run(t, "", "cache", "clear", "--index-path", indexPath).err)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 bytes", formatBytes(512))
	assert.Equal(t, "1.5 KB", formatBytes(1536))
	assert.Equal(t, "2.0 MB", formatBytes(2*1024*1024))
}
