package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiff(t *testing.T) {
	// Given: a directory with two entries
	dir := t.TempDir()
	keep := filepath.Join(dir, "keep.exe")
	gone := filepath.Join(dir, "gone.exe")
	require.NoError(t, os.WriteFile(keep, []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(gone, []byte("a"), 0o644))
	prev := snapshot([]string{dir})
	require.Len(t, prev, 2)

	// When: one entry changes, one is removed, and one is added
	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(keep, later, later))
	require.NoError(t, os.Remove(gone))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "NewApp"), 0o755))
	events := diff(prev, snapshot([]string{dir}), time.Now())

	// Then
	got := make(map[string]FileEvent)
	for _, ev := range events {
		got[filepath.Base(ev.Path)] = ev
	}
	require.Len(t, got, 3)
	assert.Equal(t, OpModify, got["keep.exe"].Operation)
	assert.Equal(t, OpDelete, got["gone.exe"].Operation)
	assert.Equal(t, OpCreate, got["NewApp"].Operation)
	assert.True(t, got["NewApp"].IsDir)
	assert.Equal(t, dir, got["NewApp"].Dir)
}

func TestSnapshot_SkipsMissingDirs(t *testing.T) {
	assert.Empty(t, snapshot([]string{filepath.Join(t.TempDir(), "missing")}))
}

func TestDiff_NoChanges(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), nil, 0o644))

	assert.Empty(t, diff(snapshot([]string{dir}), snapshot([]string{dir}), time.Now()))
}
