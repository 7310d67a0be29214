package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aalex954/applocate-sub001/internal/hit"
	"github.com/aalex954/applocate-sub001/internal/index"
	"github.com/aalex954/applocate-sub001/internal/locate"
	"github.com/aalex954/applocate-sub001/internal/source"
	"github.com/aalex954/applocate-sub001/internal/watcher"
)

// pipeline is a lookup service over a single temporary install root whose
// index is invalidated by changes to that root.
type pipeline struct {
	root    string
	store   *index.Store
	service *locate.Service
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()
	base := t.TempDir()
	root := filepath.Join(base, "Programs")
	require.NoError(t, os.MkdirAll(root, 0o755))

	day := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := index.NewStore(
		filepath.Join(base, "cache", "index.json"),
		index.WithFingerprint(func() string { return index.Fingerprint([]string{root}, day) }),
	)

	reg := source.NewRegistry(&source.KnownDirs{Roots: []source.Root{
		{Path: root, Kind: hit.KindInstallDir, Scope: hit.ScopeMachine},
	}})
	svc := locate.NewService(locate.NewOrchestrator(reg), locate.WithIndex(store))

	return &pipeline{root: root, store: store, service: svc}
}

// lookup runs one query the way a single CLI invocation does: the index is
// loaded, consulted and saved.
func (p *pipeline) lookup(ctx context.Context, q string, opts locate.Options) (locate.Result, error) {
	defer p.service.Flush()
	return p.service.Locate(ctx, q, opts)
}

// install creates <root>/<name>/<name>.exe.
func (p *pipeline) install(t *testing.T, name string) string {
	t.Helper()
	dir := filepath.Join(p.root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".exe"), []byte("MZ"), 0o755))
	return dir
}

func paths(hits []hit.Hit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Path
	}
	return out
}

func kinds(hits []hit.Hit) []hit.Kind {
	out := make([]hit.Kind, len(hits))
	for i, h := range hits {
		out[i] = h.Kind
	}
	return out
}

func TestPipeline_IndexServesRepeatLookups(t *testing.T) {
	// Given: an installed application
	p := newPipeline(t)
	dir := p.install(t, "Zed")
	ctx := context.Background()

	// When: the same query runs twice
	first, err := p.lookup(ctx, "zed", locate.Options{})
	require.NoError(t, err)
	second, err := p.lookup(ctx, "ZED", locate.Options{})
	require.NoError(t, err)

	// Then: the second answer comes from the index with the same hits
	assert.False(t, first.FromCache)
	assert.True(t, second.FromCache)
	assert.ElementsMatch(t, []hit.Kind{hit.KindExe, hit.KindInstallDir}, kinds(first.Hits))
	assert.Equal(t, kinds(first.Hits), kinds(second.Hits))
	assert.Contains(t, paths(second.Hits), hit.NormalizePath(dir))
}

func TestPipeline_InstallInvalidatesIndex(t *testing.T) {
	// Given: a lookup that found nothing and was cached
	p := newPipeline(t)
	ctx := context.Background()

	miss, err := p.lookup(ctx, "zed", locate.Options{})
	require.NoError(t, err)
	require.Empty(t, miss.Hits)

	cached, err := p.lookup(ctx, "zed", locate.Options{})
	require.NoError(t, err)
	require.True(t, cached.FromCache)

	// When: the application is installed into the watched root
	before, err := os.Stat(p.root)
	require.NoError(t, err)
	p.install(t, "Zed")
	// Coarse filesystem clocks may leave the root mtime unchanged.
	require.NoError(t, os.Chtimes(p.root, time.Now(), before.ModTime().Add(2*time.Second)))

	// Then: the fingerprint changes and the sources run again
	fresh, err := p.lookup(ctx, "zed", locate.Options{})
	require.NoError(t, err)
	assert.False(t, fresh.FromCache)
	assert.NotEmpty(t, fresh.Hits)
}

func TestPipeline_WatcherDrivesRefresh(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	// Given: a watcher over the install root
	p := newPipeline(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := watcher.New(watcher.Options{DebounceWindow: 30 * time.Millisecond}.WithDefaults())
	started := make(chan error, 1)
	go func() { started <- w.Start(ctx, []string{p.root}) }()
	defer func() { _ = w.Stop() }()

	require.Eventually(t, func() bool { return len(w.Watched())+len(w.Polled()) == 1 },
		2*time.Second, 10*time.Millisecond)

	initial, err := p.lookup(ctx, "zed", locate.Options{})
	require.NoError(t, err)
	require.Empty(t, initial.Hits)

	// When: an application appears and the batch triggers a refresh
	p.install(t, "Zed")

	var batch []watcher.FileEvent
	select {
	case batch = <-w.Events():
	case err := <-started:
		t.Fatalf("watcher stopped: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("no change batch")
	}
	require.NotEmpty(t, batch)
	assert.Equal(t, watcher.OpCreate, batch[0].Operation)

	res, err := p.lookup(ctx, "zed", locate.Options{Refresh: true})
	require.NoError(t, err)

	// Then: the new install is found and written back to the index
	assert.False(t, res.FromCache)
	assert.ElementsMatch(t, []hit.Kind{hit.KindExe, hit.KindInstallDir}, kinds(res.Hits))

	cached, err := p.lookup(ctx, "zed", locate.Options{})
	require.NoError(t, err)
	assert.True(t, cached.FromCache)
	assert.Len(t, cached.Hits, 2)
}
