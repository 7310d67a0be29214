package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	alerrors "github.com/aalex954/applocate-sub001/internal/errors"
)

// syncBuffer is a bytes.Buffer safe for a concurrently running command.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatch_ReResolvesAfterChange(t *testing.T) {
	// Given: watch running over a temporary programs directory
	isolate(t)
	dir := t.TempDir()

	a := &app{}
	t.Cleanup(a.close)
	root := a.rootCmd()
	var out, errOut syncBuffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs([]string{"watch", "vscode", "--fixture", vscodeFixture, "--dir", dir, "--debounce", "30ms", "--json"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- root.ExecuteContext(ctx) }()

	// Then: the query is resolved once immediately
	require.Eventually(t, func() bool {
		return strings.Contains(errOut.String(), "Watching 1 directories")
	}, 3*time.Second, 10*time.Millisecond)
	require.Equal(t, 1, strings.Count(out.String(), `"query":"vscode"`))

	// When: applications appear (repeated until the watcher has armed)
	n := 0
	require.Eventually(t, func() bool {
		if strings.Count(out.String(), `"query":"vscode"`) >= 2 {
			return true
		}
		n++
		_ = os.Mkdir(filepath.Join(dir, fmt.Sprintf("NewApp%d", n)), 0o755)
		return false
	}, 5*time.Second, 100*time.Millisecond)

	// Then: it was resolved again
	assert.Contains(t, errOut.String(), "re-resolving")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}

func TestWatch_NothingToWatch(t *testing.T) {
	isolate(t)

	res := run(t, "", "watch", "vscode", "--fixture", vscodeFixture, "--dir", filepath.Join(t.TempDir(), "missing"))

	require.Error(t, res.err)
	assert.Equal(t, alerrors.ExitUsage, alerrors.ExitCode(res.err))
}

func TestWatch_RequiresQuery(t *testing.T) {
	isolate(t)

	assert.Error(t, run(t, "", "watch").err)
}
