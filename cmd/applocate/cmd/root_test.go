package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const vscodeFixture = "testdata/vscode.yaml"

// isolate points every user-level path at a temporary directory and clears
// APPLOCATE_* overrides.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(home, ".cache"))
	for _, k := range []string{
		"APPLOCATE_INDEX_PATH", "APPLOCATE_TIMEOUT", "APPLOCATE_MIN_CONFIDENCE",
		"APPLOCATE_LOG_LEVEL", "APPLOCATE_NO_INDEX", "APPLOCATE_STRICT",
	} {
		t.Setenv(k, "")
	}
	return home
}

type execResult struct {
	stdout string
	stderr string
	err    error
}

// run executes the root command with args and optional stdin.
func run(t *testing.T, stdin string, args ...string) execResult {
	t.Helper()
	a := &app{}
	t.Cleanup(a.close)

	root := a.rootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return execResult{stdout: out.String(), stderr: errOut.String(), err: err}
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	root := NewRootCmd()

	for _, name := range []string{"cache", "config", "watch", "version"} {
		found, _, err := root.Find([]string{name})
		require.NoError(t, err)
		require.Equal(t, name, found.Name())
	}
}

func TestRootCmd_NoArgsPrintsHelp(t *testing.T) {
	isolate(t)

	res := run(t, "")

	require.NoError(t, res.err)
	require.Contains(t, res.stdout, "applocate <query...>")
}

func TestRootCmd_ProfileFlags(t *testing.T) {
	// Given: CPU and heap profile targets
	isolate(t)
	dir := t.TempDir()
	cpu := filepath.Join(dir, "cpu.prof")
	heap := filepath.Join(dir, "heap.prof")

	// When: a fixture lookup runs with profiling
	res := run(t, "", "vscode", "--fixture", vscodeFixture, "--profile-cpu", cpu, "--profile-mem", heap)

	// Then: both profiles are written after the command finishes
	require.NoError(t, res.err)
	for _, p := range []string{cpu, heap} {
		info, err := os.Stat(p)
		require.NoError(t, err, p)
		require.Positive(t, info.Size(), p)
	}
}
