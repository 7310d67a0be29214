package source

import (
	"context"
	"errors"
	"iter"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aalex954/applocate-sub001/internal/hit"
)

func collect(t *testing.T, s Source, q string, opts Options) []hit.Hit {
	t.Helper()
	var out []hit.Hit
	for h, err := range s.Query(context.Background(), q, opts) {
		require.NoError(t, err)
		out = append(out, h)
	}
	return out
}

func TestOptions_EffectiveTimeout(t *testing.T) {
	assert.Equal(t, DefaultTimeout, Options{}.EffectiveTimeout())
	assert.Equal(t, 2*time.Second, Options{Timeout: 2 * time.Second}.EffectiveTimeout())
}

func TestOptions_AllowsScope(t *testing.T) {
	tests := []struct {
		name  string
		opts  Options
		scope hit.Scope
		want  bool
	}{
		{"no filter user", Options{}, hit.ScopeUser, true},
		{"no filter machine", Options{}, hit.ScopeMachine, true},
		{"user only rejects machine", Options{UserOnly: true}, hit.ScopeMachine, false},
		{"user only admits user", Options{UserOnly: true}, hit.ScopeUser, true},
		{"machine only rejects user", Options{MachineOnly: true}, hit.ScopeUser, false},
		{"machine only admits machine", Options{MachineOnly: true}, hit.ScopeMachine, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.opts.AllowsScope(tt.scope))
		})
	}
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry(NewStatic("Registry"), NewStatic("Shortcuts"))
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, []string{"Registry", "Shortcuts"}, r.Names())

	err := r.Register(NewStatic("registry"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")

	require.Error(t, r.Register(nil))
	require.Error(t, r.Register(NewStatic("  ")))
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_SourcesIsSnapshot(t *testing.T) {
	r := NewRegistry(NewStatic("A"))
	snap := r.Sources()
	require.NoError(t, r.Register(NewStatic("B")))
	assert.Len(t, snap, 1)
	assert.Len(t, r.Sources(), 2)
}

func TestStatic_Query(t *testing.T) {
	// Given: a static source with one targeted and one catch-all entry
	s := &Static{
		SourceName: "Registry",
		Entries: []StaticEntry{
			{
				Queries: []string{"VSCode"},
				Hit: hit.Hit{
					Kind:       hit.KindExe,
					Path:       `C:\Apps\Code\Code.exe\`,
					Source:     []string{"ignored"},
					Confidence: 0.9,
					Evidence:   map[string]string{hit.EvidenceDisplayName: "Visual Studio Code"},
				},
			},
			{Hit: hit.Hit{Kind: hit.KindData, Path: `C:\Data\Any`}},
		},
	}

	// When: querying with and without evidence
	withEv := collect(t, s, "vscode", Options{IncludeEvidence: true})
	noEv := collect(t, s, "vscode", Options{})
	other := collect(t, s, "firefox", Options{})

	// Then: query matching is normalized and raw hits are reset
	require.Len(t, withEv, 2)
	assert.Equal(t, `C:\Apps\Code\Code.exe`, withEv[0].Path)
	assert.Equal(t, []string{"Registry"}, withEv[0].Source)
	assert.Zero(t, withEv[0].Confidence)
	assert.Equal(t, "Visual Studio Code", withEv[0].Evidence[hit.EvidenceDisplayName])

	require.Len(t, noEv, 2)
	assert.Nil(t, noEv[0].Evidence)

	require.Len(t, other, 1)
	assert.Equal(t, hit.KindData, other[0].Kind)
}

func TestStatic_DoesNotMutateEntries(t *testing.T) {
	ev := map[string]string{"k": "v"}
	s := NewStatic("S", hit.Hit{Path: `C:\x`, Evidence: ev})

	for h := range s.Query(context.Background(), "x", Options{IncludeEvidence: true}) {
		h.Evidence["k"] = "changed"
	}
	assert.Equal(t, "v", ev["k"])
}

func TestStatic_StopsOnCancel(t *testing.T) {
	s := NewStatic("S", hit.Hit{Path: `C:\a`}, hit.Hit{Path: `C:\b`})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n := 0
	for range s.Query(ctx, "a", Options{}) {
		n++
	}
	assert.Zero(t, n)
}

func TestStatic_EarlyBreak(t *testing.T) {
	s := NewStatic("S", hit.Hit{Path: `C:\a`}, hit.Hit{Path: `C:\b`}, hit.Hit{Path: `C:\c`})
	n := 0
	for range s.Query(context.Background(), "a", Options{}) {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestFunc_Adapter(t *testing.T) {
	boom := errors.New("boom")
	f := Func{
		SourceName: "Failing",
		Fn: func(ctx context.Context, q string, opts Options) iter.Seq2[hit.Hit, error] {
			return func(yield func(hit.Hit, error) bool) {
				if !yield(hit.Hit{Path: `C:\a`}, nil) {
					return
				}
				yield(hit.Hit{}, boom)
			}
		},
	}

	var errs []error
	var hits int
	for h, err := range f.Query(context.Background(), "a", Options{}) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		assert.NotEmpty(t, h.Path)
		hits++
	}
	assert.Equal(t, "Failing", f.Name())
	assert.Equal(t, 1, hits)
	assert.Equal(t, []error{boom}, errs)
}

const fixtureYAML = `
sources:
  - name: Registry
    queries: [vscode]
    hits:
      - kind: Exe
        path: 'C:\Program Files\Microsoft VS Code\Code.exe'
        version: 1.95.0
        packageType: exe
        evidence:
          DisplayName: Visual Studio Code
      - kind: InstallDir
        scope: machine
        path: 'C:\Program Files\Microsoft VS Code'
  - name: StartMenu
    hits:
      - kind: Exe
        scope: User
        queries: [code]
        path: 'C:\Users\ann\AppData\Local\Programs\Code\Code.exe'
`

func TestParseFixture(t *testing.T) {
	srcs, err := ParseFixture([]byte(fixtureYAML))
	require.NoError(t, err)
	require.Len(t, srcs, 2)

	reg := srcs[0]
	assert.Equal(t, "Registry", reg.Name())
	require.Len(t, reg.Entries, 2)
	assert.Equal(t, []string{"vscode"}, reg.Entries[0].Queries, "hit inherits source queries")
	assert.Equal(t, hit.KindExe, reg.Entries[0].Hit.Kind)
	assert.Equal(t, hit.ScopeMachine, reg.Entries[0].Hit.Scope, "scope defaults to Machine")
	assert.Equal(t, hit.PackageEXE, reg.Entries[0].Hit.PackageType)
	assert.Equal(t, "1.95.0", reg.Entries[0].Hit.Version)

	sm := srcs[1]
	assert.Equal(t, []string{"code"}, sm.Entries[0].Queries)
	assert.Equal(t, hit.ScopeUser, sm.Entries[0].Hit.Scope)

	assert.Len(t, collect(t, sm, "vscode", Options{}), 0)
	assert.Len(t, collect(t, sm, "code", Options{}), 1)
}

func TestParseFixture_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"missing name", "sources:\n  - hits: []\n", "name is required"},
		{"bad kind", "sources:\n  - name: A\n    hits:\n      - kind: Binary\n        path: x\n", "unknown kind"},
		{"bad scope", "sources:\n  - name: A\n    hits:\n      - kind: Exe\n        scope: Global\n        path: x\n", "unknown scope"},
		{"missing path", "sources:\n  - name: A\n    hits:\n      - kind: Exe\n", "path is required"},
		{"invalid yaml", "sources: [", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFixture([]byte(tt.yaml))
			require.Error(t, err)
			if tt.wantErr != "" {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoadFixture(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "fixture.yaml")
	require.NoError(t, os.WriteFile(p, []byte(fixtureYAML), 0o644))

	srcs, err := LoadFixture(p)
	require.NoError(t, err)
	assert.Len(t, srcs, 2)

	_, err = LoadFixture(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read fixture")
}

func TestInferPackageType(t *testing.T) {
	tests := []struct {
		path string
		want hit.PackageType
	}{
		{`C:\Users\ann\scoop\apps\git\current\git.exe`, hit.PackageScoop},
		{`/home/ann/scoop/apps/git/current/git`, hit.PackageScoop},
		{`C:\ProgramData\chocolatey\bin\7z.exe`, hit.PackageChocolatey},
		{`C:\Users\ann\AppData\Local\Microsoft\WinGet\Packages\x\x.exe`, hit.PackageWinget},
		{`C:\Program Files\WindowsApps\Microsoft.App_1.0\app.exe`, hit.PackageMSIX},
		{`C:\Program Files\App\app.exe`, hit.PackageUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, inferPackageType(tt.path))
		})
	}
}

func TestScopeFor(t *testing.T) {
	roots := []string{`C:\Users\ann`, "/home/ann", ""}
	assert.Equal(t, hit.ScopeUser, scopeFor(`c:\users\ann\bin\x.exe`, roots))
	assert.Equal(t, hit.ScopeUser, scopeFor("/home/ann/.local/bin/x", roots))
	assert.Equal(t, hit.ScopeMachine, scopeFor(`C:\Users\anna\x.exe`, roots))
	assert.Equal(t, hit.ScopeMachine, scopeFor("/usr/bin/x", roots))
}

func writeExe(t *testing.T, dir, name string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte("#!/bin/sh\n"), 0o755))
	return p
}

func exeName(stem string) string {
	if runtime.GOOS == "windows" {
		return stem + ".exe"
	}
	return stem
}

func TestPathDirs_Query(t *testing.T) {
	// Given: two PATH dirs, one listed twice and one under the user root
	root := t.TempDir()
	sys := filepath.Join(root, "sys")
	home := filepath.Join(root, "home")
	userBin := filepath.Join(home, "bin")
	writeExe(t, sys, exeName("code"))
	writeExe(t, sys, exeName("unrelated"))
	writeExe(t, userBin, exeName("code-insiders"))
	require.NoError(t, os.WriteFile(filepath.Join(sys, "code.txt"), []byte("x"), 0o644))

	p := &PathDirs{Dirs: []string{sys, "", sys, userBin}, UserRoots: []string{home}}

	// When: querying with evidence
	hits := collect(t, p, "code", Options{IncludeEvidence: true})

	// Then: each executable is reported once with its scope
	require.Len(t, hits, 2)
	assert.Equal(t, hit.KindExe, hits[0].Kind)
	assert.Equal(t, hit.ScopeMachine, hits[0].Scope)
	assert.Equal(t, exeName("code"), hit.Base(hits[0].Path))
	assert.Equal(t, []string{"PathSearch"}, hits[0].Source)
	assert.Equal(t, "true", hits[0].Evidence[hit.EvidenceExists])
	assert.NotEmpty(t, hits[0].Evidence[hit.EvidencePathEntry])
	assert.Equal(t, hit.ScopeUser, hits[1].Scope)

	// And: scope filters apply at the source
	machine := collect(t, p, "code", Options{MachineOnly: true})
	require.Len(t, machine, 1)
	assert.Nil(t, machine[0].Evidence)
}

func TestKnownDirs_Query(t *testing.T) {
	// Given: an install root holding an app folder with an executable
	root := t.TempDir()
	install := filepath.Join(root, "programs")
	config := filepath.Join(root, "config")
	writeExe(t, filepath.Join(install, "Oh My Posh", "bin"), exeName("oh-my-posh"))
	require.NoError(t, os.MkdirAll(filepath.Join(install, "Other"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(config, "oh-my-posh"), 0o755))

	k := &KnownDirs{Roots: []Root{
		{Path: install, Kind: hit.KindInstallDir, Scope: hit.ScopeMachine},
		{Path: config, Kind: hit.KindConfig, Scope: hit.ScopeUser},
		{Path: filepath.Join(root, "missing"), Kind: hit.KindData, Scope: hit.ScopeUser},
		{Path: "", Kind: hit.KindData, Scope: hit.ScopeUser},
	}}

	// When: querying by the collapsed name
	hits := collect(t, k, "ohmyposh", Options{})

	// Then: install dir, its executable and the config dir are found
	require.Len(t, hits, 3)
	assert.Equal(t, hit.KindInstallDir, hits[0].Kind)
	assert.Equal(t, "Oh My Posh", hit.Base(hits[0].Path))
	assert.Equal(t, hit.KindExe, hits[1].Kind)
	assert.Equal(t, exeName("oh-my-posh"), hit.Base(hits[1].Path))
	assert.Equal(t, hit.KindConfig, hits[2].Kind)
	assert.Equal(t, hit.ScopeUser, hits[2].Scope)
	assert.Equal(t, []string{"KnownDirs"}, hits[2].Source)

	userOnly := collect(t, k, "ohmyposh", Options{UserOnly: true})
	require.Len(t, userOnly, 1)
	assert.Equal(t, hit.KindConfig, userOnly[0].Kind)
}

func TestDefaultRoots(t *testing.T) {
	env := func(name string) (string, bool) {
		switch name {
		case "HOME":
			return "/home/ann", true
		case "ProgramFiles":
			return `C:\Program Files`, true
		}
		return "", false
	}
	roots := DefaultRoots(env)
	require.NotEmpty(t, roots)

	var sawInstall bool
	for _, r := range roots {
		if r.Kind == hit.KindInstallDir && r.Path != "" {
			sawInstall = true
		}
	}
	assert.True(t, sawInstall)
}
