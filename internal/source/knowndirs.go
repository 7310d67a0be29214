package source

import (
	"context"
	"iter"
	"os"
	"path/filepath"
	"runtime"

	"github.com/aalex954/applocate-sub001/internal/hit"
	"github.com/aalex954/applocate-sub001/internal/query"
)

// Root is a well-known directory whose children are application folders of
// a given kind and scope.
type Root struct {
	Path  string
	Kind  hit.Kind
	Scope hit.Scope
}

// KnownDirs matches application folders directly under well-known install,
// configuration and data roots. Install folders are additionally probed for
// an executable named like the query.
type KnownDirs struct {
	Roots []Root
}

// NewKnownDirs creates a KnownDirs source over DefaultRoots.
func NewKnownDirs() *KnownDirs {
	return &KnownDirs{Roots: DefaultRoots(os.LookupEnv)}
}

// Name implements Source.
func (k *KnownDirs) Name() string { return "KnownDirs" }

// Query implements Source.
func (k *KnownDirs) Query(ctx context.Context, q string, opts Options) iter.Seq2[hit.Hit, error] {
	return func(yield func(hit.Hit, error) bool) {
		for _, root := range k.Roots {
			if ctx.Err() != nil {
				return
			}
			if root.Path == "" || !opts.AllowsScope(root.Scope) {
				continue
			}
			entries, err := os.ReadDir(root.Path)
			if err != nil {
				continue
			}
			for _, e := range entries {
				if !e.IsDir() || !query.Matches(e.Name(), q) {
					continue
				}
				dir := filepath.Join(root.Path, e.Name())
				if !yield(k.newHit(root.Kind, root.Scope, dir, opts), nil) {
					return
				}
				if root.Kind != hit.KindInstallDir {
					continue
				}
				for _, exe := range probeExecutables(dir, q) {
					if !yield(k.newHit(hit.KindExe, root.Scope, exe, opts), nil) {
						return
					}
				}
			}
		}
	}
}

func (k *KnownDirs) newHit(kind hit.Kind, scope hit.Scope, p string, opts Options) hit.Hit {
	norm := hit.NormalizePath(p)
	h := hit.Hit{
		Kind:        kind,
		Scope:       scope,
		Path:        norm,
		PackageType: inferPackageType(norm),
		Source:      []string{k.Name()},
	}
	if opts.IncludeEvidence {
		h.Evidence = map[string]string{hit.EvidenceExists: "true"}
	}
	return h
}

// probeExecutables returns executables in dir (and dir/bin) whose stem
// matches q.
func probeExecutables(dir, q string) []string {
	var out []string
	for _, d := range []string{dir, filepath.Join(dir, "bin")} {
		entries, err := os.ReadDir(d)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if isExecutable(e) && query.Matches(hit.Stem(e.Name()), q) {
				out = append(out, filepath.Join(d, e.Name()))
			}
		}
	}
	return out
}

// DefaultRoots returns the well-known application roots for the running OS.
func DefaultRoots(lookup hit.LookupFunc) []Root {
	env := func(name string) string {
		v, _ := lookup(name)
		return v
	}
	join := func(base string, elem ...string) string {
		if base == "" {
			return ""
		}
		return filepath.Join(append([]string{base}, elem...)...)
	}

	if runtime.GOOS == "windows" {
		return []Root{
			{env("ProgramFiles"), hit.KindInstallDir, hit.ScopeMachine},
			{env("ProgramFiles(x86)"), hit.KindInstallDir, hit.ScopeMachine},
			{join(env("LOCALAPPDATA"), "Programs"), hit.KindInstallDir, hit.ScopeUser},
			{env("APPDATA"), hit.KindConfig, hit.ScopeUser},
			{env("LOCALAPPDATA"), hit.KindData, hit.ScopeUser},
			{env("ProgramData"), hit.KindData, hit.ScopeMachine},
		}
	}

	home := env("HOME")
	roots := []Root{
		{"/opt", hit.KindInstallDir, hit.ScopeMachine},
		{"/usr/local/share", hit.KindData, hit.ScopeMachine},
		{"/etc", hit.KindConfig, hit.ScopeMachine},
		{join(home, ".config"), hit.KindConfig, hit.ScopeUser},
		{join(home, ".local", "share"), hit.KindData, hit.ScopeUser},
	}
	if runtime.GOOS == "darwin" {
		roots = append(roots,
			Root{"/Applications", hit.KindInstallDir, hit.ScopeMachine},
			Root{join(home, "Applications"), hit.KindInstallDir, hit.ScopeUser},
			Root{join(home, "Library", "Application Support"), hit.KindData, hit.ScopeUser},
		)
	}
	return roots
}

var _ Source = (*KnownDirs)(nil)
