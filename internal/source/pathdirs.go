package source

import (
	"context"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/aalex954/applocate-sub001/internal/hit"
	"github.com/aalex954/applocate-sub001/internal/query"
)

// PathDirs finds executables on the search PATH whose file name matches the
// query.
type PathDirs struct {
	// Dirs overrides the directories scanned. Nil means the PATH variable.
	Dirs []string

	// UserRoots are prefixes classified as per-user. Nil means the home directory.
	UserRoots []string
}

// NewPathDirs creates a PATH scanner using the process environment.
func NewPathDirs() *PathDirs {
	return &PathDirs{}
}

// Name implements Source.
func (p *PathDirs) Name() string { return "PathSearch" }

// Query implements Source.
func (p *PathDirs) Query(ctx context.Context, q string, opts Options) iter.Seq2[hit.Hit, error] {
	return func(yield func(hit.Hit, error) bool) {
		userRoots := p.UserRoots
		if userRoots == nil {
			userRoots = defaultUserRoots()
		}

		for _, dir := range p.dirs() {
			if ctx.Err() != nil {
				return
			}
			entries, err := os.ReadDir(dir)
			if err != nil {
				continue
			}
			for _, e := range entries {
				if !isExecutable(e) || !query.Matches(hit.Stem(e.Name()), q) {
					continue
				}
				full := hit.NormalizePath(filepath.Join(dir, e.Name()))
				scope := scopeFor(full, userRoots)
				if !opts.AllowsScope(scope) {
					continue
				}
				h := hit.Hit{
					Kind:        hit.KindExe,
					Scope:       scope,
					Path:        full,
					PackageType: inferPackageType(full),
					Source:      []string{p.Name()},
				}
				if opts.IncludeEvidence {
					h.Evidence = map[string]string{
						hit.EvidencePathEntry: hit.NormalizePath(dir),
						hit.EvidenceExists:    "true",
					}
				}
				if !yield(h, nil) {
					return
				}
			}
		}
	}
}

// dirs returns the de-duplicated directories to scan.
func (p *PathDirs) dirs() []string {
	raw := p.Dirs
	if raw == nil {
		raw = filepath.SplitList(os.Getenv("PATH"))
	}
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, d := range raw {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		key := strings.ToLower(hit.NormalizePath(d))
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, d)
	}
	return out
}

var _ Source = (*PathDirs)(nil)
