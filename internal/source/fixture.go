package source

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aalex954/applocate-sub001/internal/hit"
)

// Fixture is the on-disk form of a set of static sources:
//
//	sources:
//	  - name: Registry
//	    queries: [vscode]
//	    hits:
//	      - kind: Exe
//	        scope: Machine
//	        path: '%ProgramFiles%\Microsoft VS Code\Code.exe'
//	        evidence: {DisplayName: Visual Studio Code}
type Fixture struct {
	Sources []FixtureSource `yaml:"sources"`
}

// FixtureSource is one named source in a fixture file.
type FixtureSource struct {
	Name    string       `yaml:"name"`
	Queries []string     `yaml:"queries"`
	Hits    []FixtureHit `yaml:"hits"`
}

// FixtureHit is one raw hit in a fixture file.
type FixtureHit struct {
	Kind        string            `yaml:"kind"`
	Scope       string            `yaml:"scope"`
	Path        string            `yaml:"path"`
	Version     string            `yaml:"version"`
	PackageType string            `yaml:"packageType"`
	Queries     []string          `yaml:"queries"`
	Evidence    map[string]string `yaml:"evidence"`
}

// LoadFixture reads a fixture file and builds its static sources.
func LoadFixture(path string) ([]*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture %s: %w", path, err)
	}
	srcs, err := ParseFixture(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fixture %s: %w", path, err)
	}
	slog.Debug("fixture_loaded",
		slog.String("path", path),
		slog.String("sources", staticNames(srcs)))
	return srcs, nil
}

// ParseFixture decodes fixture YAML into static sources.
func ParseFixture(data []byte) ([]*Static, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}

	srcs := make([]*Static, 0, len(f.Sources))
	for i, fs := range f.Sources {
		name := strings.TrimSpace(fs.Name)
		if name == "" {
			return nil, fmt.Errorf("source %d: name is required", i)
		}
		s := &Static{SourceName: name}
		for j, fh := range fs.Hits {
			h, err := fh.toHit()
			if err != nil {
				return nil, fmt.Errorf("source %q hit %d: %w", name, j, err)
			}
			queries := fh.Queries
			if len(queries) == 0 {
				queries = fs.Queries
			}
			s.Entries = append(s.Entries, StaticEntry{Queries: queries, Hit: h})
		}
		srcs = append(srcs, s)
	}
	return srcs, nil
}

func (fh FixtureHit) toHit() (hit.Hit, error) {
	kind, err := hit.ParseKind(fh.Kind)
	if err != nil {
		return hit.Hit{}, err
	}
	scope := hit.ScopeMachine
	if fh.Scope != "" {
		if scope, err = hit.ParseScope(fh.Scope); err != nil {
			return hit.Hit{}, err
		}
	}
	if strings.TrimSpace(fh.Path) == "" {
		return hit.Hit{}, fmt.Errorf("path is required")
	}
	return hit.Hit{
		Kind:        kind,
		Scope:       scope,
		Path:        fh.Path,
		Version:     fh.Version,
		PackageType: hit.ParsePackageType(fh.PackageType),
		Evidence:    fh.Evidence,
	}, nil
}
