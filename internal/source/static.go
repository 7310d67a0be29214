package source

import (
	"context"
	"iter"
	"strings"

	"github.com/aalex954/applocate-sub001/internal/hit"
	"github.com/aalex954/applocate-sub001/internal/query"
)

// Static is a source backed by a fixed list of hits. It answers a query
// with the hits whose Queries list contains it (or every hit when the list
// is empty). Fixture files and tests are built on it.
type Static struct {
	SourceName string
	Entries    []StaticEntry
}

// StaticEntry is one canned hit plus the queries it answers.
type StaticEntry struct {
	// Queries lists normalized queries this entry answers; empty answers all.
	Queries []string
	Hit     hit.Hit
}

// NewStatic creates a static source that answers every query with hits.
func NewStatic(name string, hits ...hit.Hit) *Static {
	s := &Static{SourceName: name}
	for _, h := range hits {
		s.Entries = append(s.Entries, StaticEntry{Hit: h})
	}
	return s
}

// Name implements Source.
func (s *Static) Name() string { return s.SourceName }

// Query implements Source.
func (s *Static) Query(ctx context.Context, q string, opts Options) iter.Seq2[hit.Hit, error] {
	return func(yield func(hit.Hit, error) bool) {
		for _, e := range s.Entries {
			if ctx.Err() != nil {
				return
			}
			if !answers(e.Queries, q) {
				continue
			}
			h := e.Hit.Clone()
			h.Path = hit.NormalizePath(h.Path)
			h.Source = []string{s.SourceName}
			h.Confidence = 0
			if !opts.IncludeEvidence {
				h.Evidence = nil
			}
			if !yield(h, nil) {
				return
			}
		}
	}
}

func answers(queries []string, q string) bool {
	if len(queries) == 0 {
		return true
	}
	nq := query.Normalize(q)
	for _, candidate := range queries {
		if query.Normalize(candidate) == nq {
			return true
		}
	}
	return false
}

// staticNames returns the names of the given static sources, for logs.
func staticNames(srcs []*Static) string {
	names := make([]string, len(srcs))
	for i, s := range srcs {
		names[i] = s.SourceName
	}
	return strings.Join(names, ",")
}

var _ Source = (*Static)(nil)
