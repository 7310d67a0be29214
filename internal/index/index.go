// Package index persists scored lookups between invocations.
//
// The cache is a single JSON file holding one record per normalized query.
// The whole file is discarded when its schema version or environment
// fingerprint no longer matches; there is no finer-grained invalidation.
// Every failure is non-fatal: a file that cannot be read loads as empty and
// a save that fails leaves the previous file in place.
package index

import (
	"time"

	"github.com/aalex954/applocate-sub001/internal/hit"
)

// SchemaVersion is the on-disk format version.
const SchemaVersion = 1

// DefaultMaxAge is how long a record is served before it is considered stale.
const DefaultMaxAge = 24 * time.Hour

// DefaultMaxRecords bounds the number of queries kept in the file.
const DefaultMaxRecords = 512

// File is the root of the persisted cache.
type File struct {
	Version         int       `json:"version"`
	EnvironmentHash string    `json:"environmentHash"`
	Records         []*Record `json:"records"`
}

// Record holds the cached hits for one normalized query.
type Record struct {
	Query       string    `json:"query"`
	LastRefresh time.Time `json:"lastRefreshUtc"`
	Entries     []Entry   `json:"entries"`
}

// Entry is one cached hit.
type Entry struct {
	Kind        hit.Kind        `json:"kind"`
	Scope       hit.Scope       `json:"scope"`
	Path        string          `json:"path"`
	Version     string          `json:"version,omitempty"`
	PackageType hit.PackageType `json:"packageType"`
	Source      []string        `json:"source"`
	Confidence  float64         `json:"confidence"`
	FirstSeen   time.Time       `json:"firstSeenUtc"`
	LastSeen    time.Time       `json:"lastSeenUtc"`
}

// Hit converts the entry back into a scored hit. Cached hits carry no
// evidence.
func (e Entry) Hit() hit.Hit {
	return hit.Hit{
		Kind:        e.Kind,
		Scope:       e.Scope,
		Path:        e.Path,
		Version:     e.Version,
		PackageType: e.PackageType,
		Source:      append([]string(nil), e.Source...),
		Confidence:  e.Confidence,
	}
}

func (e Entry) key() hit.Identity {
	return hit.Hit{Kind: e.Kind, Scope: e.Scope, Path: e.Path}.Key()
}

// Hits returns the record's entries as scored hits.
func (r *Record) Hits() []hit.Hit {
	out := make([]hit.Hit, len(r.Entries))
	for i, e := range r.Entries {
		out[i] = e.Hit()
	}
	return out
}

// find returns the record for a normalized query.
func (f *File) find(q string) (*Record, int) {
	for i, r := range f.Records {
		if r != nil && r.Query == q {
			return r, i
		}
	}
	return nil, -1
}

// Stats summarizes a loaded index.
type Stats struct {
	Records int
	Entries int
	Oldest  time.Time
	Newest  time.Time
}

// Summarize computes Stats for f.
func Summarize(f *File) Stats {
	var s Stats
	if f == nil {
		return s
	}
	for _, r := range f.Records {
		if r == nil {
			continue
		}
		s.Records++
		s.Entries += len(r.Entries)
		if s.Oldest.IsZero() || r.LastRefresh.Before(s.Oldest) {
			s.Oldest = r.LastRefresh
		}
		if r.LastRefresh.After(s.Newest) {
			s.Newest = r.LastRefresh
		}
	}
	return s
}
