package rank

import (
	"math"
	"slices"
	"strings"

	"github.com/aalex954/applocate-sub001/internal/hit"
)

// Precision is the number of decimals confidence is compared and displayed at.
const Precision = 3

// Round rounds a confidence to Precision decimals.
func Round(v float64) float64 {
	p := math.Pow10(Precision)
	return math.Round(v*p) / p
}

// sortKey is a hit with its ordering attributes computed once.
type sortKey struct {
	h       hit.Hit
	conf    float64
	demoted bool
	sources int
	lower   string
}

// leafKey groups hits of one kind that share a leaf name.
type leafKey struct {
	kind hit.Kind
	leaf string
}

// Sort orders hits best first, in place. The order depends only on the set
// of hits, never on their input order.
//
// Priority:
//  1. Higher confidence, rounded to Precision
//  2. A machine-scope 32-bit/WOW path ranks after every peer when a
//     machine-scope 64-bit path with the same kind and leaf name is present
//  3. More provenance entries
//  4. Lexicographic path order (case-insensitive, then exact)
//  5. Kind, then scope
func Sort(hits []hit.Hit) {
	native := make(map[leafKey]bool)
	for _, h := range hits {
		if h.Scope == hit.ScopeMachine && !is32Bit(h.Path) {
			native[leafOf(h)] = true
		}
	}

	keys := make([]sortKey, len(hits))
	for i, h := range hits {
		keys[i] = sortKey{
			h:       h,
			conf:    Round(h.Confidence),
			demoted: h.Scope == hit.ScopeMachine && is32Bit(h.Path) && native[leafOf(h)],
			sources: len(hit.UnionSources(nil, h.Source)),
			lower:   strings.ToLower(h.Path),
		}
	}
	slices.SortStableFunc(keys, compareKeys)
	for i, k := range keys {
		hits[i] = k.h
	}
}

func leafOf(h hit.Hit) leafKey {
	return leafKey{kind: h.Kind, leaf: strings.ToLower(hit.Base(h.Path))}
}

func compareKeys(a, b sortKey) int {
	if a.conf != b.conf {
		if a.conf > b.conf {
			return -1
		}
		return 1
	}
	if a.demoted != b.demoted {
		if b.demoted {
			return -1
		}
		return 1
	}
	if a.sources != b.sources {
		if a.sources > b.sources {
			return -1
		}
		return 1
	}
	if c := strings.Compare(a.lower, b.lower); c != 0 {
		return c
	}
	if c := strings.Compare(a.h.Path, b.h.Path); c != 0 {
		return c
	}
	if a.h.Kind != b.h.Kind {
		return int(a.h.Kind) - int(b.h.Kind)
	}
	return int(a.h.Scope) - int(b.h.Scope)
}

var wowSegments = map[string]bool{
	"program files (x86)": true,
	"syswow64":            true,
	"x86":                 true,
	"win32":               true,
}

// is32Bit reports whether p lives under a 32-bit or WOW64 directory.
func is32Bit(p string) bool {
	for _, s := range hit.Segments(p) {
		if wowSegments[strings.ToLower(s)] {
			return true
		}
	}
	return false
}
