// Package merge folds raw hits that describe the same location into one
// candidate per identity.
//
// Identity is (kind, scope, path) with the path compared case-insensitively.
// The first occurrence seeds the merged record; later occurrences union the
// provenance set and accumulate evidence. Confidence is cleared: scoring runs
// once, after every duplicate has been folded in.
package merge

import (
	"strings"

	"github.com/aalex954/applocate-sub001/internal/hit"
)

// Separator joins accumulated evidence values.
const Separator = "|"

// MaxEvidenceValues bounds the distinct values accumulated per evidence key.
const MaxEvidenceValues = 8

type options struct {
	maxValues int
}

// Option configures Merge.
type Option func(*options)

// WithMaxEvidenceValues overrides MaxEvidenceValues. Values below one are
// ignored.
func WithMaxEvidenceValues(n int) Option {
	return func(o *options) {
		if n >= 1 {
			o.maxValues = n
		}
	}
}

// Merge folds hits by identity and returns one hit per identity in
// first-seen order. Inputs are not modified.
func Merge(hits []hit.Hit, opts ...Option) []hit.Hit {
	o := options{maxValues: MaxEvidenceValues}
	for _, opt := range opts {
		opt(&o)
	}

	order := make([]hit.Identity, 0, len(hits))
	byID := make(map[hit.Identity]*hit.Hit, len(hits))

	for _, h := range hits {
		if strings.TrimSpace(h.Path) == "" {
			continue
		}
		id := h.Key()
		acc, ok := byID[id]
		if !ok {
			seed := h.Clone()
			seed.Source = hit.UnionSources(nil, h.Source)
			seed.Confidence = 0
			seed.Evidence = MergeEvidence(nil, h.Evidence, o.maxValues)
			byID[id] = &seed
			order = append(order, id)
			continue
		}
		acc.Source = hit.UnionSources(acc.Source, h.Source)
		acc.Evidence = MergeEvidence(acc.Evidence, h.Evidence, o.maxValues)
		if acc.Version == "" {
			acc.Version = h.Version
		}
		if acc.PackageType == hit.PackageUnknown {
			acc.PackageType = h.PackageType
		}
	}

	out := make([]hit.Hit, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out
}

// Index is the identity-keyed form of Merge.
func Index(hits []hit.Hit, opts ...Option) map[hit.Identity]hit.Hit {
	merged := Merge(hits, opts...)
	out := make(map[hit.Identity]hit.Hit, len(merged))
	for _, h := range merged {
		out[h.Key()] = h
	}
	return out
}

// MergeEvidence returns a new map holding acc with add folded in. Absent keys
// are copied; a differing value is appended as a new Separator-delimited
// segment unless an equal segment (case-insensitive) already exists or the
// key already holds maxValues segments. A nil result means no evidence.
func MergeEvidence(acc, add map[string]string, maxValues int) map[string]string {
	if len(acc) == 0 && len(add) == 0 {
		if acc != nil || add != nil {
			return map[string]string{}
		}
		return nil
	}
	out := make(map[string]string, len(acc)+len(add))
	for k, v := range acc {
		out[k] = v
	}
	for k, v := range add {
		existing, ok := out[k]
		if !ok {
			out[k] = accumulate("", v, maxValues)
			continue
		}
		out[k] = accumulate(existing, v, maxValues)
	}
	return out
}

// accumulate appends each segment of v to existing, skipping duplicates and
// stopping at maxValues segments.
func accumulate(existing, v string, maxValues int) string {
	segs := Segments(existing)
	for _, s := range Segments(v) {
		if len(segs) >= maxValues {
			break
		}
		if containsFold(segs, s) {
			continue
		}
		segs = append(segs, s)
	}
	if len(segs) == 0 {
		return strings.TrimSpace(v)
	}
	return strings.Join(segs, Separator)
}

// Segments splits an accumulated evidence value into its trimmed, non-empty
// parts.
func Segments(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, Separator)
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func containsFold(list []string, s string) bool {
	for _, x := range list {
		if strings.EqualFold(x, s) {
			return true
		}
	}
	return false
}
