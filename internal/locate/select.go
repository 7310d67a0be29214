package locate

import (
	"github.com/aalex954/applocate-sub001/internal/hit"
	"github.com/aalex954/applocate-sub001/internal/rank"
)

// Filter selects which scored hits reach the output layer.
type Filter struct {
	// MinConfidence drops hits scoring below it.
	MinConfidence float64

	// UserOnly and MachineOnly restrict the scope.
	UserOnly    bool
	MachineOnly bool

	// Kinds restricts the kinds returned. Empty means every kind.
	Kinds []hit.Kind

	// All returns every surviving hit instead of the best one per kind.
	All bool

	// Limit caps the number of hits. Zero means no cap.
	Limit int
}

// allowsKind reports whether k passes the kind restriction.
func (f Filter) allowsKind(k hit.Kind) bool {
	if len(f.Kinds) == 0 {
		return true
	}
	for _, want := range f.Kinds {
		if want == k {
			return true
		}
	}
	return false
}

func (f Filter) allowsScope(s hit.Scope) bool {
	switch {
	case f.UserOnly && s != hit.ScopeUser:
		return false
	case f.MachineOnly && s != hit.ScopeMachine:
		return false
	}
	return true
}

// Select applies f to scored hits and returns them ordered by rounded
// confidence with the deterministic tie-break chain. The input is not
// modified.
func Select(hits []hit.Hit, f Filter) []hit.Hit {
	out := make([]hit.Hit, 0, len(hits))
	for _, h := range hits {
		if rank.Round(h.Confidence) < rank.Round(f.MinConfidence) {
			continue
		}
		if !f.allowsScope(h.Scope) || !f.allowsKind(h.Kind) {
			continue
		}
		out = append(out, h)
	}
	rank.Sort(out)

	if !f.All {
		seen := make(map[hit.Kind]bool, len(hit.Kinds()))
		best := out[:0]
		for _, h := range out {
			if seen[h.Kind] {
				continue
			}
			seen[h.Kind] = true
			best = append(best, h)
		}
		out = best
	}

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}
