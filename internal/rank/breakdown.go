package rank

import (
	"fmt"
	"strings"

	"github.com/aalex954/applocate-sub001/internal/hit"
)

// Contribution is one named, signed share of a confidence score.
type Contribution struct {
	Name string `json:"name"`

	// Strength is the signal strength after weighting, or the factor of a
	// penalty.
	Strength float64 `json:"strength"`

	// Value is the amount this signal added to (or removed from) the score.
	Value float64 `json:"value"`
}

// Breakdown decomposes one confidence computation. The Values of its
// contributions sum to Total.
type Breakdown struct {
	Query         string         `json:"query"`
	Path          string         `json:"path"`
	Kind          hit.Kind       `json:"kind"`
	Contributions []Contribution `json:"contributions"`
	Positive      float64        `json:"positive"`
	Total         float64        `json:"total"`
}

func (b *Breakdown) add(name string, strength, value float64) {
	if b == nil {
		return
	}
	b.Contributions = append(b.Contributions, Contribution{Name: name, Strength: strength, Value: value})
}

func (b *Breakdown) setPositive(v float64) {
	if b == nil {
		return
	}
	b.Positive = v
}

// Sum adds up the contribution values.
func (b Breakdown) Sum() float64 {
	var s float64
	for _, c := range b.Contributions {
		s += c.Value
	}
	return s
}

// Get returns the contribution with the given name.
func (b Breakdown) Get(name string) (Contribution, bool) {
	for _, c := range b.Contributions {
		if c.Name == name {
			return c, true
		}
	}
	return Contribution{}, false
}

// String renders the non-zero contributions, one per line.
func (b Breakdown) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s  %.3f\n", b.Path, b.Total)
	for _, c := range b.Contributions {
		if c.Value == 0 {
			continue
		}
		fmt.Fprintf(&sb, "  %-26s %+.3f\n", c.Name, c.Value)
	}
	return sb.String()
}
