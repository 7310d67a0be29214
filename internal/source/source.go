// Package source defines the contract every discovery mechanism implements
// and ships the portable built-in sources.
//
// A source turns a normalized query into a lazy, unordered sequence of raw,
// unscored hits. Sources swallow their own per-item failures, stop promptly
// when their context is cancelled, and never score anything: ranking happens
// once, after every source has settled and duplicates have been merged.
package source

import (
	"context"
	"iter"
	"time"

	"github.com/aalex954/applocate-sub001/internal/hit"
)

// Options carries the execution options shared by every source.
type Options struct {
	// UserOnly restricts discovery to per-user installations.
	UserOnly bool

	// MachineOnly restricts discovery to machine-wide installations.
	MachineOnly bool

	// Timeout is the per-source deadline. Zero means DefaultTimeout.
	Timeout time.Duration

	// Strict disables alias and fuzzy matching.
	Strict bool

	// IncludeEvidence asks sources to populate hit evidence maps.
	IncludeEvidence bool
}

// DefaultTimeout is the per-source deadline used when Options.Timeout is zero.
const DefaultTimeout = 5 * time.Second

// EffectiveTimeout returns the configured timeout or DefaultTimeout.
func (o Options) EffectiveTimeout() time.Duration {
	if o.Timeout <= 0 {
		return DefaultTimeout
	}
	return o.Timeout
}

// AllowsScope reports whether the scope filters admit s.
func (o Options) AllowsScope(s hit.Scope) bool {
	switch {
	case o.UserOnly && s != hit.ScopeUser:
		return false
	case o.MachineOnly && s != hit.ScopeMachine:
		return false
	default:
		return true
	}
}

// Source is one discovery mechanism.
type Source interface {
	// Name identifies the source in provenance lists and diagnostics.
	Name() string

	// Query yields raw hits for the normalized query. A non-nil error ends
	// the sequence and is recorded as a source failure; hits yielded before
	// it are kept.
	Query(ctx context.Context, query string, opts Options) iter.Seq2[hit.Hit, error]
}

// Func adapts a function to the Source interface.
type Func struct {
	SourceName string
	Fn         func(ctx context.Context, query string, opts Options) iter.Seq2[hit.Hit, error]
}

// Name implements Source.
func (f Func) Name() string { return f.SourceName }

// Query implements Source.
func (f Func) Query(ctx context.Context, query string, opts Options) iter.Seq2[hit.Hit, error] {
	return f.Fn(ctx, query, opts)
}

var _ Source = Func{}
