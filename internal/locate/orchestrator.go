// Package locate wires the discovery pipeline together: it fans a query out
// to every registered source, merges and ranks what comes back, keeps the
// on-disk index in step, and selects the hits handed to the output layer.
package locate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	alerrors "github.com/aalex954/applocate-sub001/internal/errors"
	"github.com/aalex954/applocate-sub001/internal/hit"
	"github.com/aalex954/applocate-sub001/internal/source"
)

// SourceReport describes how one source behaved during a run.
type SourceReport struct {
	Name     string        `json:"name"`
	Count    int           `json:"count"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
	TimedOut bool          `json:"timedOut,omitempty"`
}

// Failed reports whether the source ended with an error or a timeout.
func (s SourceReport) Failed() bool {
	return s.Err != nil
}

// Report is the diagnostic side channel of a run. It is never needed for
// correctness.
type Report struct {
	RunID   string         `json:"runId"`
	Query   string         `json:"query"`
	Sources []SourceReport `json:"sources"`
	Elapsed time.Duration  `json:"elapsed"`
}

// Failures returns the reports of sources that failed or timed out.
func (r Report) Failures() []SourceReport {
	var out []SourceReport
	for _, s := range r.Sources {
		if s.Failed() {
			out = append(out, s)
		}
	}
	return out
}

// Total returns the number of raw hits collected across sources.
func (r Report) Total() int {
	n := 0
	for _, s := range r.Sources {
		n += s.Count
	}
	return n
}

// Orchestrator runs every registered source concurrently under its own
// deadline and collects their raw hits.
type Orchestrator struct {
	registry       *source.Registry
	maxConcurrency int
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithMaxConcurrency bounds the number of sources running at once.
// Zero or negative means one goroutine per source.
func WithMaxConcurrency(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		o.maxConcurrency = n
	}
}

// NewOrchestrator creates an orchestrator over the sources in reg.
func NewOrchestrator(reg *source.Registry, opts ...OrchestratorOption) *Orchestrator {
	if reg == nil {
		reg = source.NewRegistry()
	}
	o := &Orchestrator{registry: reg}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Sources returns the names of the sources the orchestrator runs.
func (o *Orchestrator) Sources() []string {
	return o.registry.Names()
}

// RunAll queries every source and returns the raw hits in registration
// order of their sources, preserving each source's emission order.
// Source failures, panics, and timeouts are isolated and recorded in the
// Report; they never abort the other sources.
func (o *Orchestrator) RunAll(ctx context.Context, q string, opts source.Options) ([]hit.Hit, Report) {
	start := time.Now()
	srcs := o.registry.Sources()
	report := Report{
		RunID:   uuid.NewString(),
		Query:   q,
		Sources: make([]SourceReport, len(srcs)),
	}
	results := make([][]hit.Hit, len(srcs))

	g := new(errgroup.Group)
	if o.maxConcurrency > 0 {
		g.SetLimit(o.maxConcurrency)
	}

	for i, src := range srcs {
		g.Go(func() error {
			results[i], report.Sources[i] = runSource(ctx, src, q, opts)
			return nil
		})
	}
	_ = g.Wait()

	var all []hit.Hit
	for _, r := range results {
		all = append(all, r...)
	}
	report.Elapsed = time.Since(start)

	for _, s := range report.Sources {
		attrs := []any{
			slog.String("run_id", report.RunID),
			slog.String("source", s.Name),
			slog.Int("count", s.Count),
			slog.Duration("duration", s.Duration),
		}
		if s.Err != nil {
			attrs = append(attrs, slog.String("error", s.Err.Error()), slog.Bool("timed_out", s.TimedOut))
			slog.Debug("source_failed", attrs...)
			continue
		}
		slog.Debug("source_completed", attrs...)
	}
	return all, report
}

// collector accumulates one source's hits until it is closed. Hits offered
// after close are discarded.
type collector struct {
	mu     sync.Mutex
	hits   []hit.Hit
	closed bool
}

func (c *collector) add(h hit.Hit) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.hits = append(c.hits, h)
	return true
}

// close stops collection and returns what was gathered.
func (c *collector) close() []hit.Hit {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return c.hits
}

// runSource drives one source under its own deadline. The iteration runs on
// a separate goroutine so a source that ignores cancellation is abandoned
// when the deadline fires rather than waited on.
func runSource(ctx context.Context, src source.Source, q string, opts source.Options) ([]hit.Hit, SourceReport) {
	name := src.Name()
	start := time.Now()
	tctx, cancel := context.WithTimeout(ctx, opts.EffectiveTimeout())
	defer cancel()

	col := &collector{}
	done := make(chan error, 1)

	go func() {
		var err error
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
			done <- err
		}()
		for h, yerr := range src.Query(tctx, q, opts) {
			if yerr != nil {
				err = yerr
				return
			}
			if h.Path == "" || !opts.AllowsScope(h.Scope) {
				continue
			}
			if len(h.Source) == 0 {
				h.Source = []string{name}
			}
			if !col.add(h) {
				return
			}
		}
	}()

	var err error
	select {
	case err = <-done:
	case <-tctx.Done():
	}
	hits := col.close()

	rep := SourceReport{Name: name, Count: len(hits), Duration: time.Since(start)}
	switch {
	case errors.Is(tctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		rep.TimedOut = true
		rep.Err = alerrors.SourceTimeout(name, tctx.Err())
	case err != nil:
		rep.Err = alerrors.SourceError(name, err)
	case tctx.Err() != nil:
		rep.Err = alerrors.SourceError(name, tctx.Err())
	}
	return hits, rep
}
