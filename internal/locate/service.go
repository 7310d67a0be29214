package locate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	alerrors "github.com/aalex954/applocate-sub001/internal/errors"
	"github.com/aalex954/applocate-sub001/internal/hit"
	"github.com/aalex954/applocate-sub001/internal/index"
	"github.com/aalex954/applocate-sub001/internal/merge"
	"github.com/aalex954/applocate-sub001/internal/query"
	"github.com/aalex954/applocate-sub001/internal/rank"
	"github.com/aalex954/applocate-sub001/internal/source"
)

// Options controls a single lookup.
type Options struct {
	// Timeout is the per-source deadline. Zero means source.DefaultTimeout.
	Timeout time.Duration

	// Strict disables alias and fuzzy matching.
	Strict bool

	// IncludeEvidence keeps evidence maps on returned hits.
	IncludeEvidence bool

	// ScoreBreakdown attaches a per-signal breakdown to every returned hit.
	ScoreBreakdown bool

	// Refresh skips the index read but still writes the fresh result.
	Refresh bool

	// NoIndex disables the index entirely.
	NoIndex bool

	// Filter selects the returned hits.
	Filter Filter
}

// usesIndexRead reports whether a cached record may answer the lookup.
// Cached hits carry no evidence and were scored without strict mode.
func (o Options) usesIndexRead() bool {
	return !o.Refresh && !o.NoIndex && !o.IncludeEvidence && !o.ScoreBreakdown && !o.Strict
}

// usesIndexWrite reports whether the fresh result is written back.
func (o Options) usesIndexWrite() bool {
	return !o.NoIndex && !o.Strict
}

// Result is the outcome of a lookup. An empty Hits slice is a normal
// result, not an error.
type Result struct {
	Query      string           `json:"query"`
	Hits       []hit.Hit        `json:"hits"`
	Breakdowns []rank.Breakdown `json:"breakdowns,omitempty"`
	Report     Report           `json:"report"`
	FromCache  bool             `json:"fromCache"`
}

// Locator resolves a query to ranked hits.
type Locator interface {
	Locate(ctx context.Context, q string, opts Options) (Result, error)
}

// Service is the full lookup pipeline: index read-through, orchestration,
// merge, rank, index write-through, and selection.
//
// The index file is loaded on first use and held until Flush, so a batch
// of lookups reads and writes it once.
type Service struct {
	orch    *Orchestrator
	store   *index.Store
	aliases *rank.AliasTable
	weights rank.Weights
	mergeOp []merge.Option
	now     func() time.Time

	mu    sync.Mutex
	file  *index.File
	dirty bool
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithIndex enables the on-disk index. A nil store disables it.
func WithIndex(store *index.Store) ServiceOption {
	return func(s *Service) {
		s.store = store
	}
}

// WithAliases replaces the alias table used for ranking.
func WithAliases(t *rank.AliasTable) ServiceOption {
	return func(s *Service) {
		if t != nil {
			s.aliases = t
		}
	}
}

// WithWeights replaces the ranking weights.
func WithWeights(w rank.Weights) ServiceOption {
	return func(s *Service) {
		s.weights = w
	}
}

// WithEvidenceLimit caps the distinct values kept per evidence key when
// hits are merged.
func WithEvidenceLimit(n int) ServiceOption {
	return func(s *Service) {
		s.mergeOp = append(s.mergeOp, merge.WithMaxEvidenceValues(n))
	}
}

// WithClock overrides the time source used for index timestamps.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a lookup service over orch.
func NewService(orch *Orchestrator, opts ...ServiceOption) *Service {
	s := &Service{
		orch:    orch,
		aliases: rank.DefaultAliases(),
		weights: rank.DefaultWeights(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ Locator = (*Service)(nil)

// Locate resolves q. The only error is an empty query; source failures
// and index I/O problems are logged and reflected in the Report.
func (s *Service) Locate(ctx context.Context, raw string, opts Options) (Result, error) {
	q := query.Normalize(raw)
	if q == "" {
		return Result{}, alerrors.New(alerrors.ErrCodeQueryEmpty, "query is empty", nil).
			WithSuggestion("Pass an application name, e.g. applocate vscode")
	}

	ranker := rank.New(
		rank.WithAliases(s.aliases),
		rank.WithWeights(s.weights),
		rank.WithStrict(opts.Strict),
	)

	if s.store != nil && opts.usesIndexRead() {
		if hits, ok := s.cached(q); ok {
			slog.Debug("index_hit", slog.String("query", q), slog.Int("entries", len(hits)))
			return Result{
				Query:     q,
				Hits:      Select(hits, opts.Filter),
				Report:    Report{RunID: uuid.NewString(), Query: q},
				FromCache: true,
			}, nil
		}
	}

	srcOpts := source.Options{
		Timeout:         opts.Timeout,
		Strict:          opts.Strict,
		IncludeEvidence: true,
	}
	raws, report := s.orch.RunAll(ctx, q, srcOpts)
	scored := ranker.RankAll(q, merge.Merge(raws, s.mergeOp...))

	if s.store != nil && opts.usesIndexWrite() && ctx.Err() == nil {
		s.writeIndex(q, scored)
	}

	selected := Select(scored, opts.Filter)
	res := Result{Query: q, Hits: selected, Report: report}
	if opts.ScoreBreakdown {
		res.Breakdowns = make([]rank.Breakdown, len(selected))
		for i, h := range selected {
			res.Breakdowns[i] = ranker.Explain(q, h)
		}
	}
	if !opts.IncludeEvidence {
		for i := range res.Hits {
			res.Hits[i].Evidence = nil
		}
	}
	return res, nil
}

// loaded returns the held index file, loading it on first use.
// Callers hold s.mu.
func (s *Service) loaded() *index.File {
	if s.file == nil {
		s.file = s.store.Load()
	}
	return s.file
}

// cached returns the hits of the fresh record for q in the held index file.
func (s *Service) cached(q string) ([]hit.Hit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.store.TryGet(s.loaded(), q)
	if !ok {
		return nil, false
	}
	return rec.Hits(), true
}

// writeIndex upserts the scored hits into the held index file.
func (s *Service) writeIndex(q string, scored []hit.Hit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Upsert(s.loaded(), q, scored, s.now())
	s.dirty = true
}

// Flush saves pending index changes and releases the held file, so the next
// lookup reloads it and sees a changed environment. Save failures are
// logged; lookups never depend on them.
func (s *Service) Flush() {
	if s.store == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	file, dirty := s.file, s.dirty
	s.file, s.dirty = nil, false
	if !dirty {
		return
	}
	if err := s.store.Save(file); err != nil {
		le := alerrors.Wrap(alerrors.ErrCodeIndexWrite, err).WithDetail("path", s.store.Path())
		slog.LogAttrs(context.Background(), slog.LevelWarn, "index_save_failed", alerrors.LogAttrs(le)...)
	}
}
