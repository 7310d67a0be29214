package locate

import (
	"context"
	"fmt"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aalex954/applocate-sub001/internal/hit"
	"github.com/aalex954/applocate-sub001/internal/query"
)

// DefaultMemoSize is the default number of lookups kept in memory.
const DefaultMemoSize = 128

// CachedService wraps a Locator with an in-process LRU so repeated queries
// within one process (batch mode) resolve once.
type CachedService struct {
	inner Locator
	cache *lru.Cache[string, Result]
}

// NewCachedService creates a memoizing locator. A non-positive size uses
// DefaultMemoSize.
func NewCachedService(inner Locator, size int) *CachedService {
	if size <= 0 {
		size = DefaultMemoSize
	}
	cache, _ := lru.New[string, Result](size)
	return &CachedService{inner: inner, cache: cache}
}

var _ Locator = (*CachedService)(nil)

// memoKey identifies a lookup by normalized query and every option that
// changes its result.
func memoKey(q string, opts Options) string {
	f := opts.Filter
	kinds := slices.Clone(f.Kinds)
	slices.Sort(kinds)
	return fmt.Sprintf("%s\x00%s|%t|%t|%t|%t|%t|%.3f|%t|%t|%v|%t|%d",
		query.Normalize(q), opts.Timeout, opts.Strict, opts.IncludeEvidence, opts.ScoreBreakdown,
		opts.Refresh, opts.NoIndex, f.MinConfidence, f.UserOnly, f.MachineOnly, kinds, f.All, f.Limit)
}

// Locate returns the memoized result when present and otherwise delegates.
// Errors are not memoized.
func (c *CachedService) Locate(ctx context.Context, q string, opts Options) (Result, error) {
	key := memoKey(q, opts)
	if res, ok := c.cache.Get(key); ok {
		return cloneResult(res), nil
	}

	res, err := c.inner.Locate(ctx, q, opts)
	if err != nil {
		return res, err
	}
	if ctx.Err() == nil {
		c.cache.Add(key, cloneResult(res))
	}
	return res, nil
}

// Len returns the number of memoized lookups.
func (c *CachedService) Len() int {
	return c.cache.Len()
}

func cloneResult(r Result) Result {
	out := r
	out.Hits = make([]hit.Hit, len(r.Hits))
	for i, h := range r.Hits {
		out.Hits[i] = h.Clone()
	}
	out.Breakdowns = slices.Clone(r.Breakdowns)
	return out
}
