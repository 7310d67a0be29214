package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"

	alerrors "github.com/aalex954/applocate-sub001/internal/errors"
	"github.com/aalex954/applocate-sub001/internal/hit"
	"github.com/aalex954/applocate-sub001/internal/query"
)

const (
	indexDirName  = "AppLocate"
	indexFileName = "index.json"

	defaultLockWait = 250 * time.Millisecond
	lockRetryDelay  = 10 * time.Millisecond
)

// DefaultPath returns <user cache dir>/AppLocate/index.json, falling back
// to the system temp directory.
func DefaultPath() string {
	dir, err := os.UserCacheDir()
	if err != nil || dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, indexDirName, indexFileName)
}

// Store owns the cache file.
type Store struct {
	path        string
	maxAge      time.Duration
	maxRecords  int
	lockWait    time.Duration
	fingerprint func() string
	now         func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithMaxAge sets how long records stay fresh.
func WithMaxAge(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.maxAge = d
		}
	}
}

// WithMaxRecords bounds the number of records; the least recently refreshed
// are dropped first.
func WithMaxRecords(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxRecords = n
		}
	}
}

// WithFingerprint overrides the environment fingerprint function.
func WithFingerprint(fn func() string) Option {
	return func(s *Store) { s.fingerprint = fn }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLockWait bounds how long Save waits for the writer lock.
func WithLockWait(d time.Duration) Option {
	return func(s *Store) { s.lockWait = d }
}

// NewStore creates a store for the file at path. An empty path means
// DefaultPath.
func NewStore(path string, opts ...Option) *Store {
	if path == "" {
		path = DefaultPath()
	}
	s := &Store{
		path:       path,
		maxAge:     DefaultMaxAge,
		maxRecords: DefaultMaxRecords,
		lockWait:   defaultLockWait,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.fingerprint == nil {
		dirs := FingerprintDirs()
		clock := s.now
		s.fingerprint = func() string { return Fingerprint(dirs, clock()) }
	}
	return s
}

// Path returns the cache file path.
func (s *Store) Path() string { return s.path }

// MaxAge returns the freshness window.
func (s *Store) MaxAge() time.Duration { return s.maxAge }

// Empty returns a fresh index stamped with the current version and
// fingerprint.
func (s *Store) Empty() *File {
	return &File{Version: SchemaVersion, EnvironmentHash: s.fingerprint()}
}

// Load reads the cache file. A missing, unreadable or outdated file yields
// an empty index.
func (s *Store) Load() *File {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Debug("index_read_failed", slog.String("path", s.path), slog.String("error", err.Error()))
		}
		return s.Empty()
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		slog.Debug("index_decode_failed", slog.String("path", s.path), slog.String("error", err.Error()))
		return s.Empty()
	}

	current := s.fingerprint()
	if f.Version != SchemaVersion || f.EnvironmentHash != current {
		slog.Debug("index_invalidated",
			slog.Int("version", f.Version),
			slog.String("hash", f.EnvironmentHash),
			slog.String("current_hash", current))
		return s.Empty()
	}

	records := f.Records[:0]
	for _, r := range f.Records {
		if r != nil && r.Query != "" {
			records = append(records, r)
		}
	}
	f.Records = records
	return &f
}

// Save writes f to a temporary file next to the target and renames it into
// place. Writers serialize on a lock file; if the lock cannot be taken
// within the lock wait the write proceeds anyway and the last rename wins.
// Callers treat the returned error as a diagnostic only.
func (s *Store) Save(f *File) error {
	if f == nil {
		return nil
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	lock := flock.New(s.path + ".lock")
	ctx, cancel := context.WithTimeout(context.Background(), s.lockWait)
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	cancel()
	if locked {
		defer func() { _ = lock.Unlock() }()
	} else {
		slog.Debug("index_lock_unavailable", slog.String("path", lock.Path()), slog.Any("error", err))
	}

	s.trim(f)
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".index-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp index: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write index: %w", err)
	}
	rename := func() error { return os.Rename(tmpPath, s.path) }
	if err := alerrors.Retry(context.Background(), alerrors.FileRetryConfig(), rename); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace index: %w", err)
	}
	return nil
}

// trim drops the least recently refreshed records beyond maxRecords.
func (s *Store) trim(f *File) {
	if len(f.Records) <= s.maxRecords {
		return
	}
	sort.SliceStable(f.Records, func(i, j int) bool {
		return f.Records[i].LastRefresh.After(f.Records[j].LastRefresh)
	})
	f.Records = f.Records[:s.maxRecords]
}

// TryGet returns the record for q if it was refreshed within the max age.
func (s *Store) TryGet(f *File, q string) (*Record, bool) {
	if f == nil {
		return nil, false
	}
	r, _ := f.find(query.Normalize(q))
	if r == nil {
		return nil, false
	}
	if s.now().Sub(r.LastRefresh) > s.maxAge {
		return nil, false
	}
	return r, true
}

// Upsert stores hits as the record for q. Entries whose identity was
// already cached keep their first-seen time and union their provenance;
// confidence and version always take the latest values.
func (s *Store) Upsert(f *File, q string, hits []hit.Hit, now time.Time) *Record {
	if f == nil {
		return nil
	}
	now = now.UTC().Round(0)
	q = query.Normalize(q)

	r, _ := f.find(q)
	if r == nil {
		r = &Record{Query: q}
		f.Records = append(f.Records, r)
	}

	previous := make(map[hit.Identity]Entry, len(r.Entries))
	for _, e := range r.Entries {
		previous[e.key()] = e
	}

	entries := make([]Entry, 0, len(hits))
	seen := make(map[hit.Identity]int, len(hits))
	for _, h := range hits {
		id := h.Key()
		if i, ok := seen[id]; ok {
			entries[i].Source = hit.UnionSources(entries[i].Source, h.Source)
			continue
		}
		e := Entry{
			Kind:        h.Kind,
			Scope:       h.Scope,
			Path:        h.Path,
			Version:     h.Version,
			PackageType: h.PackageType,
			Source:      hit.UnionSources(nil, h.Source),
			Confidence:  h.Confidence,
			FirstSeen:   now,
			LastSeen:    now,
		}
		if old, ok := previous[id]; ok {
			e.FirstSeen = old.FirstSeen
			e.Source = hit.UnionSources(old.Source, h.Source)
		}
		seen[id] = len(entries)
		entries = append(entries, e)
	}

	r.Entries = entries
	r.LastRefresh = now
	return r
}

// Remove drops the record for q, if any.
func (s *Store) Remove(f *File, q string) bool {
	if f == nil {
		return false
	}
	_, i := f.find(query.Normalize(q))
	if i < 0 {
		return false
	}
	f.Records = append(f.Records[:i], f.Records[i+1:]...)
	return true
}

// Clear deletes the cache file and its lock file.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove index: %w", err)
	}
	_ = os.Remove(s.path + ".lock")
	return nil
}
