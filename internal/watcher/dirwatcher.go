package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DirWatcher implements Watcher over a flat set of directories. It uses
// fsnotify where it can and polls the rest.
type DirWatcher struct {
	opts      Options
	fsw       *fsnotify.Watcher
	debouncer *Debouncer
	events    chan []FileEvent
	errors    chan error
	stopCh    chan struct{}

	mu      sync.RWMutex
	stopped bool
	watched []string
	polled  []string
}

var _ Watcher = (*DirWatcher)(nil)

// New creates a DirWatcher. When fsnotify cannot be initialized every
// directory is polled.
func New(opts Options) *DirWatcher {
	opts = opts.WithDefaults()
	w := &DirWatcher{
		opts:      opts,
		debouncer: NewDebouncer(opts.DebounceWindow, opts.EventBufferSize),
		events:    make(chan []FileEvent, opts.EventBufferSize),
		errors:    make(chan error, 8),
		stopCh:    make(chan struct{}),
	}
	if !opts.ForcePolling {
		fsw, err := fsnotify.NewWatcher()
		if err != nil {
			slog.Warn("fsnotify_unavailable", slog.String("error", err.Error()))
		} else {
			w.fsw = fsw
		}
	}
	return w
}

// Start watches dirs and blocks until Stop is called or ctx is cancelled.
// When no directory can be watched it releases the watcher and returns
// ErrNothingToWatch.
func (w *DirWatcher) Start(ctx context.Context, dirs []string) error {
	var watched, polled []string
	seen := make(map[string]bool)
	for _, d := range dirs {
		abs, err := filepath.Abs(d)
		if err != nil || seen[abs] {
			continue
		}
		seen[abs] = true
		info, err := os.Stat(abs)
		if err != nil || !info.IsDir() {
			slog.Debug("watch_dir_skipped", slog.String("dir", abs))
			continue
		}
		if w.fsw != nil {
			err := w.fsw.Add(abs)
			if err == nil {
				watched = append(watched, abs)
				continue
			}
			slog.Warn("watch_dir_polling", slog.String("dir", abs), slog.String("error", err.Error()))
		}
		polled = append(polled, abs)
	}
	if len(watched)+len(polled) == 0 {
		_ = w.Stop()
		return ErrNothingToWatch
	}

	// Baseline before the lists are published so no change is missed.
	baseline := snapshot(polled)

	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.watched, w.polled = watched, polled
	w.mu.Unlock()

	go w.forward()
	if len(polled) > 0 {
		go w.poll(ctx, polled, baseline)
	}

	var fsEvents <-chan fsnotify.Event
	var fsErrors <-chan error
	if w.fsw != nil {
		fsEvents, fsErrors = w.fsw.Events, w.fsw.Errors
	}

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case ev, ok := <-fsEvents:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-fsErrors:
			if !ok {
				return nil
			}
			w.emitError(err)
		}
	}
}

func (w *DirWatcher) handle(ev fsnotify.Event) {
	var op Operation
	switch {
	case ev.Op&fsnotify.Create != 0:
		op = OpCreate
	case ev.Op&fsnotify.Write != 0:
		op = OpModify
	case ev.Op&fsnotify.Remove != 0:
		op = OpDelete
	case ev.Op&fsnotify.Rename != 0:
		op = OpRename
	default:
		return
	}

	isDir := false
	if op == OpCreate || op == OpModify {
		if info, err := os.Stat(ev.Name); err == nil {
			isDir = info.IsDir()
		}
	}
	w.debouncer.Add(FileEvent{
		Path:      ev.Name,
		Dir:       filepath.Dir(ev.Name),
		Operation: op,
		IsDir:     isDir,
		Timestamp: time.Now(),
	})
}

func (w *DirWatcher) poll(ctx context.Context, dirs []string, prev map[string]fileSnapshot) {
	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case now := <-ticker.C:
			next := snapshot(dirs)
			for _, ev := range diff(prev, next, now) {
				w.debouncer.Add(ev)
			}
			prev = next
		}
	}
}

func (w *DirWatcher) forward() {
	for batch := range w.debouncer.Output() {
		w.mu.RLock()
		if !w.stopped {
			select {
			case w.events <- batch:
			default:
				slog.Warn("watch_batch_dropped", slog.Int("batch_size", len(batch)))
			}
		}
		w.mu.RUnlock()
	}
}

func (w *DirWatcher) emitError(err error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return
	}
	select {
	case w.errors <- err:
	default:
	}
}

// Stop stops the watcher and releases resources.
func (w *DirWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.stopCh)
	w.debouncer.Stop()
	if w.fsw != nil {
		_ = w.fsw.Close()
	}
	close(w.events)
	close(w.errors)
	return nil
}

// Events returns the channel of debounced batches.
func (w *DirWatcher) Events() <-chan []FileEvent {
	return w.events
}

// Errors returns the channel of non-fatal errors.
func (w *DirWatcher) Errors() <-chan error {
	return w.errors
}

// Watched returns the directories watched through fsnotify.
func (w *DirWatcher) Watched() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]string(nil), w.watched...)
}

// Polled returns the directories watched by polling.
func (w *DirWatcher) Polled() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]string(nil), w.polled...)
}
