package watcher

import (
	"context"
	"errors"
	"time"
)

// ErrNothingToWatch is returned by Start when none of the directories exist.
var ErrNothingToWatch = errors.New("no watchable directories")

// Operation represents a file system operation type.
type Operation int

const (
	// OpCreate indicates a new entry appeared in a watched directory.
	OpCreate Operation = iota
	// OpModify indicates an existing entry changed.
	OpModify
	// OpDelete indicates an entry was removed.
	OpDelete
	// OpRename indicates an entry was renamed away.
	OpRename
)

// String returns a human-readable representation of the operation.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpRename:
		return "RENAME"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is a change to one entry of a watched directory.
type FileEvent struct {
	// Path is the absolute path of the changed entry.
	Path string

	// Dir is the watched directory the entry belongs to.
	Dir string

	Operation Operation
	IsDir     bool
	Timestamp time.Time
}

// Watcher reports debounced changes to a set of directories.
type Watcher interface {
	// Start watches dirs until Stop is called or ctx is cancelled.
	// Missing directories are skipped; ErrNothingToWatch is returned when
	// none remain.
	Start(ctx context.Context, dirs []string) error

	// Stop releases resources and closes both channels. Safe to call
	// multiple times.
	Stop() error

	// Events returns debounced batches of changes.
	Events() <-chan []FileEvent

	// Errors returns non-fatal watcher errors.
	Errors() <-chan error
}

// Options configures the watcher behavior.
type Options struct {
	// DebounceWindow is the quiet period before a batch is emitted.
	// Default: 2s
	DebounceWindow time.Duration

	// PollInterval is the scan interval for directories fsnotify cannot
	// watch. Default: 30s
	PollInterval time.Duration

	// EventBufferSize is the number of batches buffered for the reader.
	// Default: 16
	EventBufferSize int

	// ForcePolling disables fsnotify entirely.
	ForcePolling bool
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		DebounceWindow:  2 * time.Second,
		PollInterval:    30 * time.Second,
		EventBufferSize: 16,
	}
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.DebounceWindow <= 0 {
		o.DebounceWindow = defaults.DebounceWindow
	}
	if o.PollInterval <= 0 {
		o.PollInterval = defaults.PollInterval
	}
	if o.EventBufferSize <= 0 {
		o.EventBufferSize = defaults.EventBufferSize
	}
	return o
}
