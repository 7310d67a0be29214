package watcher

import (
	"os"
	"path/filepath"
	"time"
)

type fileSnapshot struct {
	dir     string
	modTime time.Time
	size    int64
	isDir   bool
}

// snapshot records the direct children of dirs. Unreadable directories
// contribute nothing.
func snapshot(dirs []string) map[string]fileSnapshot {
	state := make(map[string]fileSnapshot)
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			info, err := e.Info()
			if err != nil {
				continue
			}
			state[filepath.Join(dir, e.Name())] = fileSnapshot{
				dir:     dir,
				modTime: info.ModTime(),
				size:    info.Size(),
				isDir:   e.IsDir(),
			}
		}
	}
	return state
}

// diff returns the events that turn prev into next.
func diff(prev, next map[string]fileSnapshot, now time.Time) []FileEvent {
	var events []FileEvent
	for path, cur := range next {
		old, ok := prev[path]
		switch {
		case !ok:
			events = append(events, FileEvent{Path: path, Dir: cur.dir, Operation: OpCreate, IsDir: cur.isDir, Timestamp: now})
		case !old.modTime.Equal(cur.modTime) || old.size != cur.size:
			events = append(events, FileEvent{Path: path, Dir: cur.dir, Operation: OpModify, IsDir: cur.isDir, Timestamp: now})
		}
	}
	for path, old := range prev {
		if _, ok := next[path]; !ok {
			events = append(events, FileEvent{Path: path, Dir: old.dir, Operation: OpDelete, IsDir: old.isDir, Timestamp: now})
		}
	}
	return events
}
