// Package watcher reports changes to the directories applications are
// installed into, so that cached lookups can be re-resolved.
//
// Each directory is watched one level deep. fsnotify is used where the
// platform allows it; directories it cannot watch (network shares, some
// container mounts) are polled instead. Events are debounced so that an
// installer touching hundreds of files produces a single batch.
//
// Usage:
//
//	w := watcher.New(watcher.DefaultOptions())
//	defer w.Stop()
//
//	go func() { _ = w.Start(ctx, index.FingerprintDirs()) }()
//
//	for batch := range w.Events() {
//	    // re-run the lookup
//	}
package watcher
