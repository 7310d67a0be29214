// Package integration holds end-to-end tests that drive real sources, the
// on-disk index and the directory watcher together.
package integration
