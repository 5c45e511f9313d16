// Package config centralizes environment-variable configuration, plus an
// optional filesystem watcher for the CYCLUS_PATH plugin directory.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/fsnotify/fsnotify"

	"github.com/hodger/cyclus/internal/simerr"
)

// CyclusPathEnv is the environment variable naming the directory whose
// Models/<kind>/ subdirectories hold plugin artifacts. Facility kinds are
// resolved at compile time instead (internal/registry.NewFacility), so the
// variable's value is never dereferenced as a filesystem path here — only
// its presence is checked, as a startup precondition.
const CyclusPathEnv = "CYCLUS_PATH"

// RequireCyclusPath returns CYCLUS_PATH's value, or a simerr.ErrIO-wrapped
// error if it is unset.
func RequireCyclusPath() (string, error) {
	path := os.Getenv(CyclusPathEnv)
	if path == "" {
		return "", fmt.Errorf("%w: %s is not set", simerr.ErrIO, CyclusPathEnv)
	}
	return path, nil
}

// EnvOrDefault returns the named environment variable, or defaultVal if
// unset or empty.
func EnvOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// EnvIntOrDefault returns the named environment variable parsed as an int,
// or defaultVal if unset, empty, or unparseable.
func EnvIntOrDefault(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

// Watcher watches a single directory for changes and logs each event. The
// watch is not recursive: events inside the directory's subdirectories
// (such as Models/<kind>/) are not reported. It exists purely as a development
// convenience — since facility kinds are resolved from the compile-time
// plugin table (facility.Constructors), a changed marker file cannot
// actually rebind a kind without a rebuild; the watcher only tells the
// operator that a rebuild is likely needed.
type Watcher struct {
	fs *fsnotify.Watcher
}

// NewWatcher starts watching root (cmd/cyclus passes the CYCLUS_PATH
// directory itself) for filesystem events.
func NewWatcher(root string) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: starting watcher: %w", err)
	}
	if err := fs.Add(root); err != nil {
		fs.Close()
		return nil, fmt.Errorf("config: watching %s: %w", root, err)
	}
	return &Watcher{fs: fs}, nil
}

// Run blocks, logging every filesystem event seen under the watched root,
// until Close is called.
func (w *Watcher) Run() {
	for event := range w.fs.Events {
		slog.Info("cyclus_path changed, rebuild may be required to pick up new plugin kinds", "path", event.Name, "op", event.Op.String())
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fs.Close()
}
