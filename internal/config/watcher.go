package config

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ekisa-team/sttgate/internal/registry"
	"github.com/ekisa-team/sttgate/internal/xfs"
)

// RegistryWatcher watches the on-disk model-registry overlay (§"AMBIENT
// STACK": hot-reload of C1) and invokes onReload with the merged
// alias → ModelSpec table whenever the file changes. Reload failures
// never affect the currently loaded engine — only future lookups.
type RegistryWatcher struct {
	path     string
	onReload func([]registry.ModelSpec, error)
	current  []registry.ModelSpec
	mu       sync.RWMutex
	reloads  atomic.Uint32
}

// NewRegistryWatcher loads the overlay once synchronously, merges it
// with base, then watches path for subsequent writes.
func NewRegistryWatcher(path string, base []registry.ModelSpec, onReload func([]registry.ModelSpec, error)) (*RegistryWatcher, error) {
	w := &RegistryWatcher{
		path:     xfs.ExpandTilde(path),
		onReload: onReload,
	}

	overlay, err := LoadModelRegistryOverlay(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load initial model registry overlay: %w", err)
	}
	w.current = MergeOverlay(base, overlay)

	go w.watch(base)

	return w, nil
}

func (w *RegistryWatcher) watch(base []registry.ModelSpec) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Error("Failed to create registry overlay watcher", "error", err)
		return
	}
	defer watcher.Close()

	if err := watcher.Add(w.path); err != nil {
		slog.Error("Failed to watch model registry overlay", "path", w.path, "error", err)
		return
	}

	var timer *time.Timer
	const debounce = 500 * time.Millisecond

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			if event.Op&fsnotify.Write == fsnotify.Write {
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(debounce, func() {
					w.reload(base)
				})
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Model registry overlay watcher error", "error", err)
		}
	}
}

func (w *RegistryWatcher) reload(base []registry.ModelSpec) {
	count := w.reloads.Add(1)
	slog.Info("Reloading model registry overlay", "path", w.path, "count", count)

	overlay, err := LoadModelRegistryOverlay(w.path)
	if err != nil {
		slog.Error("Failed to reload model registry overlay", "error", err)
		w.onReload(nil, err)
		return
	}

	merged := MergeOverlay(base, overlay)

	w.mu.Lock()
	w.current = merged
	w.mu.Unlock()

	slog.Info("Model registry overlay reloaded", "count", count, "models", len(merged))
	w.onReload(merged, nil)
}

// Snapshot returns the current merged table (thread-safe).
func (w *RegistryWatcher) Snapshot() []registry.ModelSpec {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.current
}

// ReloadCount returns how many times the overlay has been reloaded.
func (w *RegistryWatcher) ReloadCount() uint32 {
	return w.reloads.Load()
}
