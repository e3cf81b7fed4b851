package collector

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/grovetools/nudge/internal/daemon/store"
	"github.com/sirupsen/logrus"
)

const defaultDebounce = 200 * time.Millisecond

// ConfigWatcher reports edits to the config files the daemon was started
// with. Configuration is read once at startup, so the notice only tells
// clients that a restart is needed.
type ConfigWatcher struct {
	files    map[string]bool
	dirs     []string
	debounce time.Duration
	logger   *logrus.Entry

	mu         sync.Mutex
	lastChange map[string]time.Time
}

// NewConfigWatcher watches the given files. Missing files are watched through
// their parent directory so that a file created after startup is noticed.
func NewConfigWatcher(files []string, debounce time.Duration, logger *logrus.Entry) *ConfigWatcher {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	w := &ConfigWatcher{
		files:      make(map[string]bool),
		debounce:   debounce,
		logger:     logger,
		lastChange: make(map[string]time.Time),
	}
	seen := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			continue
		}
		w.files[abs] = true
		// fsnotify doesn't follow symlinks, so watch the target too
		if target, err := filepath.EvalSymlinks(abs); err == nil && target != abs {
			w.files[target] = true
			if dir := filepath.Dir(target); !seen[dir] {
				seen[dir] = true
				w.dirs = append(w.dirs, dir)
			}
		}
		if dir := filepath.Dir(abs); !seen[dir] {
			seen[dir] = true
			w.dirs = append(w.dirs, dir)
		}
	}
	return w
}

// Name returns the collector's name.
func (w *ConfigWatcher) Name() string { return "config-watcher" }

// Run watches until ctx is cancelled. A watcher that cannot be created is
// logged and the collector idles instead of failing the engine.
func (w *ConfigWatcher) Run(ctx context.Context, updates chan<- store.Update) error {
	if len(w.dirs) == 0 {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.WithError(err).Warn("Config watcher unavailable")
		<-ctx.Done()
		return nil
	}
	defer watcher.Close()

	for _, dir := range w.dirs {
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			w.logger.WithError(err).WithField("dir", dir).Warn("Failed to watch config directory")
			continue
		}
		w.logger.WithField("dir", dir).Debug("Watching config directory")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !w.files[filepath.Clean(event.Name)] {
				continue
			}
			if !w.shouldReport(event.Name, time.Now()) {
				continue
			}
			w.logger.WithFields(logrus.Fields{
				"file": event.Name,
				"op":   event.Op.String(),
			}).Info("Config changed on disk; restart the daemon to apply it")
			if !emit(ctx, updates, store.Update{
				Type:    store.UpdateConfigChanged,
				Source:  "config",
				At:      time.Now(),
				Payload: event.Name,
			}) {
				return nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.WithError(err).Error("Watcher error")
		}
	}
}

// shouldReport debounces rapid writes to the same file.
func (w *ConfigWatcher) shouldReport(file string, now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if last, ok := w.lastChange[file]; ok && now.Sub(last) < w.debounce {
		return false
	}
	w.lastChange[file] = now
	return true
}
