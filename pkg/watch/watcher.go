package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/albertocavalcante/contentscan/internal/log"
	"github.com/albertocavalcante/contentscan/pkg/content"
)

// DefaultDebounce is the coalescing window used when Config.Debounce is
// unset.
const DefaultDebounce = 500 * time.Millisecond

// ErrWatchLimitReached is returned when the OS watch limit is exceeded.
var ErrWatchLimitReached = errors.New("filesystem watch limit reached")

// Config configures the watcher.
type Config struct {
	// Specs are the resolved content path specs to observe, symlink
	// expansion included. Exclusion specs register nothing and veto
	// matching events.
	Specs []content.PathSpec

	// OnChange receives debounced batches of changed absolute paths. A
	// batch can arrive while a previous call is still running when the
	// handler outlasts the debounce window; handlers that touch shared
	// state serialize themselves.
	OnChange func(paths []string)

	// Debounce is the coalescing window. Zero means DefaultDebounce.
	Debounce time.Duration

	// ConfirmWrites suppresses write events whose contents are
	// byte-identical to the previous observation, at the cost of hashing
	// the file on every write.
	ConfirmWrites bool
}

// Watcher observes the filesystem regions named by a spec list and reports
// matching changes.
type Watcher struct {
	config    Config
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	match     *matcher
	prints    *fingerprints // nil unless ConfirmWrites
	logger    *slog.Logger

	// targets are the directories currently registered with fsWatcher.
	targets map[string]struct{}
	// recursiveRoots are bases whose whole tree is watched; directories
	// created under them are added live.
	recursiveRoots []string
}

// New creates a watcher for the given configuration.
func New(cfg Config) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		config:    cfg,
		fsWatcher: fsWatcher,
		match:     newMatcher(cfg.Specs),
		logger:    log.Component("watch"),
		targets:   make(map[string]struct{}),
	}
	if cfg.ConfirmWrites {
		w.prints = newFingerprints()
	}
	return w, nil
}

// Run registers the watch targets and blocks on the event loop until the
// context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	window := w.config.Debounce
	if window <= 0 {
		window = DefaultDebounce
	}
	w.debouncer = NewDebouncer(window, w.config.OnChange)
	defer w.debouncer.Stop()

	if err := w.addSpecs(); err != nil {
		return err
	}

	w.logger.Info("watching content sources",
		"specs", len(w.config.Specs),
		"targets", len(w.targets))

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("watcher stopped")
			return nil

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", "error", err)
		}
	}
}

// addSpecs registers a watch target for every non-exclusion spec. Pattern
// specs watch their base, recursively when the pattern spans directories.
// Literal file specs watch the parent directory: editors replace files on
// save, and the parent watch survives the swap. Bases missing from disk
// are skipped; they match nothing until they exist.
func (w *Watcher) addSpecs() error {
	for _, spec := range w.config.Specs {
		if spec.IsExclusion() {
			continue
		}

		base := filepath.FromSlash(spec.Base)
		info, err := os.Stat(base)
		if err != nil {
			w.logger.Debug("skipping unwatchable base", "base", spec.Base, "error", err)
			continue
		}

		switch {
		case !info.IsDir():
			if err := w.addDir(filepath.Dir(base)); err != nil {
				return err
			}
		case recursivePattern(spec.Pattern):
			if err := w.addTree(base, false); err != nil {
				return err
			}
			w.recursiveRoots = append(w.recursiveRoots, filepath.ToSlash(base))
		default:
			if err := w.addDir(base); err != nil {
				return err
			}
		}
	}
	return nil
}

// recursivePattern reports whether pattern can match below the base's
// immediate children.
func recursivePattern(pattern string) bool {
	return strings.Contains(pattern, "/") || strings.Contains(pattern, "**")
}

// addDir registers a single directory, once.
func (w *Watcher) addDir(dir string) error {
	key := filepath.ToSlash(dir)
	if _, ok := w.targets[key]; ok {
		return nil
	}

	if err := w.fsWatcher.Add(dir); err != nil {
		if isWatchLimitError(err) {
			return fmt.Errorf("%w at %s (%v); increase it with: sudo sysctl fs.inotify.max_user_watches=524288",
				ErrWatchLimitReached, dir, err)
		}
		w.logger.Debug("failed to watch directory", "dir", key, "error", err)
		return nil
	}

	w.targets[key] = struct{}{}
	return nil
}

// addTree registers root and every directory below it. When notify is set,
// files in the tree that match the spec set are handed to the debouncer;
// used for directories that appear while watching, whose files may predate
// their watch.
func (w *Watcher) addTree(root string, notify bool) error {
	// WalkDir lstats its root, so a symlinked base would walk as a plain
	// file and register nothing.
	if err := w.addDir(root); err != nil {
		return err
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsPermission(err) {
				w.logger.Debug("permission denied", "path", path)
				return nil
			}
			w.logger.Warn("walk error", "path", path, "error", err)
			return nil
		}

		if !d.IsDir() {
			if notify && w.match.Matches(path) {
				w.debouncer.Add(filepath.ToSlash(path))
			}
			return nil
		}

		return w.addDir(path)
	})
}

// isWatchLimitError checks if an error is due to inotify watch limits.
func isWatchLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "no space left on device") ||
		strings.Contains(errStr, "too many open files")
}

// handleEvent processes a single filesystem event.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name

	// Directories created under a recursive base join the watch live.
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if w.underRecursiveRoot(path) {
				if err := w.addTree(path, true); err != nil {
					w.logger.Error("failed to watch new directory", "dir", path, "error", err)
				}
			}
			return
		}
	}

	if !w.match.Matches(path) {
		return
	}

	switch {
	case event.Has(fsnotify.Create):
	case event.Has(fsnotify.Write):
		if w.prints != nil && !w.prints.Changed(path) {
			w.logger.Debug("write left contents unchanged", "path", path)
			return
		}
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		// A rename's old path is gone; fsnotify drops its watch and a
		// replacement arrives as its own create event.
		if w.prints != nil {
			w.prints.Forget(path)
		}
	default:
		return // chmod only
	}

	w.debouncer.Add(filepath.ToSlash(path))
}

// underRecursiveRoot reports whether path sits inside a recursively
// watched base.
func (w *Watcher) underRecursiveRoot(path string) bool {
	p := filepath.ToSlash(path)
	for _, root := range w.recursiveRoots {
		if strings.HasPrefix(p, root+"/") {
			return true
		}
	}
	return false
}

// FlushNow forces any pending changes out immediately.
func (w *Watcher) FlushNow() {
	if w.debouncer != nil {
		w.debouncer.FlushNow()
	}
}

// Close closes the watcher and releases resources.
func (w *Watcher) Close() error {
	if w.fsWatcher != nil {
		return w.fsWatcher.Close()
	}
	return nil
}
