package watch

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/albertocavalcante/contentscan/pkg/content"
)

// canonical resolves symlinks in dir so watch targets compare cleanly
// even when the test temp root itself sits behind a symlink.
func canonical(t *testing.T, dir string) string {
	t.Helper()
	real, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatal(err)
	}
	return real
}

func TestNewWatcher(t *testing.T) {
	w, err := New(Config{
		Specs:    []content.PathSpec{{Original: "*.html", Base: "/proj", Pattern: "*.html"}},
		OnChange: func(paths []string) {},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()

	if w.fsWatcher == nil {
		t.Error("fsWatcher is nil")
	}
	if w.match == nil {
		t.Error("match is nil")
	}
	if w.logger == nil {
		t.Error("logger is nil")
	}

	// Write confirmation is opt-in
	if w.prints != nil {
		t.Error("prints should be nil without ConfirmWrites")
	}
}

func TestNewWatcherConfirmWrites(t *testing.T) {
	w, err := New(Config{ConfirmWrites: true})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()

	if w.prints == nil {
		t.Error("prints is nil with ConfirmWrites")
	}
}

func TestWatcherClose(t *testing.T) {
	w, err := New(Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := w.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestWatcherCloseNilFsWatcher(t *testing.T) {
	// Close on nil fsWatcher should not panic
	w := &Watcher{fsWatcher: nil}
	if err := w.Close(); err != nil {
		t.Errorf("Close() on nil fsWatcher error = %v", err)
	}
}

func TestWatcherFlushNowWithoutRun(t *testing.T) {
	w := &Watcher{}
	w.FlushNow() // should not panic before Run creates the debouncer
}

func TestIsWatchLimitError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "watch limit",
			err:      errors.New("inotify_add_watch: no space left on device"),
			expected: true,
		},
		{
			name:     "descriptor limit",
			err:      errors.New("too many open files"),
			expected: true,
		},
		{
			name:     "not exist",
			err:      &os.PathError{Op: "watch", Path: "/foo", Err: os.ErrNotExist},
			expected: false,
		},
		{
			name:     "regular error",
			err:      os.ErrPermission,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := isWatchLimitError(tt.err)
			if result != tt.expected {
				t.Errorf("isWatchLimitError(%v) = %v, want %v", tt.err, result, tt.expected)
			}
		})
	}
}

func TestRecursivePattern(t *testing.T) {
	tests := []struct {
		pattern string
		want    bool
	}{
		{"*.html", false},
		{"*.{html,js}", false},
		{"**", true},
		{"**/*.html", true},
		{"pages/*.html", true},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			if got := recursivePattern(tt.pattern); got != tt.want {
				t.Errorf("recursivePattern(%q) = %v, want %v", tt.pattern, got, tt.want)
			}
		})
	}
}

func TestAddSpecsRegistersTargets(t *testing.T) {
	tmpDir := canonical(t, t.TempDir())

	if err := os.MkdirAll(filepath.Join(tmpDir, "pages", "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	single := filepath.Join(tmpDir, "single.html")
	if err := os.WriteFile(single, []byte("<html/>"), 0o644); err != nil {
		t.Fatal(err)
	}

	pages := filepath.ToSlash(filepath.Join(tmpDir, "pages"))
	w, err := New(Config{
		Specs: []content.PathSpec{
			{Original: "pages/**/*.html", Base: pages, Pattern: "**/*.html"},
			{Original: "single.html", Base: filepath.ToSlash(single)},
			{Original: "!pages/vendor/**", Base: pages + "/vendor", Pattern: "**"},
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()

	if err := w.addSpecs(); err != nil {
		t.Fatalf("addSpecs() error = %v", err)
	}

	// The recursive base, its subdirectory, and the literal file's parent.
	want := []string{
		filepath.ToSlash(tmpDir),
		pages,
		pages + "/sub",
	}
	got := make([]string, 0, len(w.targets))
	for target := range w.targets {
		got = append(got, target)
	}
	slices.Sort(got)
	slices.Sort(want)
	if !slices.Equal(got, want) {
		t.Errorf("targets = %v, want %v", got, want)
	}

	if !slices.Equal(w.recursiveRoots, []string{pages}) {
		t.Errorf("recursiveRoots = %v, want [%s]", w.recursiveRoots, pages)
	}
}

func TestAddSpecsSingleLevelGlob(t *testing.T) {
	tmpDir := canonical(t, t.TempDir())
	if err := os.MkdirAll(filepath.Join(tmpDir, "pages", "sub"), 0o755); err != nil {
		t.Fatal(err)
	}

	pages := filepath.ToSlash(filepath.Join(tmpDir, "pages"))
	w, err := New(Config{
		Specs: []content.PathSpec{
			{Original: "pages/*.html", Base: pages, Pattern: "*.html"},
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()

	if err := w.addSpecs(); err != nil {
		t.Fatalf("addSpecs() error = %v", err)
	}

	// A single-level pattern watches its base only, not the subtree.
	if len(w.targets) != 1 {
		t.Errorf("targets = %v, want only the base", w.targets)
	}
	if _, ok := w.targets[pages]; !ok {
		t.Errorf("targets = %v, want %s", w.targets, pages)
	}
	if len(w.recursiveRoots) != 0 {
		t.Errorf("recursiveRoots = %v, want none", w.recursiveRoots)
	}
}

func TestAddSpecsSymlinkPairRegistersBothBases(t *testing.T) {
	tmpDir := canonical(t, t.TempDir())

	realDir := filepath.Join(tmpDir, "real")
	if err := os.Mkdir(realDir, 0o755); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(tmpDir, "link")
	if err := os.Symlink(realDir, link); err != nil {
		t.Fatal(err)
	}

	// The pair a symlinked source resolves to: the declared link base
	// plus its real-path clone.
	w, err := New(Config{
		Specs: []content.PathSpec{
			{Original: "link/**/*.html", Base: filepath.ToSlash(link), Pattern: "**/*.html"},
			{Original: "link/**/*.html", Base: filepath.ToSlash(realDir), Pattern: "**/*.html"},
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()

	if err := w.addSpecs(); err != nil {
		t.Fatalf("addSpecs() error = %v", err)
	}

	for _, base := range []string{filepath.ToSlash(link), filepath.ToSlash(realDir)} {
		if _, ok := w.targets[base]; !ok {
			t.Errorf("targets = %v, missing %s", w.targets, base)
		}
	}
	if len(w.targets) != 2 {
		t.Errorf("targets = %v, want the link and its target only", w.targets)
	}
}

func TestAddSpecsDeduplicatesTargets(t *testing.T) {
	tmpDir := canonical(t, t.TempDir())
	if err := os.Mkdir(filepath.Join(tmpDir, "pages"), 0o755); err != nil {
		t.Fatal(err)
	}

	pages := filepath.ToSlash(filepath.Join(tmpDir, "pages"))
	w, err := New(Config{
		Specs: []content.PathSpec{
			{Original: "pages/*.html", Base: pages, Pattern: "*.html"},
			{Original: "pages/*.css", Base: pages, Pattern: "*.css"},
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()

	if err := w.addSpecs(); err != nil {
		t.Fatalf("addSpecs() error = %v", err)
	}

	if len(w.targets) != 1 {
		t.Errorf("targets = %v, want the shared base once", w.targets)
	}
}

func TestAddSpecsMissingBaseSkipped(t *testing.T) {
	w, err := New(Config{
		Specs: []content.PathSpec{
			{Original: "gone/**", Base: "/nonexistent/gone", Pattern: "**"},
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()

	if err := w.addSpecs(); err != nil {
		t.Fatalf("addSpecs() error = %v", err)
	}
	if len(w.targets) != 0 {
		t.Errorf("targets = %v, want none for a missing base", w.targets)
	}
}

func TestUnderRecursiveRoot(t *testing.T) {
	w := &Watcher{recursiveRoots: []string{"/proj/src"}}

	tests := []struct {
		path string
		want bool
	}{
		{"/proj/src/pages", true},
		{"/proj/src/pages/deep", true},
		{"/proj/src", false},
		{"/proj/srcx/pages", false},
		{"/other", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := w.underRecursiveRoot(tt.path); got != tt.want {
				t.Errorf("underRecursiveRoot(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestHandleEventTriggersOnMatch(t *testing.T) {
	tmpDir := canonical(t, t.TempDir())
	path := filepath.Join(tmpDir, "index.html")
	if err := os.WriteFile(path, []byte("<html/>"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := New(Config{
		Specs: []content.PathSpec{
			{Original: "*.html", Base: filepath.ToSlash(tmpDir), Pattern: "*.html"},
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()

	var batches [][]string
	w.debouncer = NewDebouncer(time.Hour, func(paths []string) {
		batches = append(batches, paths)
	})

	w.handleEvent(fsnotify.Event{Name: path, Op: fsnotify.Write})
	w.handleEvent(fsnotify.Event{Name: filepath.Join(tmpDir, "app.js"), Op: fsnotify.Write})
	w.handleEvent(fsnotify.Event{Name: path, Op: fsnotify.Chmod})
	w.debouncer.FlushNow()

	if len(batches) != 1 {
		t.Fatalf("got %d batches, want 1", len(batches))
	}
	want := []string{filepath.ToSlash(path)}
	if !slices.Equal(batches[0], want) {
		t.Errorf("batch = %v, want %v", batches[0], want)
	}
}

func TestHandleEventRemoveTriggers(t *testing.T) {
	tmpDir := canonical(t, t.TempDir())
	path := filepath.Join(tmpDir, "index.html")

	w, err := New(Config{
		Specs: []content.PathSpec{
			{Original: "index.html", Base: filepath.ToSlash(path)},
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()

	var batches [][]string
	w.debouncer = NewDebouncer(time.Hour, func(paths []string) {
		batches = append(batches, paths)
	})

	// The file does not exist; a remove event must still pass through.
	w.handleEvent(fsnotify.Event{Name: path, Op: fsnotify.Remove})
	w.debouncer.FlushNow()

	if len(batches) != 1 || !slices.Equal(batches[0], []string{filepath.ToSlash(path)}) {
		t.Errorf("batches = %v, want the removed path", batches)
	}
}

func TestHandleEventConfirmWrites(t *testing.T) {
	tmpDir := canonical(t, t.TempDir())
	path := filepath.Join(tmpDir, "index.html")
	if err := os.WriteFile(path, []byte("<html/>"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := New(Config{
		Specs: []content.PathSpec{
			{Original: "index.html", Base: filepath.ToSlash(path)},
		},
		ConfirmWrites: true,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()

	w.debouncer = NewDebouncer(time.Hour, nil)

	w.handleEvent(fsnotify.Event{Name: path, Op: fsnotify.Write})
	if w.debouncer.PendingCount() != 1 {
		t.Fatalf("PendingCount() = %d after first write, want 1", w.debouncer.PendingCount())
	}
	w.debouncer.FlushNow()

	// Same bytes again: the write is suppressed.
	w.handleEvent(fsnotify.Event{Name: path, Op: fsnotify.Write})
	if w.debouncer.PendingCount() != 0 {
		t.Errorf("PendingCount() = %d after identical write, want 0", w.debouncer.PendingCount())
	}

	// New bytes pass through.
	if err := os.WriteFile(path, []byte("<html lang=\"en\"/>"), 0o644); err != nil {
		t.Fatal(err)
	}
	w.handleEvent(fsnotify.Event{Name: path, Op: fsnotify.Write})
	if w.debouncer.PendingCount() != 1 {
		t.Errorf("PendingCount() = %d after modifying write, want 1", w.debouncer.PendingCount())
	}
}

func TestHandleEventNewDirJoinsWatch(t *testing.T) {
	tmpDir := canonical(t, t.TempDir())
	pages := filepath.Join(tmpDir, "pages")
	if err := os.Mkdir(pages, 0o755); err != nil {
		t.Fatal(err)
	}

	w, err := New(Config{
		Specs: []content.PathSpec{
			{Original: "pages/**/*.html", Base: filepath.ToSlash(pages), Pattern: "**/*.html"},
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()

	w.debouncer = NewDebouncer(time.Hour, nil)
	if err := w.addSpecs(); err != nil {
		t.Fatalf("addSpecs() error = %v", err)
	}

	// A directory appears under the recursive base with a file already
	// inside, as in an unpacked archive.
	newDir := filepath.Join(pages, "blog")
	writeFile := filepath.Join(newDir, "post.html")
	if err := os.Mkdir(newDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(writeFile, []byte("<article/>"), 0o644); err != nil {
		t.Fatal(err)
	}

	w.handleEvent(fsnotify.Event{Name: newDir, Op: fsnotify.Create})

	if _, ok := w.targets[filepath.ToSlash(newDir)]; !ok {
		t.Errorf("targets = %v, want new directory registered", w.targets)
	}
	if w.debouncer.PendingCount() != 1 {
		t.Errorf("PendingCount() = %d, want the pre-existing file noticed", w.debouncer.PendingCount())
	}
}

func TestHandleEventDirOutsideRecursiveRootIgnored(t *testing.T) {
	tmpDir := canonical(t, t.TempDir())
	pages := filepath.Join(tmpDir, "pages")
	other := filepath.Join(tmpDir, "other")
	for _, dir := range []string{pages, other} {
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	w, err := New(Config{
		Specs: []content.PathSpec{
			{Original: "pages/**/*.html", Base: filepath.ToSlash(pages), Pattern: "**/*.html"},
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()

	w.debouncer = NewDebouncer(time.Hour, nil)
	if err := w.addSpecs(); err != nil {
		t.Fatalf("addSpecs() error = %v", err)
	}
	before := len(w.targets)

	newDir := filepath.Join(other, "sub")
	if err := os.Mkdir(newDir, 0o755); err != nil {
		t.Fatal(err)
	}
	w.handleEvent(fsnotify.Event{Name: newDir, Op: fsnotify.Create})

	if len(w.targets) != before {
		t.Errorf("targets grew to %v, want unchanged", w.targets)
	}
}
