package content

import (
	"maps"
	"slices"
)

// ModTimes records the last observed modification time of every file a
// tracker has reported, keyed by absolute path, in Unix nanoseconds. The
// caller creates one table per scanning session and passes it to every
// scan; the tracker advances watermarks in place.
//
// A file absent from the table has logically never been seen, so it is
// always reported on first sight. Entries are never removed: a deleted
// file keeps its watermark and is simply never matched again.
//
// The table performs no locking. One scan at a time per table; concurrent
// scans sharing a table race on watermark updates.
type ModTimes struct {
	seen map[string]int64
}

// NewModTimes returns an empty watermark table.
func NewModTimes() *ModTimes {
	return &ModTimes{seen: make(map[string]int64)}
}

// Lookup returns the recorded watermark for path. The second result is
// false when the file has never been observed.
func (m *ModTimes) Lookup(path string) (int64, bool) {
	if m == nil || m.seen == nil {
		return 0, false
	}
	mtime, ok := m.seen[path]
	return mtime, ok
}

// Record overwrites the watermark for path.
func (m *ModTimes) Record(path string, mtime int64) {
	if m == nil {
		return
	}
	if m.seen == nil {
		m.seen = make(map[string]int64)
	}
	m.seen[path] = mtime
}

// Len returns the number of tracked files.
func (m *ModTimes) Len() int {
	if m == nil {
		return 0
	}
	return len(m.seen)
}

// FileSet is a set of absolute, slash-normalized file paths.
type FileSet map[string]struct{}

// Has reports whether path is in the set.
func (s FileSet) Has(path string) bool {
	_, ok := s[path]
	return ok
}

// Sorted returns the paths in lexical order.
func (s FileSet) Sorted() []string {
	return slices.Sorted(maps.Keys(s))
}
