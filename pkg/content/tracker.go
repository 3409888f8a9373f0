package content

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/albertocavalcante/contentscan/internal/log"
)

// ChangedFiles expands every spec against the filesystem and returns the
// files whose modification time is strictly newer than their recorded
// watermark, advancing the watermarks in place. A file with no watermark is
// always reported, so the first scan of a session returns every match.
//
// marks is mutated; the call is not safe for concurrent invocation on the
// same table.
func (t *Tracker) ChangedFiles(marks *ModTimes) (FileSet, error) {
	patterns := make([]string, 0, len(t.specs))
	for _, spec := range t.specs {
		patterns = append(patterns, spec.Query())
	}

	var done func()
	if t.onExpand != nil {
		done = t.onExpand(len(patterns))
	}
	files, err := expandPatterns(patterns)
	if done != nil {
		done()
	}
	if err != nil {
		return nil, err
	}

	changed := make(FileSet)
	for _, file := range files {
		info, err := os.Stat(filepath.FromSlash(file))
		if err != nil {
			// Matched a moment ago, gone now. Same race class as the
			// fatal read failure: the caller re-scans.
			return nil, fmt.Errorf("failed to stat matched file: %w", err)
		}
		mtime := info.ModTime().UnixNano()
		if last, ok := marks.Lookup(file); ok && mtime <= last {
			continue
		}
		changed[file] = struct{}{}
		marks.Record(file, mtime)
	}

	log.V(3).Debug("resolved changed files",
		"matched", len(files),
		"changed", len(changed),
		"tracked", marks.Len())
	return changed, nil
}

// ChangedContent returns every raw inline entry, in declaration order,
// followed by the contents of each file ChangedFiles reports. Raw entries
// are emitted on every call, whether or not anything on disk changed. A
// file that vanishes between matching and reading is a fatal read error;
// the caller handles it, typically by re-scanning.
func (t *Tracker) ChangedContent(marks *ModTimes) ([]Entry, error) {
	entries := make([]Entry, 0, len(t.raw))
	entries = append(entries, t.raw...)

	changed, err := t.ChangedFiles(marks)
	if err != nil {
		return nil, err
	}

	for _, file := range changed.Sorted() {
		data, err := os.ReadFile(filepath.FromSlash(file))
		if err != nil {
			return nil, fmt.Errorf("failed to read changed file: %w", err)
		}
		entries = append(entries, Entry{
			Content:   string(data),
			Extension: strings.TrimPrefix(filepath.Ext(file), "."),
		})
	}
	return entries, nil
}
