package content

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// expandPatterns runs one combined glob pass over the query patterns and
// returns matching files as slash-normalized absolute paths, duplicates
// removed, in match order. Patterns beginning with "!" are negations: they
// suppress matches from the combined result. Relative negation patterns are
// made absolute against the process working directory before matching,
// which is how the expansion engines this mirrors treat them.
func expandPatterns(patterns []string) ([]string, error) {
	var includes, excludes []string
	for _, p := range patterns {
		if neg, ok := strings.CutPrefix(p, ExclusionPrefix); ok {
			abs, err := absPattern(neg)
			if err != nil {
				return nil, err
			}
			excludes = append(excludes, abs)
			continue
		}
		includes = append(includes, p)
	}

	seen := make(map[string]struct{})
	var matches []string
	for _, p := range includes {
		found, err := doublestar.FilepathGlob(filepath.FromSlash(p), doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("failed to expand pattern %q: %w", p, err)
		}
		for _, m := range found {
			m = filepath.ToSlash(m)
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			matches = append(matches, m)
		}
	}

	if len(excludes) == 0 {
		return matches, nil
	}

	kept := matches[:0]
	for _, m := range matches {
		suppressed, err := matchesAny(excludes, m)
		if err != nil {
			return nil, err
		}
		if !suppressed {
			kept = append(kept, m)
		}
	}
	return kept, nil
}

func matchesAny(patterns []string, path string) (bool, error) {
	for _, p := range patterns {
		ok, err := doublestar.Match(p, path)
		if err != nil {
			return false, fmt.Errorf("failed to match pattern %q: %w", p, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func absPattern(p string) (string, error) {
	if filepath.IsAbs(filepath.FromSlash(p)) {
		return p, nil
	}
	abs, err := filepath.Abs(filepath.FromSlash(p))
	if err != nil {
		return "", fmt.Errorf("failed to resolve pattern %q: %w", p, err)
	}
	return filepath.ToSlash(abs), nil
}
