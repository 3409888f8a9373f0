package watch

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/albertocavalcante/contentscan/pkg/content"
)

// matcher decides whether an event path belongs to the watched spec set:
// at least one inclusion matches it and no exclusion does.
type matcher struct {
	literals map[string]struct{}
	globs    []globRule
	excludes []string
}

// globRule is one base/pattern inclusion pair.
type globRule struct {
	base    string
	pattern string
}

func newMatcher(specs []content.PathSpec) *matcher {
	m := &matcher{literals: make(map[string]struct{})}
	for _, spec := range specs {
		switch {
		case spec.IsExclusion():
			m.excludes = append(m.excludes, vetoPattern(spec.Original))
		case spec.Pattern == "":
			m.literals[spec.Base] = struct{}{}
		default:
			m.globs = append(m.globs, globRule{base: spec.Base, pattern: spec.Pattern})
		}
	}
	return m
}

// vetoPattern anchors an exclusion the way the expansion engine anchors
// negations: relative forms resolve against the working directory, not
// the root the spec's base was resolved against.
func vetoPattern(original string) string {
	p := strings.TrimPrefix(original, content.ExclusionPrefix)
	if filepath.IsAbs(filepath.FromSlash(p)) {
		return p
	}
	abs, err := filepath.Abs(filepath.FromSlash(p))
	if err != nil {
		// Left relative, the pattern matches no absolute event path and
		// the scan stays authoritative.
		return p
	}
	return filepath.ToSlash(abs)
}

// Matches reports whether path is covered by the spec set.
func (m *matcher) Matches(path string) bool {
	p := filepath.ToSlash(path)

	for _, pattern := range m.excludes {
		if ok, err := doublestar.Match(pattern, p); err == nil && ok {
			return false
		}
	}

	if _, ok := m.literals[p]; ok {
		return true
	}
	for _, rule := range m.globs {
		if rule.match(p) {
			return true
		}
	}
	return false
}

func (g globRule) match(p string) bool {
	ok, err := doublestar.Match(g.base+"/"+g.pattern, p)
	// Malformed patterns are the expansion engine's problem; here they
	// simply never match.
	return err == nil && ok
}
