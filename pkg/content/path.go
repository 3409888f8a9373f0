package content

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ExclusionPrefix marks a source pattern that removes matching files from
// every other source instead of contributing its own.
const ExclusionPrefix = "!"

// PathSpec is one resolved content location: the original declaration, the
// directory (or file) the glob engine expands from, and the glob suffix
// relative to it. Pattern is empty when Base itself is the literal target.
type PathSpec struct {
	// Original is the declared path or pattern, normalized to forward
	// slashes. It keeps a leading "!" for exclusions.
	Original string

	// Base is the longest metacharacter-free prefix of the declaration.
	// Absolute once the spec has been resolved.
	Base string

	// Pattern is the glob suffix relative to Base, without a leading
	// separator. Empty for literal targets.
	Pattern string
}

// IsExclusion reports whether the spec removes matches instead of adding
// them.
func (s PathSpec) IsExclusion() bool {
	return strings.HasPrefix(s.Original, ExclusionPrefix)
}

// Query returns the filesystem query pattern submitted to the glob engine.
// Exclusion specs contribute their original declaration verbatim so the
// engine treats them as negations.
func (s PathSpec) Query() string {
	if s.IsExclusion() {
		return s.Original
	}
	if s.Pattern == "" {
		return s.Base
	}
	return s.Base + "/" + s.Pattern
}

// ParsePath classifies a declared path as literal or glob and splits it into
// a watchable base and an optional pattern suffix. Any string is accepted;
// malformed glob syntax surfaces later, from the expansion engine.
func ParsePath(path string) PathSpec {
	p := filepath.ToSlash(path)
	spec := PathSpec{Original: p}

	// The exclusion marker is not part of the path.
	if rest, ok := strings.CutPrefix(p, ExclusionPrefix); ok {
		p = rest
	}

	if !hasGlobMeta(p) {
		spec.Base = p
		return spec
	}

	spec.Base, spec.Pattern = doublestar.SplitPattern(p)
	return spec
}

// hasGlobMeta reports whether p contains unescaped glob metacharacters,
// using the same metacharacter set and escape rule as the glob engine.
func hasGlobMeta(p string) bool {
	for i := 0; i < len(p); i++ {
		switch p[i] {
		case '\\':
			i++
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}
