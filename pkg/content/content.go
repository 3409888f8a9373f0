// Package content resolves declared content sources (literal paths, glob
// patterns, and inline raw documents) into absolute, watchable path specs,
// and incrementally reports which underlying files changed since the
// previous scan. It is the entry stage of a scanning pipeline: downstream
// stages extract tokens from the returned content and own what happens to
// them.
package content

import (
	"slices"
)

// DefaultRawExtension tags raw inline sources that declare no extension.
const DefaultRawExtension = "html"

// Source declares a single content input. Pattern names files on disk,
// literally or by glob; Raw supplies inline content directly. A Pattern
// beginning with "!" excludes matching files from every other source.
type Source struct {
	// Pattern is a literal path or glob, relative or absolute.
	Pattern string

	// Raw is inline content that never touches the filesystem.
	Raw string

	// Extension tags Raw for downstream extraction. Defaults to "html"
	// when empty.
	Extension string
}

// Entry is one unit of scan output: content plus the extension that tells
// downstream extraction how to treat it.
type Entry struct {
	Content   string
	Extension string
}

// Config configures a Tracker.
type Config struct {
	// Sources are the declared content inputs, in declaration order.
	Sources []Source

	// ConfigPath is the file the sources were declared in, when known.
	ConfigPath string

	// RelativeToConfig resolves relative patterns against ConfigPath's
	// directory instead of the process working directory. It has no
	// effect when ConfigPath is unknown.
	RelativeToConfig bool

	// OnExpand, when set, is called at the start of every glob expansion
	// pass with the number of query patterns; the returned func, if any,
	// is called when the pass completes. The hook observes timing only
	// and never alters scan semantics.
	OnExpand func(patterns int) func()
}

// Tracker resolves content sources once, at construction, and then reports
// changed files and content against a caller-owned watermark table. The
// resolution mode, the raw entries and the expanded spec list are all fixed
// for the tracker's lifetime; only the watermark table carries state
// between scans.
type Tracker struct {
	specs    []PathSpec
	raw      []Entry
	onExpand func(patterns int) func()
}

// New resolves cfg's sources through parse, resolve and symlink expansion
// and returns a tracker over the result. It fails only when the resolution
// root cannot be determined.
func New(cfg Config) (*Tracker, error) {
	mode := ResolveWorkingDir
	if cfg.RelativeToConfig && cfg.ConfigPath != "" {
		mode = ResolveConfigDir
	}
	root, err := ResolutionRoot(mode, cfg.ConfigPath)
	if err != nil {
		return nil, err
	}

	var raw []Entry
	var specs []PathSpec
	for _, src := range cfg.Sources {
		if src.Pattern != "" {
			specs = append(specs, ParsePath(src.Pattern))
			continue
		}
		if src.Raw == "" && src.Extension == "" {
			continue
		}
		ext := src.Extension
		if ext == "" {
			ext = DefaultRawExtension
		}
		raw = append(raw, Entry{Content: src.Raw, Extension: ext})
	}

	specs = ResolvePaths(specs, root)

	expanded := make([]PathSpec, 0, len(specs))
	for _, spec := range specs {
		expanded = append(expanded, ExpandSymlinks(spec)...)
	}

	return &Tracker{
		specs:    expanded,
		raw:      raw,
		onExpand: cfg.OnExpand,
	}, nil
}

// Specs returns the resolved path specs, symlink expansion included, for
// registration with a file watcher.
func (t *Tracker) Specs() []PathSpec {
	return slices.Clone(t.specs)
}
