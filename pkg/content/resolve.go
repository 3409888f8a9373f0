package content

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
)

// ResolveMode selects the directory relative content paths resolve against.
// It is decided once, when the tracker is built, and threaded explicitly
// through resolution.
type ResolveMode int

const (
	// ResolveWorkingDir resolves relative paths against the process
	// working directory.
	ResolveWorkingDir ResolveMode = iota

	// ResolveConfigDir resolves relative paths against the directory of
	// the configuration file that declared them.
	ResolveConfigDir
)

// ResolutionRoot returns the absolute directory content paths resolve
// against under the given mode. ResolveConfigDir falls back to the working
// directory when no config path is known.
func ResolutionRoot(mode ResolveMode, configPath string) (string, error) {
	if mode == ResolveConfigDir && configPath != "" {
		dir := filepath.Dir(filepath.FromSlash(configPath))
		if !filepath.IsAbs(dir) {
			abs, err := filepath.Abs(dir)
			if err != nil {
				return "", fmt.Errorf("failed to resolve config directory: %w", err)
			}
			dir = abs
		}
		return filepath.ToSlash(dir), nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to resolve working directory: %w", err)
	}
	return filepath.ToSlash(wd), nil
}

// ResolvePaths returns specs with every base made absolute against root.
// Pure transformation: a base that does not exist on disk still resolves,
// it will simply match nothing when expanded.
func ResolvePaths(specs []PathSpec, root string) []PathSpec {
	resolved := make([]PathSpec, len(specs))
	for i, spec := range specs {
		spec.Base = resolveBase(root, spec.Base)
		resolved[i] = spec
	}
	return resolved
}

func resolveBase(root, base string) string {
	if filepath.IsAbs(filepath.FromSlash(base)) {
		return path.Clean(base)
	}
	return filepath.ToSlash(filepath.Join(filepath.FromSlash(root), filepath.FromSlash(base)))
}
