package content

import (
	"path/filepath"

	"github.com/albertocavalcante/contentscan/internal/log"
)

// ExpandSymlinks returns the spec itself plus, when its base is reachable
// through a symlink, a clone rooted at the real path. File watchers observe
// either the link or its target depending on platform and tooling;
// registering both keeps changes visible regardless of which form the
// watcher follows.
//
// Exclusion specs pass through unexpanded: negations filter matches and
// are never watched. Resolution failure of any kind (missing path,
// permission error) is non-fatal; the spec is kept as resolved and will
// match nothing later.
func ExpandSymlinks(spec PathSpec) []PathSpec {
	if spec.IsExclusion() {
		return []PathSpec{spec}
	}

	real, err := filepath.EvalSymlinks(filepath.FromSlash(spec.Base))
	if err != nil {
		log.Component("content").Debug("symlink resolution failed",
			"base", spec.Base,
			"error", err)
		return []PathSpec{spec}
	}

	realBase := filepath.ToSlash(real)
	if realBase == spec.Base {
		return []PathSpec{spec}
	}

	clone := spec
	clone.Base = realBase
	return []PathSpec{spec, clone}
}
