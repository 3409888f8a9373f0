package watch

import (
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
)

// fingerprints remembers a content hash per path so write events that did
// not change any bytes can be suppressed. Editors and formatters rewrite
// files with identical contents; without confirmation every such save
// would trigger a scan.
//
// Accessed only from the watcher's event loop; no locking.
type fingerprints struct {
	sums map[string]uint64
}

func newFingerprints() *fingerprints {
	return &fingerprints{sums: make(map[string]uint64)}
}

// Changed hashes path and reports whether its contents differ from the
// previous observation, recording the new sum. A path seen for the first
// time counts as changed. An unreadable path counts as changed and loses
// its record: the scan decides what a vanished file means.
func (f *fingerprints) Changed(path string) bool {
	sum, err := hashFile(path)
	if err != nil {
		delete(f.sums, path)
		return true
	}

	prev, seen := f.sums[path]
	f.sums[path] = sum
	return !seen || prev != sum
}

// Forget drops the record for path.
func (f *fingerprints) Forget(path string) {
	delete(f.sums, path)
}

// hashFile computes xxHash64 of the file contents.
func hashFile(path string) (uint64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = file.Close() }()

	h := xxhash.New()
	if _, err := io.Copy(h, file); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}
