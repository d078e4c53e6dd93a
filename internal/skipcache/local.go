package skipcache

import (
	"os"
	"path/filepath"
)

// Local is a content-addressed sentinel-file backend — a zero-byte file
// whose name encodes the key, sharded by a two-character prefix directory
// per spec.md §6 ("the on-disk variant is a zero-byte file whose filename
// encodes the hash"). Directly grounded on the teacher's lint.Cache
// (src/lint/cache.go), which shards the same way for the same "avoid huge
// flat directories" reason.
//
// This is the backend used when the skip cache rides on a provider's own
// native cache action: both CircleCI's and GitHub's cache steps persist
// whatever this backend writes into Dir across runs, so Local only needs
// to produce the right sentinel inside that path.
type Local struct {
	Dir string
}

func NewLocal(dir string) *Local {
	if dir == "" {
		dir = ".cigen-skipcache"
	}
	return &Local{Dir: dir}
}

func (l *Local) Has(key string) (bool, error) {
	_, err := os.Stat(l.path(key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Put writes the sentinel, best effort — per spec.md §5, skip-cache writes
// are never fatal to the run that produced them.
func (l *Local) Put(key string) error {
	path := l.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, nil, 0o644)
}

func (l *Local) path(key string) string {
	prefix := key
	if len(prefix) > 2 {
		prefix = key[:2]
	}
	return filepath.Join(l.Dir, prefix, key)
}
