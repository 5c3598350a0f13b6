package common

import (
	"encoding/json"
	"os"
	"sync"

	indexererrors "github.com/mdbarr/indexer/internal/errors"
)

// IndexedSet is the process-wide set of absolute paths already successfully
// indexed (§3, §6): loaded at start, rewritten on graceful exit and on
// interrupt.
type IndexedSet struct {
	mu    sync.RWMutex
	paths map[string]struct{}
}

// NewIndexedSet returns an empty set.
func NewIndexedSet() *IndexedSet {
	return &IndexedSet{paths: make(map[string]struct{})}
}

// LoadIndexedSet reads the JSON array of paths from cachePath. A missing
// file is not an error: it just means a fresh, empty set. An empty
// cachePath or "off" disables the cache and also yields an empty set.
func LoadIndexedSet(cachePath string) (*IndexedSet, error) {
	set := NewIndexedSet()
	if cachePath == "" || cachePath == "off" {
		return set, nil
	}

	data, err := os.ReadFile(cachePath)
	if os.IsNotExist(err) {
		return set, nil
	}
	if err != nil {
		return nil, indexererrors.NewIOError("read", cachePath, err)
	}

	var paths []string
	if err := json.Unmarshal(data, &paths); err != nil {
		return nil, indexererrors.NewIOError("decode", cachePath, err)
	}
	for _, p := range paths {
		set.paths[p] = struct{}{}
	}
	return set, nil
}

// Has reports whether path is already indexed.
func (s *IndexedSet) Has(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.paths[path]
	return ok
}

// Add marks path as indexed.
func (s *IndexedSet) Add(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths[path] = struct{}{}
}

// Save writes the set out as a JSON array, atomically via a temp-file
// rename, so a crash mid-write never corrupts the previous cache.
func (s *IndexedSet) Save(cachePath string) error {
	if cachePath == "" || cachePath == "off" {
		return nil
	}

	s.mu.RLock()
	paths := make([]string, 0, len(s.paths))
	for p := range s.paths {
		paths = append(paths, p)
	}
	s.mu.RUnlock()

	data, err := json.Marshal(paths)
	if err != nil {
		return indexererrors.NewIOError("encode", cachePath, err)
	}

	tmp := cachePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return indexererrors.NewIOError("write", cachePath, err)
	}
	if err := os.Rename(tmp, cachePath); err != nil {
		return indexererrors.NewIOError("rename", cachePath, err)
	}
	return nil
}

// Len reports how many paths are currently tracked.
func (s *IndexedSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.paths)
}
