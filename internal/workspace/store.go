// Package workspace implements the run-scoped shared workspace: an
// append-only file tree that upstream jobs persist into and downstream
// jobs attach in full. The snapshot grows monotonically; persisted files
// are unioned, never rewritten. Disjoint-path discipline between
// concurrent jobs is the caller's responsibility.
package workspace

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// entry is one file of the accumulated snapshot.
type entry struct {
	data  []byte
	mode  fs.FileMode
	owner string
}

// Store holds the snapshot for a single run. Safe for concurrent use; each
// Persist call applies its whole subtree under one lock, so attachers see
// either none or all of it.
type Store struct {
	mu    sync.Mutex
	files map[string]entry
}

// New returns an empty workspace store.
func New() *Store {
	return &Store{files: make(map[string]entry)}
}

// Persist unions the given paths (files or directories, relative to root)
// into the snapshot under their root-relative names.
func (s *Store) Persist(jobID, root string, paths []string) error {
	collected := make(map[string]entry)
	for _, p := range paths {
		abs := filepath.Join(root, p)
		info, err := os.Stat(abs)
		if err != nil {
			return fmt.Errorf("workspace persist %q from %s: %w", p, jobID, err)
		}
		if !info.IsDir() {
			if err := collectFile(collected, root, abs, jobID, info.Mode()); err != nil {
				return err
			}
			continue
		}
		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			fi, err := d.Info()
			if err != nil {
				return err
			}
			return collectFile(collected, root, path, jobID, fi.Mode())
		})
		if err != nil {
			return fmt.Errorf("workspace persist %q from %s: %w", p, jobID, err)
		}
	}

	// Single atomic union per persist call.
	s.mu.Lock()
	defer s.mu.Unlock()
	for rel, e := range collected {
		s.files[rel] = e
	}
	return nil
}

// Attach materializes the full accumulated snapshot into dest.
func (s *Store) Attach(jobID, dest string) error {
	s.mu.Lock()
	snapshot := make(map[string]entry, len(s.files))
	for rel, e := range s.files {
		snapshot[rel] = e
	}
	s.mu.Unlock()

	for rel, e := range snapshot {
		target := filepath.Join(dest, rel)
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("workspace attach for %s: %w", jobID, err)
		}
		if err := os.WriteFile(target, e.data, e.mode.Perm()); err != nil {
			return fmt.Errorf("workspace attach for %s: %w", jobID, err)
		}
	}
	return nil
}

// Len reports how many files the snapshot currently holds.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

func collectFile(dst map[string]entry, root, path, owner string, mode fs.FileMode) error {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("workspace persist %s from %s: %w", rel, owner, err)
	}
	dst[rel] = entry{data: data, mode: mode, owner: owner}
	return nil
}
