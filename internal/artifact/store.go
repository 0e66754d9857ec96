// Package artifact implements the per-job, write-only artifact sink.
// Artifacts are always attempted as the final act of a job regardless of
// its outcome, so diagnostics survive failures.
package artifact

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"
)

// collectConcurrency bounds parallel file stores within one StoreTree call.
const collectConcurrency = 4

// Artifact describes one stored file.
type Artifact struct {
	JobID    string
	Path     string
	Location string
	Size     int64
}

// Store writes artifacts under a run-scoped root directory,
// <root>/<jobID>/<path>. Safe for concurrent use.
type Store struct {
	root string

	mu      sync.Mutex
	entries []Artifact
}

// New returns a store rooted at dir, creating it if necessary.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("artifact root %s: %w", dir, err)
	}
	return &Store{root: dir}, nil
}

// Root returns the directory artifacts are written under.
func (s *Store) Root() string { return s.root }

// Store writes blob as the artifact of jobID at path. Transient write
// failures are retried with exponential backoff.
func (s *Store) Store(ctx context.Context, jobID, path string, blob []byte) error {
	target := filepath.Join(s.root, jobID, filepath.FromSlash(path))

	write := func() error {
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		return os.WriteFile(target, blob, 0o644)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(newWritePolicy(), 3), ctx)
	if err := backoff.Retry(write, policy); err != nil {
		return fmt.Errorf("store artifact %s/%s: %w", jobID, path, err)
	}

	s.mu.Lock()
	s.entries = append(s.entries, Artifact{
		JobID:    jobID,
		Path:     path,
		Location: target,
		Size:     int64(len(blob)),
	})
	s.mu.Unlock()
	return nil
}

// StoreTree stores the file or directory at base/path, preserving relative
// names. Files of a directory are stored concurrently.
func (s *Store) StoreTree(ctx context.Context, jobID, base, path string) error {
	abs := filepath.Join(base, filepath.FromSlash(path))
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("store artifacts %q for %s: %w", path, jobID, err)
	}

	if !info.IsDir() {
		blob, err := os.ReadFile(abs)
		if err != nil {
			return fmt.Errorf("store artifacts %q for %s: %w", path, jobID, err)
		}
		return s.Store(ctx, jobID, path, blob)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(collectConcurrency)
	err = filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(base, p)
		if err != nil {
			return err
		}
		g.Go(func() error {
			blob, err := os.ReadFile(p)
			if err != nil {
				return err
			}
			return s.Store(gctx, jobID, filepath.ToSlash(rel), blob)
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("store artifacts %q for %s: %w", path, jobID, err)
	}
	return g.Wait()
}

// Get returns the stored blob for (jobID, path).
func (s *Store) Get(jobID, path string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.root, jobID, filepath.FromSlash(path)))
}

// List returns every stored artifact, ordered by job then path.
func (s *Store) List() []Artifact {
	s.mu.Lock()
	out := make([]Artifact, len(s.entries))
	copy(out, s.entries)
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].JobID != out[j].JobID {
			return out[i].JobID < out[j].JobID
		}
		return out[i].Path < out[j].Path
	})
	return out
}

func newWritePolicy() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = time.Second
	return b
}
