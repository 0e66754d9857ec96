package workspace

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestStore_PersistAttach(t *testing.T) {
	t.Parallel()
	store := New()

	rootA := t.TempDir()
	writeFiles(t, rootA, map[string]string{
		"bin/app":        "binary",
		"bin/helper":     "helper",
		"docs/readme.md": "docs",
	})
	rootB := t.TempDir()
	writeFiles(t, rootB, map[string]string{
		"reports/unit.xml": "<xml/>",
	})

	require.NoError(t, store.Persist("build", rootA, []string{"bin"}))
	require.NoError(t, store.Persist("test", rootB, []string{"reports/unit.xml"}))
	assert.Equal(t, 3, store.Len())

	dest := t.TempDir()
	require.NoError(t, store.Attach("deploy", dest))

	for name, want := range map[string]string{
		"bin/app":          "binary",
		"bin/helper":       "helper",
		"reports/unit.xml": "<xml/>",
	} {
		data, err := os.ReadFile(filepath.Join(dest, name))
		require.NoError(t, err, name)
		assert.Equal(t, want, string(data))
	}

	// docs was never persisted, so it never reaches attachers.
	_, err := os.Stat(filepath.Join(dest, "docs/readme.md"))
	assert.True(t, os.IsNotExist(err))
}

func TestStore_SnapshotGrowsMonotonically(t *testing.T) {
	t.Parallel()
	store := New()
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.txt": "a", "b.txt": "b"})

	require.NoError(t, store.Persist("one", root, []string{"a.txt"}))
	require.NoError(t, store.Persist("two", root, []string{"b.txt"}))

	dest := t.TempDir()
	require.NoError(t, store.Attach("three", dest))
	for _, name := range []string{"a.txt", "b.txt"} {
		_, err := os.Stat(filepath.Join(dest, name))
		assert.NoError(t, err, name)
	}
}

func TestStore_PersistMissingPath(t *testing.T) {
	t.Parallel()
	store := New()

	err := store.Persist("build", t.TempDir(), []string{"does-not-exist"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workspace persist")
	assert.Equal(t, 0, store.Len(), "a failed persist must not apply partially")
}

func TestStore_ConcurrentPersists(t *testing.T) {
	t.Parallel()
	store := New()

	roots := make([]string, 8)
	for i := range roots {
		roots[i] = t.TempDir()
		writeFiles(t, roots[i], map[string]string{
			filepath.Join("out", string(rune('a'+i))+".txt"): "data",
		})
	}

	var wg sync.WaitGroup
	for i, root := range roots {
		wg.Add(1)
		go func(jobID string, root string) {
			defer wg.Done()
			assert.NoError(t, store.Persist(jobID, root, []string{"out"}))
		}(string(rune('a'+i)), root)
	}
	wg.Wait()

	assert.Equal(t, len(roots), store.Len())
}

func TestStore_AttachEmptySnapshot(t *testing.T) {
	t.Parallel()
	store := New()
	dest := t.TempDir()

	require.NoError(t, store.Attach("lonely", dest))
	entries, err := os.ReadDir(dest)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
