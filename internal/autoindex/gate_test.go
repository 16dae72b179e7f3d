package autoindex

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpusdb/corpusdb/internal/indexpipeline"
	"github.com/corpusdb/corpusdb/internal/logging"
	"github.com/corpusdb/corpusdb/internal/storage"
)

func newTestDB(t *testing.T) *storage.DB {
	t.Helper()
	logger := logging.NewLogger(logging.Config{Format: logging.JSONFormat, Level: logging.ErrorLevel})
	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func writeGitRepo(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))
	for rel, content := range files {
		full := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return root
}

func TestEnsureIndexedRunsPipelineOnFirstCall(t *testing.T) {
	db := newTestDB(t)
	logger := logging.NewLogger(logging.Config{Format: logging.JSONFormat, Level: logging.ErrorLevel})
	pipeline := indexpipeline.New(db, logger)
	gate := NewGate(db, pipeline)

	root := writeGitRepo(t, map[string]string{"main.go": "package main\nfunc main() {}\n"})

	result, err := gate.EnsureIndexed(context.Background(), "", root)
	require.NoError(t, err)
	assert.False(t, result.WasIndexed)
	require.NotNil(t, result.Stats)
	assert.Equal(t, 1, result.Stats.FilesIndexed)
}

func TestEnsureIndexedSecondCallReportsAlreadyIndexed(t *testing.T) {
	db := newTestDB(t)
	logger := logging.NewLogger(logging.Config{Format: logging.JSONFormat, Level: logging.ErrorLevel})
	pipeline := indexpipeline.New(db, logger)
	gate := NewGate(db, pipeline)

	root := writeGitRepo(t, map[string]string{"main.go": "package main\n"})

	_, err := gate.EnsureIndexed(context.Background(), "", root)
	require.NoError(t, err)

	result, err := gate.EnsureIndexed(context.Background(), "", root)
	require.NoError(t, err)
	assert.True(t, result.WasIndexed)
}

func TestEnsureIndexedReindexesAfterHeadChange(t *testing.T) {
	db := newTestDB(t)
	logger := logging.NewLogger(logging.Config{Format: logging.JSONFormat, Level: logging.ErrorLevel})
	pipeline := indexpipeline.New(db, logger)
	gate := NewGate(db, pipeline)

	root := writeGitRepo(t, map[string]string{"main.go": "package main\n"})

	first, err := gate.EnsureIndexed(context.Background(), "", root)
	require.NoError(t, err)
	require.False(t, first.WasIndexed)

	gate.markStale(first.RepositoryID)

	second, err := gate.EnsureIndexed(context.Background(), "", root)
	require.NoError(t, err)
	assert.False(t, second.WasIndexed, "a stale repository should be re-indexed rather than reported as already indexed")
}

func TestEnsureIndexedRejectsNonGitPath(t *testing.T) {
	db := newTestDB(t)
	pipeline := indexpipeline.New(db, logging.NewLogger(logging.Config{Format: logging.JSONFormat, Level: logging.ErrorLevel}))
	gate := NewGate(db, pipeline)

	_, err := gate.EnsureIndexed(context.Background(), "", t.TempDir())
	require.Error(t, err)
}

func TestEnsureIndexedCoalescesConcurrentCallers(t *testing.T) {
	db := newTestDB(t)
	logger := logging.NewLogger(logging.Config{Format: logging.JSONFormat, Level: logging.ErrorLevel})
	pipeline := indexpipeline.New(db, logger)
	gate := NewGate(db, pipeline)

	root := writeGitRepo(t, map[string]string{"main.go": "package main\n"})

	var wg sync.WaitGroup
	results := make([]Result, 4)
	errs := make([]error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx], errs[idx] = gate.EnsureIndexed(context.Background(), "", root)
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
	}
}
