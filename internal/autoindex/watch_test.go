package autoindex

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchRepoMarksStaleOnHeadWrite(t *testing.T) {
	db := newTestDB(t)
	gate := NewGate(db, nil)

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))

	gate.watchRepo(root, "repo-1")
	assert.False(t, gate.IsStale("repo-1"))

	require.NoError(t, os.WriteFile(filepath.Join(root, ".git", "HEAD"), []byte("ref: refs/heads/main\n"), 0o644))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if gate.IsStale("repo-1") {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("expected repository to be marked stale after HEAD write")
}
