package repos

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

func TestResolveIDPassthroughSkipsExistenceCheck(t *testing.T) {
	db := newTestDB(t)
	fakeID := "00000000-0000-0000-0000-000000000000"
	r, err := Resolve(db, fakeID)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, fakeID, r.ID)
}

func TestResolveFullNameCaseSensitive(t *testing.T) {
	db := newTestDB(t)
	repo, err := storage.CreateRepository(db, "Org/Repo", "Repo", nil, nil)
	require.NoError(t, err)

	found, err := Resolve(db, "Org/Repo")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, repo.ID, found.ID)

	notFound, err := Resolve(db, "org/repo")
	require.NoError(t, err)
	assert.Nil(t, notFound)
}

func TestResolveEmptyFallsBackToMostRecent(t *testing.T) {
	db := newTestDB(t)
	repo, err := storage.CreateRepository(db, "local/only-one", "only-one", nil, nil)
	require.NoError(t, err)

	found, err := Resolve(db, "")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, repo.ID, found.ID)
}
