package sync

import (
	"database/sql"
	"os"
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

func TestExportImportRoundTrip(t *testing.T) {
	src := newTestDB(t)
	repo, err := storage.CreateRepository(src, "local/sync-sample", "sync-sample", nil, nil)
	require.NoError(t, err)
	require.NoError(t, src.WithTx(func(tx *sql.Tx) error {
		return storage.InsertFile(tx, &storage.IndexedFile{
			RepositoryID: repo.ID, Path: "a.go", Content: "package a", Language: "go", SizeBytes: 9, ContentHash: "h",
		})
	}))
	_, err = storage.RecordDecision(src, repo.ID, "repo", "use sqlite", "because embedded storage is simplest")
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "export")
	manifest, err := Export(src, dir, false)
	require.NoError(t, err)
	assert.Equal(t, 1, manifest.Tables["repositories"])
	assert.Equal(t, 1, manifest.Tables["indexed_files"])
	assert.Equal(t, 1, manifest.Tables["decisions"])

	dst := newTestDB(t)
	imported, err := Import(dst, dir)
	require.NoError(t, err)
	assert.Equal(t, 1, imported.Tables["repositories"])

	got, err := storage.GetRepositoryByFullName(dst, "local/sync-sample")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, repo.ID, got.ID)
}

func TestExportImportRoundTripCompressed(t *testing.T) {
	src := newTestDB(t)
	repo, err := storage.CreateRepository(src, "local/sync-sample", "sync-sample", nil, nil)
	require.NoError(t, err)
	_, err = storage.RecordDecision(src, repo.ID, "repo", "use sqlite", "because embedded storage is simplest")
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "export")
	manifest, err := ExportCompressed(src, dir, false)
	require.NoError(t, err)
	assert.Equal(t, 1, manifest.Tables["repositories"])

	if _, statErr := os.Stat(filepath.Join(dir, "repositories.jsonl.zst")); statErr != nil {
		t.Fatalf("expected compressed table file, got: %v", statErr)
	}

	dst := newTestDB(t)
	imported, err := Import(dst, dir)
	require.NoError(t, err)
	assert.Equal(t, 1, imported.Tables["repositories"])

	got, err := storage.GetRepositoryByFullName(dst, "local/sync-sample")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, repo.ID, got.ID)
}

func TestExportRefusesOverwriteWithoutForce(t *testing.T) {
	src := newTestDB(t)
	dir := filepath.Join(t.TempDir(), "export")
	_, err := Export(src, dir, false)
	require.NoError(t, err)

	_, err = Export(src, dir, false)
	require.Error(t, err)

	_, err = Export(src, dir, true)
	require.NoError(t, err)
}

func TestImportRejectsMalformedRecord(t *testing.T) {
	src := newTestDB(t)
	dir := filepath.Join(t.TempDir(), "export")
	_, err := Export(src, dir, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "repositories.jsonl"), []byte("not json\n"), 0o644))

	dst := newTestDB(t)
	_, err = Import(dst, dir)
	require.Error(t, err)

	count, err := storage.CountRows(dst, "repositories")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
