package storage

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corpusdb/corpusdb/internal/logging"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	logger := logging.NewLogger(logging.Config{Format: logging.JSONFormat, Level: logging.ErrorLevel})
	db, err := Open(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenAppliesMigrationsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	logger := logging.NewLogger(logging.Config{Format: logging.JSONFormat, Level: logging.ErrorLevel})

	db, err := Open(path, logger)
	require.NoError(t, err)
	db.Close()

	// Re-opening must not re-apply migrations or fail on the ledger.
	db2, err := Open(path, logger)
	require.NoError(t, err)
	defer db2.Close()

	var count int
	require.NoError(t, db2.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&count))
	require.Equal(t, len(migrations), count)
}

func TestRepositoryFullNameUnique(t *testing.T) {
	db := newTestDB(t)

	_, err := CreateRepository(db, "local/demo", "demo", nil, nil)
	require.NoError(t, err)

	_, err = CreateRepository(db, "local/demo", "demo", nil, nil)
	require.Error(t, err)
}

func TestFTSConsistencyAfterInsert(t *testing.T) {
	db := newTestDB(t)
	repo, err := CreateRepository(db, "local/auth", "auth", nil, nil)
	require.NoError(t, err)

	file := &IndexedFile{
		RepositoryID: repo.ID,
		Path:         "src/auth.ts",
		Content:      `export function authenticate(user: string) { return true; }`,
		Language:     "typescript",
		SizeBytes:    60,
		ContentHash:  ContentHash([]byte("x")),
	}
	err = db.WithTx(func(tx *sql.Tx) error {
		return InsertFile(tx, file)
	})
	require.NoError(t, err)

	rows, err := db.Query(
		`SELECT f.path FROM indexed_files f JOIN indexed_files_fts x ON x.rowid = f.rowid WHERE indexed_files_fts MATCH ?`,
		SanitizeFTSQuery("authenticate"))
	require.NoError(t, err)
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		require.NoError(t, rows.Scan(&p))
		paths = append(paths, p)
	}
	require.Equal(t, []string{"src/auth.ts"}, paths)
}

func TestDeleteThenInsertReplacesRepositoryData(t *testing.T) {
	db := newTestDB(t)
	repo, err := CreateRepository(db, "local/churn", "churn", nil, nil)
	require.NoError(t, err)

	insertOne := func(path string) {
		f := &IndexedFile{RepositoryID: repo.ID, Path: path, Content: "x", Language: "go", SizeBytes: 1, ContentHash: "h"}
		require.NoError(t, db.WithTx(func(tx *sql.Tx) error { return InsertFile(tx, f) }))
	}
	insertOne("a.go")
	insertOne("b.go")

	require.NoError(t, db.WithTx(func(tx *sql.Tx) error {
		if err := DeleteRepositoryData(tx, repo.ID); err != nil {
			return err
		}
		f := &IndexedFile{RepositoryID: repo.ID, Path: "c.go", Content: "y", Language: "go", SizeBytes: 1, ContentHash: "h2"}
		return InsertFile(tx, f)
	}))

	n, err := CountRows(db, "indexed_files")
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestRecordDecisionAndUpdateStatus(t *testing.T) {
	db := newTestDB(t)
	d, err := RecordDecision(db, "", "global", "use sqlite", "embedded store avoids a server process")
	require.NoError(t, err)

	require.NoError(t, UpdateDecisionStatus(db, d.ID, "superseded"))

	err = UpdateDecisionStatus(db, "does-not-exist", "superseded")
	require.Error(t, err)
}

func TestSearchInsightsFiltersByKind(t *testing.T) {
	db := newTestDB(t)
	_, err := RecordInsight(db, "", "global", InsightKindPattern, "retry linear backoff", "pipeline retries transient errors twice")
	require.NoError(t, err)
	_, err = RecordInsight(db, "", "global", InsightKindInsight, "unrelated note", "nothing to do with retries")
	require.NoError(t, err)

	results, err := SearchInsightsFTS(db, SanitizeFTSQuery("retry"), "", InsightKindPattern, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, InsightKindPattern, results[0].Kind)
}
