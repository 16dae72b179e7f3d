package query

import (
	"database/sql"
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

func TestSearchCodeScopeReturnsMatches(t *testing.T) {
	db := newTestDB(t)
	repo, err := storage.CreateRepository(db, "local/search-engine-sample", "search-engine-sample", nil, nil)
	require.NoError(t, err)

	require.NoError(t, db.WithTx(func(tx *sql.Tx) error {
		return storage.InsertFile(tx, &storage.IndexedFile{
			RepositoryID: repo.ID, Path: "src/auth.go", Content: "func Authenticate() bool { return true }",
			Language: "go", SizeBytes: 10, ContentHash: "abc",
		})
	}))

	engine := NewEngine(db)
	result, err := engine.Search(Request{Query: "Authenticate", Scopes: []Scope{ScopeCode}})
	require.NoError(t, err)
	require.Len(t, result.Code, 1)
	assert.Equal(t, "src/auth.go", result.Code[0].Path)
	assert.Equal(t, 1, result.Counts.Total)
}

func TestSearchEmptyQueryRejected(t *testing.T) {
	engine := NewEngine(newTestDB(t))
	_, err := engine.Search(Request{Query: ""})
	require.Error(t, err)
}

func TestSearchZeroResultsReportsNoResultsTip(t *testing.T) {
	db := newTestDB(t)
	engine := NewEngine(db)
	result, err := engine.Search(Request{Query: "nonexistentterm", Scopes: []Scope{ScopeCode}})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Counts.Total)
	require.NotEmpty(t, result.Tips)
	assert.Contains(t, result.Tips[0], "No results found")
}

func TestSearchSnippetOutputIncludesContext(t *testing.T) {
	db := newTestDB(t)
	repo, err := storage.CreateRepository(db, "local/snippet-sample", "snippet-sample", nil, nil)
	require.NoError(t, err)

	content := "line one\nline two\nfunc Target() {}\nline four\nline five"
	require.NoError(t, db.WithTx(func(tx *sql.Tx) error {
		return storage.InsertFile(tx, &storage.IndexedFile{
			RepositoryID: repo.ID, Path: "src/target.go", Content: content,
			Language: "go", SizeBytes: int64(len(content)), ContentHash: "x",
		})
	}))

	engine := NewEngine(db)
	result, err := engine.Search(Request{Query: "Target", Scopes: []Scope{ScopeCode}, Output: OutputSnippet})
	require.NoError(t, err)
	require.Len(t, result.Code, 1)
	require.Len(t, result.Code[0].SnippetLines, 1)
	assert.Equal(t, 3, result.Code[0].SnippetLines[0].Line)
	assert.Len(t, result.Code[0].SnippetLines[0].ContextBefore, 2)
}
