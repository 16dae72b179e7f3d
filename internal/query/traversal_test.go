package query

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpusdb/corpusdb/internal/storage"
)

// seedChain builds a -> b -> c import chain (a imports b, b imports c).
func seedChain(t *testing.T, db *storage.DB) (repoID string) {
	t.Helper()
	repo, err := storage.CreateRepository(db, "local/chain-sample", "chain-sample", nil, nil)
	require.NoError(t, err)

	ids := map[string]string{}
	require.NoError(t, db.WithTx(func(tx *sql.Tx) error {
		for _, path := range []string{"a.go", "b.go", "c.go"} {
			f := &storage.IndexedFile{RepositoryID: repo.ID, Path: path, Content: "package p", Language: "go", SizeBytes: 1, ContentHash: path}
			if err := storage.InsertFile(tx, f); err != nil {
				return err
			}
			ids[path] = f.ID
		}
		if err := storage.InsertReference(tx, &storage.IndexedReference{
			FileID: ids["a.go"], RepositoryID: repo.ID, SymbolName: "b",
			TargetFilePath: sql.NullString{String: "b.go", Valid: true},
			LineNumber: 1, ColumnNumber: 1, ReferenceType: "import", Metadata: "{}",
		}); err != nil {
			return err
		}
		return storage.InsertReference(tx, &storage.IndexedReference{
			FileID: ids["b.go"], RepositoryID: repo.ID, SymbolName: "c",
			TargetFilePath: sql.NullString{String: "c.go", Valid: true},
			LineNumber: 1, ColumnNumber: 1, ReferenceType: "import", Metadata: "{}",
		})
	}))
	return repo.ID
}

func TestSearchDependenciesForwardChain(t *testing.T) {
	db := newTestDB(t)
	repoID := seedChain(t, db)

	engine := NewEngine(db)
	result, err := engine.SearchDependencies(DependencyRequest{
		RepositoryID: repoID, FilePath: "a.go", Direction: DirectionDependencies, Depth: 2,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Dependencies)
	assert.Equal(t, []string{"b.go"}, result.Dependencies.Direct)
	assert.Equal(t, []string{"c.go"}, result.Dependencies.Indirect["depth_2"])
	assert.Equal(t, 2, result.Dependencies.Count)
}

func TestSearchDependentsReverseChain(t *testing.T) {
	db := newTestDB(t)
	repoID := seedChain(t, db)

	engine := NewEngine(db)
	result, err := engine.SearchDependencies(DependencyRequest{
		RepositoryID: repoID, FilePath: "c.go", Direction: DirectionDependents, Depth: 2,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Dependents)
	assert.Equal(t, []string{"b.go"}, result.Dependents.Direct)
	assert.Equal(t, []string{"a.go"}, result.Dependents.Indirect["depth_2"])
}

func TestSearchDependenciesDepthOneOmitsIndirect(t *testing.T) {
	db := newTestDB(t)
	repoID := seedChain(t, db)

	engine := NewEngine(db)
	result, err := engine.SearchDependencies(DependencyRequest{
		RepositoryID: repoID, FilePath: "a.go", Direction: DirectionDependencies, Depth: 1,
	})
	require.NoError(t, err)
	assert.Empty(t, result.Dependencies.Indirect)
	assert.Equal(t, 1, result.Dependencies.Count)
}

func TestSearchDependenciesCycleTerminates(t *testing.T) {
	db := newTestDB(t)
	repo, err := storage.CreateRepository(db, "local/cycle-sample", "cycle-sample", nil, nil)
	require.NoError(t, err)

	ids := map[string]string{}
	require.NoError(t, db.WithTx(func(tx *sql.Tx) error {
		for _, path := range []string{"x.go", "y.go"} {
			f := &storage.IndexedFile{RepositoryID: repo.ID, Path: path, Content: "package p", Language: "go", SizeBytes: 1, ContentHash: path}
			if err := storage.InsertFile(tx, f); err != nil {
				return err
			}
			ids[path] = f.ID
		}
		if err := storage.InsertReference(tx, &storage.IndexedReference{
			FileID: ids["x.go"], RepositoryID: repo.ID, SymbolName: "y",
			TargetFilePath: sql.NullString{String: "y.go", Valid: true},
			LineNumber: 1, ColumnNumber: 1, ReferenceType: "import", Metadata: "{}",
		}); err != nil {
			return err
		}
		return storage.InsertReference(tx, &storage.IndexedReference{
			FileID: ids["y.go"], RepositoryID: repo.ID, SymbolName: "x",
			TargetFilePath: sql.NullString{String: "x.go", Valid: true},
			LineNumber: 1, ColumnNumber: 1, ReferenceType: "import", Metadata: "{}",
		})
	}))

	engine := NewEngine(db)
	result, err := engine.SearchDependencies(DependencyRequest{
		RepositoryID: repo.ID, FilePath: "x.go", Direction: DirectionDependencies, Depth: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"y.go"}, result.Dependencies.Direct)
	assert.Equal(t, 1, result.Dependencies.Count)
}
