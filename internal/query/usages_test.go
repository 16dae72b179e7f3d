package query

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpusdb/corpusdb/internal/storage"
)

func TestFindUsagesExcludesDefinitionSiteByDefault(t *testing.T) {
	db := newTestDB(t)
	repo, err := storage.CreateRepository(db, "local/usages-sample", "usages-sample", nil, nil)
	require.NoError(t, err)

	var fileID string
	require.NoError(t, db.WithTx(func(tx *sql.Tx) error {
		f := &storage.IndexedFile{RepositoryID: repo.ID, Path: "auth.go", Content: "package p", Language: "go", SizeBytes: 1, ContentHash: "h"}
		if err := storage.InsertFile(tx, f); err != nil {
			return err
		}
		fileID = f.ID
		if err := storage.InsertSymbol(tx, &storage.IndexedSymbol{
			FileID: fileID, RepositoryID: repo.ID, Name: "Authenticate", Kind: "function",
			LineStart: 5, LineEnd: 10, Metadata: "{}",
		}); err != nil {
			return err
		}
		if err := storage.InsertReference(tx, &storage.IndexedReference{
			FileID: fileID, RepositoryID: repo.ID, SymbolName: "Authenticate",
			LineNumber: 7, ColumnNumber: 2, ReferenceType: "variable_reference", Metadata: "{}",
		}); err != nil {
			return err
		}
		return storage.InsertReference(tx, &storage.IndexedReference{
			FileID: fileID, RepositoryID: repo.ID, SymbolName: "Authenticate",
			LineNumber: 42, ColumnNumber: 3, ReferenceType: "call", Metadata: "{}",
		})
	}))

	engine := NewEngine(db)
	result, err := engine.FindUsages(UsagesRequest{RepositoryID: repo.ID, Symbol: "Authenticate"})
	require.NoError(t, err)
	assert.Equal(t, []string{"auth.go"}, result.DefinedIn)
	require.Len(t, result.Usages, 1)
	assert.Equal(t, 42, result.Usages[0].Line)
	assert.Equal(t, 1, result.TotalUsages)
}

func TestFindUsagesResolvesTargetFileFromTargetSymbolID(t *testing.T) {
	db := newTestDB(t)
	repo, err := storage.CreateRepository(db, "local/usages-sample-3", "usages-sample-3", nil, nil)
	require.NoError(t, err)

	var calleeSymbolID string
	require.NoError(t, db.WithTx(func(tx *sql.Tx) error {
		callerFile := &storage.IndexedFile{RepositoryID: repo.ID, Path: "caller.go", Content: "package p", Language: "go", SizeBytes: 1, ContentHash: "h1"}
		if err := storage.InsertFile(tx, callerFile); err != nil {
			return err
		}
		calleeFile := &storage.IndexedFile{RepositoryID: repo.ID, Path: "callee.go", Content: "package p", Language: "go", SizeBytes: 1, ContentHash: "h2"}
		if err := storage.InsertFile(tx, calleeFile); err != nil {
			return err
		}
		calleeSymbol := &storage.IndexedSymbol{
			FileID: calleeFile.ID, RepositoryID: repo.ID, Name: "Authenticate", Kind: "function",
			LineStart: 5, LineEnd: 10, Metadata: "{}",
		}
		if err := storage.InsertSymbol(tx, calleeSymbol); err != nil {
			return err
		}
		calleeSymbolID = calleeSymbol.ID
		return storage.InsertReference(tx, &storage.IndexedReference{
			FileID: callerFile.ID, RepositoryID: repo.ID, SymbolName: "Authenticate",
			TargetSymbolID: sql.NullString{String: calleeSymbolID, Valid: true},
			LineNumber: 12, ColumnNumber: 4, ReferenceType: "call", Metadata: "{}",
		})
	}))

	engine := NewEngine(db)
	result, err := engine.FindUsages(UsagesRequest{RepositoryID: repo.ID, Symbol: "Authenticate"})
	require.NoError(t, err)
	require.Len(t, result.Usages, 1)
	assert.Equal(t, "callee.go", result.Usages[0].TargetFile, "a call reference's target_file should resolve via its resolved target_symbol_id")
}

func TestFindUsagesIncludeDefinitionsReturnsBoth(t *testing.T) {
	db := newTestDB(t)
	repo, err := storage.CreateRepository(db, "local/usages-sample-2", "usages-sample-2", nil, nil)
	require.NoError(t, err)

	require.NoError(t, db.WithTx(func(tx *sql.Tx) error {
		f := &storage.IndexedFile{RepositoryID: repo.ID, Path: "auth.go", Content: "package p", Language: "go", SizeBytes: 1, ContentHash: "h"}
		if err := storage.InsertFile(tx, f); err != nil {
			return err
		}
		if err := storage.InsertSymbol(tx, &storage.IndexedSymbol{
			FileID: f.ID, RepositoryID: repo.ID, Name: "Authenticate", Kind: "function",
			LineStart: 5, LineEnd: 10, Metadata: "{}",
		}); err != nil {
			return err
		}
		return storage.InsertReference(tx, &storage.IndexedReference{
			FileID: f.ID, RepositoryID: repo.ID, SymbolName: "Authenticate",
			LineNumber: 7, ColumnNumber: 2, ReferenceType: "variable_reference", Metadata: "{}",
		})
	}))

	engine := NewEngine(db)
	result, err := engine.FindUsages(UsagesRequest{RepositoryID: repo.ID, Symbol: "Authenticate", IncludeDefinitions: true})
	require.NoError(t, err)
	require.Len(t, result.Usages, 1)
}
