package indexpipeline

import (
	"context"
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

func writeRepo(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return root
}

func TestIndexSimpleRepositoryRoundTrip(t *testing.T) {
	db := newTestDB(t)
	logger := logging.NewLogger(logging.Config{Format: logging.JSONFormat, Level: logging.ErrorLevel})

	root := writeRepo(t, map[string]string{
		"src/auth.ts": "export function authenticate(user: string) { return true; }\n",
	})

	repo, err := storage.CreateRepository(db, "local/auth-sample", "auth-sample", nil, nil)
	require.NoError(t, err)

	p := New(db, logger)
	stats, err := p.Run(context.Background(), repo.ID, root, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.FilesIndexed)
	assert.GreaterOrEqual(t, stats.SymbolsExtracted, 1)

	indexed, err := storage.IsIndexed(db, repo.ID)
	require.NoError(t, err)
	assert.True(t, indexed)

	f, err := storage.GetFileByPath(db, repo.ID, "src/auth.ts")
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, "typescript", f.Language)
}

func TestIndexPathAliasResolution(t *testing.T) {
	db := newTestDB(t)
	logger := logging.NewLogger(logging.Config{Format: logging.JSONFormat, Level: logging.ErrorLevel})

	root := writeRepo(t, map[string]string{
		"tsconfig.json":      `{"compilerOptions": {"baseUrl": ".", "paths": {"@api/*": ["src/api/*"]}}}`,
		"src/api/routes.ts":  "export const routes = [];\n",
		"src/index.ts":       "import {routes} from \"@api/routes.js\";\n",
	})

	repo, err := storage.CreateRepository(db, "local/alias-sample", "alias-sample", nil, nil)
	require.NoError(t, err)

	p := New(db, logger)
	_, err = p.Run(context.Background(), repo.ID, root, Options{})
	require.NoError(t, err)

	routesFile, err := storage.GetFileByPath(db, repo.ID, "src/api/routes.ts")
	require.NoError(t, err)
	require.NotNil(t, routesFile)

	refs, err := storage.ReferencesByTargetPath(db, repo.ID, "src/api/routes.ts", []string{"import"})
	require.NoError(t, err)
	require.Len(t, refs, 1)
}

func TestIndexReplacesPriorRunData(t *testing.T) {
	db := newTestDB(t)
	logger := logging.NewLogger(logging.Config{Format: logging.JSONFormat, Level: logging.ErrorLevel})

	root := writeRepo(t, map[string]string{
		"main.go": "package main\n\nfunc run() {}\n",
	})

	repo, err := storage.CreateRepository(db, "local/replace-sample", "replace-sample", nil, nil)
	require.NoError(t, err)

	p := New(db, logger)
	_, err = p.Run(context.Background(), repo.ID, root, Options{})
	require.NoError(t, err)

	_, err = p.Run(context.Background(), repo.ID, root, Options{})
	require.NoError(t, err)

	count, err := storage.CountRows(db, "indexed_files")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
