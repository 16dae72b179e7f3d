package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalizePath(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "src", "api")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	file := filepath.Join(sub, "routes.ts")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	canonical, err := CanonicalizePath(file, root)
	require.NoError(t, err)
	assert.Equal(t, "src/api/routes.ts", canonical)
}

func TestIsWithinRepoRejectsEscape(t *testing.T) {
	root := t.TempDir()
	outside := filepath.Join(filepath.Dir(root), "elsewhere.go")
	assert.False(t, IsWithinRepo(outside, root))
}

func TestNormalizeImportCandidate(t *testing.T) {
	assert.Equal(t, "src/api/routes.ts", NormalizeImportCandidate("./src/api/routes.ts"))
	assert.Equal(t, "src/routes.ts", NormalizeImportCandidate("src/api/../routes.ts"))
}
