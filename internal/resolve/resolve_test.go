package resolve

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpusdb/corpusdb/internal/refs"
)

func TestResolveRelativeImportTriesExtensions(t *testing.T) {
	files := BuildFileSet([]string{"src/app.ts", "src/util.ts"})
	r := NewResolver(files, nil, nil)

	resolved := r.Resolve(refs.Reference{Type: refs.TypeImport, ImportSource: "./util"}, "src/app.ts")
	assert.Equal(t, "src/util.ts", resolved.TargetFilePath)
}

func TestResolveExternalImportLeftUnset(t *testing.T) {
	files := BuildFileSet([]string{"src/app.ts"})
	r := NewResolver(files, nil, nil)

	resolved := r.Resolve(refs.Reference{Type: refs.TypeImport, ImportSource: "react"}, "src/app.ts")
	assert.Equal(t, "", resolved.TargetFilePath)
}

func TestResolveAliasImport(t *testing.T) {
	files := BuildFileSet([]string{"src/components/button.ts"})
	aliases := &AliasMap{Targets: map[string]string{"@components": "src/components"}}
	r := NewResolver(files, aliases, nil)

	resolved := r.Resolve(refs.Reference{Type: refs.TypeImport, ImportSource: "@components/button"}, "src/app.ts")
	assert.Equal(t, "src/components/button.ts", resolved.TargetFilePath)
}

func TestResolveByNameAmbiguousLeftNull(t *testing.T) {
	symbols := map[string][]SymbolLocation{
		"Run": {{File: "a.go", SymbolID: "1"}, {File: "b.go", SymbolID: "2"}},
	}
	r := NewResolver(nil, nil, symbols)

	resolved := r.Resolve(refs.Reference{Type: refs.TypeCall, SymbolName: "Run"}, "c.go")
	assert.Equal(t, "", resolved.TargetSymbolID)
}

func TestResolveByNameUniqueMatches(t *testing.T) {
	symbols := map[string][]SymbolLocation{
		"Run": {{File: "a.go", SymbolID: "1"}},
	}
	r := NewResolver(nil, nil, symbols)

	resolved := r.Resolve(refs.Reference{Type: refs.TypeCall, SymbolName: "Run"}, "c.go")
	assert.Equal(t, "1", resolved.TargetSymbolID)
}

func TestDiscoverAliasesReadsTsconfig(t *testing.T) {
	dir := t.TempDir()
	tsconfig := `{"compilerOptions": {"baseUrl": ".", "paths": {"@components/*": ["src/components/*"]}}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tsconfig.json"), []byte(tsconfig), 0o644))

	aliases, err := DiscoverAliases(dir)
	require.NoError(t, err)
	require.NotNil(t, aliases)
	assert.Equal(t, "src/components", aliases.Targets["@components"])
}

func TestDiscoverAliasesReturnsNilWhenAbsent(t *testing.T) {
	dir := t.TempDir()
	aliases, err := DiscoverAliases(dir)
	require.NoError(t, err)
	assert.Nil(t, aliases)
}
