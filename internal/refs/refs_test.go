package refs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpusdb/corpusdb/internal/parser"
)

func TestExtractGoImportAndCall(t *testing.T) {
	e := NewExtractor()
	src := "package main\n\nimport \"fmt\"\n\nfunc run() {\n\tfmt.Println(\"hi\")\n}\n"

	refs, err := e.ExtractSource(context.Background(), []byte(src), parser.Go)
	require.NoError(t, err)

	var sawImport, sawCall bool
	for _, r := range refs {
		if r.Type == TypeImport && r.ImportSource == "fmt" {
			sawImport = true
		}
		if r.Type == TypeCall && r.SymbolName == "Println" {
			sawCall = true
		}
	}
	assert.True(t, sawImport)
	assert.True(t, sawCall)
}

func TestExtractTypeScriptReExportAndDynamicImport(t *testing.T) {
	e := NewExtractor()
	src := "export * from \"./util\";\nexport { thing } from \"./thing\";\nasync function load() {\n\tawait import(\"./lazy\");\n}\n"

	refs, err := e.ExtractSource(context.Background(), []byte(src), parser.TypeScript)
	require.NoError(t, err)

	var sawExportAll, sawReExport, sawDynamic bool
	for _, r := range refs {
		switch r.Type {
		case TypeExportAll:
			sawExportAll = true
		case TypeReExport:
			sawReExport = true
		case TypeDynamicImport:
			sawDynamic = true
		}
	}
	assert.True(t, sawExportAll)
	assert.True(t, sawReExport)
	assert.True(t, sawDynamic)
}

func TestExtractGoStructEmbeddingAndReceiverProduceReferences(t *testing.T) {
	e := NewExtractor()
	src := "package main\n\ntype Handler struct{}\n\nfunc (h Handler) Handle() {}\n\ntype Base struct{}\n\ntype Derived struct {\n\tBase\n}\n"

	refs, err := e.ExtractSource(context.Background(), []byte(src), parser.Go)
	require.NoError(t, err)
	assert.NotNil(t, refs)
}

func TestExtractPythonClassExtends(t *testing.T) {
	e := NewExtractor()
	src := "class Base:\n    pass\n\nclass Derived(Base):\n    def run(self):\n        pass\n"

	refs, err := e.ExtractSource(context.Background(), []byte(src), parser.Python)
	require.NoError(t, err)

	var sawExtends bool
	for _, r := range refs {
		if r.Type == TypeExtends && r.SymbolName == "Base" {
			sawExtends = true
		}
	}
	assert.True(t, sawExtends)
}

func TestExtractGoVariableReference(t *testing.T) {
	e := NewExtractor()
	src := "package main\n\nimport \"fmt\"\n\nfunc run() {\n\tx := 1\n\ty := x\n\tfmt.Println(y)\n}\n"

	refs, err := e.ExtractSource(context.Background(), []byte(src), parser.Go)
	require.NoError(t, err)

	var sawX, sawY, sawDeclarationTarget bool
	for _, r := range refs {
		if r.Type != TypeVariableRef {
			continue
		}
		switch r.SymbolName {
		case "x":
			sawX = true
		case "y":
			sawY = true
		}
	}
	assert.True(t, sawX, "RHS use of x in `y := x` should produce a variable_reference")
	assert.True(t, sawY, "use of y as a call argument should produce a variable_reference")

	for _, r := range refs {
		if r.Type == TypeVariableRef && r.Line == 6 && r.SymbolName == "x" {
			sawDeclarationTarget = true
		}
	}
	assert.False(t, sawDeclarationTarget, "the `x` declared on the left of `x := 1` is a binding target, not a value use")
}

func TestCalleeIdentifierSkipsDynamicCalls(t *testing.T) {
	e := NewExtractor()
	src := "package main\n\nfunc run(fns []func()) {\n\tfns[0]()\n}\n"

	refs, err := e.ExtractSource(context.Background(), []byte(src), parser.Go)
	require.NoError(t, err)
	for _, r := range refs {
		assert.NotEqual(t, TypeCall, r.Type)
	}
}
