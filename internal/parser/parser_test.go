package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLanguageFromExtension(t *testing.T) {
	lang, ok := LanguageFromExtension(".ts")
	require.True(t, ok)
	assert.Equal(t, TypeScript, lang)

	_, ok = LanguageFromExtension(".md")
	assert.False(t, ok)
}

func TestParseGoFunction(t *testing.T) {
	p := New()
	src := []byte("package main\n\nfunc authenticate(user string) bool {\n\treturn true\n}\n")
	tree, err := p.Parse(context.Background(), src, Go)
	require.NoError(t, err)
	assert.Equal(t, 0, CountErrorNodes(tree.Root))

	nodes := FindNodes(tree.Root, map[string]bool{"function_declaration": true})
	require.Len(t, nodes, 1)
}

func TestParseToleratesSyntaxErrors(t *testing.T) {
	p := New()
	src := []byte("func broken( {\n")
	tree, err := p.Parse(context.Background(), src, Go)
	require.NoError(t, err, "malformed input yields an error tree, not a failure")
	assert.Greater(t, CountErrorNodes(tree.Root), 0)
}
