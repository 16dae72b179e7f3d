// Package parser wraps tree-sitter to turn UTF-8 source text into a
// concrete parse tree per supported language (§4.2). Malformed input
// yields a tree containing error nodes rather than a parse failure;
// extractors are responsible for skipping those subtrees.
package parser

import (
	"context"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/corpusdb/corpusdb/internal/errors"
)

// Language identifies one of the supported source languages.
type Language string

const (
	Go         Language = "go"
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	TSX        Language = "tsx"
	Python     Language = "python"
	Rust       Language = "rust"
)

var extensionLanguages = map[string]Language{
	".go":   Go,
	".js":   JavaScript,
	".jsx":  JavaScript,
	".mjs":  JavaScript,
	".cjs":  JavaScript,
	".ts":   TypeScript,
	".tsx":  TSX,
	".py":   Python,
	".rs":   Rust,
}

// LanguageFromExtension maps a file extension (including the leading dot)
// to a supported language. The second return value is false when the
// language cannot be determined, so the file should be skipped (§4.6 step 1).
func LanguageFromExtension(ext string) (Language, bool) {
	lang, ok := extensionLanguages[strings.ToLower(ext)]
	return lang, ok
}

// LanguageFromPath is a convenience wrapper extracting the extension from
// a file path before looking up its language.
func LanguageFromPath(path string) (Language, bool) {
	return LanguageFromExtension(filepath.Ext(path))
}

// Tree is a parsed source file: its root node plus the source bytes the
// node byte ranges index into.
type Tree struct {
	Root   *sitter.Node
	Source []byte
	Lang   Language
}

// Parser parses source text for any supported language.
type Parser struct {
	sp *sitter.Parser
}

func New() *Parser {
	return &Parser{sp: sitter.NewParser()}
}

// Parse produces a concrete parse tree for source under lang. Errors here
// are reserved for languages corpusdb cannot parse at all (e.g. an
// unsupported Language value) — syntactically invalid source still
// succeeds, yielding a tree with ERROR nodes.
func (p *Parser) Parse(ctx context.Context, source []byte, lang Language) (*Tree, error) {
	grammar, err := grammarFor(lang)
	if err != nil {
		return nil, err
	}

	p.sp.SetLanguage(grammar)
	tree, err := p.sp.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, errors.WrapInternal("parse source", err)
	}

	return &Tree{Root: tree.RootNode(), Source: source, Lang: lang}, nil
}

func grammarFor(lang Language) (*sitter.Language, error) {
	switch lang {
	case Go:
		return golang.GetLanguage(), nil
	case JavaScript:
		return javascript.GetLanguage(), nil
	case TypeScript:
		return typescript.GetLanguage(), nil
	case TSX:
		return tsx.GetLanguage(), nil
	case Python:
		return python.GetLanguage(), nil
	case Rust:
		return rust.GetLanguage(), nil
	default:
		return nil, errors.WrapInternal("unsupported language: "+string(lang), nil)
	}
}

// FindNodes walks root depth-first collecting every node whose Type() is
// in types — the shared primitive both the symbol and reference
// extractors build on.
func FindNodes(root *sitter.Node, types map[string]bool) []*sitter.Node {
	if root == nil || len(types) == 0 {
		return nil
	}
	var result []*sitter.Node
	var walk func(*sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.IsError() {
			return // error subtrees are skipped silently (§4.2)
		}
		if types[n.Type()] {
			result = append(result, n)
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
	return result
}

// CountErrorNodes counts ERROR nodes in the tree, used to report parse
// failures without aborting extraction (§4.3 "counted").
func CountErrorNodes(root *sitter.Node) int {
	if root == nil {
		return 0
	}
	count := 0
	var walk func(*sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.IsError() {
			count++
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
	return count
}

func NodeText(n *sitter.Node, source []byte) string {
	if n == nil {
		return ""
	}
	return string(source[n.StartByte():n.EndByte()])
}

func StartLine(n *sitter.Node) int { return int(n.StartPoint().Row) + 1 }
func EndLine(n *sitter.Node) int   { return int(n.EndPoint().Row) + 1 }
func StartColumn(n *sitter.Node) int { return int(n.StartPoint().Column) + 1 }
