// Package symbols walks a parsed tree and emits structured declarations
// (§4.3). Each supported language gets its own node-type dispatch table
// mapping concrete tree-sitter node kinds onto the spec's closed symbol
// kind set.
package symbols

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/corpusdb/corpusdb/internal/parser"
)

// Kind is the closed set of symbol kinds (§3 IndexedSymbol.kind).
type Kind string

const (
	KindFunction  Kind = "function"
	KindClass     Kind = "class"
	KindInterface Kind = "interface"
	KindType      Kind = "type"
	KindVariable  Kind = "variable"
	KindConstant  Kind = "constant"
	KindMethod    Kind = "method"
	KindProperty  Kind = "property"
	KindModule    Kind = "module"
	KindNamespace Kind = "namespace"
	KindEnum      Kind = "enum"
	KindEnumMember Kind = "enum_member"
)

// Symbol is one extracted declaration, not yet assigned a store id.
type Symbol struct {
	Name          string
	Kind          Kind
	LineStart     int
	LineEnd       int
	Signature     string
	Documentation string
}

// declNodeTypes enumerates, per language, which raw tree-sitter node
// types count as each taxonomy-level declaration kind (§4.2/§4.3).
type declNodeTypes struct {
	function   []string
	method     []string // subset of function nodes that are methods, by context
	class      []string
	iface      []string
	typeAlias  []string
	enum       []string
	enumMember []string
	variable   []string
	property   []string
}

func nodeTypesFor(lang parser.Language) declNodeTypes {
	switch lang {
	case parser.Go:
		return declNodeTypes{
			function:  []string{"function_declaration", "method_declaration"},
			method:    []string{"method_declaration"},
			typeAlias: []string{"type_spec"},
			variable:  []string{"const_spec", "var_spec"},
		}
	case parser.JavaScript, parser.TypeScript, parser.TSX:
		return declNodeTypes{
			function:   []string{"function_declaration", "method_definition"},
			method:     []string{"method_definition"},
			class:      []string{"class_declaration"},
			iface:      []string{"interface_declaration"},
			typeAlias:  []string{"type_alias_declaration"},
			enum:       []string{"enum_declaration"},
			enumMember: []string{"enum_assignment", "property_identifier"},
			variable:   []string{"variable_declarator"},
			property:   []string{"public_field_definition", "property_signature"},
		}
	case parser.Python:
		return declNodeTypes{
			function: []string{"function_definition"},
			class:    []string{"class_definition"},
			variable: []string{"assignment"},
		}
	case parser.Rust:
		return declNodeTypes{
			function:  []string{"function_item"},
			class:     []string{"struct_item"},
			iface:     []string{"trait_item"},
			enum:      []string{"enum_item"},
			typeAlias: []string{"type_item"},
			variable:  []string{"let_declaration", "const_item", "static_item"},
		}
	default:
		return declNodeTypes{}
	}
}

// Extractor walks a parsed tree and emits Symbols.
type Extractor struct {
	p *parser.Parser
}

func NewExtractor() *Extractor {
	return &Extractor{p: parser.New()}
}

// ExtractSource parses source then extracts every declaration from it,
// also returning the number of syntax-error nodes in the tree. A parse
// failure is returned as the error; §4.6 treats such a file as
// content-only (symbols empty), and callers decide that policy.
func (e *Extractor) ExtractSource(ctx context.Context, source []byte, lang parser.Language) ([]Symbol, int, error) {
	tree, err := e.p.Parse(ctx, source, lang)
	if err != nil {
		return nil, 0, err
	}
	errCount := parser.CountErrorNodes(tree.Root)
	return Extract(tree, lang), errCount, nil
}

// Extract walks an already-parsed tree.
func Extract(tree *parser.Tree, lang parser.Language) []Symbol {
	types := nodeTypesFor(lang)
	src := tree.Source

	var out []Symbol
	out = append(out, extractFunctionsAndMethods(tree.Root, src, lang, types)...)
	out = append(out, extractTypes(tree.Root, src, lang, types)...)
	out = append(out, extractVariables(tree.Root, src, lang, types)...)
	return out
}

func extractFunctionsAndMethods(root *sitter.Node, src []byte, lang parser.Language, types declNodeTypes) []Symbol {
	set := toSet(types.function)
	nodes := parser.FindNodes(root, set)
	methodSet := toSet(types.method)

	var out []Symbol
	for _, n := range nodes {
		name := declaredName(n, src, lang)
		if name == "" {
			continue // anonymous declarations are skipped (§4.3)
		}
		kind := KindFunction
		if methodSet[n.Type()] || insideClass(n) {
			kind = KindMethod
		}
		out = append(out, Symbol{
			Name:          name,
			Kind:          kind,
			LineStart:     parser.StartLine(n),
			LineEnd:       parser.EndLine(n),
			Signature:     declaratorHead(n, src),
			Documentation: precedingDocComment(n, src),
		})
	}
	return out
}

func extractTypes(root *sitter.Node, src []byte, lang parser.Language, types declNodeTypes) []Symbol {
	var out []Symbol

	collect := func(nodeTypes []string, kindFor func(*sitter.Node) Kind) {
		for _, n := range parser.FindNodes(root, toSet(nodeTypes)) {
			name := declaredName(n, src, lang)
			if name == "" {
				continue
			}
			out = append(out, Symbol{
				Name:          name,
				Kind:          kindFor(n),
				LineStart:     parser.StartLine(n),
				LineEnd:       parser.EndLine(n),
				Signature:     declaratorHead(n, src),
				Documentation: precedingDocComment(n, src),
			})
		}
	}

	collect(types.class, func(*sitter.Node) Kind { return KindClass })
	collect(types.iface, func(*sitter.Node) Kind { return KindInterface })
	collect(types.typeAlias, func(*sitter.Node) Kind { return KindType })
	collect(types.enum, func(*sitter.Node) Kind { return KindEnum })
	collect(types.property, func(*sitter.Node) Kind { return KindProperty })

	return out
}

func extractVariables(root *sitter.Node, src []byte, lang parser.Language, types declNodeTypes) []Symbol {
	var out []Symbol
	for _, n := range parser.FindNodes(root, toSet(types.variable)) {
		name := declaredName(n, src, lang)
		if name == "" {
			continue
		}
		kind := KindVariable
		if isConstQualified(n, lang) {
			kind = KindConstant
		}
		out = append(out, Symbol{
			Name:          name,
			Kind:          kind,
			LineStart:     parser.StartLine(n),
			LineEnd:       parser.EndLine(n),
			Signature:     declaratorHead(n, src),
			Documentation: precedingDocComment(n, src),
		})
	}
	return out
}

func toSet(types []string) map[string]bool {
	set := make(map[string]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return set
}

// declaredName extracts the declared identifier from a declaration node.
// Anonymous forms (no "name" field and no fallback identifier child)
// return "".
func declaredName(n *sitter.Node, src []byte, lang parser.Language) string {
	if name := n.ChildByFieldName("name"); name != nil {
		return parser.NodeText(name, src)
	}
	// Fallback: first identifier-ish child, used for Go's const_spec/var_spec
	// and type_spec, which don't expose a "name" field.
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "identifier", "type_identifier", "field_identifier":
			return parser.NodeText(child, src)
		}
	}
	return ""
}

func insideClass(n *sitter.Node) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch p.Type() {
		case "class_declaration", "class_definition", "class_body", "impl_item":
			return true
		}
	}
	return false
}

func isConstQualified(n *sitter.Node, lang parser.Language) bool {
	if n.Type() == "const_spec" || n.Type() == "const_item" {
		return true
	}
	if lang == parser.JavaScript || lang == parser.TypeScript || lang == parser.TSX {
		if p := n.Parent(); p != nil && p.Type() == "lexical_declaration" {
			return strings.HasPrefix(p.Type(), "lexical") && hasConstKeyword(p)
		}
	}
	return false
}

func hasConstKeyword(n *sitter.Node) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if c := n.Child(i); c != nil && c.Type() == "const" {
			return true
		}
	}
	return false
}

// declaratorHead captures the verbatim source text of the declarator
// head: parameters + return type for callables, the full alias text for
// type aliases, truncated to its first line (§4.3 "signature").
func declaratorHead(n *sitter.Node, src []byte) string {
	text := parser.NodeText(n, src)
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

// precedingDocComment returns the immediately preceding contiguous
// comment block with its delimiters stripped (§4.3).
func precedingDocComment(n *sitter.Node, src []byte) string {
	prev := n.PrevSibling()
	var lines []string
	for prev != nil && isCommentNode(prev.Type()) {
		text := parser.NodeText(prev, src)
		lines = append([]string{stripCommentDelimiters(text)}, lines...)
		prev = prev.PrevSibling()
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func isCommentNode(nodeType string) bool {
	return nodeType == "comment" || nodeType == "line_comment" || nodeType == "block_comment"
}

func stripCommentDelimiters(text string) string {
	text = strings.TrimPrefix(text, "///")
	text = strings.TrimPrefix(text, "//")
	text = strings.TrimPrefix(text, "/**")
	text = strings.TrimPrefix(text, "/*")
	text = strings.TrimSuffix(text, "*/")
	text = strings.TrimPrefix(text, "#")
	return strings.TrimSpace(text)
}
