// Package refs walks a parsed tree and emits raw use-site references
// (§4.4). Targets are left unresolved here — textual only — resolution
// against the project's file set happens in internal/resolve (§4.5).
package refs

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/corpusdb/corpusdb/internal/parser"
)

// Type is the closed set of reference kinds (§3 IndexedReference.reference_type).
type Type string

const (
	TypeImport           Type = "import"
	TypeCall             Type = "call"
	TypeExtends          Type = "extends"
	TypeImplements       Type = "implements"
	TypePropertyAccess   Type = "property_access"
	TypeTypeReference    Type = "type_reference"
	TypeVariableRef      Type = "variable_reference"
	TypeReExport         Type = "re_export"
	TypeExportAll        Type = "export_all"
	TypeDynamicImport    Type = "dynamic_import"
)

// Reference is one raw use-site, not yet resolved to a target.
type Reference struct {
	SymbolName   string
	Line         int
	Column       int
	Type         Type
	ImportSource string // verbatim module specifier, set only for import/re_export/export_all/dynamic_import
}

// Extractor walks a parsed tree and emits Reference values.
type Extractor struct {
	p *parser.Parser
}

func NewExtractor() *Extractor {
	return &Extractor{p: parser.New()}
}

func (e *Extractor) ExtractSource(ctx context.Context, source []byte, lang parser.Language) ([]Reference, error) {
	tree, err := e.p.Parse(ctx, source, lang)
	if err != nil {
		return nil, err
	}
	return Extract(tree, lang), nil
}

func Extract(tree *parser.Tree, lang parser.Language) []Reference {
	src := tree.Source
	var out []Reference
	out = append(out, extractImports(tree.Root, src, lang)...)
	out = append(out, extractCalls(tree.Root, src, lang)...)
	out = append(out, extractHeritage(tree.Root, src, lang)...)
	out = append(out, extractTypeReferences(tree.Root, src, lang)...)
	out = append(out, extractVariableReferences(tree.Root, src, lang)...)
	return out
}

func refAt(n *sitter.Node, name string, typ Type) Reference {
	return Reference{
		SymbolName: name,
		Line:       parser.StartLine(n),
		Column:     parser.StartColumn(n),
		Type:       typ,
	}
}

// extractImports handles import/re-export/dynamic-import forms per
// language. Each imported binding produces one "import" reference; JS/TS
// re-export forms additionally produce "re_export"/"export_all".
func extractImports(root *sitter.Node, src []byte, lang parser.Language) []Reference {
	var out []Reference

	switch lang {
	case parser.Go:
		for _, spec := range parser.FindNodes(root, map[string]bool{"import_spec": true}) {
			pathNode := spec.ChildByFieldName("path")
			if pathNode == nil {
				continue
			}
			source := unquote(parser.NodeText(pathNode, src))
			out = append(out, Reference{SymbolName: source, Line: parser.StartLine(spec), Column: parser.StartColumn(spec), Type: TypeImport, ImportSource: source})
		}

	case parser.JavaScript, parser.TypeScript, parser.TSX:
		for _, stmt := range parser.FindNodes(root, map[string]bool{"import_statement": true}) {
			source := importSourceOf(stmt, src)
			if source == "" {
				continue
			}
			for _, name := range importedBindingNames(stmt, src) {
				out = append(out, Reference{SymbolName: name, Line: parser.StartLine(stmt), Column: parser.StartColumn(stmt), Type: TypeImport, ImportSource: source})
			}
		}
		for _, stmt := range parser.FindNodes(root, map[string]bool{"export_statement": true}) {
			source := importSourceOf(stmt, src)
			if source == "" {
				continue
			}
			if hasChildOfType(stmt, "*") {
				out = append(out, Reference{SymbolName: source, Line: parser.StartLine(stmt), Column: parser.StartColumn(stmt), Type: TypeExportAll, ImportSource: source})
				continue
			}
			out = append(out, Reference{SymbolName: source, Line: parser.StartLine(stmt), Column: parser.StartColumn(stmt), Type: TypeReExport, ImportSource: source})
		}
		for _, call := range parser.FindNodes(root, map[string]bool{"call_expression": true}) {
			callee := call.ChildByFieldName("function")
			if callee == nil || parser.NodeText(callee, src) != "import" {
				continue
			}
			source := ""
			if args := call.ChildByFieldName("arguments"); args != nil {
				source = importSourceOf(args, src)
			}
			out = append(out, Reference{SymbolName: "import()", Line: parser.StartLine(call), Column: parser.StartColumn(call), Type: TypeDynamicImport, ImportSource: source})
		}

	case parser.Python:
		for _, stmt := range parser.FindNodes(root, map[string]bool{"import_statement": true, "import_from_statement": true}) {
			source := pythonModuleName(stmt, src)
			if source == "" {
				continue
			}
			out = append(out, Reference{SymbolName: source, Line: parser.StartLine(stmt), Column: parser.StartColumn(stmt), Type: TypeImport, ImportSource: source})
		}

	case parser.Rust:
		for _, stmt := range parser.FindNodes(root, map[string]bool{"use_declaration": true}) {
			source := parser.NodeText(stmt, src)
			out = append(out, Reference{SymbolName: source, Line: parser.StartLine(stmt), Column: parser.StartColumn(stmt), Type: TypeImport, ImportSource: source})
		}
	}

	return out
}

func importSourceOf(stmt *sitter.Node, src []byte) string {
	for i := 0; i < int(stmt.ChildCount()); i++ {
		c := stmt.Child(i)
		if c != nil && c.Type() == "string" {
			return unquote(parser.NodeText(c, src))
		}
	}
	return ""
}

func importedBindingNames(stmt *sitter.Node, src []byte) []string {
	var names []string
	var walk func(*sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		switch n.Type() {
		case "import_specifier":
			if name := n.ChildByFieldName("name"); name != nil {
				names = append(names, parser.NodeText(name, src))
				return
			}
		case "namespace_import", "identifier":
			if n.Parent() != nil && n.Parent().Type() == "import_clause" {
				names = append(names, parser.NodeText(n, src))
				return
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(stmt)
	if len(names) == 0 {
		names = append(names, "*")
	}
	return names
}

func pythonModuleName(stmt *sitter.Node, src []byte) string {
	if m := stmt.ChildByFieldName("module_name"); m != nil {
		return parser.NodeText(m, src)
	}
	for i := 0; i < int(stmt.ChildCount()); i++ {
		c := stmt.Child(i)
		if c != nil && (c.Type() == "dotted_name" || c.Type() == "aliased_import") {
			return parser.NodeText(c, src)
		}
	}
	return ""
}

// extractCalls emits "call" references; indirect/dynamic calls (callee is
// not a plain identifier or member-access chain) are skipped (§4.4).
func extractCalls(root *sitter.Node, src []byte, lang parser.Language) []Reference {
	callNodeType := map[parser.Language]string{
		parser.Go:         "call_expression",
		parser.JavaScript:  "call_expression",
		parser.TypeScript:  "call_expression",
		parser.TSX:         "call_expression",
		parser.Python:      "call",
		parser.Rust:        "call_expression",
	}[lang]
	if callNodeType == "" {
		return nil
	}

	var out []Reference
	for _, call := range parser.FindNodes(root, map[string]bool{callNodeType: true}) {
		callee := call.ChildByFieldName("function")
		if callee == nil {
			continue
		}
		name := calleeIdentifier(callee, src)
		if name == "" {
			continue // dynamic/indirect call, skipped
		}
		out = append(out, refAt(call, name, TypeCall))
	}
	return out
}

// calleeIdentifier reduces a callee expression to its trailing identifier
// (e.g. "pkg.Do" -> "Do"); computed/bracket callees return "".
func calleeIdentifier(callee *sitter.Node, src []byte) string {
	switch callee.Type() {
	case "identifier", "field_identifier", "type_identifier":
		return parser.NodeText(callee, src)
	case "selector_expression", "member_expression", "attribute":
		if field := callee.ChildByFieldName("field"); field != nil {
			return parser.NodeText(field, src)
		}
		if prop := callee.ChildByFieldName("property"); prop != nil {
			return parser.NodeText(prop, src)
		}
		if attr := callee.ChildByFieldName("attribute"); attr != nil {
			return parser.NodeText(attr, src)
		}
	}
	return ""
}

// extractHeritage emits one "extends"/"implements" reference per clause.
func extractHeritage(root *sitter.Node, src []byte, lang parser.Language) []Reference {
	var out []Reference
	for _, n := range parser.FindNodes(root, map[string]bool{"extends_clause": true, "class_heritage": true}) {
		if n.Type() == "class_heritage" && (hasChildOfType(n, "extends_clause") || hasChildOfType(n, "implements_clause")) {
			continue // TypeScript form: each clause is visited on its own
		}
		for _, id := range parser.FindNodes(n, map[string]bool{"identifier": true, "type_identifier": true}) {
			out = append(out, refAt(id, parser.NodeText(id, src), TypeExtends))
		}
	}
	for _, n := range parser.FindNodes(root, map[string]bool{"implements_clause": true}) {
		for _, id := range parser.FindNodes(n, map[string]bool{"identifier": true, "type_identifier": true}) {
			out = append(out, refAt(id, parser.NodeText(id, src), TypeImplements))
		}
	}
	if lang == parser.Python {
		for _, cls := range parser.FindNodes(root, map[string]bool{"class_definition": true}) {
			bases := cls.ChildByFieldName("superclasses")
			if bases == nil {
				continue
			}
			for _, id := range parser.FindNodes(bases, map[string]bool{"identifier": true}) {
				out = append(out, refAt(id, parser.NodeText(id, src), TypeExtends))
			}
		}
	}
	return out
}

// extractTypeReferences emits "type_reference" for type-position
// identifiers: Go type identifiers outside their own declaration,
// TS type annotations, Rust type identifiers.
func extractTypeReferences(root *sitter.Node, src []byte, lang parser.Language) []Reference {
	var types []string
	switch lang {
	case parser.Go:
		types = []string{"type_identifier"}
	case parser.JavaScript, parser.TypeScript, parser.TSX:
		types = []string{"type_annotation"}
	case parser.Rust:
		types = []string{"type_identifier"}
	default:
		return nil
	}

	var out []Reference
	for _, n := range parser.FindNodes(root, toSet(types)) {
		if n.Type() == "type_annotation" {
			for _, id := range parser.FindNodes(n, map[string]bool{"type_identifier": true}) {
				out = append(out, refAt(id, parser.NodeText(id, src), TypeTypeReference))
			}
			continue
		}
		if isDeclarationName(n) {
			continue
		}
		out = append(out, refAt(n, parser.NodeText(n, src), TypeTypeReference))
	}
	return out
}

func isDeclarationName(n *sitter.Node) bool {
	p := n.Parent()
	return p != nil && p.ChildByFieldName("name") == n
}

// extractVariableReferences emits "variable_reference" for plain identifier
// uses in value position — assignment/declarator RHS, call arguments,
// operands of a selector chain, return/binary expressions, and so on (§4.4).
// Declaration names, call callees (already "call"), type positions (already
// "type_reference"), import bindings, and assignment targets are excluded so
// each identifier use is attributed to exactly one reference type.
func extractVariableReferences(root *sitter.Node, src []byte, lang parser.Language) []Reference {
	var out []Reference
	for _, n := range parser.FindNodes(root, map[string]bool{"identifier": true}) {
		if isCallCallee(n) || isNonValuePosition(n, lang) {
			continue
		}
		out = append(out, refAt(n, parser.NodeText(n, src), TypeVariableRef))
	}
	return out
}

// isCallCallee reports whether n is the callee identifier of a direct
// (non-member) call — already emitted as TypeCall by extractCalls.
func isCallCallee(n *sitter.Node) bool {
	p := n.Parent()
	if p == nil {
		return false
	}
	switch p.Type() {
	case "call_expression", "call":
		return p.ChildByFieldName("function") == n
	}
	return false
}

// isNonValuePosition excludes identifiers that are declaration names,
// assignment/binding targets, or part of an import/re-export construct —
// none of these are a "use" of the identifier's value.
func isNonValuePosition(n *sitter.Node, lang parser.Language) bool {
	p := n.Parent()
	if p == nil {
		return true
	}
	if p.ChildByFieldName("name") == n {
		return true // declarator/declaration name
	}
	if p.ChildByFieldName("pattern") == n {
		return true // let/const binding pattern (Rust, JS destructuring root)
	}
	if p.ChildByFieldName("left") == n {
		return true // direct assignment target
	}
	if p.Type() == "expression_list" {
		if gp := p.Parent(); gp != nil && gp.ChildByFieldName("left") == p {
			return true // Go multi-assignment LHS (x, y := ...)
		}
	}
	return isImportBindingIdentifier(n, lang) || isAttributeNamePosition(n, lang)
}

// isImportBindingIdentifier excludes identifiers that name an imported
// module/binding rather than using one (already emitted as TypeImport et al.
// by extractImports).
func isImportBindingIdentifier(n *sitter.Node, lang parser.Language) bool {
	p := n.Parent()
	if p == nil {
		return false
	}
	switch lang {
	case parser.JavaScript, parser.TypeScript, parser.TSX:
		switch p.Type() {
		case "import_specifier", "namespace_import", "import_clause", "export_specifier":
			return true
		}
	case parser.Python:
		switch p.Type() {
		case "dotted_name", "aliased_import", "import_statement", "import_from_statement":
			return true
		}
	case parser.Rust:
		for cur := p; cur != nil; cur = cur.Parent() {
			if cur.Type() == "use_declaration" {
				return true
			}
			if cur.Type() == "block" || cur.Type() == "source_file" {
				break
			}
		}
	}
	return false
}

// isAttributeNamePosition excludes Python's "attribute" field, which shares
// the plain "identifier" node type with value identifiers (field/property
// access in other languages uses a distinct node type already).
func isAttributeNamePosition(n *sitter.Node, lang parser.Language) bool {
	if lang != parser.Python {
		return false
	}
	p := n.Parent()
	return p != nil && p.Type() == "attribute" && p.ChildByFieldName("attribute") == n
}

func toSet(types []string) map[string]bool {
	set := make(map[string]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return set
}

func hasChildOfType(n *sitter.Node, text string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if c := n.Child(i); c != nil && c.Type() == text {
			return true
		}
	}
	return false
}

func unquote(s string) string {
	return strings.Trim(s, `"'`+"`")
}
