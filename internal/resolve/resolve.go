// Package resolve turns the raw references internal/refs produces into
// resolved targets (§4.5): import specifiers become repo-relative file
// paths, and call/type references become symbol ids when the name is
// unambiguous within the project's file set.
package resolve

import (
	"encoding/json"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/corpusdb/corpusdb/internal/refs"
)

// extensionCandidates is the order tried for an extension-less candidate
// path (§4.5 step 4). A JS-style ending is instead swapped for its
// TypeScript counterpart via jsLikeExtensions.
var extensionCandidates = []string{".ts", ".tsx", ".js", ".jsx", ".py", ".rs", ".go"}

var jsLikeExtensions = map[string]string{
	".js":  ".ts",
	".jsx": ".tsx",
	".mjs": ".ts",
	".cjs": ".ts",
}

var ignoredAliasDirs = map[string]bool{
	".git": true, "node_modules": true, "vendor": true, "target": true,
	"dist": true, "build": true, ".next": true,
}

// AliasMap is a prefix -> target-path substitution table, plus the
// directory the config declaring it lives in (alias_base, §4.5).
type AliasMap struct {
	Base    string // repo-root-relative directory of the discovered config
	Targets map[string]string
}

type tsconfig struct {
	CompilerOptions struct {
		BaseURL string              `json:"baseUrl"`
		Paths   map[string][]string `json:"paths"`
	} `json:"compilerOptions"`
}

// DiscoverAliases walks root breadth-first, skipping vendored/dependency
// directories, looking for the first tsconfig.json/jsconfig.json that
// declares compilerOptions.paths. Returns nil if none is found.
func DiscoverAliases(root string) (*AliasMap, error) {
	var queue []string
	queue = append(queue, root)

	for len(queue) > 0 {
		dir := queue[0]
		queue = queue[1:]

		for _, name := range []string{"tsconfig.json", "jsconfig.json"} {
			p := filepath.Join(dir, name)
			data, err := os.ReadFile(p)
			if err != nil {
				continue
			}
			var cfg tsconfig
			if err := json.Unmarshal(data, &cfg); err != nil {
				continue
			}
			if len(cfg.CompilerOptions.Paths) == 0 {
				continue
			}
			return aliasMapFrom(root, dir, cfg), nil
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() || ignoredAliasDirs[e.Name()] || strings.HasPrefix(e.Name(), ".") {
				continue
			}
			queue = append(queue, filepath.Join(dir, e.Name()))
		}
	}
	return nil, nil
}

func aliasMapFrom(root, configDir string, cfg tsconfig) *AliasMap {
	baseURL := cfg.CompilerOptions.BaseURL
	if baseURL == "" {
		baseURL = "."
	}
	aliasBaseAbs := filepath.Join(configDir, baseURL)

	targets := make(map[string]string, len(cfg.CompilerOptions.Paths))
	for prefix, candidates := range cfg.CompilerOptions.Paths {
		if len(candidates) == 0 {
			continue
		}
		prefix = strings.TrimSuffix(prefix, "/*")
		target := strings.TrimSuffix(candidates[0], "/*")
		targetAbs := filepath.Join(aliasBaseAbs, target)
		rel, err := filepath.Rel(root, targetAbs)
		if err != nil {
			continue
		}
		targets[prefix] = filepath.ToSlash(rel)
	}

	relBase, _ := filepath.Rel(root, configDir)
	return &AliasMap{Base: filepath.ToSlash(relBase), Targets: targets}
}

// FileSet is the known set of repo-relative file paths produced by
// discovery (§4.6 step 1), used both as the resolution target and as the
// index for by-name symbol lookup.
type FileSet map[string]bool

// SymbolLocation is the minimal information by-name resolution needs.
type SymbolLocation struct {
	File      string
	SymbolID  string
	LineStart int
	LineEnd   int
}

// Resolved mirrors a refs.Reference plus its resolved target.
type Resolved struct {
	refs.Reference
	SourceFile     string
	TargetFilePath string
	TargetSymbolID string
}

// Resolver resolves raw references against a known file set and alias map.
type Resolver struct {
	files   FileSet
	aliases *AliasMap
	symbols map[string][]SymbolLocation // name -> every declaration site
}

func NewResolver(files FileSet, aliases *AliasMap, symbols map[string][]SymbolLocation) *Resolver {
	return &Resolver{files: files, aliases: aliases, symbols: symbols}
}

// Resolve resolves one reference whose SymbolName/ImportSource was
// extracted from sourceFile.
func (r *Resolver) Resolve(ref refs.Reference, sourceFile string) Resolved {
	out := Resolved{Reference: ref, SourceFile: sourceFile}

	switch ref.Type {
	case refs.TypeImport, refs.TypeReExport, refs.TypeExportAll, refs.TypeDynamicImport:
		out.TargetFilePath = r.resolveImport(ref.ImportSource, sourceFile)
	case refs.TypeCall, refs.TypeTypeReference, refs.TypeExtends, refs.TypeImplements:
		out.TargetSymbolID = r.resolveByName(ref.SymbolName)
	}
	return out
}

// resolveImport implements §4.5 steps 1-5.
func (r *Resolver) resolveImport(source, sourceFile string) string {
	if source == "" {
		return ""
	}

	var candidate string
	switch {
	case strings.HasPrefix(source, "./") || strings.HasPrefix(source, "../"):
		candidate = normalizeJoin(path.Dir(filepath.ToSlash(sourceFile)), source)
	default:
		prefix, target, ok := matchAlias(r.aliases, source)
		if !ok {
			return "" // external dependency, left unresolved
		}
		candidate = normalizeJoin(target, strings.TrimPrefix(source, prefix))
	}

	return r.tryExtensions(candidate)
}

func matchAlias(aliases *AliasMap, source string) (prefix, target string, ok bool) {
	if aliases == nil {
		return "", "", false
	}
	for p, t := range aliases.Targets {
		if source == p || strings.HasPrefix(source, p+"/") {
			return p, t, true
		}
	}
	return "", "", false
}

func normalizeJoin(base, rel string) string {
	joined := path.Join(base, rel)
	return strings.TrimPrefix(joined, "./")
}

func (r *Resolver) tryExtensions(candidate string) string {
	if r.files[candidate] {
		return candidate
	}

	ext := path.Ext(candidate)
	if replacement, ok := jsLikeExtensions[ext]; ok {
		alt := strings.TrimSuffix(candidate, ext) + replacement
		if r.files[alt] {
			return alt
		}
	}

	if ext == "" {
		for _, e := range extensionCandidates {
			if alt := candidate + e; r.files[alt] {
				return alt
			}
		}
		for _, e := range []string{".ts", ".tsx", ".js", ".jsx"} {
			if alt := candidate + "/index" + e; r.files[alt] {
				return alt
			}
		}
	}

	return ""
}

// resolveByName implements §4.5's by-name lookup: a unique declaration
// wins; ambiguous or absent names are left unresolved.
func (r *Resolver) resolveByName(name string) string {
	locs := r.symbols[name]
	if len(locs) != 1 {
		return ""
	}
	return locs[0].SymbolID
}

// BuildFileSet turns a discovered file list into a FileSet keyed by
// repo-relative slash paths.
func BuildFileSet(paths []string) FileSet {
	set := make(FileSet, len(paths))
	for _, p := range paths {
		set[filepath.ToSlash(p)] = true
	}
	return set
}
