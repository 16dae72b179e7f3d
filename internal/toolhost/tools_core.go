package toolhost

import (
	"context"
	"sort"

	cdberrors "github.com/corpusdb/corpusdb/internal/errors"
	"github.com/corpusdb/corpusdb/internal/query"
	"github.com/corpusdb/corpusdb/internal/repos"
	"github.com/corpusdb/corpusdb/internal/storage"
)

func objectSchema(properties map[string]interface{}, required ...string) map[string]interface{} {
	schema := map[string]interface{}{"type": "object", "properties": properties}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func (s *Server) registerCoreTools() {
	s.registerTool(Tool{
		Name:        "search",
		Description: "Unified search across code, symbols, decisions, patterns, and failures",
		InputSchema: objectSchema(map[string]interface{}{
			"query":         map[string]interface{}{"type": "string"},
			"scope":         map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string", "enum": []string{"code", "symbols", "decisions", "patterns", "failures"}}},
			"repository":    map[string]interface{}{"type": "string"},
			"glob":          map[string]interface{}{"type": "string"},
			"language":      map[string]interface{}{"type": "string"},
			"symbol_kind":   map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
			"exported_only": map[string]interface{}{"type": "boolean"},
			"limit":         map[string]interface{}{"type": "number", "default": 20},
			"output":        map[string]interface{}{"type": "string", "enum": []string{"full", "paths", "compact", "snippet"}, "default": "full"},
			"context_lines": map[string]interface{}{"type": "number", "default": 3},
		}, "query"),
	}, s.toolSearch)

	s.registerTool(Tool{
		Name:        "index_repository",
		Description: "Index a repository's source tree (discover, parse, resolve, persist)",
		InputSchema: objectSchema(map[string]interface{}{
			"repository": map[string]interface{}{"type": "string"},
			"localPath":  map[string]interface{}{"type": "string"},
		}),
	}, s.toolIndexRepository)

	s.registerTool(Tool{
		Name:        "list_recent_files",
		Description: "List recently indexed files ordered by indexed_at descending",
		InputSchema: objectSchema(map[string]interface{}{
			"limit":      map[string]interface{}{"type": "number", "default": 20},
			"repository": map[string]interface{}{"type": "string"},
		}),
	}, s.toolListRecentFiles)

	s.registerTool(Tool{
		Name:        "search_dependencies",
		Description: "Breadth-first dependency/dependent traversal from a file",
		InputSchema: objectSchema(map[string]interface{}{
			"file_path":     map[string]interface{}{"type": "string"},
			"direction":     map[string]interface{}{"type": "string", "enum": []string{"dependents", "dependencies", "both"}, "default": "both"},
			"depth":         map[string]interface{}{"type": "number", "default": 2},
			"include_tests": map[string]interface{}{"type": "boolean", "default": false},
			"repository":    map[string]interface{}{"type": "string"},
		}, "file_path"),
	}, s.toolSearchDependencies)

	s.registerTool(Tool{
		Name:        "analyze_change_impact",
		Description: "Estimate the blast radius and risk of a proposed change",
		InputSchema: objectSchema(map[string]interface{}{
			"change_type":      map[string]interface{}{"type": "string"},
			"description":      map[string]interface{}{"type": "string"},
			"files_to_modify":  map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
			"files_to_create":  map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
			"files_to_delete":  map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
			"breaking_changes": map[string]interface{}{"type": "boolean", "default": false},
			"repository":       map[string]interface{}{"type": "string"},
		}, "change_type", "description"),
	}, s.toolAnalyzeChangeImpact)

	s.registerTool(Tool{
		Name:        "generate_task_context",
		Description: "Per-file dependent counts, optional symbols, and test discovery for a task's file set",
		InputSchema: objectSchema(map[string]interface{}{
			"files":           map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
			"include_tests":   map[string]interface{}{"type": "boolean", "default": false},
			"include_symbols": map[string]interface{}{"type": "boolean", "default": false},
			"repository":      map[string]interface{}{"type": "string"},
		}, "files"),
	}, s.toolGenerateTaskContext)

	s.registerTool(Tool{
		Name:        "get_index_statistics",
		Description: "Aggregate row counts per entity",
		InputSchema: objectSchema(map[string]interface{}{}),
	}, s.toolGetIndexStatistics)

	s.registerTool(Tool{
		Name:        "find_usages",
		Description: "Resolve every usage of a symbol across the repository",
		InputSchema: objectSchema(map[string]interface{}{
			"symbol":              map[string]interface{}{"type": "string"},
			"file":                map[string]interface{}{"type": "string"},
			"repository":          map[string]interface{}{"type": "string"},
			"include_tests":       map[string]interface{}{"type": "boolean", "default": true},
			"include_definitions": map[string]interface{}{"type": "boolean", "default": false},
		}, "symbol"),
	}, s.toolFindUsages)
}

func (s *Server) resolveRepositoryID(params map[string]interface{}) (string, error) {
	return repos.ResolveID(s.db, stringParam(params, "repository"))
}

func (s *Server) toolSearch(params map[string]interface{}) (interface{}, error) {
	queryStr, err := requiredStringParam(params, "query")
	if err != nil {
		return nil, err
	}
	repositoryID, err := s.resolveRepositoryID(params)
	if err != nil {
		return nil, err
	}

	var scopes []query.Scope
	for _, sc := range stringSliceParam(params, "scope") {
		scopes = append(scopes, query.Scope(sc))
	}

	req := query.Request{
		Query: queryStr,
		Scopes: scopes,
		Filters: query.Filters{
			Repository:   repositoryID,
			Glob:         stringParam(params, "glob"),
			Language:     stringParam(params, "language"),
			SymbolKinds:  stringSliceParam(params, "symbol_kind"),
			ExportedOnly: boolParam(params, "exported_only", false),
		},
		Limit:        intParam(params, "limit", 20),
		Output:       query.Output(stringParam(params, "output")),
		ContextLines: intParam(params, "context_lines", 3),
	}
	return s.engine.Search(req)
}

func (s *Server) toolIndexRepository(params map[string]interface{}) (interface{}, error) {
	repository := stringParam(params, "repository")
	localPath := stringParam(params, "localPath")
	if repository == "" && localPath == "" {
		return nil, cdberrors.NewValidationError("repository", "repository or localPath is required")
	}
	return s.gate.EnsureIndexed(context.Background(), repository, localPath)
}

func (s *Server) toolListRecentFiles(params map[string]interface{}) (interface{}, error) {
	repositoryID, err := s.resolveRepositoryID(params)
	if err != nil {
		return nil, err
	}
	files, err := storage.ListRecentFiles(s.db, repositoryID, intParam(params, "limit", 20))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"files": files, "count": len(files)}, nil
}

func (s *Server) toolSearchDependencies(params map[string]interface{}) (interface{}, error) {
	filePath, err := requiredStringParam(params, "file_path")
	if err != nil {
		return nil, err
	}
	repositoryID, err := s.resolveRepositoryID(params)
	if err != nil {
		return nil, err
	}
	return s.engine.SearchDependencies(query.DependencyRequest{
		RepositoryID: repositoryID,
		FilePath:     filePath,
		Direction:    query.Direction(stringParam(params, "direction")),
		Depth:        intParam(params, "depth", 2),
		IncludeTests: boolParam(params, "include_tests", false),
	})
}

func (s *Server) toolFindUsages(params map[string]interface{}) (interface{}, error) {
	symbol, err := requiredStringParam(params, "symbol")
	if err != nil {
		return nil, err
	}
	repositoryID, err := s.resolveRepositoryID(params)
	if err != nil {
		return nil, err
	}
	return s.engine.FindUsages(query.UsagesRequest{
		RepositoryID:       repositoryID,
		Symbol:             symbol,
		File:               stringParam(params, "file"),
		IncludeTests:       boolParam(params, "include_tests", true),
		IncludeDefinitions: boolParam(params, "include_definitions", false),
	})
}

func (s *Server) toolGetIndexStatistics(params map[string]interface{}) (interface{}, error) {
	tables := []string{"repositories", "indexed_files", "indexed_symbols", "indexed_references", "decisions", "failures", "insights"}
	stats := map[string]int{}
	for _, table := range tables {
		n, err := storage.CountRows(s.db, table)
		if err != nil {
			return nil, err
		}
		stats[table] = n
	}
	return stats, nil
}

// riskFromBreadth estimates low|medium|high from the total affected-file
// breadth and whether the change is flagged breaking (§6
// analyze_change_impact).
func riskFromBreadth(breadth int, breaking bool) string {
	switch {
	case breaking && breadth > 5:
		return "high"
	case breaking || breadth > 10:
		return "medium"
	case breadth > 3:
		return "medium"
	default:
		return "low"
	}
}

func (s *Server) toolAnalyzeChangeImpact(params map[string]interface{}) (interface{}, error) {
	changeType, err := requiredStringParam(params, "change_type")
	if err != nil {
		return nil, err
	}
	description, err := requiredStringParam(params, "description")
	if err != nil {
		return nil, err
	}
	repositoryID, err := s.resolveRepositoryID(params)
	if err != nil {
		return nil, err
	}
	breaking := boolParam(params, "breaking_changes", false)

	affected := append([]string{}, stringSliceParam(params, "files_to_modify")...)
	affected = append(affected, stringSliceParam(params, "files_to_delete")...)

	dependentsByFile := map[string][]string{}
	testFiles := map[string]bool{}
	totalBreadth := 0
	for _, f := range affected {
		deps, err := s.engine.SearchDependencies(query.DependencyRequest{
			RepositoryID: repositoryID, FilePath: f, Direction: query.DirectionDependents, Depth: 2,
		})
		if err != nil {
			return nil, err
		}
		var names []string
		if deps.Dependents != nil {
			names = append(names, deps.Dependents.Direct...)
			for _, paths := range deps.Dependents.Indirect {
				names = append(names, paths...)
			}
		}
		dependentsByFile[f] = names
		totalBreadth += len(names)
		for _, name := range names {
			if query.IsTestPath(name) {
				testFiles[name] = true
			}
		}
	}

	return map[string]interface{}{
		"change_type":        changeType,
		"description":        description,
		"files_created":      stringSliceParam(params, "files_to_create"),
		"dependents_by_file": dependentsByFile,
		"risk":               riskFromBreadth(totalBreadth, breaking),
		"breaking_changes":   breaking,
		"test_files":         sortedKeys(testFiles),
	}, nil
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type taskFileContext struct {
	File           string   `json:"file"`
	DependentCount int      `json:"dependent_count"`
	Symbols        []string `json:"symbols,omitempty"`
	TestFiles      []string `json:"test_files,omitempty"`
}

func (s *Server) toolGenerateTaskContext(params map[string]interface{}) (interface{}, error) {
	files := stringSliceParam(params, "files")
	if len(files) == 0 {
		return nil, cdberrors.NewValidationError("files", "files must not be empty")
	}
	repositoryID, err := s.resolveRepositoryID(params)
	if err != nil {
		return nil, err
	}
	includeTests := boolParam(params, "include_tests", false)
	includeSymbols := boolParam(params, "include_symbols", false)

	indexStale := s.gate.IsStale(repositoryID)
	if repo, err := storage.GetRepositoryByID(s.db, repositoryID); err == nil {
		if repo == nil || !repo.LastIndexedAt.Valid {
			indexStale = true
		}
	}

	var contexts []taskFileContext
	for _, f := range files {
		deps, err := s.engine.SearchDependencies(query.DependencyRequest{
			RepositoryID: repositoryID, FilePath: f, Direction: query.DirectionDependents, Depth: 1, IncludeTests: includeTests,
		})
		if err != nil {
			return nil, err
		}
		count := 0
		if deps.Dependents != nil {
			count = len(deps.Dependents.Direct)
		}
		ctx := taskFileContext{File: f, DependentCount: count}

		if includeSymbols {
			file, err := storage.GetFileByPath(s.db, repositoryID, f)
			if err == nil && file != nil {
				if rows, err := storage.ListSymbolsByFileID(s.db, file.ID); err == nil {
					for _, sym := range rows {
						ctx.Symbols = append(ctx.Symbols, sym.Name)
					}
				}
			}
		}
		if includeTests {
			testDeps, err := s.engine.SearchDependencies(query.DependencyRequest{
				RepositoryID: repositoryID, FilePath: f, Direction: query.DirectionDependents, Depth: 1, IncludeTests: true,
			})
			if err == nil && testDeps.Dependents != nil {
				for _, p := range testDeps.Dependents.Direct {
					if query.IsTestPath(p) {
						ctx.TestFiles = append(ctx.TestFiles, p)
					}
				}
			}
		}
		contexts = append(contexts, ctx)
	}

	return map[string]interface{}{
		"files":       contexts,
		"indexStale":  indexStale,
		"repository":  repositoryID,
	}, nil
}

