package query

import (
	"strconv"
	"strings"

	cdberrors "github.com/corpusdb/corpusdb/internal/errors"
	"github.com/corpusdb/corpusdb/internal/storage"
)

// importReferenceTypes is the fixed set of reference kinds that form a
// file-to-file dependency edge (§4.7.2).
var importReferenceTypes = []string{"import", "re_export", "export_all", "dynamic_import"}

// Direction selects which edge(s) dependency traversal follows.
type Direction string

const (
	DirectionDependents   Direction = "dependents"
	DirectionDependencies Direction = "dependencies"
	DirectionBoth         Direction = "both"
)

const (
	minDepth     = 1
	maxDepth     = 5
	defaultDepth = 2
	// maxVisitedNodes bounds a single traversal's node budget so a
	// pathological graph cannot make one request scan the whole repo.
	maxVisitedNodes = 5000
)

// DependencySet is one direction's BFS result (§4.7.2).
type DependencySet struct {
	Direct   []string            `json:"direct"`
	Indirect map[string][]string `json:"indirect,omitempty"`
	Count    int                 `json:"count"`
}

// DependencyResult is the full search_dependencies response.
type DependencyResult struct {
	Dependents   *DependencySet `json:"dependents,omitempty"`
	Dependencies *DependencySet `json:"dependencies,omitempty"`
}

// DependencyRequest is the validated input to SearchDependencies.
type DependencyRequest struct {
	RepositoryID string
	FilePath     string
	Direction    Direction
	Depth        int
	IncludeTests bool
}

// SearchDependencies implements §4.7.2: a breadth-first walk over the
// import/re_export/export_all/dynamic_import edges, with a visited set
// for cycle detection, grounded on the teacher's cached-BFS navigation
// pattern (visited map + depth-bucketed frontiers).
func (e *Engine) SearchDependencies(req DependencyRequest) (DependencyResult, error) {
	if req.FilePath == "" {
		return DependencyResult{}, cdberrors.NewValidationError("file_path", "file_path must not be empty")
	}
	direction := req.Direction
	if direction == "" {
		direction = DirectionBoth
	}
	depth := req.Depth
	if depth <= 0 {
		depth = defaultDepth
	}
	if depth < minDepth {
		depth = minDepth
	}
	if depth > maxDepth {
		depth = maxDepth
	}

	var result DependencyResult
	if direction == DirectionDependents || direction == DirectionBoth {
		set, err := e.bfs(req.RepositoryID, req.FilePath, depth, req.IncludeTests, e.dependentsOf)
		if err != nil {
			return DependencyResult{}, err
		}
		result.Dependents = set
	}
	if direction == DirectionDependencies || direction == DirectionBoth {
		set, err := e.bfs(req.RepositoryID, req.FilePath, depth, req.IncludeTests, e.dependenciesOf)
		if err != nil {
			return DependencyResult{}, err
		}
		result.Dependencies = set
	}
	return result, nil
}

// edgeFunc returns the files directly reachable from path in one hop.
type edgeFunc func(repositoryID, path string) ([]string, error)

func (e *Engine) dependentsOf(repositoryID, path string) ([]string, error) {
	refs, err := storage.ReferencesByTargetPath(e.db, repositoryID, path, importReferenceTypes)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, r := range refs {
		f, err := storage.GetFileByID(e.db, r.FileID)
		if err != nil {
			return nil, err
		}
		if f != nil {
			out = append(out, f.Path)
		}
	}
	return out, nil
}

func (e *Engine) dependenciesOf(repositoryID, path string) ([]string, error) {
	file, err := storage.GetFileByPath(e.db, repositoryID, path)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, nil
	}
	refs, err := storage.ReferencesByFile(e.db, file.ID, importReferenceTypes)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, r := range refs {
		if r.TargetFilePath.Valid {
			out = append(out, r.TargetFilePath.String)
		}
	}
	return out, nil
}

// bfs walks edges() breadth-first from root out to depth hops, bucketing
// results by depth and tracking a visited set so cycles terminate.
func (e *Engine) bfs(repositoryID, root string, depth int, includeTests bool, edges edgeFunc) (*DependencySet, error) {
	visited := map[string]bool{root: true}
	frontier := []string{root}
	byDepth := make(map[int][]string)

	for d := 1; d <= depth && len(visited) < maxVisitedNodes; d++ {
		var next []string
		for _, node := range frontier {
			neighbors, err := edges(repositoryID, node)
			if err != nil {
				return nil, err
			}
			for _, n := range neighbors {
				if visited[n] {
					continue
				}
				visited[n] = true
				byDepth[d] = append(byDepth[d], n)
				next = append(next, n)
				if len(visited) >= maxVisitedNodes {
					break
				}
			}
		}
		frontier = next
		if len(frontier) == 0 {
			break
		}
	}

	set := &DependencySet{}
	set.Direct = filterTests(byDepth[1], includeTests)
	if depth > 1 {
		set.Indirect = make(map[string][]string)
		for d := 2; d <= depth; d++ {
			if paths := filterTests(byDepth[d], includeTests); len(paths) > 0 {
				set.Indirect["depth_"+strconv.Itoa(d)] = paths
			}
		}
	}
	set.Count = len(set.Direct)
	for _, paths := range set.Indirect {
		set.Count += len(paths)
	}
	return set, nil
}

// filterTests drops paths matching a test-file convention unless
// includeTests is set (§4.7.2).
func filterTests(paths []string, includeTests bool) []string {
	if includeTests {
		return paths
	}
	var out []string
	for _, p := range paths {
		if IsTestPath(p) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// IsTestPath reports whether p matches a test-file path convention
// (§4.7.2); exported for reuse by callers that enumerate test files
// outside of traversal itself (e.g. analyze_change_impact).
func IsTestPath(p string) bool {
	for _, marker := range []string{"/__tests__/", "/tests/", ".test.", ".spec."} {
		if strings.Contains(p, marker) {
			return true
		}
	}
	return false
}
