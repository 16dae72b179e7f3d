// Package autoindex implements the auto-index gate (§4.9): detect
// whether a repository is already indexed and, if not, run the
// indexing pipeline, coalescing concurrent callers for the same
// repository onto one running job.
package autoindex

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	cdberrors "github.com/corpusdb/corpusdb/internal/errors"
	"github.com/corpusdb/corpusdb/internal/indexpipeline"
	"github.com/corpusdb/corpusdb/internal/storage"
)

// Result is the ensure_indexed response (§4.9).
type Result struct {
	WasIndexed   bool                 `json:"was_indexed"`
	RepositoryID string               `json:"repository_id"`
	Message      string               `json:"message"`
	Stats        *indexpipeline.Stats `json:"stats,omitempty"`
}

// inFlight tracks one running index job per repository identifier, so
// concurrent ensure_indexed calls for the same repository share its
// result instead of racing the pipeline (§4.9, §5). Grounded on the
// teacher's flock-based single-running-job discipline in
// internal/index/lock.go, reimplemented as an in-process map since §5
// specifies a "shared, short-lived in-memory map" rather than a
// cross-process file lock.
type inFlightJob struct {
	done   chan struct{}
	result Result
	err    error
}

// Gate coordinates ensure_indexed calls across goroutines.
type Gate struct {
	db       *storage.DB
	pipeline *indexpipeline.Pipeline

	mu       sync.Mutex
	inFlight map[string]*inFlightJob
	watched  map[string]bool
	stale    map[string]bool
}

func NewGate(db *storage.DB, pipeline *indexpipeline.Pipeline) *Gate {
	return &Gate{db: db, pipeline: pipeline, inFlight: make(map[string]*inFlightJob)}
}

// EnsureIndexed detects a repository from localPath (requiring a .git
// directory, per §4.9) or an explicit repositoryIdentifier, and runs
// the indexing pipeline if it is not already indexed.
func (g *Gate) EnsureIndexed(ctx context.Context, repositoryIdentifier, localPath string) (Result, error) {
	fullName, rootPath, err := g.detect(repositoryIdentifier, localPath)
	if err != nil {
		return Result{}, err
	}

	repo, err := storage.GetRepositoryByFullName(g.db, fullName)
	if err != nil {
		return Result{}, err
	}
	if repo == nil {
		name := filepath.Base(fullName)
		repo, err = storage.CreateRepository(g.db, fullName, name, nil, nil)
		if err != nil {
			if !cdberrors.Is(err, cdberrors.Conflict) {
				return Result{}, err
			}
			// A concurrent caller created it first; use that row.
			repo, err = storage.GetRepositoryByFullName(g.db, fullName)
			if err != nil {
				return Result{}, err
			}
		}
	}

	if rootPath != "" {
		g.watchRepo(rootPath, repo.ID)
	}

	indexed, err := storage.IsIndexed(g.db, repo.ID)
	if err != nil {
		return Result{}, err
	}
	if indexed && !g.IsStale(repo.ID) {
		return Result{WasIndexed: true, RepositoryID: repo.ID, Message: "repository already indexed"}, nil
	}
	if rootPath == "" {
		return Result{}, cdberrors.NewValidationError("local_path", "repository is not indexed and no local_path was given to index it from")
	}

	return g.runCoalesced(ctx, repo.ID, rootPath)
}

// detect resolves the (full_name, root_path) pair to index, requiring a
// .git directory when localPath is given (§4.9).
func (g *Gate) detect(repositoryIdentifier, localPath string) (fullName, rootPath string, err error) {
	if localPath != "" {
		if _, statErr := os.Stat(filepath.Join(localPath, ".git")); statErr != nil {
			return "", "", cdberrors.NewValidationError("local_path", "not a git repository: "+localPath)
		}
		return "local/" + filepath.Base(localPath), localPath, nil
	}
	if repositoryIdentifier == "" {
		return "", "", cdberrors.NewValidationError("repository_identifier", "one of repository_identifier or local_path is required")
	}
	return repositoryIdentifier, "", nil
}

func (g *Gate) runCoalesced(ctx context.Context, repositoryID, rootPath string) (Result, error) {
	g.mu.Lock()
	if job, ok := g.inFlight[repositoryID]; ok {
		g.mu.Unlock()
		<-job.done
		return job.result, job.err
	}
	job := &inFlightJob{done: make(chan struct{})}
	g.inFlight[repositoryID] = job
	g.mu.Unlock()

	stats, err := g.pipeline.Run(ctx, repositoryID, rootPath, indexpipeline.Options{})
	if err != nil {
		job.err = err
	} else {
		g.clearStale(repositoryID)
		job.result = Result{WasIndexed: false, RepositoryID: repositoryID, Message: "indexing completed", Stats: &stats}
	}

	g.mu.Lock()
	delete(g.inFlight, repositoryID)
	g.mu.Unlock()
	close(job.done)

	return job.result, job.err
}
