// Package repos resolves a tool-call "repository" argument to a concrete
// repository row (§4.8).
package repos

import (
	"github.com/corpusdb/corpusdb/internal/storage"
)

// idLength is the canonical hyphenated UUID length storage.NewID produces.
const idLength = 36

// Resolve implements §4.8's repository-argument rule: a 36-character
// identifier passes through without an existence check (preserves
// backward-compatible behaviour for pending-indexing queries); anything
// else is looked up as a full_name, case-sensitively; an empty argument
// falls back to the most recently created repository.
func Resolve(db *storage.DB, repository string) (*storage.Repository, error) {
	if repository == "" {
		return storage.GetMostRecentRepository(db)
	}
	if len(repository) == idLength {
		return &storage.Repository{ID: repository}, nil
	}
	return storage.GetRepositoryByFullName(db, repository)
}

// ResolveID is the common case for tools that only need the id string,
// not the full row (avoids a lookup when the caller already passed one).
func ResolveID(db *storage.DB, repository string) (string, error) {
	if len(repository) == idLength {
		return repository, nil
	}
	r, err := Resolve(db, repository)
	if err != nil {
		return "", err
	}
	if r == nil {
		return "", nil
	}
	return r.ID, nil
}
