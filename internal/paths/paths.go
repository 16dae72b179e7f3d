// Package paths holds small path-normalization helpers shared by the
// discovery walker and the import resolver — every path stored in the
// index is repo-root-relative with POSIX separators (§3).
package paths

import (
	"os"
	"path"
	"path/filepath"
	"strings"
)

// CanonicalizePath converts an absolute filesystem path into a
// repo-root-relative path with forward slashes, resolving symlinks when
// possible so two different on-disk routes to the same file normalize
// identically.
func CanonicalizePath(absolutePath, repoRoot string) (string, error) {
	resolved, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		if os.IsNotExist(err) {
			resolved = absolutePath
		} else {
			return "", err
		}
	}

	repoRootResolved, err := filepath.EvalSymlinks(repoRoot)
	if err != nil {
		if os.IsNotExist(err) {
			repoRootResolved = repoRoot
		} else {
			return "", err
		}
	}

	relativePath, err := filepath.Rel(repoRootResolved, resolved)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(relativePath), nil
}

// IsWithinRepo reports whether path canonicalizes to somewhere inside repoRoot.
func IsWithinRepo(p, repoRoot string) bool {
	canonical, err := CanonicalizePath(p, repoRoot)
	if err != nil {
		return false
	}
	return !strings.HasPrefix(canonical, "..")
}

// NormalizePath converts backslashes to forward slashes.
func NormalizePath(p string) string {
	return filepath.ToSlash(p)
}

// NormalizeImportCandidate cleans a repo-root-relative import candidate:
// collapses "./" and "../" segments using POSIX semantics (imports are
// always POSIX-style regardless of host OS) and strips any leading "./".
func NormalizeImportCandidate(p string) string {
	cleaned := path.Clean(NormalizePath(p))
	cleaned = strings.TrimPrefix(cleaned, "./")
	return cleaned
}

// JoinRepoPath joins a repo root with a canonical repo-relative path,
// producing an OS-native filesystem path.
func JoinRepoPath(repoRoot, canonicalPath string) string {
	parts := strings.Split(NormalizePath(canonicalPath), "/")
	return filepath.Join(append([]string{repoRoot}, parts...)...)
}
