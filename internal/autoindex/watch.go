package autoindex

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// watchRepo arranges for repositoryID to be marked stale whenever the
// working tree's .git/HEAD changes, so a long-lived `cdb serve` process
// notices a branch switch or rebase without re-running the indexing
// pipeline on every tool call. Best-effort: a watcher that fails to start
// (missing .git, inotify limits, platforms without filesystem events)
// just leaves the repository unwatched rather than failing the caller.
func (g *Gate) watchRepo(rootPath, repositoryID string) {
	g.mu.Lock()
	if g.watched == nil {
		g.watched = make(map[string]bool)
	}
	if g.watched[repositoryID] {
		g.mu.Unlock()
		return
	}
	g.watched[repositoryID] = true
	g.mu.Unlock()

	gitDir := filepath.Join(rootPath, ".git")
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return
	}
	if err := watcher.Add(gitDir); err != nil {
		watcher.Close()
		return
	}

	go g.watchLoop(watcher, repositoryID)
}

func (g *Gate) watchLoop(watcher *fsnotify.Watcher, repositoryID string) {
	defer watcher.Close()
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != "HEAD" {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			g.markStale(repositoryID)
		case _, ok := <-watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (g *Gate) markStale(repositoryID string) {
	g.mu.Lock()
	if g.stale == nil {
		g.stale = make(map[string]bool)
	}
	g.stale[repositoryID] = true
	g.mu.Unlock()
}

func (g *Gate) clearStale(repositoryID string) {
	g.mu.Lock()
	delete(g.stale, repositoryID)
	g.mu.Unlock()
}

// IsStale reports whether a .git/HEAD change has been observed for
// repositoryID since it was last indexed.
func (g *Gate) IsStale(repositoryID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stale[repositoryID]
}
