// Package indexpipeline orchestrates discover → parse/extract → resolve →
// persist (§4.6). Parsing and extraction fan out across a worker pool
// bounded by CPU count; persistence is one atomic transaction.
package indexpipeline

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	cdberrors "github.com/corpusdb/corpusdb/internal/errors"
	"github.com/corpusdb/corpusdb/internal/logging"
	"github.com/corpusdb/corpusdb/internal/metrics"
	"github.com/corpusdb/corpusdb/internal/parser"
	"github.com/corpusdb/corpusdb/internal/refs"
	"github.com/corpusdb/corpusdb/internal/resolve"
	"github.com/corpusdb/corpusdb/internal/storage"
	"github.com/corpusdb/corpusdb/internal/symbols"
)

var defaultIgnoreDirs = map[string]bool{
	".git": true, "node_modules": true, "target": true,
	"dist": true, "build": true, ".next": true,
}

const defaultMaxFileSizeBytes = 1 << 20 // 1 MiB (§4.6 step 1)

// Stats mirrors the pipeline's return contract (§4.6 step 5).
type Stats struct {
	FilesIndexed       int
	SymbolsExtracted   int
	ReferencesFound    int
	ReferencesResolved int
	DurationMS         int64
}

// Options configures one indexing run; zero values fall back to spec
// defaults.
type Options struct {
	IgnoreDirs       []string
	MaxFileSizeBytes int64
}

type extractedFile struct {
	path     string
	lang     parser.Language
	content  []byte
	symbols  []symbols.Symbol
	refs     []refs.Reference
	parseErr bool
}

// Pipeline runs index(repository_id, root_path) -> stats (§4.6).
type Pipeline struct {
	db     *storage.DB
	logger *logging.Logger
}

func New(db *storage.DB, logger *logging.Logger) *Pipeline {
	return &Pipeline{db: db, logger: logger}
}

// Run executes one full index of rootPath into repositoryID, retrying
// transient failures at most twice with 100ms+400ms linear backoff (§7).
func (p *Pipeline) Run(ctx context.Context, repositoryID, rootPath string, opts Options) (Stats, error) {
	backoffs := []time.Duration{100 * time.Millisecond, 400 * time.Millisecond}
	runStart := time.Now()

	var stats Stats
	var err error
	for attempt := 0; ; attempt++ {
		stats, err = p.runOnce(ctx, repositoryID, rootPath, opts)
		if err == nil || !cdberrors.Is(err, cdberrors.Transient) || attempt >= len(backoffs) {
			metrics.RecordIndexRun(stats.FilesIndexed, err, time.Since(runStart))
			return stats, err
		}
		select {
		case <-ctx.Done():
			metrics.RecordIndexRun(0, ctx.Err(), time.Since(runStart))
			return Stats{}, cdberrors.NewCancelledError("index run cancelled: " + ctx.Err().Error())
		case <-time.After(backoffs[attempt]):
		}
	}
}

func (p *Pipeline) runOnce(ctx context.Context, repositoryID, rootPath string, opts Options) (Stats, error) {
	start := time.Now()

	paths, err := discover(rootPath, opts)
	if err != nil {
		return Stats{}, err
	}

	files, err := p.extractAll(ctx, rootPath, paths)
	if err != nil {
		return Stats{}, err
	}

	fileSet := make(resolve.FileSet, len(files))
	symbolLocs := make(map[string][]resolve.SymbolLocation)
	for _, f := range files {
		fileSet[f.path] = true
	}
	aliases, _ := resolve.DiscoverAliases(rootPath)

	// Symbol ids are only assignable once persisted, so by-name resolution
	// carries a placeholder identity (file:line_start) until insert time;
	// persist() swaps it for the real generated id.
	for _, f := range files {
		for _, s := range f.symbols {
			symbolLocs[s.Name] = append(symbolLocs[s.Name], resolve.SymbolLocation{
				File: f.path, LineStart: s.LineStart, LineEnd: s.LineEnd,
				SymbolID: symbolPlaceholder(f.path, s.LineStart),
			})
		}
	}

	resolver := resolve.NewResolver(fileSet, aliases, symbolLocs)

	var referencesFound, referencesResolved int
	resolvedByFile := make(map[string][]resolve.Resolved, len(files))
	for _, f := range files {
		var out []resolve.Resolved
		for _, r := range f.refs {
			res := resolver.Resolve(r, f.path)
			referencesFound++
			if res.TargetFilePath != "" || res.TargetSymbolID != "" {
				referencesResolved++
			}
			out = append(out, res)
		}
		resolvedByFile[f.path] = out
	}

	symbolsExtracted := 0
	for _, f := range files {
		symbolsExtracted += len(f.symbols)
	}

	if err := p.persist(repositoryID, files, resolvedByFile); err != nil {
		return Stats{}, err
	}

	return Stats{
		FilesIndexed:       len(files),
		SymbolsExtracted:   symbolsExtracted,
		ReferencesFound:    referencesFound,
		ReferencesResolved: referencesResolved,
		DurationMS:         time.Since(start).Milliseconds(),
	}, nil
}

// discover walks root_path respecting the closed ignore set plus caller
// overrides, skipping oversized/undetectable-language files (§4.6 step 1).
// Binary files are dropped later, by extractAll.
func discover(root string, opts Options) ([]string, error) {
	ignore := make(map[string]bool, len(defaultIgnoreDirs)+len(opts.IgnoreDirs))
	for k := range defaultIgnoreDirs {
		ignore[k] = true
	}
	for _, d := range opts.IgnoreDirs {
		ignore[d] = true
	}
	maxSize := opts.MaxFileSizeBytes
	if maxSize <= 0 {
		maxSize = defaultMaxFileSizeBytes
	}

	var out []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if p != root && (ignore[d.Name()] || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}

		if _, ok := parser.LanguageFromPath(p); !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil || info.Size() > maxSize {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, cdberrors.WrapInternal("discover files", err)
	}
	return out, nil
}

// extractAll parses and extracts every file in parallel, bounded to the
// CPU count. A parse failure is logged and leaves symbols/references
// empty but still stores content for full-text search (§4.6 step 2).
func (p *Pipeline) extractAll(ctx context.Context, root string, paths []string) ([]*extractedFile, error) {
	results := make([]*extractedFile, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for i, rel := range paths {
		i, rel := i, rel
		g.Go(func() error {
			content, err := readFile(filepath.Join(root, rel))
			if err != nil {
				return nil // unreadable file: skip entirely
			}
			if isBinary(content) {
				return nil
			}

			lang, _ := parser.LanguageFromPath(rel)
			ef := &extractedFile{path: rel, lang: lang, content: content}

			sp := parser.New()
			tree, perr := sp.Parse(gctx, content, lang)
			if perr != nil {
				ef.parseErr = true
				p.logger.Warn("parse failed", map[string]interface{}{"path": rel, "error": perr.Error()})
				results[i] = ef
				return nil
			}

			ef.symbols = symbols.Extract(tree, lang)
			ef.refs = refs.Extract(tree, lang)
			results[i] = ef
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, cdberrors.WrapInternal("extract files", err)
	}

	var out []*extractedFile
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}
	return out, nil
}

func readFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func isBinary(content []byte) bool {
	if bytes.IndexByte(content, 0) >= 0 {
		return true
	}
	sample := content
	if len(sample) > 8192 {
		sample = sample[:8192]
	}
	return !utf8.Valid(sample)
}

// persist implements §4.6 step 4: delete-then-insert under one
// transaction, building the path->id and (file,line_start)->id maps
// as rows are inserted so references can translate without a second pass.
func (p *Pipeline) persist(repositoryID string, files []*extractedFile, resolved map[string][]resolve.Resolved) error {
	return p.db.WithTx(func(tx *sql.Tx) error {
		if err := storage.DeleteRepositoryData(tx, repositoryID); err != nil {
			return err
		}

		fileIDs := make(map[string]string, len(files))
		for _, f := range files {
			language := ""
			if f.lang != "" {
				language = string(f.lang)
			}
			row := &storage.IndexedFile{
				RepositoryID: repositoryID,
				Path:         f.path,
				Content:      string(f.content),
				Language:     language,
				SizeBytes:    int64(len(f.content)),
				ContentHash:  storage.ContentHash(f.content),
			}
			if err := storage.InsertFile(tx, row); err != nil {
				return err
			}
			fileIDs[f.path] = row.ID
		}

		placeholderToID := make(map[string]string)
		for _, f := range files {
			fileID := fileIDs[f.path]
			for _, s := range f.symbols {
				row := &storage.IndexedSymbol{
					FileID:        fileID,
					RepositoryID:  repositoryID,
					Name:          s.Name,
					Kind:          string(s.Kind),
					LineStart:     s.LineStart,
					LineEnd:       s.LineEnd,
					Signature:     sql.NullString{String: s.Signature, Valid: s.Signature != ""},
					Documentation: sql.NullString{String: s.Documentation, Valid: s.Documentation != ""},
					Metadata:      "{}",
				}
				if err := storage.InsertSymbol(tx, row); err != nil {
					return err
				}
				placeholderToID[symbolPlaceholder(f.path, s.LineStart)] = row.ID
			}
		}

		for _, f := range files {
			fileID := fileIDs[f.path]
			for _, r := range resolved[f.path] {
				row := &storage.IndexedReference{
					FileID:        fileID,
					RepositoryID:  repositoryID,
					SymbolName:    r.SymbolName,
					LineNumber:    r.Line,
					ColumnNumber:  r.Column,
					ReferenceType: string(r.Type),
					Metadata:      referenceMetadata(r),
				}
				if r.TargetFilePath != "" {
					row.TargetFilePath = sql.NullString{String: r.TargetFilePath, Valid: true}
				}
				if id := placeholderToID[r.TargetSymbolID]; id != "" {
					row.TargetSymbolID = sql.NullString{String: id, Valid: true}
				}
				if err := storage.InsertReference(tx, row); err != nil {
					return err
				}
			}
		}

		return storage.TouchRepositoryIndexed(tx, repositoryID, time.Now().UTC().Format(time.RFC3339))
	})
}

// symbolPlaceholder is a stand-in symbol identity usable before real ids
// exist: unique per declaration site, stable between the resolve pass and
// the persist pass within one run.
func symbolPlaceholder(file string, lineStart int) string {
	return fmt.Sprintf("%s:%d", file, lineStart)
}

func referenceMetadata(r resolve.Resolved) string {
	if r.ImportSource == "" {
		return "{}"
	}
	return `{"importSource":"` + jsonEscape(r.ImportSource) + `"}`
}

func jsonEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}
