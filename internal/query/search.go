// Package query implements the unified search/traversal/usage engine
// (§4.7): scope fan-out search, dependency BFS, usage resolution, and tip
// generation, all read-only against the storage layer.
package query

import (
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	cdberrors "github.com/corpusdb/corpusdb/internal/errors"
	"github.com/corpusdb/corpusdb/internal/metrics"
	"github.com/corpusdb/corpusdb/internal/storage"
)

// Scope is one of the five independently-queried search collections.
type Scope string

const (
	ScopeCode      Scope = "code"
	ScopeSymbols   Scope = "symbols"
	ScopeDecisions Scope = "decisions"
	ScopePatterns  Scope = "patterns"
	ScopeFailures  Scope = "failures"
)

// Output selects the result projection (§4.7.1).
type Output string

const (
	OutputFull    Output = "full"
	OutputPaths   Output = "paths"
	OutputCompact Output = "compact"
	OutputSnippet Output = "snippet"
)

// Filters carries the per-scope filter set; unknown filters for a given
// scope are ignored rather than rejected (§4.7.1).
type Filters struct {
	Repository   string
	Glob         string
	Language     string
	SymbolKinds  []string
	ExportedOnly bool
}

// Match is one code-scope or symbols-scope result, shaped per Output.
type Match struct {
	Path         string         `json:"path,omitempty"`
	MatchCount   int            `json:"match_count,omitempty"`
	Name         string         `json:"name,omitempty"`
	Kind         string         `json:"kind,omitempty"`
	File         string         `json:"file,omitempty"`
	LineStart    int            `json:"line_start,omitempty"`
	LineEnd      int            `json:"line_end,omitempty"`
	Signature    string         `json:"signature,omitempty"`
	Content      string         `json:"content,omitempty"`
	SnippetLines []SnippetMatch `json:"matches,omitempty"`
}

// SnippetMatch is one highlighted hit within a code match (§4.7.1 snippet).
type SnippetMatch struct {
	Line          int      `json:"line"`
	Content       string   `json:"content"`
	ContextBefore []string `json:"context_before"`
	ContextAfter  []string `json:"context_after"`
}

// MemoryMatch is one decision/failure/pattern/insight result.
type MemoryMatch struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Scope     string `json:"scope"`
	Status    string `json:"status,omitempty"`
	CreatedAt string `json:"created_at"`
}

// Result is the full unified-search response (§4.7.1).
type Result struct {
	Code      []Match       `json:"code,omitempty"`
	Symbols   []Match       `json:"symbols,omitempty"`
	Decisions []MemoryMatch `json:"decisions,omitempty"`
	Patterns  []MemoryMatch `json:"patterns,omitempty"`
	Failures  []MemoryMatch `json:"failures,omitempty"`
	Counts    Counts        `json:"counts"`
	Tips      []string      `json:"tips,omitempty"`
}

// Counts reports a per-scope and total hit count (§4.7.1).
type Counts struct {
	Code      int `json:"code,omitempty"`
	Symbols   int `json:"symbols,omitempty"`
	Decisions int `json:"decisions,omitempty"`
	Patterns  int `json:"patterns,omitempty"`
	Failures  int `json:"failures,omitempty"`
	Total     int `json:"total"`
}

// Engine answers query operations against one database.
type Engine struct {
	db *storage.DB
}

func NewEngine(db *storage.DB) *Engine {
	return &Engine{db: db}
}

// Request is the validated input to Search.
type Request struct {
	Query        string
	Scopes       []Scope
	Filters      Filters
	Limit        int
	Output       Output
	ContextLines int
	RecentTips   []string // tips already shown to this caller (§4.7.4 TTL window)
}

const defaultLimit = 20

// Search implements §4.7.1: each requested scope is queried
// independently; the FTS query is sanitised once and shared across scopes.
func (e *Engine) Search(req Request) (Result, error) {
	start := time.Now()
	defer func() {
		metrics.RecordSearch(scopeLabel(req.Scopes), time.Since(start))
	}()

	if req.Query == "" {
		return Result{}, cdberrors.NewValidationError("query", "query must not be empty")
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	scopes := req.Scopes
	if len(scopes) == 0 {
		scopes = []Scope{ScopeCode}
	}
	output := req.Output
	if output == "" {
		output = OutputFull
	}
	contextLines := req.ContextLines
	if contextLines <= 0 {
		contextLines = 3
	}
	if contextLines > 10 {
		contextLines = 10
	}

	ftsQuery := storage.SanitizeFTSQuery(req.Query)
	var result Result

	for _, scope := range scopes {
		switch scope {
		case ScopeCode:
			matches, err := e.searchCode(ftsQuery, req.Filters, limit, output, contextLines, req.Query)
			if err != nil {
				return Result{}, err
			}
			result.Code = matches
			result.Counts.Code = len(matches)
		case ScopeSymbols:
			matches, err := e.searchSymbols(ftsQuery, req.Filters, limit, output)
			if err != nil {
				return Result{}, err
			}
			result.Symbols = matches
			result.Counts.Symbols = len(matches)
		case ScopeDecisions:
			rows, err := storage.SearchDecisionsFTS(e.db, ftsQuery, req.Filters.Repository, limit)
			if err != nil {
				return Result{}, err
			}
			result.Decisions = decisionsToMatches(rows)
			result.Counts.Decisions = len(rows)
		case ScopePatterns:
			rows, err := storage.SearchInsightsFTS(e.db, ftsQuery, req.Filters.Repository, storage.InsightKindPattern, limit)
			if err != nil {
				return Result{}, err
			}
			result.Patterns = insightsToMatches(rows)
			result.Counts.Patterns = len(rows)
		case ScopeFailures:
			rows, err := storage.SearchFailuresFTS(e.db, ftsQuery, req.Filters.Repository, limit)
			if err != nil {
				return Result{}, err
			}
			result.Failures = failuresToMatches(rows)
			result.Counts.Failures = len(rows)
		}
	}

	result.Counts.Total = result.Counts.Code + result.Counts.Symbols + result.Counts.Decisions + result.Counts.Patterns + result.Counts.Failures
	result.Tips = GenerateTips(req, scopes, result.Counts, req.RecentTips)
	return result, nil
}

func scopeLabel(scopes []Scope) string {
	if len(scopes) == 0 {
		return string(ScopeCode)
	}
	names := make([]string, len(scopes))
	for i, s := range scopes {
		names[i] = string(s)
	}
	return strings.Join(names, ",")
}

func (e *Engine) searchCode(ftsQuery string, filters Filters, limit int, output Output, contextLines int, rawQuery string) ([]Match, error) {
	rows, err := storage.SearchCodeFTS(e.db, ftsQuery, filters.Repository, filters.Language, limit*2)
	if err != nil {
		return nil, err
	}

	var out []Match
	for _, r := range rows {
		if filters.Glob != "" {
			ok, err := doublestar.Match(filters.Glob, r.Path)
			if err != nil || !ok {
				continue
			}
		}
		out = append(out, shapeCodeMatch(r, output, contextLines, rawQuery))
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func shapeCodeMatch(r *storage.CodeMatch, output Output, contextLines int, rawQuery string) Match {
	switch output {
	case OutputPaths:
		return Match{Path: r.Path}
	case OutputCompact:
		return Match{Path: r.Path, MatchCount: countOccurrences(r.Content, rawQuery)}
	case OutputSnippet:
		return Match{Path: r.Path, SnippetLines: snippetsFor(r.Content, rawQuery, contextLines)}
	default:
		return Match{Path: r.Path, Content: r.Content}
	}
}

func countOccurrences(content, query string) int {
	if query == "" {
		return 0
	}
	return strings.Count(strings.ToLower(content), strings.ToLower(query))
}

// snippetsFor locates every line containing query (case-insensitive) and
// returns it with up to contextLines of surrounding lines (§4.7.1 snippet).
func snippetsFor(content, query string, contextLines int) []SnippetMatch {
	if query == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	lowerQuery := strings.ToLower(query)

	var out []SnippetMatch
	for i, line := range lines {
		if !strings.Contains(strings.ToLower(line), lowerQuery) {
			continue
		}
		before := lines[max(0, i-contextLines):i]
		after := lines[i+1 : min(len(lines), i+1+contextLines)]
		out = append(out, SnippetMatch{
			Line: i + 1, Content: line,
			ContextBefore: append([]string{}, before...),
			ContextAfter:  append([]string{}, after...),
		})
	}
	return out
}

func (e *Engine) searchSymbols(ftsQuery string, filters Filters, limit int, output Output) ([]Match, error) {
	rows, err := storage.SearchSymbolsFTS(e.db, ftsQuery, filters.Repository, filters.SymbolKinds, filters.ExportedOnly, limit)
	if err != nil {
		return nil, err
	}

	var out []Match
	for _, r := range rows {
		switch output {
		case OutputPaths:
			out = append(out, Match{Path: r.Path})
		case OutputCompact:
			out = append(out, Match{Name: r.Name, Kind: r.Kind, File: r.Path})
		default:
			out = append(out, Match{
				Name: r.Name, Kind: r.Kind, File: r.Path,
				LineStart: r.LineStart, LineEnd: r.LineEnd, Signature: r.Signature.String,
			})
		}
	}
	return out, nil
}

func decisionsToMatches(rows []*storage.Decision) []MemoryMatch {
	out := make([]MemoryMatch, 0, len(rows))
	for _, d := range rows {
		out = append(out, MemoryMatch{ID: d.ID, Title: d.Title, Body: d.Body, Scope: d.Scope, Status: d.Status, CreatedAt: d.CreatedAt})
	}
	return out
}

func failuresToMatches(rows []*storage.Failure) []MemoryMatch {
	out := make([]MemoryMatch, 0, len(rows))
	for _, f := range rows {
		out = append(out, MemoryMatch{ID: f.ID, Title: f.Title, Body: f.Body, Scope: f.Scope, CreatedAt: f.CreatedAt})
	}
	return out
}

func insightsToMatches(rows []*storage.Insight) []MemoryMatch {
	out := make([]MemoryMatch, 0, len(rows))
	for _, i := range rows {
		out = append(out, MemoryMatch{ID: i.ID, Title: i.Title, Body: i.Body, Scope: i.Scope, CreatedAt: i.CreatedAt})
	}
	return out
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
