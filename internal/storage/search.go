package storage

import (
	"database/sql"

	cdberrors "github.com/corpusdb/corpusdb/internal/errors"
)

// CodeMatch is one code-scope search hit (§4.7.1).
type CodeMatch struct {
	FileID       string
	RepositoryID string
	Path         string
	Content      string
	Language     string
}

// SearchCodeFTS ranks indexed_files by BM25 over path+content. The glob
// filter is applied by the caller post-query (path-glob matching has no
// natural FTS expression).
func SearchCodeFTS(db *DB, ftsQuery, repositoryID, language string, limit int) ([]*CodeMatch, error) {
	rows, err := db.Query(
		`SELECT f.id, f.repository_id, f.path, f.content, f.language
		 FROM indexed_files f JOIN indexed_files_fts x ON x.rowid = f.rowid
		 WHERE indexed_files_fts MATCH ?
		   AND (? = '' OR f.repository_id = ?)
		   AND (? = '' OR f.language = ?)
		 ORDER BY bm25(indexed_files_fts) LIMIT ?`,
		ftsQuery, repositoryID, repositoryID, language, language, limit)
	if err != nil {
		return nil, cdberrors.WrapInternal("search code", err)
	}
	defer rows.Close()

	var out []*CodeMatch
	for rows.Next() {
		m := &CodeMatch{}
		if err := rows.Scan(&m.FileID, &m.RepositoryID, &m.Path, &m.Content, &m.Language); err != nil {
			return nil, cdberrors.WrapInternal("scan code match", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// SymbolMatch is one symbols-scope search hit (§4.7.1).
type SymbolMatch struct {
	SymbolID     string
	FileID       string
	RepositoryID string
	Path         string
	Name         string
	Kind         string
	LineStart    int
	LineEnd      int
	Signature    sql.NullString
}

// SearchSymbolsFTS ranks indexed_symbols by BM25, optionally restricted to
// a closed set of symbol kinds. "exported_only" is approximated by a
// leading-uppercase-name convention shared across the supported
// languages' export rules (Go's capitalization, TS/JS/Python/Rust's
// PascalCase-by-convention public types); callers may widen this later
// per language.
func SearchSymbolsFTS(db *DB, ftsQuery, repositoryID string, kinds []string, exportedOnly bool, limit int) ([]*SymbolMatch, error) {
	query := `SELECT s.id, s.file_id, s.repository_id, f.path, s.name, s.kind, s.line_start, s.line_end, s.signature
		FROM indexed_symbols s
		JOIN indexed_symbols_fts x ON x.rowid = s.rowid
		JOIN indexed_files f ON f.id = s.file_id
		WHERE indexed_symbols_fts MATCH ? AND (? = '' OR s.repository_id = ?)`
	args := []interface{}{ftsQuery, repositoryID, repositoryID}

	query, args = appendTypeFilterColumn(query, args, "s.kind", kinds)

	if exportedOnly {
		query += ` AND substr(s.name, 1, 1) GLOB '[A-Z]'`
	}
	query += ` ORDER BY bm25(indexed_symbols_fts) LIMIT ?`
	args = append(args, limit)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, cdberrors.WrapInternal("search symbols", err)
	}
	defer rows.Close()

	var out []*SymbolMatch
	for rows.Next() {
		m := &SymbolMatch{}
		if err := rows.Scan(&m.SymbolID, &m.FileID, &m.RepositoryID, &m.Path, &m.Name, &m.Kind, &m.LineStart, &m.LineEnd, &m.Signature); err != nil {
			return nil, cdberrors.WrapInternal("scan symbol match", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func appendTypeFilterColumn(query string, args []interface{}, column string, values []string) (string, []interface{}) {
	if len(values) == 0 {
		return query, args
	}
	placeholders := ""
	for i, v := range values {
		if i > 0 {
			placeholders += ", "
		}
		placeholders += "?"
		args = append(args, v)
	}
	return query + " AND " + column + " IN (" + placeholders + ")", args
}
