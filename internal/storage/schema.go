package storage

import (
	"database/sql"
	"sort"

	"github.com/corpusdb/corpusdb/internal/errors"
)

// migration is one named, idempotent schema change. The ledger records
// names, not a running integer version, so migrations may be authored and
// reviewed independently of each other's ordinal position.
type migration struct {
	name string
	up   func(tx *sql.Tx) error
}

// migrations is applied in lexical order of name; the migrator refuses to
// re-apply a name already present in the ledger (§3 "Schema migrations").
var migrations = []migration{
	{"0001_schema_migrations_ledger", createLedgerTable},
	{"0002_repositories", createRepositoriesTable},
	{"0003_indexed_files", createIndexedFilesTable},
	{"0004_indexed_symbols", createIndexedSymbolsTable},
	{"0005_indexed_references", createIndexedReferencesTable},
	{"0006_indexed_files_fts", createIndexedFilesFTS},
	{"0007_decisions", createDecisionsTable},
	{"0008_decisions_fts", createDecisionsFTS},
	{"0009_failures", createFailuresTable},
	{"0010_failures_fts", createFailuresFTS},
	{"0011_insights", createInsightsTable},
	{"0012_insights_fts", createInsightsFTS},
	{"0013_indexed_symbols_fts", createIndexedSymbolsFTS},
}

// runMigrations applies every migration whose name is not in the ledger,
// in lexical order, each inside its own transaction alongside the DDL, so
// a crash mid-migration never leaves a name recorded without its schema.
func (db *DB) runMigrations() error {
	sorted := make([]migration, len(migrations))
	copy(sorted, migrations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].name < sorted[j].name })

	// The ledger table itself must exist before we can query it; bootstrap
	// it outside the loop using its own migration's idempotent DDL.
	if _, err := db.conn.Exec(ledgerDDL); err != nil {
		return errors.WrapInternal("bootstrap migration ledger", err)
	}

	for _, m := range sorted {
		var applied int
		row := db.conn.QueryRow(`SELECT COUNT(*) FROM schema_migrations WHERE name = ?`, m.name)
		if err := row.Scan(&applied); err != nil {
			return errors.WrapInternal("check migration ledger", err)
		}
		if applied > 0 {
			continue
		}

		err := db.WithTx(func(tx *sql.Tx) error {
			if err := m.up(tx); err != nil {
				return err
			}
			_, err := tx.Exec(`INSERT INTO schema_migrations (name, applied_at) VALUES (?, datetime('now'))`, m.name)
			return err
		})
		if err != nil {
			return errors.WrapInternal("apply migration "+m.name, err)
		}
	}
	return nil
}

const ledgerDDL = `CREATE TABLE IF NOT EXISTS schema_migrations (
	name TEXT PRIMARY KEY,
	applied_at TEXT NOT NULL
)`

func createLedgerTable(tx *sql.Tx) error {
	_, err := tx.Exec(ledgerDDL)
	return err
}

func createRepositoriesTable(tx *sql.Tx) error {
	_, err := tx.Exec(`CREATE TABLE IF NOT EXISTS repositories (
		id TEXT PRIMARY KEY,
		full_name TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		default_branch TEXT,
		last_indexed_at TEXT,
		git_url TEXT,
		metadata TEXT NOT NULL DEFAULT '{}',
		created_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`)
	return err
}

func createIndexedFilesTable(tx *sql.Tx) error {
	if _, err := tx.Exec(`CREATE TABLE IF NOT EXISTS indexed_files (
		id TEXT PRIMARY KEY,
		repository_id TEXT NOT NULL REFERENCES repositories(id) ON DELETE CASCADE,
		path TEXT NOT NULL,
		content TEXT NOT NULL,
		language TEXT NOT NULL,
		size_bytes INTEGER NOT NULL,
		content_hash TEXT NOT NULL,
		indexed_at TEXT NOT NULL DEFAULT (datetime('now')),
		UNIQUE (repository_id, path)
	)`); err != nil {
		return err
	}
	_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_indexed_files_repo ON indexed_files(repository_id)`)
	return err
}

func createIndexedSymbolsTable(tx *sql.Tx) error {
	if _, err := tx.Exec(`CREATE TABLE IF NOT EXISTS indexed_symbols (
		id TEXT PRIMARY KEY,
		file_id TEXT NOT NULL REFERENCES indexed_files(id) ON DELETE CASCADE,
		repository_id TEXT NOT NULL REFERENCES repositories(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		line_start INTEGER NOT NULL,
		line_end INTEGER NOT NULL,
		signature TEXT,
		documentation TEXT,
		metadata TEXT NOT NULL DEFAULT '{}',
		CHECK (line_start <= line_end)
	)`); err != nil {
		return err
	}
	if _, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_indexed_symbols_file ON indexed_symbols(file_id)`); err != nil {
		return err
	}
	if _, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_indexed_symbols_repo_name ON indexed_symbols(repository_id, name)`); err != nil {
		return err
	}
	return nil
}

func createIndexedReferencesTable(tx *sql.Tx) error {
	if _, err := tx.Exec(`CREATE TABLE IF NOT EXISTS indexed_references (
		id TEXT PRIMARY KEY,
		file_id TEXT NOT NULL REFERENCES indexed_files(id) ON DELETE CASCADE,
		repository_id TEXT NOT NULL REFERENCES repositories(id) ON DELETE CASCADE,
		symbol_name TEXT NOT NULL,
		target_symbol_id TEXT REFERENCES indexed_symbols(id) ON DELETE SET NULL,
		target_file_path TEXT,
		line_number INTEGER NOT NULL,
		column_number INTEGER NOT NULL,
		reference_type TEXT NOT NULL,
		metadata TEXT NOT NULL DEFAULT '{}'
	)`); err != nil {
		return err
	}
	if _, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_indexed_references_repo_name ON indexed_references(repository_id, symbol_name)`); err != nil {
		return err
	}
	if _, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_indexed_references_target_path ON indexed_references(repository_id, target_file_path)`); err != nil {
		return err
	}
	return nil
}

// createIndexedFilesFTS creates the code-search virtual table with
// triggers keeping it synchronous with indexed_files, mirroring the FTS
// rowid back to indexed_files.rowid for O(1) joins.
func createIndexedFilesFTS(tx *sql.Tx) error {
	if _, err := tx.Exec(`CREATE VIRTUAL TABLE IF NOT EXISTS indexed_files_fts USING fts5(
		path, content, content='indexed_files', content_rowid='rowid'
	)`); err != nil {
		return err
	}
	return createFTSTriggers(tx, "indexed_files", "indexed_files_fts", "path, content")
}

// createIndexedSymbolsFTS backs the symbols search scope (§4.7.1). The
// symbols search calls bm25() without per-column weights, so name,
// signature and documentation weigh equally in ranking.
func createIndexedSymbolsFTS(tx *sql.Tx) error {
	if _, err := tx.Exec(`CREATE VIRTUAL TABLE IF NOT EXISTS indexed_symbols_fts USING fts5(
		name, signature, documentation, content='indexed_symbols', content_rowid='rowid'
	)`); err != nil {
		return err
	}
	return createFTSTriggers(tx, "indexed_symbols", "indexed_symbols_fts", "name, signature, documentation")
}

func createDecisionsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`CREATE TABLE IF NOT EXISTS decisions (
		id TEXT PRIMARY KEY,
		repository_id TEXT REFERENCES repositories(id) ON DELETE CASCADE,
		scope TEXT NOT NULL DEFAULT 'global',
		title TEXT NOT NULL,
		body TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		created_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`)
	return err
}

func createDecisionsFTS(tx *sql.Tx) error {
	if _, err := tx.Exec(`CREATE VIRTUAL TABLE IF NOT EXISTS decisions_fts USING fts5(
		title, body, content='decisions', content_rowid='rowid'
	)`); err != nil {
		return err
	}
	return createFTSTriggers(tx, "decisions", "decisions_fts", "title, body")
}

func createFailuresTable(tx *sql.Tx) error {
	_, err := tx.Exec(`CREATE TABLE IF NOT EXISTS failures (
		id TEXT PRIMARY KEY,
		repository_id TEXT REFERENCES repositories(id) ON DELETE CASCADE,
		scope TEXT NOT NULL DEFAULT 'global',
		title TEXT NOT NULL,
		body TEXT NOT NULL,
		created_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`)
	return err
}

func createFailuresFTS(tx *sql.Tx) error {
	if _, err := tx.Exec(`CREATE VIRTUAL TABLE IF NOT EXISTS failures_fts USING fts5(
		title, body, content='failures', content_rowid='rowid'
	)`); err != nil {
		return err
	}
	return createFTSTriggers(tx, "failures", "failures_fts", "title, body")
}

// createInsightsTable backs both Insight and Pattern memory entities; kind
// discriminates ('insight'|'pattern'), matching the spec's description of
// each memory entity as "a short textual record with a scope/type tag".
func createInsightsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`CREATE TABLE IF NOT EXISTS insights (
		id TEXT PRIMARY KEY,
		repository_id TEXT REFERENCES repositories(id) ON DELETE CASCADE,
		scope TEXT NOT NULL DEFAULT 'global',
		kind TEXT NOT NULL DEFAULT 'insight',
		title TEXT NOT NULL,
		body TEXT NOT NULL,
		created_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`)
	return err
}

func createInsightsFTS(tx *sql.Tx) error {
	if _, err := tx.Exec(`CREATE VIRTUAL TABLE IF NOT EXISTS insights_fts USING fts5(
		title, body, content='insights', content_rowid='rowid'
	)`); err != nil {
		return err
	}
	return createFTSTriggers(tx, "insights", "insights_fts", "title, body")
}

// createFTSTriggers installs AFTER INSERT/UPDATE/DELETE triggers keeping
// ftsTable synchronous with sourceTable within the same transaction as any
// mutation, so search results never observe a partial write (§4.1, §5).
func createFTSTriggers(tx *sql.Tx, sourceTable, ftsTable, columns string) error {
	stmts := []string{
		`CREATE TRIGGER IF NOT EXISTS ` + sourceTable + `_ai AFTER INSERT ON ` + sourceTable + ` BEGIN
			INSERT INTO ` + ftsTable + `(rowid, ` + columns + `) VALUES (new.rowid, ` + prefixed("new", columns) + `);
		END`,
		`CREATE TRIGGER IF NOT EXISTS ` + sourceTable + `_ad AFTER DELETE ON ` + sourceTable + ` BEGIN
			INSERT INTO ` + ftsTable + `(` + ftsTable + `, rowid, ` + columns + `) VALUES('delete', old.rowid, ` + prefixed("old", columns) + `);
		END`,
		`CREATE TRIGGER IF NOT EXISTS ` + sourceTable + `_au AFTER UPDATE ON ` + sourceTable + ` BEGIN
			INSERT INTO ` + ftsTable + `(` + ftsTable + `, rowid, ` + columns + `) VALUES('delete', old.rowid, ` + prefixed("old", columns) + `);
			INSERT INTO ` + ftsTable + `(rowid, ` + columns + `) VALUES (new.rowid, ` + prefixed("new", columns) + `);
		END`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// prefixed rewrites a "col1, col2" list into "new.col1, new.col2" for use
// inside a trigger body.
func prefixed(alias, columns string) string {
	out := ""
	col := ""
	flush := func() {
		if col != "" {
			if out != "" {
				out += ", "
			}
			out += alias + "." + col
			col = ""
		}
	}
	for _, r := range columns {
		switch r {
		case ',':
			flush()
		case ' ':
			// skip
		default:
			col += string(r)
		}
	}
	flush()
	return out
}
