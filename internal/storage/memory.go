package storage

import (
	"database/sql"

	cdberrors "github.com/corpusdb/corpusdb/internal/errors"
)

// Decision, Failure, and Insight are the append-mostly memory entities
// (§3). Pattern is represented as an Insight row with Kind == "pattern".
type Decision struct {
	ID           string
	RepositoryID sql.NullString
	Scope        string
	Title        string
	Body         string
	Status       string
	CreatedAt    string
}

type Failure struct {
	ID           string
	RepositoryID sql.NullString
	Scope        string
	Title        string
	Body         string
	CreatedAt    string
}

type Insight struct {
	ID           string
	RepositoryID sql.NullString
	Scope        string
	Kind         string // "insight" | "pattern"
	Title        string
	Body         string
	CreatedAt    string
}

const (
	InsightKindInsight = "insight"
	InsightKindPattern = "pattern"
)

func RecordDecision(db *DB, repositoryID, scope, title, body string) (*Decision, error) {
	d := &Decision{ID: NewID(), Scope: scope, Title: title, Body: body, Status: "active"}
	if repositoryID != "" {
		d.RepositoryID = sql.NullString{String: repositoryID, Valid: true}
	}
	_, err := db.Exec(`INSERT INTO decisions (id, repository_id, scope, title, body, status) VALUES (?, ?, ?, ?, ?, ?)`,
		d.ID, d.RepositoryID, d.Scope, d.Title, d.Body, d.Status)
	if err != nil {
		return nil, cdberrors.WrapInternal("record decision", err)
	}
	return d, nil
}

// UpdateDecisionStatus is the only mutation a Decision ever undergoes
// (active → superseded → deprecated, §3).
func UpdateDecisionStatus(db *DB, id, status string) error {
	res, err := db.Exec(`UPDATE decisions SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return cdberrors.WrapInternal("update decision status", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return cdberrors.WrapInternal("update decision status", err)
	}
	if n == 0 {
		return cdberrors.NewNotFoundError("decision", id)
	}
	return nil
}

func RecordFailure(db *DB, repositoryID, scope, title, body string) (*Failure, error) {
	f := &Failure{ID: NewID(), Scope: scope, Title: title, Body: body}
	if repositoryID != "" {
		f.RepositoryID = sql.NullString{String: repositoryID, Valid: true}
	}
	_, err := db.Exec(`INSERT INTO failures (id, repository_id, scope, title, body) VALUES (?, ?, ?, ?, ?)`,
		f.ID, f.RepositoryID, f.Scope, f.Title, f.Body)
	if err != nil {
		return nil, cdberrors.WrapInternal("record failure", err)
	}
	return f, nil
}

// RecordInsight persists an Insight or, when kind is InsightKindPattern, a
// Pattern — both share this table and FTS index, discriminated by kind.
func RecordInsight(db *DB, repositoryID, scope, kind, title, body string) (*Insight, error) {
	if kind == "" {
		kind = InsightKindInsight
	}
	ins := &Insight{ID: NewID(), Scope: scope, Kind: kind, Title: title, Body: body}
	if repositoryID != "" {
		ins.RepositoryID = sql.NullString{String: repositoryID, Valid: true}
	}
	_, err := db.Exec(`INSERT INTO insights (id, repository_id, scope, kind, title, body) VALUES (?, ?, ?, ?, ?, ?)`,
		ins.ID, ins.RepositoryID, ins.Scope, ins.Kind, ins.Title, ins.Body)
	if err != nil {
		return nil, cdberrors.WrapInternal("record insight", err)
	}
	return ins, nil
}

// ListAllDecisions, ListAllFailures, and ListAllInsights back
// kota_sync_export's entity-by-entity dump (§6).
func ListAllDecisions(db *DB) ([]*Decision, error) {
	rows, err := db.Query(`SELECT id, repository_id, scope, title, body, status, created_at FROM decisions`)
	if err != nil {
		return nil, cdberrors.WrapInternal("list decisions", err)
	}
	defer rows.Close()
	var out []*Decision
	for rows.Next() {
		d := &Decision{}
		if err := rows.Scan(&d.ID, &d.RepositoryID, &d.Scope, &d.Title, &d.Body, &d.Status, &d.CreatedAt); err != nil {
			return nil, cdberrors.WrapInternal("scan decision", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func ListAllFailures(db *DB) ([]*Failure, error) {
	rows, err := db.Query(`SELECT id, repository_id, scope, title, body, created_at FROM failures`)
	if err != nil {
		return nil, cdberrors.WrapInternal("list failures", err)
	}
	defer rows.Close()
	var out []*Failure
	for rows.Next() {
		f := &Failure{}
		if err := rows.Scan(&f.ID, &f.RepositoryID, &f.Scope, &f.Title, &f.Body, &f.CreatedAt); err != nil {
			return nil, cdberrors.WrapInternal("scan failure", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func ListAllInsights(db *DB) ([]*Insight, error) {
	rows, err := db.Query(`SELECT id, repository_id, scope, kind, title, body, created_at FROM insights`)
	if err != nil {
		return nil, cdberrors.WrapInternal("list insights", err)
	}
	defer rows.Close()
	var out []*Insight
	for rows.Next() {
		ins := &Insight{}
		if err := rows.Scan(&ins.ID, &ins.RepositoryID, &ins.Scope, &ins.Kind, &ins.Title, &ins.Body, &ins.CreatedAt); err != nil {
			return nil, cdberrors.WrapInternal("scan insight", err)
		}
		out = append(out, ins)
	}
	return out, rows.Err()
}

// InsertDecisionRaw, InsertFailureRaw, and InsertInsightRaw preserve the
// source id and created_at verbatim, for kota_sync_import (§6) where
// round-tripping identity matters more than fresh generation.
func InsertDecisionRaw(tx *sql.Tx, d *Decision) error {
	_, err := tx.Exec(`INSERT INTO decisions (id, repository_id, scope, title, body, status, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.RepositoryID, d.Scope, d.Title, d.Body, d.Status, d.CreatedAt)
	if err != nil {
		return cdberrors.WrapInternal("import decision", err)
	}
	return nil
}

func InsertFailureRaw(tx *sql.Tx, f *Failure) error {
	_, err := tx.Exec(`INSERT INTO failures (id, repository_id, scope, title, body, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		f.ID, f.RepositoryID, f.Scope, f.Title, f.Body, f.CreatedAt)
	if err != nil {
		return cdberrors.WrapInternal("import failure", err)
	}
	return nil
}

func InsertInsightRaw(tx *sql.Tx, ins *Insight) error {
	_, err := tx.Exec(`INSERT INTO insights (id, repository_id, scope, kind, title, body, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ins.ID, ins.RepositoryID, ins.Scope, ins.Kind, ins.Title, ins.Body, ins.CreatedAt)
	if err != nil {
		return cdberrors.WrapInternal("import insight", err)
	}
	return nil
}

// SearchDecisionsFTS, SearchFailuresFTS, and SearchInsightsFTS rank by
// BM25 over the FTS-synchronized content tables (§4.7.1 memory scopes).

func SearchDecisionsFTS(db *DB, ftsQuery string, repositoryID string, limit int) ([]*Decision, error) {
	rows, err := db.Query(
		`SELECT d.id, d.repository_id, d.scope, d.title, d.body, d.status, d.created_at
		 FROM decisions d JOIN decisions_fts f ON f.rowid = d.rowid
		 WHERE decisions_fts MATCH ? AND (? = '' OR d.repository_id = ?)
		 ORDER BY bm25(decisions_fts) LIMIT ?`, ftsQuery, repositoryID, repositoryID, limit)
	if err != nil {
		return nil, cdberrors.WrapInternal("search decisions", err)
	}
	defer rows.Close()

	var out []*Decision
	for rows.Next() {
		d := &Decision{}
		if err := rows.Scan(&d.ID, &d.RepositoryID, &d.Scope, &d.Title, &d.Body, &d.Status, &d.CreatedAt); err != nil {
			return nil, cdberrors.WrapInternal("scan decision", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func SearchFailuresFTS(db *DB, ftsQuery string, repositoryID string, limit int) ([]*Failure, error) {
	rows, err := db.Query(
		`SELECT f.id, f.repository_id, f.scope, f.title, f.body, f.created_at
		 FROM failures f JOIN failures_fts x ON x.rowid = f.rowid
		 WHERE failures_fts MATCH ? AND (? = '' OR f.repository_id = ?)
		 ORDER BY bm25(failures_fts) LIMIT ?`, ftsQuery, repositoryID, repositoryID, limit)
	if err != nil {
		return nil, cdberrors.WrapInternal("search failures", err)
	}
	defer rows.Close()

	var out []*Failure
	for rows.Next() {
		f := &Failure{}
		if err := rows.Scan(&f.ID, &f.RepositoryID, &f.Scope, &f.Title, &f.Body, &f.CreatedAt); err != nil {
			return nil, cdberrors.WrapInternal("scan failure", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func SearchInsightsFTS(db *DB, ftsQuery string, repositoryID, kind string, limit int) ([]*Insight, error) {
	rows, err := db.Query(
		`SELECT i.id, i.repository_id, i.scope, i.kind, i.title, i.body, i.created_at
		 FROM insights i JOIN insights_fts x ON x.rowid = i.rowid
		 WHERE insights_fts MATCH ? AND (? = '' OR i.repository_id = ?) AND (? = '' OR i.kind = ?)
		 ORDER BY bm25(insights_fts) LIMIT ?`, ftsQuery, repositoryID, repositoryID, kind, kind, limit)
	if err != nil {
		return nil, cdberrors.WrapInternal("search insights", err)
	}
	defer rows.Close()

	var out []*Insight
	for rows.Next() {
		ins := &Insight{}
		if err := rows.Scan(&ins.ID, &ins.RepositoryID, &ins.Scope, &ins.Kind, &ins.Title, &ins.Body, &ins.CreatedAt); err != nil {
			return nil, cdberrors.WrapInternal("scan insight", err)
		}
		out = append(out, ins)
	}
	return out, rows.Err()
}
