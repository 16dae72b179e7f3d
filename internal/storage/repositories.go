package storage

import (
	"database/sql"
	"strings"

	cdberrors "github.com/corpusdb/corpusdb/internal/errors"
)

// Repository is a logical container for one indexed source tree (§3).
type Repository struct {
	ID            string
	FullName      string
	Name          string
	DefaultBranch sql.NullString
	LastIndexedAt sql.NullString
	GitURL        sql.NullString
	Metadata      string
}

// IndexedFile is one source file snapshot (§3).
type IndexedFile struct {
	ID           string
	RepositoryID string
	Path         string
	Content      string
	Language     string
	SizeBytes    int64
	ContentHash  string
	IndexedAt    string
}

// IndexedSymbol is a named declaration discovered in a file (§3).
type IndexedSymbol struct {
	ID            string
	FileID        string
	RepositoryID  string
	Name          string
	Kind          string
	LineStart     int
	LineEnd       int
	Signature     sql.NullString
	Documentation sql.NullString
	Metadata      string
}

// IndexedReference is a use-site pointing from a location to a possibly
// resolved target (§3).
type IndexedReference struct {
	ID              string
	FileID          string
	RepositoryID    string
	SymbolName      string
	TargetSymbolID  sql.NullString
	TargetFilePath  sql.NullString
	LineNumber      int
	ColumnNumber    int
	ReferenceType   string
	Metadata        string
}

// CreateRepository inserts a new repository row; full_name must be unique.
func CreateRepository(db *DB, fullName, name string, defaultBranch, gitURL *string) (*Repository, error) {
	r := &Repository{
		ID:       NewID(),
		FullName: fullName,
		Name:     name,
		Metadata: "{}",
	}
	if defaultBranch != nil {
		r.DefaultBranch = sql.NullString{String: *defaultBranch, Valid: true}
	}
	if gitURL != nil {
		r.GitURL = sql.NullString{String: *gitURL, Valid: true}
	}

	_, err := db.Exec(
		`INSERT INTO repositories (id, full_name, name, default_branch, git_url, metadata) VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.FullName, r.Name, r.DefaultBranch, r.GitURL, r.Metadata,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, cdberrors.NewConflictError("uq_repositories_full_name", "repository already exists: "+fullName)
		}
		return nil, cdberrors.WrapInternal("create repository", err)
	}
	return r, nil
}

func scanRepository(row *sql.Row) (*Repository, error) {
	r := &Repository{}
	err := row.Scan(&r.ID, &r.FullName, &r.Name, &r.DefaultBranch, &r.LastIndexedAt, &r.GitURL, &r.Metadata)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, cdberrors.WrapInternal("scan repository", err)
	}
	return r, nil
}

const repositoryColumns = `id, full_name, name, default_branch, last_indexed_at, git_url, metadata`

// GetRepositoryByID returns the repository with the given 36-char id, or
// nil if absent (no existence check is performed by callers that merely
// pass this id through — see §4.8).
func GetRepositoryByID(db *DB, id string) (*Repository, error) {
	row := db.QueryRow(`SELECT `+repositoryColumns+` FROM repositories WHERE id = ?`, id)
	return scanRepository(row)
}

// GetRepositoryByFullName performs a case-sensitive lookup (§4.8).
func GetRepositoryByFullName(db *DB, fullName string) (*Repository, error) {
	row := db.QueryRow(`SELECT `+repositoryColumns+` FROM repositories WHERE full_name = ?`, fullName)
	return scanRepository(row)
}

// GetMostRecentRepository falls back here when no repository argument is
// supplied at all (§4.8).
func GetMostRecentRepository(db *DB) (*Repository, error) {
	row := db.QueryRow(`SELECT ` + repositoryColumns + ` FROM repositories ORDER BY created_at DESC LIMIT 1`)
	return scanRepository(row)
}

// IsIndexed reports whether a repository is "indexed": last_indexed_at is
// set and at least one IndexedFile references it (§3).
func IsIndexed(db *DB, repositoryID string) (bool, error) {
	var lastIndexedAt sql.NullString
	row := db.QueryRow(`SELECT last_indexed_at FROM repositories WHERE id = ?`, repositoryID)
	if err := row.Scan(&lastIndexedAt); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, cdberrors.WrapInternal("check indexed state", err)
	}
	if !lastIndexedAt.Valid {
		return false, nil
	}

	var fileCount int
	row = db.QueryRow(`SELECT COUNT(*) FROM indexed_files WHERE repository_id = ? LIMIT 1`, repositoryID)
	if err := row.Scan(&fileCount); err != nil {
		return false, cdberrors.WrapInternal("count indexed files", err)
	}
	return fileCount > 0, nil
}

// TouchRepositoryIndexed updates last_indexed_at as the final step of a
// successful index run (§4.6 step 4), within the pipeline's transaction.
func TouchRepositoryIndexed(tx *sql.Tx, repositoryID, timestampUTC string) error {
	_, err := tx.Exec(`UPDATE repositories SET last_indexed_at = ? WHERE id = ?`, timestampUTC, repositoryID)
	return err
}

// DeleteRepositoryData removes every IndexedFile/Symbol/Reference row for
// repositoryID, the first half of the delete-then-insert atomic replace
// (§4.6 step 4). Foreign keys cascade symbols/references from files, but
// deleting explicitly keeps the statement order self-documenting.
func DeleteRepositoryData(tx *sql.Tx, repositoryID string) error {
	stmts := []string{
		`DELETE FROM indexed_references WHERE repository_id = ?`,
		`DELETE FROM indexed_symbols WHERE repository_id = ?`,
		`DELETE FROM indexed_files WHERE repository_id = ?`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt, repositoryID); err != nil {
			return cdberrors.WrapInternal("delete repository data", err)
		}
	}
	return nil
}

// InsertFile inserts one IndexedFile row, assigning f.ID if empty.
func InsertFile(tx *sql.Tx, f *IndexedFile) error {
	if f.ID == "" {
		f.ID = NewID()
	}
	_, err := tx.Exec(
		`INSERT INTO indexed_files (id, repository_id, path, content, language, size_bytes, content_hash) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.RepositoryID, f.Path, f.Content, f.Language, f.SizeBytes, f.ContentHash,
	)
	if err != nil {
		return cdberrors.WrapInternal("insert indexed file "+f.Path, err)
	}
	return nil
}

// InsertSymbol inserts one IndexedSymbol row, assigning s.ID if empty.
func InsertSymbol(tx *sql.Tx, s *IndexedSymbol) error {
	if s.ID == "" {
		s.ID = NewID()
	}
	_, err := tx.Exec(
		`INSERT INTO indexed_symbols (id, file_id, repository_id, name, kind, line_start, line_end, signature, documentation, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.FileID, s.RepositoryID, s.Name, s.Kind, s.LineStart, s.LineEnd, s.Signature, s.Documentation, s.Metadata,
	)
	if err != nil {
		return cdberrors.WrapInternal("insert indexed symbol "+s.Name, err)
	}
	return nil
}

// InsertReference inserts one IndexedReference row, assigning r.ID if empty.
func InsertReference(tx *sql.Tx, r *IndexedReference) error {
	if r.ID == "" {
		r.ID = NewID()
	}
	_, err := tx.Exec(
		`INSERT INTO indexed_references (id, file_id, repository_id, symbol_name, target_symbol_id, target_file_path, line_number, column_number, reference_type, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.FileID, r.RepositoryID, r.SymbolName, r.TargetSymbolID, r.TargetFilePath, r.LineNumber, r.ColumnNumber, r.ReferenceType, r.Metadata,
	)
	if err != nil {
		return cdberrors.WrapInternal("insert indexed reference", err)
	}
	return nil
}

// GetFileByPath looks up a single indexed file by its repo-relative path.
func GetFileByPath(db *DB, repositoryID, path string) (*IndexedFile, error) {
	f := &IndexedFile{}
	row := db.QueryRow(
		`SELECT id, repository_id, path, content, language, size_bytes, content_hash, indexed_at
		 FROM indexed_files WHERE repository_id = ? AND path = ?`, repositoryID, path)
	err := row.Scan(&f.ID, &f.RepositoryID, &f.Path, &f.Content, &f.Language, &f.SizeBytes, &f.ContentHash, &f.IndexedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, cdberrors.WrapInternal("get file by path", err)
	}
	return f, nil
}

// ListRecentFiles returns files ordered by indexed_at desc (core tier
// list_recent_files, §6).
func ListRecentFiles(db *DB, repositoryID string, limit int) ([]*IndexedFile, error) {
	var rows *sql.Rows
	var err error
	if repositoryID != "" {
		rows, err = db.Query(
			`SELECT id, repository_id, path, content, language, size_bytes, content_hash, indexed_at
			 FROM indexed_files WHERE repository_id = ? ORDER BY indexed_at DESC LIMIT ?`, repositoryID, limit)
	} else {
		rows, err = db.Query(
			`SELECT id, repository_id, path, content, language, size_bytes, content_hash, indexed_at
			 FROM indexed_files ORDER BY indexed_at DESC LIMIT ?`, limit)
	}
	if err != nil {
		return nil, cdberrors.WrapInternal("list recent files", err)
	}
	defer rows.Close()

	var out []*IndexedFile
	for rows.Next() {
		f := &IndexedFile{}
		if err := rows.Scan(&f.ID, &f.RepositoryID, &f.Path, &f.Content, &f.Language, &f.SizeBytes, &f.ContentHash, &f.IndexedAt); err != nil {
			return nil, cdberrors.WrapInternal("scan recent file", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// ListSymbolsByName returns every symbol declared with the given name in a
// repository, used for find_usages' definition lookup (§4.7.3). Index-time
// call/type-ref resolution does not use it; it works from the pipeline's
// in-memory symbol map.
func ListSymbolsByName(db *DB, repositoryID, name string) ([]*IndexedSymbol, error) {
	rows, err := db.Query(
		`SELECT s.id, s.file_id, s.repository_id, s.name, s.kind, s.line_start, s.line_end, s.signature, s.documentation, s.metadata
		 FROM indexed_symbols s WHERE s.repository_id = ? AND s.name = ?`, repositoryID, name)
	if err != nil {
		return nil, cdberrors.WrapInternal("list symbols by name", err)
	}
	defer rows.Close()
	return scanSymbols(rows)
}

// ListSymbolsByFileID returns every symbol declared in one file, used by
// generate_task_context's optional symbol enumeration (§6).
func ListSymbolsByFileID(db *DB, fileID string) ([]*IndexedSymbol, error) {
	rows, err := db.Query(
		`SELECT id, file_id, repository_id, name, kind, line_start, line_end, signature, documentation, metadata
		 FROM indexed_symbols WHERE file_id = ?`, fileID)
	if err != nil {
		return nil, cdberrors.WrapInternal("list symbols by file", err)
	}
	defer rows.Close()
	return scanSymbols(rows)
}

func scanSymbols(rows *sql.Rows) ([]*IndexedSymbol, error) {
	var out []*IndexedSymbol
	for rows.Next() {
		s := &IndexedSymbol{}
		if err := rows.Scan(&s.ID, &s.FileID, &s.RepositoryID, &s.Name, &s.Kind, &s.LineStart, &s.LineEnd, &s.Signature, &s.Documentation, &s.Metadata); err != nil {
			return nil, cdberrors.WrapInternal("scan symbol", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ReferencesByTargetPath returns every reference whose resolved target
// file is path — the reverse edges used for dependents traversal (§4.7.2).
func ReferencesByTargetPath(db *DB, repositoryID, targetPath string, referenceTypes []string) ([]*IndexedReference, error) {
	query := `SELECT id, file_id, repository_id, symbol_name, target_symbol_id, target_file_path, line_number, column_number, reference_type, metadata
		FROM indexed_references WHERE repository_id = ? AND target_file_path = ?`
	args := []interface{}{repositoryID, targetPath}
	query, args = appendTypeFilter(query, args, referenceTypes)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, cdberrors.WrapInternal("references by target path", err)
	}
	defer rows.Close()
	return scanReferences(rows)
}

// ReferencesByFile returns every reference originating in fileID — the
// forward edges used for dependencies traversal (§4.7.2).
func ReferencesByFile(db *DB, fileID string, referenceTypes []string) ([]*IndexedReference, error) {
	query := `SELECT id, file_id, repository_id, symbol_name, target_symbol_id, target_file_path, line_number, column_number, reference_type, metadata
		FROM indexed_references WHERE file_id = ?`
	args := []interface{}{fileID}
	query, args = appendTypeFilter(query, args, referenceTypes)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, cdberrors.WrapInternal("references by file", err)
	}
	defer rows.Close()
	return scanReferences(rows)
}

// ReferencesBySymbolName returns every reference to name anywhere in the
// repository, used by find_usages (§4.7.3).
func ReferencesBySymbolName(db *DB, repositoryID, name string) ([]*IndexedReference, error) {
	rows, err := db.Query(
		`SELECT id, file_id, repository_id, symbol_name, target_symbol_id, target_file_path, line_number, column_number, reference_type, metadata
		 FROM indexed_references WHERE repository_id = ? AND symbol_name = ?`, repositoryID, name)
	if err != nil {
		return nil, cdberrors.WrapInternal("references by symbol name", err)
	}
	defer rows.Close()
	return scanReferences(rows)
}

func appendTypeFilter(query string, args []interface{}, types []string) (string, []interface{}) {
	if len(types) == 0 {
		return query, args
	}
	placeholders := ""
	for i, t := range types {
		if i > 0 {
			placeholders += ", "
		}
		placeholders += "?"
		args = append(args, t)
	}
	return query + " AND reference_type IN (" + placeholders + ")", args
}

func scanReferences(rows *sql.Rows) ([]*IndexedReference, error) {
	var out []*IndexedReference
	for rows.Next() {
		r := &IndexedReference{}
		if err := rows.Scan(&r.ID, &r.FileID, &r.RepositoryID, &r.SymbolName, &r.TargetSymbolID, &r.TargetFilePath, &r.LineNumber, &r.ColumnNumber, &r.ReferenceType, &r.Metadata); err != nil {
			return nil, cdberrors.WrapInternal("scan reference", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetSymbolByID is used to translate a resolved reference's target_symbol_id
// back to the file that declares it (§4.7.3's target_file on call/type-ref
// usages).
func GetSymbolByID(db *DB, symbolID string) (*IndexedSymbol, error) {
	s := &IndexedSymbol{}
	row := db.QueryRow(
		`SELECT id, file_id, repository_id, name, kind, line_start, line_end, signature, documentation, metadata
		 FROM indexed_symbols WHERE id = ?`, symbolID)
	err := row.Scan(&s.ID, &s.FileID, &s.RepositoryID, &s.Name, &s.Kind, &s.LineStart, &s.LineEnd, &s.Signature, &s.Documentation, &s.Metadata)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, cdberrors.WrapInternal("get symbol by id", err)
	}
	return s, nil
}

// GetFileByID is used to translate a reference's file_id back to a path
// during traversal/usage output.
func GetFileByID(db *DB, fileID string) (*IndexedFile, error) {
	f := &IndexedFile{}
	row := db.QueryRow(
		`SELECT id, repository_id, path, content, language, size_bytes, content_hash, indexed_at FROM indexed_files WHERE id = ?`, fileID)
	err := row.Scan(&f.ID, &f.RepositoryID, &f.Path, &f.Content, &f.Language, &f.SizeBytes, &f.ContentHash, &f.IndexedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, cdberrors.WrapInternal("get file by id", err)
	}
	return f, nil
}

// ListAllRepositories, ListAllFilesForExport, ListAllSymbolsForExport,
// and ListAllReferencesForExport back kota_sync_export's entity-by-entity
// dump (§6): one JSONL file per table, across every repository.
func ListAllRepositories(db *DB) ([]*Repository, error) {
	rows, err := db.Query(`SELECT ` + repositoryColumns + ` FROM repositories`)
	if err != nil {
		return nil, cdberrors.WrapInternal("list all repositories", err)
	}
	defer rows.Close()
	var out []*Repository
	for rows.Next() {
		r := &Repository{}
		if err := rows.Scan(&r.ID, &r.FullName, &r.Name, &r.DefaultBranch, &r.LastIndexedAt, &r.GitURL, &r.Metadata); err != nil {
			return nil, cdberrors.WrapInternal("scan repository", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// InsertRepositoryRaw preserves id/full_name/last_indexed_at verbatim,
// for kota_sync_import where round-tripping identity matters more than
// CreateRepository's fresh-id/uniqueness-checked insert.
func InsertRepositoryRaw(tx *sql.Tx, r *Repository) error {
	_, err := tx.Exec(
		`INSERT INTO repositories (id, full_name, name, default_branch, last_indexed_at, git_url, metadata) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.FullName, r.Name, r.DefaultBranch, r.LastIndexedAt, r.GitURL, r.Metadata,
	)
	if err != nil {
		return cdberrors.WrapInternal("import repository", err)
	}
	return nil
}

func ListAllFilesForExport(db *DB) ([]*IndexedFile, error) {
	rows, err := db.Query(`SELECT id, repository_id, path, content, language, size_bytes, content_hash, indexed_at FROM indexed_files`)
	if err != nil {
		return nil, cdberrors.WrapInternal("list all files", err)
	}
	defer rows.Close()
	var out []*IndexedFile
	for rows.Next() {
		f := &IndexedFile{}
		if err := rows.Scan(&f.ID, &f.RepositoryID, &f.Path, &f.Content, &f.Language, &f.SizeBytes, &f.ContentHash, &f.IndexedAt); err != nil {
			return nil, cdberrors.WrapInternal("scan file", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func ListAllSymbolsForExport(db *DB) ([]*IndexedSymbol, error) {
	rows, err := db.Query(`SELECT id, file_id, repository_id, name, kind, line_start, line_end, signature, documentation, metadata FROM indexed_symbols`)
	if err != nil {
		return nil, cdberrors.WrapInternal("list all symbols", err)
	}
	defer rows.Close()
	return scanSymbols(rows)
}

func ListAllReferencesForExport(db *DB) ([]*IndexedReference, error) {
	rows, err := db.Query(`SELECT id, file_id, repository_id, symbol_name, target_symbol_id, target_file_path, line_number, column_number, reference_type, metadata FROM indexed_references`)
	if err != nil {
		return nil, cdberrors.WrapInternal("list all references", err)
	}
	defer rows.Close()
	return scanReferences(rows)
}

// CountRows returns the row count of an entity table, used by
// get_index_statistics (§6 supplemented feature).
func CountRows(db *DB, table string) (int, error) {
	var n int
	row := db.QueryRow(`SELECT COUNT(*) FROM ` + table)
	if err := row.Scan(&n); err != nil {
		return 0, cdberrors.WrapInternal("count rows in "+table, err)
	}
	return n, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "constraint failed: UNIQUE")
}
