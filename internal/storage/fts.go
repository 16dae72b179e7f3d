package storage

import "strings"

// SanitizeFTSQuery prepares a raw user query for FTS5 MATCH. Tokens are
// split on whitespace; any token containing punctuation the FTS5 parser
// treats specially (hyphens, dots, slashes) is wrapped in double quotes to
// force phrase matching instead of being parsed as an operator. Tokens are
// rejoined with FTS5's implicit AND (bare whitespace) per §4.7.1.
func SanitizeFTSQuery(raw string) string {
	fields := strings.Fields(raw)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if strings.ContainsAny(f, "-./\\") {
			f = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
		}
		tokens = append(tokens, f)
	}
	return strings.Join(tokens, " ")
}

// Rebuild forces the FTS index for table to be rebuilt from its content
// table, useful after a bulk load that bypassed the row-level triggers.
func (db *DB) Rebuild(ftsTable string) error {
	_, err := db.conn.Exec(`INSERT INTO ` + ftsTable + `(` + ftsTable + `) VALUES('rebuild')`)
	return err
}
