// Package ddl is a small, backend-agnostic model for the placemark table and
// a renderer that turns it into dialect-specific CREATE TABLE statements.
//
// A Dialect supplies identifier quoting, a type for each Kind, and the shape
// of the statement (IF NOT EXISTS vs. an OBJECT_ID guard). The storage
// backends each declare one Dialect and render through BuildCreateTableSQL.
package ddl

import (
	"fmt"
	"strings"
)

// Dialect describes how one SQL engine spells a CREATE TABLE.
type Dialect struct {
	// Name is used in error messages ("postgres", "mssql", ...).
	Name string

	// Quote quotes a single identifier segment.
	Quote func(string) string

	// Types maps each Kind to the engine's SQL type.
	Types map[Kind]string

	// Wrap turns the quoted table name and body ("(\n  col ...\n)") into the
	// final statement. Nil means "CREATE TABLE IF NOT EXISTS <fqn> <body>;".
	Wrap func(fqn, body string) string
}

// QuoteFQN quotes every dot-separated segment of fqn, skipping empty ones.
func (d Dialect) QuoteFQN(fqn string) string {
	parts := strings.Split(fqn, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, d.Quote(p))
		}
	}
	return strings.Join(out, ".")
}

// BuildCreateTableSQL renders an idempotent CREATE TABLE for t.
func (d Dialect) BuildCreateTableSQL(t TableDef) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("%s ddl: table name must not be empty", d.Name)
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("%s ddl: at least one column is required", d.Name)
	}

	cols := make([]string, 0, len(t.Columns)+1)
	var pks []string
	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("%s ddl: column with empty name in table %s", d.Name, fqn)
		}
		typ, ok := d.Types[c.Kind]
		if !ok {
			return "", fmt.Errorf("%s ddl: no SQL type for column %s (kind %d)", d.Name, name, c.Kind)
		}
		def := d.Quote(name) + " " + typ
		if !c.Nullable {
			def += " NOT NULL"
		}
		cols = append(cols, def)
		if c.PrimaryKey {
			pks = append(pks, d.Quote(name))
		}
	}
	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	body := "(\n  " + strings.Join(cols, ",\n  ") + "\n)"
	if d.Wrap != nil {
		return d.Wrap(d.QuoteFQN(fqn), body), nil
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s %s;", d.QuoteFQN(fqn), body), nil
}

// DoubleQuote is the ANSI identifier quoting used by Postgres and SQLite.
func DoubleQuote(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
