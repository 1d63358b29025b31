package dialect

import (
	"fmt"
	"strings"
)

func init() {
	Register(SQLite{})
	Register(MySQL{})
	Register(Postgres{})
	Register(Snowflake{})
}

// SQLite renders for the embedded file-backed engine: double-quoted
// identifiers, positional ? markers, LIMIT support.
type SQLite struct{}

func (SQLite) Name() string { return "sqlite3" }

func (SQLite) QuoteIdentifier(name string) string {
	return quoteANSI(name)
}

func (SQLite) Placeholder(int) string { return "?" }

func (SQLite) LimitClause(limit int) (string, error) {
	return fmt.Sprintf("LIMIT %d", limit), nil
}

// MySQL renders with backtick identifiers and positional ? markers.
type MySQL struct{}

func (MySQL) Name() string { return "mysql" }

func (MySQL) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (MySQL) Placeholder(int) string { return "?" }

func (MySQL) LimitClause(limit int) (string, error) {
	return fmt.Sprintf("LIMIT %d", limit), nil
}

// Postgres renders with ANSI double-quoted identifiers and numbered $n markers.
type Postgres struct{}

func (Postgres) Name() string { return "postgres" }

func (Postgres) QuoteIdentifier(name string) string {
	return quoteANSI(name)
}

func (Postgres) Placeholder(position int) string {
	return fmt.Sprintf("$%d", position)
}

func (Postgres) LimitClause(limit int) (string, error) {
	return fmt.Sprintf("LIMIT %d", limit), nil
}

// Snowflake renders with ANSI double-quoted identifiers and positional ? markers.
type Snowflake struct{}

func (Snowflake) Name() string { return "snowflake" }

func (Snowflake) QuoteIdentifier(name string) string {
	return quoteANSI(name)
}

func (Snowflake) Placeholder(int) string { return "?" }

func (Snowflake) LimitClause(limit int) (string, error) {
	return fmt.Sprintf("LIMIT %d", limit), nil
}

func quoteANSI(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
