package refstore

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/JonMunkholm/GDPExplorer/internal/geo"
	_ "modernc.org/sqlite"
)

// SQLite reads reference entries from a SQLite database file.
type SQLite struct {
	db    *sql.DB
	table string
}

// OpenSQLite opens path read-only.
func OpenSQLite(path, table string) (*SQLite, error) {
	if table == "" {
		table = DefaultTableName
	}
	db, err := sql.Open("sqlite", readOnlyDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return NewSQLite(db, table), nil
}

// readOnlyDSN builds a SQLite URI for path. Characters such as '?', '#' and
// '%' in the path are percent-encoded so they are not read as URI syntax.
func readOnlyDSN(path string) string {
	u := url.URL{Path: path}
	return "file:" + u.EscapedPath() + "?" + url.Values{"mode": {"ro"}}.Encode()
}

// NewSQLite wraps an existing database handle.
func NewSQLite(db *sql.DB, table string) *SQLite {
	if table == "" {
		table = DefaultTableName
	}
	return &SQLite{db: db, table: table}
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Entries returns all rows ordered by alpha3.
func (s *SQLite) Entries(ctx context.Context) ([]geo.Entry, error) {
	query := fmt.Sprintf(
		"SELECT alpha2, alpha3, name, aliases FROM %s ORDER BY alpha3",
		quoteIdent(s.table),
	)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.table, err)
	}
	defer rows.Close()

	var entries []geo.Entry
	for rows.Next() {
		var alpha2, aliases sql.NullString
		var e geo.Entry
		if err := rows.Scan(&alpha2, &e.Alpha3, &e.Name, &aliases); err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.table, err)
		}
		e.Alpha2 = alpha2.String
		e.Aliases = geo.SplitAliases(aliases.String)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", s.table, err)
	}
	return entries, nil
}

// Table loads and validates the reference table.
func (s *SQLite) Table(ctx context.Context) (*geo.Table, error) {
	entries, err := s.Entries(ctx)
	if err != nil {
		return nil, err
	}
	return geo.NewTable(entries)
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
