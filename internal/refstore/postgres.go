// Package refstore loads country reference tables from databases.
//
// Both stores are read-only: they run a single SELECT at startup and hand the
// rows to geo.NewTable, which performs all validation. The expected schema is
//
//	alpha2  text      -- may be NULL
//	alpha3  text NOT NULL
//	name    text NOT NULL
//	aliases text      -- "|" separated, may be NULL
package refstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/GDPExplorer/internal/geo"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// DefaultTableName is the table queried when none is configured.
const DefaultTableName = "countries"

// Querier is the subset of pgx used by Postgres.
// Satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Postgres reads reference entries from a PostgreSQL table.
type Postgres struct {
	db    Querier
	table string
}

// NewPostgres creates a store reading from table (DefaultTableName if empty).
// A schema-qualified name such as "ref.countries" is quoted per part.
func NewPostgres(db Querier, table string) *Postgres {
	if table == "" {
		table = DefaultTableName
	}
	return &Postgres{db: db, table: table}
}

// Entries returns all rows ordered by alpha3.
func (p *Postgres) Entries(ctx context.Context) ([]geo.Entry, error) {
	query := fmt.Sprintf(
		"SELECT alpha2, alpha3, name, aliases FROM %s ORDER BY alpha3",
		pgx.Identifier(strings.Split(p.table, ".")).Sanitize(),
	)

	rows, err := p.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", p.table, err)
	}
	defer rows.Close()

	var entries []geo.Entry
	for rows.Next() {
		var alpha2, aliases pgtype.Text
		var e geo.Entry
		if err := rows.Scan(&alpha2, &e.Alpha3, &e.Name, &aliases); err != nil {
			return nil, fmt.Errorf("scan %s: %w", p.table, err)
		}
		e.Alpha2 = alpha2.String
		e.Aliases = geo.SplitAliases(aliases.String)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", p.table, err)
	}
	return entries, nil
}

// Table loads and validates the reference table.
func (p *Postgres) Table(ctx context.Context) (*geo.Table, error) {
	entries, err := p.Entries(ctx)
	if err != nil {
		return nil, err
	}
	return geo.NewTable(entries)
}
