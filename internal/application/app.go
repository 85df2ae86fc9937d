// Package application assembles the cleaning service from configuration.
// Both the server and the gdpclean CLI build their service here so they
// clean identically.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JonMunkholm/GDPExplorer/internal/config"
	"github.com/JonMunkholm/GDPExplorer/internal/core"
	"github.com/JonMunkholm/GDPExplorer/internal/geo"
	"github.com/JonMunkholm/GDPExplorer/internal/memo"
	"github.com/JonMunkholm/GDPExplorer/internal/refstore"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Reference table sources.
const (
	ReferenceEmbedded = "embedded"
	ReferenceCSV      = "csv"
	ReferencePostgres = "postgres"
	ReferenceSQLite   = "sqlite"
)

// App holds the assembled components.
type App struct {
	Config  *config.Config
	Table   *geo.Table
	Matcher *geo.Matcher
	Service *core.Service
}

// Build loads the reference table and creates the service. Any problem with
// the reference table is returned; callers treat it as fatal.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	table, err := LoadReference(ctx, cfg)
	if err != nil {
		return nil, err
	}

	matcher := geo.NewMatcher(table, cfg.Resolver.FuzzyThreshold)
	pipeline := core.NewPipeline(Columns(cfg.Columns), matcher)
	pipeline.Delimiter = cfg.DelimiterRune()

	svc, err := core.NewService(pipeline, core.ServiceOptions{
		Source:        cfg.Dataset.Path,
		MaxFileSize:   cfg.Dataset.MaxFileSize,
		Cache:         memo.Policy{Size: cfg.Cache.Size, TTL: cfg.Cache.TTL},
		MaxConcurrent: cfg.Clean.MaxConcurrent,
		MaxWait:       cfg.Clean.MaxWaitTime,
	})
	if err != nil {
		return nil, fmt.Errorf("create service: %w", err)
	}

	slog.Info("reference table loaded",
		"source", cfg.Resolver.Reference,
		"entries", table.Len(),
		"fuzzy_threshold", matcher.Threshold(),
	)

	return &App{Config: cfg, Table: table, Matcher: matcher, Service: svc}, nil
}

// Columns converts configured header names to a core.ColumnSet.
func Columns(c config.ColumnsConfig) core.ColumnSet {
	return core.ColumnSet{
		Country:      c.Country,
		GDPNominal:   c.GDPNominal,
		GDPAbbrev:    c.GDPAbbrev,
		GDPGrowth:    c.GDPGrowth,
		Population:   c.Population,
		GDPPerCapita: c.GDPPerCapita,
		Share:        c.Share,
	}
}

// LoadReference reads the country reference table from the configured source.
func LoadReference(ctx context.Context, cfg *config.Config) (*geo.Table, error) {
	rc := cfg.Resolver

	switch strings.ToLower(rc.Reference) {
	case ReferenceEmbedded, "":
		return geo.DefaultTable()

	case ReferenceCSV:
		return geo.LoadCSVFile(rc.ReferencePath)

	case ReferenceSQLite:
		store, err := refstore.OpenSQLite(rc.ReferencePath, rc.ReferenceTable)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		return store.Table(ctx)

	case ReferencePostgres:
		return loadPostgres(ctx, cfg)
	}

	return nil, fmt.Errorf("unknown reference source %q", rc.Reference)
}

// loadPostgres reads the table once and closes the pool; nothing else uses
// the database.
func loadPostgres(ctx context.Context, cfg *config.Config) (*geo.Table, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)

	if cfg.Database.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Database.ConnectTimeout)
		defer cancel()
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return refstore.NewPostgres(pool, cfg.Resolver.ReferenceTable).Table(ctx)
}
