// Command gdpclean cleans a GDP CSV file once and prints the result.
//
// Usage:
//
//	gdpclean -file data.csv [-view dataset|map|table|report] [-format json|csv]
//	         [-threshold 0.8] [-reference embedded|csv:PATH|sqlite:PATH|postgres]
//
// Settings not given as flags come from the same environment variables as
// the server. Logs go to stderr; stdout carries only the output.
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/JonMunkholm/GDPExplorer/internal/application"
	"github.com/JonMunkholm/GDPExplorer/internal/config"
	"github.com/JonMunkholm/GDPExplorer/internal/core"
	"github.com/JonMunkholm/GDPExplorer/internal/logging"
	"github.com/joho/godotenv"
)

// Exit codes
const (
	exitOK          = 0
	exitUnavailable = 1
	exitUsage       = 2
)

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("gdpclean", flag.ContinueOnError)
	fs.SetOutput(stderr)

	file := fs.String("file", "", "CSV file to clean (default: DATASET_PATH)")
	view := fs.String("view", "dataset", "output: dataset, map, table or report")
	format := fs.String("format", "json", "output format: json or csv (csv for map and table)")
	threshold := fs.Float64("threshold", 0, "fuzzy match threshold in (0, 1] (default: RESOLVER_FUZZY_THRESHOLD)")
	reference := fs.String("reference", "", "reference table: embedded, csv:PATH, sqlite:PATH or postgres")
	delimiter := fs.String("delimiter", "", "field separator (default: DATASET_DELIMITER)")

	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	slog.SetDefault(logging.New(stderr, cfg.Logging.Level, cfg.Logging.Format))

	if *file != "" {
		cfg.Dataset.Path = *file
	}
	if *threshold != 0 {
		cfg.Resolver.FuzzyThreshold = *threshold
	}
	if *delimiter != "" {
		cfg.Dataset.Delimiter = *delimiter
	}
	if *reference != "" {
		src, path, _ := strings.Cut(*reference, ":")
		cfg.Resolver.Reference = src
		cfg.Resolver.ReferencePath = path
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	render, err := renderer(*view, *format)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	app, err := application.Build(ctx, cfg)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	ds, err := app.Service.Dataset(ctx)
	if err != nil {
		fmt.Fprintln(stderr, core.FormatUserError(err))
		if errors.Is(err, core.ErrSourceUnavailable) {
			return exitUnavailable
		}
		return exitUsage
	}

	if err := render(stdout, ds); err != nil {
		fmt.Fprintln(stderr, err)
		return exitUnavailable
	}
	return exitOK
}

type renderFunc func(w io.Writer, ds *core.Dataset) error

// renderer selects the output for view and format.
func renderer(view, format string) (renderFunc, error) {
	switch format {
	case "json":
		switch view {
		case "dataset":
			return jsonOf(func(ds *core.Dataset) any { return ds }), nil
		case "map":
			return jsonOf(func(ds *core.Dataset) any { return core.MapView(ds) }), nil
		case "table":
			return jsonOf(func(ds *core.Dataset) any { return core.TableView(ds) }), nil
		case "report":
			return jsonOf(func(ds *core.Dataset) any { return ds.Report() }), nil
		}
	case "csv":
		switch view {
		case "table":
			return core.WriteTableCSV, nil
		case "map":
			return writeMapCSV, nil
		case "dataset", "report":
			return nil, fmt.Errorf("format csv is not available for view %q", view)
		}
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
	return nil, fmt.Errorf("unknown view %q", view)
}

func jsonOf(pick func(*core.Dataset) any) renderFunc {
	return func(w io.Writer, ds *core.Dataset) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(pick(ds))
	}
}

func writeMapCSV(w io.Writer, ds *core.Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"geo_code", "share_pct", "country_name", "display_label"}); err != nil {
		return err
	}
	for _, r := range core.MapView(ds) {
		rec := []string{r.GeoCode, strconv.FormatFloat(r.SharePct, 'f', -1, 64), r.CountryName, r.DisplayLabel}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
