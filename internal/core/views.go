package core

// views.go shapes a Dataset for its two consumers: the choropleth map and
// the data table. Views are recomputed on every call and never cached.

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/jackc/pgx/v5/pgtype"
)

// MapRow is one region on the choropleth map.
type MapRow struct {
	GeoCode      string  `json:"geo_code"`
	SharePct     float64 `json:"share_pct"`
	CountryName  string  `json:"country_name"`
	DisplayLabel string  `json:"display_label"`
}

// TableRow is one row of the data table. Absent numbers encode as null.
type TableRow struct {
	CountryName  string        `json:"country_name"`
	GDPNominal   pgtype.Float8 `json:"gdp_nominal"`
	GDPPerCapita pgtype.Float8 `json:"gdp_per_capita"`
	Population   pgtype.Int8   `json:"population"`
	GDPGrowth    pgtype.Float8 `json:"gdp_growth"`
}

// MapView returns the rows that have both a geographic code and a share, in
// dataset order. The display label is the abbreviated GDP text, or the share
// itself when the file has none.
func MapView(ds *Dataset) []MapRow {
	rows := make([]MapRow, 0, len(ds.records))
	for _, r := range ds.records {
		if !r.GeoCode.Valid || !r.SharePct.Valid {
			continue
		}
		label := r.GDPAbbrev
		if label == "" {
			label = fmt.Sprintf("%.2f%%", r.SharePct.Float64)
		}
		rows = append(rows, MapRow{
			GeoCode:      r.GeoCode.String,
			SharePct:     r.SharePct.Float64,
			CountryName:  r.Country,
			DisplayLabel: label,
		})
	}
	return rows
}

// TableView returns every row of the dataset, including rows whose country
// could not be resolved.
func TableView(ds *Dataset) []TableRow {
	rows := make([]TableRow, len(ds.records))
	for i, r := range ds.records {
		rows[i] = TableRow{
			CountryName:  r.Country,
			GDPNominal:   r.GDPNominal,
			GDPPerCapita: r.GDPPerCapita,
			Population:   r.Population,
			GDPGrowth:    r.GDPGrowth,
		}
	}
	return rows
}

// TableColumn describes one column of the table view.
type TableColumn struct {
	Field string `json:"field"`
	Label string `json:"label"`
}

var tableColumns = []TableColumn{
	{Field: "country_name", Label: "Country"},
	{Field: FieldGDPNominal, Label: "GDP (nominal)"},
	{Field: FieldGDPPerCapita, Label: "GDP per capita"},
	{Field: FieldPopulation, Label: "Population"},
	{Field: FieldGDPGrowth, Label: "GDP growth (%)"},
}

// TableColumns lists the table columns whose source column exists in ds.
// The country column is always listed.
func TableColumns(ds *Dataset) []TableColumn {
	cols := []TableColumn{tableColumns[0]}
	for _, c := range tableColumns[1:] {
		if rep, ok := ds.report.Column(c.Field); ok && rep.Present {
			cols = append(cols, c)
		}
	}
	return cols
}

// Cell returns the text of field for export. Absent values are "".
func (r TableRow) Cell(field string) string {
	switch field {
	case "country_name":
		return r.CountryName
	case FieldGDPNominal:
		return formatFloat(r.GDPNominal)
	case FieldGDPPerCapita:
		return formatFloat(r.GDPPerCapita)
	case FieldPopulation:
		if !r.Population.Valid {
			return ""
		}
		return strconv.FormatInt(r.Population.Int64, 10)
	case FieldGDPGrowth:
		return formatFloat(r.GDPGrowth)
	}
	return ""
}

func formatFloat(f pgtype.Float8) string {
	if !f.Valid {
		return ""
	}
	return strconv.FormatFloat(f.Float64, 'f', -1, 64)
}

// WriteTableCSV writes the table view of ds as CSV with a header row.
func WriteTableCSV(w io.Writer, ds *Dataset) error {
	cols := TableColumns(ds)
	cw := csv.NewWriter(w)

	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.Label
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	record := make([]string, len(cols))
	for _, row := range TableView(ds) {
		for i, c := range cols {
			record[i] = row.Cell(c.Field)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
