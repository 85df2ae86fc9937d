// Package core provides the cleaning pipeline for per-country GDP datasets.
// This package has no UI dependencies and can be used by any frontend.
package core

import (
	"encoding/json"
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// ColumnSet names the header of each designated column.
// Header matching is case-insensitive. An empty name disables that column.
type ColumnSet struct {
	Country      string
	GDPNominal   string
	GDPAbbrev    string
	GDPGrowth    string
	Population   string
	GDPPerCapita string
	Share        string
}

// DefaultColumns returns the headers used by the World Bank / UN export.
func DefaultColumns() ColumnSet {
	return ColumnSet{
		Country:      "Country",
		GDPNominal:   "GDP (nominal, 2023)",
		GDPAbbrev:    "GDP (abbrev.)",
		GDPGrowth:    "GDP Growth",
		Population:   "Population 2023",
		GDPPerCapita: "GDP per capita",
		Share:        "Share of World GDP",
	}
}

// designated reports whether header is one of the named columns.
func (c ColumnSet) designated(header string) bool {
	header = CleanCell(header)
	for _, name := range []string{c.Country, c.GDPNominal, c.GDPAbbrev, c.GDPGrowth, c.Population, c.GDPPerCapita, c.Share} {
		if name != "" && strings.EqualFold(CleanCell(name), header) {
			return true
		}
	}
	return false
}

// HeaderIndex maps column names (lowercase) to their position in the CSV row.
type HeaderIndex map[string]int

// RawRecord is one input row with every cell as untouched text.
type RawRecord struct {
	Line  int      // 1-based line of the record in the source
	Index string   // first column
	Cells []string // all cells, including the index column
}

// Cell returns the cell for a lowercased header, or "" when the row is short
// or the header is unknown.
func (r RawRecord) Cell(idx HeaderIndex, header string) string {
	i, ok := idx[strings.ToLower(CleanCell(header))]
	if !ok || i >= len(r.Cells) {
		return ""
	}
	return r.Cells[i]
}

// CleanRecord is the normalized form of one RawRecord. Invalid fields are
// absent and encode as JSON null.
type CleanRecord struct {
	Index        string            `json:"index"`
	Country      string            `json:"country"`
	GDPAbbrev    string            `json:"gdp_abbrev,omitempty"`
	GDPNominal   pgtype.Float8     `json:"gdp_nominal"`
	GDPPerCapita pgtype.Float8     `json:"gdp_per_capita"`
	Population   pgtype.Int8       `json:"population"`
	GDPGrowth    pgtype.Float8     `json:"gdp_growth"`
	SharePct     pgtype.Float8     `json:"share_of_world_gdp_pct"`
	GeoCode      pgtype.Text       `json:"geo_code"`
	Extra        map[string]string `json:"extra,omitempty"`
}

func (r CleanRecord) clone() CleanRecord {
	if r.Extra != nil {
		r.Extra = maps.Clone(r.Extra)
	}
	return r
}

// Dataset is the cleaned result for one source. It is immutable once built
// and safe to share between goroutines; accessors return copies.
type Dataset struct {
	id          uuid.UUID
	source      string
	fingerprint string
	columns     []string
	records     []CleanRecord
	report      Report
}

// datasetNamespace scopes dataset IDs derived from source and fingerprint.
var datasetNamespace = uuid.MustParse("6f1c2f9e-5b0a-4c53-9d1e-2a7f0c8d4b61")

// DatasetID returns the deterministic ID for a source and content fingerprint.
func DatasetID(source, fingerprint string) uuid.UUID {
	return uuid.NewSHA1(datasetNamespace, []byte(source+"\x00"+fingerprint))
}

// EmptyDataset returns the result handed out when source cannot be read.
func EmptyDataset(source string) *Dataset {
	return &Dataset{source: source, records: []CleanRecord{}}
}

func (d *Dataset) ID() uuid.UUID { return d.id }
func (d *Dataset) Source() string { return d.source }
func (d *Dataset) Fingerprint() string { return d.fingerprint }
func (d *Dataset) Len() int { return len(d.records) }
func (d *Dataset) Empty() bool { return len(d.records) == 0 }
func (d *Dataset) Columns() []string { return slices.Clone(d.columns) }
func (d *Dataset) Report() Report { return d.report.clone() }
func (d *Dataset) Record(i int) CleanRecord { return d.records[i].clone() }

// Records returns a copy of all rows in source order.
func (d *Dataset) Records() []CleanRecord {
	out := make([]CleanRecord, len(d.records))
	for i, r := range d.records {
		out[i] = r.clone()
	}
	return out
}

// datasetJSON is the wire form of Dataset.
type datasetJSON struct {
	ID          string        `json:"id,omitempty"`
	Source      string        `json:"source"`
	Fingerprint string        `json:"fingerprint,omitempty"`
	Columns     []string      `json:"columns"`
	Records     []CleanRecord `json:"records"`
	Report      Report        `json:"report"`
}

// MarshalJSON encodes the dataset. Identical datasets encode to identical bytes.
func (d *Dataset) MarshalJSON() ([]byte, error) {
	out := datasetJSON{
		Source:      d.source,
		Fingerprint: d.fingerprint,
		Columns:     d.columns,
		Records:     d.records,
		Report:      d.report,
	}
	if d.id != uuid.Nil {
		out.ID = d.id.String()
	}
	if out.Columns == nil {
		out.Columns = []string{}
	}
	if out.Records == nil {
		out.Records = []CleanRecord{}
	}
	return json.Marshal(out)
}
