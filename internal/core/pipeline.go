package core

// pipeline.go sequences parsing, numeric normalization and country code
// resolution over a whole file.
//
// The pipeline is a pure function of (source, content): it reads no clocks,
// generates no random values and keeps no state between calls, so the same
// input always produces the same Dataset. Row order and row count are
// preserved; cell-level problems only ever produce absent values.

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/JonMunkholm/GDPExplorer/internal/geo"
	"github.com/JonMunkholm/GDPExplorer/internal/memo"
	"github.com/jackc/pgx/v5/pgtype"
)

// Pipeline converts raw CSV content into a Dataset.
type Pipeline struct {
	Columns  ColumnSet
	Resolver geo.Resolver

	// Delimiter separates fields; zero means ','.
	Delimiter rune
}

// NewPipeline creates a comma-delimited pipeline.
func NewPipeline(columns ColumnSet, resolver geo.Resolver) *Pipeline {
	return &Pipeline{Columns: columns, Resolver: resolver, Delimiter: ','}
}

// Parse reads the header and every record. A byte order mark is skipped and
// invalid UTF-8 is replaced. Short rows are kept; their missing cells read as
// empty.
func (p *Pipeline) Parse(r io.Reader) ([]string, []RawRecord, error) {
	cr := csv.NewReader(newTextReader(r))
	if p.Delimiter != 0 {
		cr.Comma = p.Delimiter
	}
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, ErrEmptySource
	}
	if err != nil {
		return nil, nil, err
	}
	if len(header) == 0 || (len(header) == 1 && CleanCell(header[0]) == "") {
		return nil, nil, ErrNoHeader
	}

	var rows []RawRecord
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		line, _ := cr.FieldPos(0)
		rows = append(rows, RawRecord{Line: line, Index: strings.TrimSpace(rec[0]), Cells: rec})
	}
	return header, rows, nil
}

// numericColumn binds a designated header to a CleanRecord field.
type numericColumn struct {
	field   string
	header  string
	spec    FormatSpec
	asFloat func(*CleanRecord) *pgtype.Float8
	asInt   func(*CleanRecord) *pgtype.Int8
}

func (p *Pipeline) numericColumns() []numericColumn {
	c := p.Columns
	return []numericColumn{
		{field: FieldGDPNominal, header: c.GDPNominal, spec: CurrencyFormat,
			asFloat: func(r *CleanRecord) *pgtype.Float8 { return &r.GDPNominal }},
		{field: FieldGDPPerCapita, header: c.GDPPerCapita, spec: CurrencyFormat,
			asFloat: func(r *CleanRecord) *pgtype.Float8 { return &r.GDPPerCapita }},
		{field: FieldPopulation, header: c.Population, spec: CountFormat,
			asInt: func(r *CleanRecord) *pgtype.Int8 { return &r.Population }},
		{field: FieldGDPGrowth, header: c.GDPGrowth, spec: PercentFormat,
			asFloat: func(r *CleanRecord) *pgtype.Float8 { return &r.GDPGrowth }},
		{field: FieldSharePct, header: c.Share, spec: PercentFormat,
			asFloat: func(r *CleanRecord) *pgtype.Float8 { return &r.SharePct }},
	}
}

// Clean parses content and returns the cleaned dataset for source.
// Only an unreadable file is an error, and it is always a *SourceError.
func (p *Pipeline) Clean(source string, content []byte) (*Dataset, error) {
	header, rows, err := p.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, sourceErr(source, "parse", err)
	}

	idx := MakeHeaderIndex(header)
	records := make([]CleanRecord, len(rows))
	for i, row := range rows {
		records[i] = CleanRecord{
			Index:     row.Index,
			Country:   row.Cell(idx, p.Columns.Country),
			GDPAbbrev: row.Cell(idx, p.Columns.GDPAbbrev),
			Extra:     p.extra(header, row),
		}
	}

	report := Report{Rows: len(rows)}
	for _, col := range p.numericColumns() {
		report.Columns = append(report.Columns, p.normalize(col, idx, rows, records))
	}
	report.Resolution = p.resolve(idx, records)

	fingerprint := memo.Fingerprint(content)
	return &Dataset{
		id:          DatasetID(source, fingerprint),
		source:      source,
		fingerprint: fingerprint,
		columns:     header,
		records:     records,
		report:      report,
	}, nil
}

// normalize converts one designated column in place. A column missing from
// the header leaves every value absent.
func (p *Pipeline) normalize(col numericColumn, idx HeaderIndex, rows []RawRecord, records []CleanRecord) ColumnReport {
	_, present := idx[strings.ToLower(CleanCell(col.header))]
	present = present && col.header != ""
	tally := newColumnTally(col.field, col.header, present)
	if !present {
		tally.Absent = len(rows)
		return tally.ColumnReport
	}

	values := make([]string, len(rows))
	for i, row := range rows {
		values[i] = row.Cell(idx, col.header)
	}

	if col.asInt != nil {
		for i, v := range NormalizeIntColumn(values, col.spec) {
			*col.asInt(&records[i]) = v
			tally.add(values[i], v.Valid)
		}
	} else {
		for i, v := range NormalizeColumn(values, col.spec) {
			*col.asFloat(&records[i]) = v
			tally.add(values[i], v.Valid)
		}
	}
	return tally.ColumnReport
}

// resolve fills GeoCode for every record. Unresolved names stay absent.
func (p *Pipeline) resolve(idx HeaderIndex, records []CleanRecord) ResolutionSummary {
	header := p.Columns.Country
	_, present := idx[strings.ToLower(CleanCell(header))]
	present = present && header != "" && p.Resolver != nil

	threshold := 0.0
	if t, ok := p.Resolver.(interface{ Threshold() float64 }); ok {
		threshold = t.Threshold()
	}
	tally := newResolutionTally(header, present, threshold)
	if !present {
		tally.Unresolved = len(records)
		return tally.ResolutionSummary
	}

	// Datasets repeat names rarely, but fuzzy scans are the expensive part.
	seen := make(map[string]geo.Match)
	for i := range records {
		name := records[i].Country
		m, ok := seen[name]
		if !ok {
			m = p.Resolver.Resolve(name)
			seen[name] = m
		}
		if m.Found() {
			records[i].GeoCode = pgtype.Text{String: m.Code, Valid: true}
		}
		tally.add(m)
	}
	return tally.ResolutionSummary
}

// extra collects cells outside the index and designated columns.
func (p *Pipeline) extra(header []string, row RawRecord) map[string]string {
	var out map[string]string
	for i := 1; i < len(header) && i < len(row.Cells); i++ {
		h := CleanCell(header[i])
		if h == "" || p.Columns.designated(h) {
			continue
		}
		if out == nil {
			out = make(map[string]string)
		}
		if _, dup := out[h]; !dup {
			out[h] = row.Cells[i]
		}
	}
	return out
}
