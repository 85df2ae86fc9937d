package core

import (
	"slices"

	"github.com/JonMunkholm/GDPExplorer/internal/geo"
)

// Field names used in reports and views.
const (
	FieldGDPNominal   = "gdp_nominal"
	FieldGDPPerCapita = "gdp_per_capita"
	FieldPopulation   = "population"
	FieldGDPGrowth    = "gdp_growth"
	FieldSharePct     = "share_of_world_gdp_pct"
)

// Sample limits
const (
	maxFailedSamples = 5
	maxUnresolved    = 50
	maxFuzzyMatches  = 50
)

// ColumnReport summarizes the conversion of one designated numeric column.
type ColumnReport struct {
	Field   string `json:"field"`
	Header  string `json:"header"`
	Present bool   `json:"present"`
	Parsed  int    `json:"parsed"`
	Absent  int    `json:"absent"`

	// FailedSamples holds distinct non-empty cells that did not parse.
	FailedSamples []string `json:"failed_samples,omitempty"`
}

// ResolutionSummary summarizes country code resolution.
type ResolutionSummary struct {
	Header     string      `json:"header"`
	Present    bool        `json:"present"`
	Exact      int         `json:"exact"`
	Fuzzy      int         `json:"fuzzy"`
	Unresolved int         `json:"unresolved"`
	Threshold  float64     `json:"threshold,omitempty"`
	Names      []string    `json:"unresolved_names"`
	Matches    []geo.Match `json:"fuzzy_matches"`
}

// Report records what cleaning did to a dataset. Parse and resolution
// failures are not errors; they are counted here.
type Report struct {
	Rows       int               `json:"rows"`
	Columns    []ColumnReport    `json:"columns"`
	Resolution ResolutionSummary `json:"resolution"`
}

// Column returns the report for a field such as FieldGDPGrowth.
func (r Report) Column(field string) (ColumnReport, bool) {
	for _, c := range r.Columns {
		if c.Field == field {
			return c, true
		}
	}
	return ColumnReport{}, false
}

func (r Report) clone() Report {
	out := r
	out.Columns = make([]ColumnReport, len(r.Columns))
	for i, c := range r.Columns {
		c.FailedSamples = slices.Clone(c.FailedSamples)
		out.Columns[i] = c
	}
	out.Resolution.Names = slices.Clone(r.Resolution.Names)
	out.Resolution.Matches = slices.Clone(r.Resolution.Matches)
	return out
}

// columnTally accumulates a ColumnReport while a column is converted.
type columnTally struct {
	ColumnReport
	seen map[string]bool
}

func newColumnTally(field, header string, present bool) *columnTally {
	return &columnTally{
		ColumnReport: ColumnReport{Field: field, Header: header, Present: present},
		seen:         make(map[string]bool),
	}
}

func (t *columnTally) add(raw string, valid bool) {
	if valid {
		t.Parsed++
		return
	}
	t.Absent++

	raw = CleanCell(raw)
	if raw == "" || t.seen[raw] || len(t.FailedSamples) >= maxFailedSamples {
		return
	}
	t.seen[raw] = true
	t.FailedSamples = append(t.FailedSamples, raw)
}

// resolutionTally accumulates a ResolutionSummary.
type resolutionTally struct {
	ResolutionSummary
	seen map[string]bool
}

func newResolutionTally(header string, present bool, threshold float64) *resolutionTally {
	return &resolutionTally{
		ResolutionSummary: ResolutionSummary{
			Header:    header,
			Present:   present,
			Threshold: threshold,
			Names:     []string{},
			Matches:   []geo.Match{},
		},
		seen: make(map[string]bool),
	}
}

func (t *resolutionTally) add(m geo.Match) {
	switch m.Method {
	case geo.MethodExact:
		t.Exact++
	case geo.MethodFuzzy:
		t.Fuzzy++
		if !t.seen[m.Input] && len(t.Matches) < maxFuzzyMatches {
			t.seen[m.Input] = true
			t.Matches = append(t.Matches, m)
		}
	default:
		t.Unresolved++
		if m.Input != "" && !t.seen[m.Input] && len(t.Names) < maxUnresolved {
			t.seen[m.Input] = true
			t.Names = append(t.Names, m.Input)
		}
	}
}
