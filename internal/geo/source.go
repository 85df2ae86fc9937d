package geo

import (
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

//go:embed countries.csv
var embeddedCountries string

// AliasSeparator separates aliases inside the aliases column of a CSV table.
const AliasSeparator = "|"

// ReadCSV reads reference entries from CSV with the header
// alpha2,alpha3,name,aliases. The aliases column is optional and holds
// AliasSeparator-separated names.
func ReadCSV(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty reference CSV", ErrInvalidTable)
		}
		return nil, fmt.Errorf("%w: read header: %v", ErrInvalidTable, err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"alpha3", "name"} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrInvalidTable, required)
		}
	}

	get := func(row []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var entries []Entry
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTable, err)
		}
		entries = append(entries, Entry{
			Alpha2:  get(row, "alpha2"),
			Alpha3:  get(row, "alpha3"),
			Name:    get(row, "name"),
			Aliases: SplitAliases(get(row, "aliases")),
		})
	}
	return entries, nil
}

// SplitAliases splits a stored alias list. Empty input yields nil.
func SplitAliases(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return cleanAliases(strings.Split(s, AliasSeparator))
}

// LoadCSVFile builds a Table from a CSV file on disk.
func LoadCSVFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open reference table: %w", err)
	}
	defer f.Close()

	entries, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("reference table %s: %w", path, err)
	}
	return NewTable(entries)
}

// DefaultTable builds a Table from the ISO 3166-1 list compiled into the binary.
func DefaultTable() (*Table, error) {
	entries, err := ReadCSV(strings.NewReader(embeddedCountries))
	if err != nil {
		return nil, fmt.Errorf("embedded reference table: %w", err)
	}
	return NewTable(entries)
}
