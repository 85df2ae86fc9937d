package core

// convert.go turns formatted CSV text into numbers.
//
// Cells in the GDP export carry display formatting: currency symbols,
// thousands separators, percent signs and placeholders such as "N/A".
// Each cell is stripped according to a FormatSpec and then parsed. A cell
// that does not parse becomes absent (Valid=false); it is never an error and
// never zero. Cells are converted independently of each other.

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation. Rejects NaN and Inf.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// NumberKind selects the numeric type a column is converted to.
type NumberKind int

const (
	KindFloat NumberKind = iota
	KindInteger
)

// FormatSpec lists the literal characters removed from a cell before parsing.
type FormatSpec struct {
	Strip []string
	Kind  NumberKind

	// AccountingNegatives reads "(123)" as -123.
	AccountingNegatives bool
}

// Predefined formats for the designated columns.
var (
	CurrencyFormat = FormatSpec{Strip: []string{"$", ","}, AccountingNegatives: true}
	PercentFormat  = FormatSpec{Strip: []string{"%"}}
	CountFormat    = FormatSpec{Strip: []string{"$", ","}, Kind: KindInteger}
)

// clean strips formatting from s and reports whether what is left looks like
// a number.
func (f FormatSpec) clean(s string) (string, bool) {
	s = CleanCell(s)
	if s == "" {
		return "", false
	}

	negative := false
	if f.AccountingNegatives && strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	for _, lit := range f.Strip {
		s = strings.ReplaceAll(s, lit, "")
	}
	// U+2212 MINUS SIGN appears in exports from spreadsheet tools.
	s = strings.ReplaceAll(s, "\u2212", "-")
	s = strings.TrimSpace(s)

	if negative {
		if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
			return "", false
		}
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return "", false
	}
	return s, true
}

// ParseFloatCell converts one cell. Unparseable input is absent.
func ParseFloatCell(s string, spec FormatSpec) pgtype.Float8 {
	s, ok := spec.clean(s)
	if !ok {
		return pgtype.Float8{Valid: false}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return pgtype.Float8{Valid: false}
	}
	return pgtype.Float8{Float64: f, Valid: true}
}

// ParseIntCell converts one cell to an integer. Integral floats such as
// "1.0e6" are accepted; fractional values are absent.
func ParseIntCell(s string, spec FormatSpec) pgtype.Int8 {
	s, ok := spec.clean(s)
	if !ok {
		return pgtype.Int8{Valid: false}
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return pgtype.Int8{Int64: i, Valid: true}
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return pgtype.Int8{Valid: false}
	}
	return pgtype.Int8{Int64: int64(f), Valid: true}
}

// NormalizeColumn converts a column of cells. The result has the same length
// as values.
func NormalizeColumn(values []string, spec FormatSpec) []pgtype.Float8 {
	out := make([]pgtype.Float8, len(values))
	for i, v := range values {
		out[i] = ParseFloatCell(v, spec)
	}
	return out
}

// NormalizeIntColumn is NormalizeColumn for integer columns.
func NormalizeIntColumn(values []string, spec FormatSpec) []pgtype.Int8 {
	out := make([]pgtype.Int8, len(values))
	for i, v := range values {
		out[i] = ParseIntCell(v, spec)
	}
	return out
}

// MakeHeaderIndex creates a HeaderIndex from a CSV header row.
// Keys are lowercased for case-insensitive matching. The first occurrence of
// a repeated header wins.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(CleanCell(h))
		if _, dup := idx[key]; dup {
			continue
		}
		idx[key] = i
	}
	return idx
}

// CleanCell removes common CSV artifacts from a cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	s = strings.Trim(s, `"'`)
	return strings.TrimSpace(s)
}
