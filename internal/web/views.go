package web

import (
	"fmt"
	"math"
	"strconv"

	"github.com/JonMunkholm/GDPExplorer/internal/core"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:generate templ generate -f views.templ

// absentMark is shown in place of a missing value.
const absentMark = "—"

// TablePageData is everything the table page renders.
type TablePageData struct {
	Source  string
	Columns []core.TableColumn
	Rows    []core.TableRow
	Report  core.Report
	Error   *core.UserMessage
}

// displayCell formats a table cell for reading: money as whole dollars and
// counts with thousands separators, growth with two decimals.
func displayCell(row core.TableRow, field string) string {
	switch field {
	case "country_name":
		return row.CountryName
	case core.FieldGDPNominal:
		if !row.GDPNominal.Valid {
			return absentMark
		}
		return "$" + groupedInt(int64(math.Round(row.GDPNominal.Float64)))
	case core.FieldGDPPerCapita:
		if !row.GDPPerCapita.Valid {
			return absentMark
		}
		return "$" + groupedInt(int64(math.Round(row.GDPPerCapita.Float64)))
	case core.FieldPopulation:
		if !row.Population.Valid {
			return absentMark
		}
		return groupedInt(row.Population.Int64)
	case core.FieldGDPGrowth:
		if !row.GDPGrowth.Valid {
			return absentMark
		}
		return strconv.FormatFloat(row.GDPGrowth.Float64, 'f', 2, 64) + "%"
	}
	return absentMark
}

// groupedInt prints n with English thousands separators.
func groupedInt(n int64) string {
	return message.NewPrinter(language.English).Sprintf("%d", n)
}

func summaryLine(r core.Report) string {
	res := r.Resolution
	return fmt.Sprintf("%d rows, %d matched exactly, %d matched approximately, %d without a country code",
		r.Rows, res.Exact, res.Fuzzy, res.Unresolved)
}
