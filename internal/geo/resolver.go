package geo

import (
	"unicode/utf8"

	"github.com/hbollon/go-edlib"
)

// DefaultThreshold is the minimum similarity a fuzzy candidate needs.
//
// Similarity is 1 - distance/longest, with distance measured as optimal
// string alignment (insertions, deletions, substitutions and adjacent
// transpositions each cost 1). At 0.80 an eight letter name tolerates one
// typo, a fifteen letter name three. Names of four letters or fewer only
// resolve exactly.
const DefaultThreshold = 0.80

// Method records how a Match was obtained.
type Method string

const (
	MethodNone  Method = "none"
	MethodExact Method = "exact"
	MethodFuzzy Method = "fuzzy"
)

// Match is the outcome of resolving one name. A zero Match is "not found".
type Match struct {
	// Code is the alpha-3 code, empty when not found.
	Code string `json:"code,omitempty"`
	// Name is the canonical name of the matched entry.
	Name   string  `json:"name,omitempty"`
	Score  float64 `json:"score"`
	Method Method  `json:"method"`
	Input  string  `json:"input"`
}

// Found reports whether a code was resolved.
func (m Match) Found() bool {
	return m.Code != ""
}

// Resolver maps a country display name to a geographic code.
// Implementations must be deterministic and safe for concurrent use.
type Resolver interface {
	Resolve(name string) Match
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(name string) Match

// Resolve calls f(name).
func (f ResolverFunc) Resolve(name string) Match {
	return f(name)
}

// Matcher resolves names against a Table: exact lookup first, then the best
// fuzzy candidate at or above the threshold.
type Matcher struct {
	table     *Table
	threshold float64
	keys      []fuzzyKey
}

type fuzzyKey struct {
	folded string
	runes  int
	entry  int
}

// NewMatcher creates a Matcher. A threshold outside (0, 1] falls back to
// DefaultThreshold.
func NewMatcher(table *Table, threshold float64) *Matcher {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}

	m := &Matcher{table: table, threshold: threshold}
	seen := make(map[string]bool)
	for i, e := range table.entries {
		for _, n := range e.Names() {
			folded := Fold(n)
			if folded == "" || seen[folded] {
				continue
			}
			seen[folded] = true
			m.keys = append(m.keys, fuzzyKey{
				folded: folded,
				runes:  utf8.RuneCountInString(folded),
				entry:  i,
			})
		}
	}
	return m
}

// Threshold returns the acceptance threshold in use.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// Resolve implements Resolver.
func (m *Matcher) Resolve(name string) Match {
	miss := Match{Method: MethodNone, Input: name}

	folded := Fold(name)
	if folded == "" {
		return miss
	}

	if i, ok := m.table.lookup(folded); ok {
		e := m.table.entries[i]
		return Match{Code: e.Alpha3, Name: e.Name, Score: 1, Method: MethodExact, Input: name}
	}

	best, bestScore := -1, 0.0
	n := utf8.RuneCountInString(folded)
	for _, k := range m.keys {
		longest := max(n, k.runes)
		// Skip candidates whose length difference alone rules them out.
		if 1-float64(abs(n-k.runes))/float64(longest) < m.threshold {
			continue
		}
		dist := edlib.OSADamerauLevenshteinDistance(folded, k.folded)
		score := 1 - float64(dist)/float64(longest)
		if score > bestScore || (score == bestScore && best >= 0 && k.entry < best) {
			best, bestScore = k.entry, score
		}
	}

	if best < 0 || bestScore < m.threshold {
		return miss
	}
	e := m.table.entries[best]
	return Match{Code: e.Alpha3, Name: e.Name, Score: bestScore, Method: MethodFuzzy, Input: name}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
