// Package geo resolves free-text country names to ISO 3166-1 alpha-3 codes.
//
// A [Table] holds the reference list of canonical names and aliases. The
// [Matcher] built from it answers [Resolver.Resolve] with an exact lookup on
// folded names and codes, falling back to an edit-distance search that only
// accepts candidates scoring at or above an explicit threshold. Failing to
// resolve a name is routine and is reported as a [Match] whose Found method
// returns false, never as an error.
package geo

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTable is returned when reference data cannot be used to build a
// Table. It indicates a configuration problem and should stop startup.
var ErrInvalidTable = errors.New("invalid reference table")

// Entry is a single country in the reference table.
type Entry struct {
	Alpha2  string   // ISO 3166-1 alpha-2, e.g. "US"
	Alpha3  string   // ISO 3166-1 alpha-3, e.g. "USA"
	Name    string   // Canonical name, e.g. "United States"
	Aliases []string // Alternate and short names
}

// Names returns the canonical name followed by the aliases.
func (e Entry) Names() []string {
	names := make([]string, 0, 1+len(e.Aliases))
	names = append(names, e.Name)
	names = append(names, e.Aliases...)
	return names
}

// Table is an immutable, validated set of reference entries.
type Table struct {
	entries []Entry
	exact   map[string]int // folded name or code -> entry index
}

// NewTable validates entries and builds the exact-match index.
// All problems are reported together, wrapped in ErrInvalidTable.
func NewTable(entries []Entry) (*Table, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no entries", ErrInvalidTable)
	}

	t := &Table{
		entries: make([]Entry, len(entries)),
		exact:   make(map[string]int, len(entries)*4),
	}

	var errs []string
	seenAlpha3 := make(map[string]int, len(entries))

	for i, e := range entries {
		e.Alpha2 = strings.ToUpper(strings.TrimSpace(e.Alpha2))
		e.Alpha3 = strings.ToUpper(strings.TrimSpace(e.Alpha3))
		e.Name = strings.TrimSpace(e.Name)
		e.Aliases = cleanAliases(e.Aliases)
		t.entries[i] = e

		line := i + 1
		if !isLetters(e.Alpha3, 3) {
			errs = append(errs, fmt.Sprintf("entry %d: alpha-3 %q must be 3 letters", line, e.Alpha3))
			continue
		}
		if e.Alpha2 != "" && !isLetters(e.Alpha2, 2) {
			errs = append(errs, fmt.Sprintf("entry %d: alpha-2 %q must be 2 letters", line, e.Alpha2))
		}
		if Fold(e.Name) == "" {
			errs = append(errs, fmt.Sprintf("entry %d (%s): name is empty", line, e.Alpha3))
			continue
		}
		if prev, dup := seenAlpha3[e.Alpha3]; dup {
			errs = append(errs, fmt.Sprintf("entry %d: alpha-3 %s already defined by entry %d", line, e.Alpha3, prev+1))
			continue
		}
		seenAlpha3[e.Alpha3] = i

		keys := []string{e.Alpha3}
		if e.Alpha2 != "" {
			keys = append(keys, e.Alpha2)
		}
		keys = append(keys, e.Names()...)

		for _, k := range keys {
			folded := Fold(k)
			if folded == "" {
				continue
			}
			if owner, taken := t.exact[folded]; taken && owner != i {
				errs = append(errs, fmt.Sprintf("entry %d (%s): %q also names %s",
					line, e.Alpha3, k, t.entries[owner].Alpha3))
				continue
			}
			t.exact[folded] = i
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w:\n  - %s", ErrInvalidTable, strings.Join(errs, "\n  - "))
	}
	return t, nil
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return len(t.entries)
}

// Entries returns a copy of the entries in table order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// ByAlpha3 returns the entry for a code.
func (t *Table) ByAlpha3(code string) (Entry, bool) {
	i, ok := t.exact[Fold(code)]
	if !ok || t.entries[i].Alpha3 != strings.ToUpper(strings.TrimSpace(code)) {
		return Entry{}, false
	}
	return t.entries[i], true
}

// lookup returns the entry index for an already folded key.
func (t *Table) lookup(folded string) (int, bool) {
	i, ok := t.exact[folded]
	return i, ok
}

func cleanAliases(aliases []string) []string {
	out := make([]string, 0, len(aliases))
	for _, a := range aliases {
		a = strings.TrimSpace(a)
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

func isLetters(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}
