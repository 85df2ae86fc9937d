package geo

import (
	"errors"
	"strings"
	"sync"
	"testing"
)

func mustDefaultMatcher(t *testing.T) *Matcher {
	t.Helper()
	table, err := DefaultTable()
	if err != nil {
		t.Fatalf("DefaultTable() error = %v", err)
	}
	return NewMatcher(table, DefaultThreshold)
}

func TestFold(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"United States", "united states"},
		{"  UNITED   states ", "united states"},
		{"Côte d'Ivoire", "cote d ivoire"},
		{"Côte d’Ivoire", "cote d ivoire"},
		{"Bosnia & Herzegovina", "bosnia and herzegovina"},
		{"Korea, Rep.", "korea rep"},
		{"Guinea-Bissau", "guinea bissau"},
		{"São Tomé and Príncipe", "sao tome and principe"},
		{"", ""},
		{" - ", ""},
	}

	for _, tt := range tests {
		if got := Fold(tt.input); got != tt.want {
			t.Errorf("Fold(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestDefaultTable(t *testing.T) {
	table, err := DefaultTable()
	if err != nil {
		t.Fatalf("DefaultTable() error = %v", err)
	}
	if table.Len() < 249 {
		t.Errorf("Len() = %d, want at least 249", table.Len())
	}

	e, ok := table.ByAlpha3("usa")
	if !ok {
		t.Fatal("ByAlpha3(usa) not found")
	}
	if e.Name != "United States" || e.Alpha2 != "US" {
		t.Errorf("ByAlpha3(usa) = %+v", e)
	}

	if _, ok := table.ByAlpha3("US"); ok {
		t.Error("ByAlpha3 should not accept an alpha-2 code")
	}
}

func TestNewTable_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
		wantMsg string
	}{
		{
			name:    "empty",
			entries: nil,
			wantMsg: "no entries",
		},
		{
			name:    "bad alpha-3",
			entries: []Entry{{Alpha2: "US", Alpha3: "US1", Name: "United States"}},
			wantMsg: "must be 3 letters",
		},
		{
			name:    "bad alpha-2",
			entries: []Entry{{Alpha2: "USA", Alpha3: "USA", Name: "United States"}},
			wantMsg: "must be 2 letters",
		},
		{
			name:    "missing name",
			entries: []Entry{{Alpha3: "USA", Name: " "}},
			wantMsg: "name is empty",
		},
		{
			name: "duplicate code",
			entries: []Entry{
				{Alpha3: "USA", Name: "United States"},
				{Alpha3: "usa", Name: "America"},
			},
			wantMsg: "already defined",
		},
		{
			name: "alias names two countries",
			entries: []Entry{
				{Alpha3: "COG", Name: "Congo"},
				{Alpha3: "COD", Name: "DR Congo", Aliases: []string{"CONGO"}},
			},
			wantMsg: "also names COG",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTable(tt.entries)
			if err == nil {
				t.Fatal("NewTable() expected error")
			}
			if !errors.Is(err, ErrInvalidTable) {
				t.Errorf("error should wrap ErrInvalidTable: %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q should contain %q", err, tt.wantMsg)
			}
		})
	}
}

func TestReadCSV(t *testing.T) {
	input := "alpha2,alpha3,name,aliases\n" +
		"# comment line\n" +
		"US,USA,United States,\"USA|America| \"\n" +
		"FR,FRA,France\n"

	entries, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if got := entries[0].Aliases; len(got) != 2 || got[0] != "USA" || got[1] != "America" {
		t.Errorf("aliases = %q, want [USA America]", got)
	}
	if entries[1].Aliases != nil {
		t.Errorf("ragged row aliases = %q, want nil", entries[1].Aliases)
	}
}

func TestReadCSV_MissingColumn(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("code,label\nUSA,United States\n"))
	if !errors.Is(err, ErrInvalidTable) {
		t.Fatalf("ReadCSV() error = %v, want ErrInvalidTable", err)
	}
}

func TestMatcher_Exact(t *testing.T) {
	m := mustDefaultMatcher(t)

	tests := []struct {
		input string
		want  string
	}{
		{"United States", "USA"},
		{"USA", "USA"},
		{"usa", "USA"},
		{"US", "USA"},
		{"United States of America", "USA"},
		{"Germany", "DEU"},
		{"Côte d'Ivoire", "CIV"},
		{"Cote d'Ivoire", "CIV"},
		{"Ivory Coast", "CIV"},
		{"Korea, Rep.", "KOR"},
		{"South Korea", "KOR"},
		{"Russia", "RUS"},
		{"Russian Federation", "RUS"},
		{"Congo, Dem. Rep.", "COD"},
		{"Congo", "COG"},
		{"UK", "GBR"},
		{"Türkiye", "TUR"},
		{"Turkiye", "TUR"},
		{"Niger", "NER"},
		{"Nigeria", "NGA"},
		{"Kosovo", "XKX"},
	}

	for _, tt := range tests {
		got := m.Resolve(tt.input)
		if got.Code != tt.want {
			t.Errorf("Resolve(%q).Code = %q, want %q", tt.input, got.Code, tt.want)
			continue
		}
		if got.Method != MethodExact || got.Score != 1 {
			t.Errorf("Resolve(%q) = %+v, want exact match with score 1", tt.input, got)
		}
	}
}

func TestMatcher_Fuzzy(t *testing.T) {
	m := mustDefaultMatcher(t)

	tests := []struct {
		input string
		want  string
	}{
		{"Germnay", "DEU"},            // transposition
		{"Untied States", "USA"},      // transposition
		{"Argentinaa", "ARG"},         // insertion
		{"Philipines", "PHL"},         // deletion
		{"Switzerlnd", "CHE"},         // deletion
		{"Kazakstan", "KAZ"},          // deletion
		{"Bosnia and Herzegowina", "BIH"},
	}

	for _, tt := range tests {
		got := m.Resolve(tt.input)
		if got.Code != tt.want {
			t.Errorf("Resolve(%q) = %+v, want code %q", tt.input, got, tt.want)
			continue
		}
		if got.Method != MethodFuzzy {
			t.Errorf("Resolve(%q).Method = %q, want fuzzy", tt.input, got.Method)
		}
		if got.Score < m.Threshold() || got.Score >= 1 {
			t.Errorf("Resolve(%q).Score = %v, want in [%v, 1)", tt.input, got.Score, m.Threshold())
		}
	}
}

func TestMatcher_SameCodeAsCanonical(t *testing.T) {
	m := mustDefaultMatcher(t)

	canonical := m.Resolve("France")
	typo := m.Resolve("Farnce")
	if !canonical.Found() || canonical.Code != typo.Code {
		t.Errorf("typo resolved to %q, canonical to %q", typo.Code, canonical.Code)
	}
}

func TestMatcher_NotFound(t *testing.T) {
	m := mustDefaultMatcher(t)

	for _, input := range []string{
		"World",
		"European Union",
		"Euro area",
		"Sub-Saharan Africa",
		"High income",
		"Yugoslavia",
		"",
		"   ",
		"N/A",
		"Chda", // too short for a fuzzy match
	} {
		got := m.Resolve(input)
		if got.Found() {
			t.Errorf("Resolve(%q) = %+v, want not found", input, got)
		}
		if got.Method != MethodNone {
			t.Errorf("Resolve(%q).Method = %q, want none", input, got.Method)
		}
		if got.Input != input {
			t.Errorf("Resolve(%q).Input = %q", input, got.Input)
		}
	}
}

func TestMatcher_Deterministic(t *testing.T) {
	m := mustDefaultMatcher(t)

	for _, input := range []string{"United States", "Germnay", "World", "Slovakai"} {
		first := m.Resolve(input)
		for i := 0; i < 10; i++ {
			if got := m.Resolve(input); got != first {
				t.Fatalf("Resolve(%q) call %d = %+v, first = %+v", input, i, got, first)
			}
		}
	}
}

func TestMatcher_TieBreaksByTableOrder(t *testing.T) {
	table, err := NewTable([]Entry{
		{Alpha3: "AAA", Name: "Abcdefgh"},
		{Alpha3: "BBB", Name: "Abcdefgi"},
	})
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}
	m := NewMatcher(table, 0.8)

	// One substitution away from both names.
	got := m.Resolve("Abcdefgx")
	if got.Code != "AAA" {
		t.Errorf("Resolve() = %+v, want AAA", got)
	}
}

func TestMatcher_ThresholdFallback(t *testing.T) {
	table, err := DefaultTable()
	if err != nil {
		t.Fatalf("DefaultTable() error = %v", err)
	}

	for _, th := range []float64{0, -1, 1.5} {
		if got := NewMatcher(table, th).Threshold(); got != DefaultThreshold {
			t.Errorf("NewMatcher(%v).Threshold() = %v, want %v", th, got, DefaultThreshold)
		}
	}
	if got := NewMatcher(table, 0.9).Threshold(); got != 0.9 {
		t.Errorf("Threshold() = %v, want 0.9", got)
	}
}

func TestMatcher_StricterThresholdRejects(t *testing.T) {
	table, err := DefaultTable()
	if err != nil {
		t.Fatalf("DefaultTable() error = %v", err)
	}
	m := NewMatcher(table, 1)

	if got := m.Resolve("Germnay"); got.Found() {
		t.Errorf("threshold 1 should only allow exact matches, got %+v", got)
	}
	if got := m.Resolve("Germany"); got.Code != "DEU" {
		t.Errorf("exact match should still resolve, got %+v", got)
	}
}

func TestResolverFunc(t *testing.T) {
	var r Resolver = ResolverFunc(func(name string) Match {
		return Match{Code: "XXX", Method: MethodExact, Input: name}
	})
	if got := r.Resolve("anything"); got.Code != "XXX" || got.Input != "anything" {
		t.Errorf("Resolve() = %+v", got)
	}
}

func TestMatcher_ConcurrentResolve(t *testing.T) {
	m := mustDefaultMatcher(t)

	cases := []struct {
		input string
		want  string
	}{
		{"Côte d'Ivoire", "CIV"},
		{"São Tomé and Príncipe", "STP"},
		{"Curaçao", "CUW"},
		{"Réunion", "REU"},
		{"Åland Islands", "ALA"},
		{"Türkiye", "TUR"},
		{"Philipines", "PHL"},
		{"European Union", ""},
	}

	const workers = 16
	const rounds = 200

	var wg sync.WaitGroup
	errs := make(chan string, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				tc := cases[(w+i)%len(cases)]
				if got := m.Resolve(tc.input); got.Code != tc.want {
					errs <- tc.input + " resolved to " + got.Code + ", want " + tc.want
					return
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)

	for msg := range errs {
		t.Error(msg)
	}
}
