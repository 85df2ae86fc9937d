package core

import (
	"bytes"
	"io"
	"testing"
)

func TestNewTextReader(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{name: "plain", input: []byte("Country,GDP\n"), want: "Country,GDP\n"},
		{name: "utf-8 bom", input: []byte("\xEF\xBB\xBFCountry"), want: "Country"},
		{name: "accents kept", input: []byte("Côte d'Ivoire"), want: "Côte d'Ivoire"},
		{name: "invalid byte replaced", input: []byte("Cura\xE7ao"), want: "Cura\uFFFDao"},
		{name: "utf-16le bom", input: []byte{0xFF, 0xFE, 'C', 0, 'h', 0, 'a', 0, 'd', 0}, want: "Chad"},
		{name: "utf-16be bom", input: []byte{0xFE, 0xFF, 0, 'P', 0, 'e', 0, 'r', 0, 'u'}, want: "Peru"},
		{name: "empty", input: nil, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := io.ReadAll(newTextReader(bytes.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("ReadAll() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClean_UTF16Export(t *testing.T) {
	src := "Country,Share of World GDP\nPeru,0.25%\n"
	content := []byte{0xFF, 0xFE}
	for _, r := range src {
		content = append(content, byte(r), 0)
	}

	ds, err := newTestPipeline(t).Clean("utf16.csv", content)
	if err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	if ds.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", ds.Len())
	}
	rec := ds.Record(0)
	if !rec.GeoCode.Valid || rec.GeoCode.String != "PER" {
		t.Errorf("GeoCode = %+v, want PER", rec.GeoCode)
	}
	if !rec.SharePct.Valid || rec.SharePct.Float64 != 0.25 {
		t.Errorf("SharePct = %+v, want 0.25", rec.SharePct)
	}
}
