package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JonMunkholm/GDPExplorer/internal/core"
)

const samplePath = "../../internal/core/testdata/gdp_sample.csv"

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_MapJSON(t *testing.T) {
	code, out, errOut := runCLI(t, "-file", samplePath, "-view", "map")
	if code != exitOK {
		t.Fatalf("exit = %d, stderr = %s", code, errOut)
	}

	var rows []core.MapRow
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("stdout is not JSON: %v", err)
	}
	if len(rows) != 6 || rows[0].GeoCode != "USA" {
		t.Errorf("rows = %+v", rows)
	}
}

func TestRun_TableCSV(t *testing.T) {
	code, out, errOut := runCLI(t, "-file", samplePath, "-view", "table", "-format", "csv")
	if code != exitOK {
		t.Fatalf("exit = %d, stderr = %s", code, errOut)
	}

	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 10 || records[0][0] != "Country" {
		t.Errorf("records = %q", records)
	}
}

func TestRun_MapCSV(t *testing.T) {
	code, out, _ := runCLI(t, "-file", samplePath, "-view", "map", "-format", "csv")
	if code != exitOK {
		t.Fatalf("exit = %d", code)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 7 || !strings.HasPrefix(lines[1], "USA,26.11,United States,") {
		t.Errorf("output = %q", out)
	}
}

func TestRun_Report(t *testing.T) {
	code, out, _ := runCLI(t, "-file", samplePath, "-view", "report")
	if code != exitOK {
		t.Fatalf("exit = %d", code)
	}

	var report core.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatal(err)
	}
	if report.Resolution.Unresolved != 2 {
		t.Errorf("unresolved = %d, want 2", report.Resolution.Unresolved)
	}
}

func TestRun_StrictThreshold(t *testing.T) {
	code, out, _ := runCLI(t, "-file", samplePath, "-view", "report", "-threshold", "1")
	if code != exitOK {
		t.Fatalf("exit = %d", code)
	}

	var report core.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatal(err)
	}
	// "Philipines" no longer resolves
	if report.Resolution.Fuzzy != 0 || report.Resolution.Unresolved != 3 {
		t.Errorf("resolution = %+v", report.Resolution)
	}
}

func TestRun_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "Global GDP Explorer 2025.csv")
	code, out, errOut := runCLI(t, "-file", missing)

	if code != exitUnavailable {
		t.Errorf("exit = %d, want %d", code, exitUnavailable)
	}
	if out != "" {
		t.Errorf("stdout should be empty, got %q", out)
	}
	if !strings.Contains(errOut, "Global GDP Explorer 2025.csv") || !strings.Contains(errOut, "SRC001") {
		t.Errorf("stderr = %q", errOut)
	}
}

func TestRun_UsageErrors(t *testing.T) {
	tests := [][]string{
		{"-view", "chart"},
		{"-format", "xml"},
		{"-view", "report", "-format", "csv"},
		{"-threshold", "2"},
		{"-reference", "ldap"},
		{"-nope"},
	}
	for _, args := range tests {
		args = append([]string{"-file", samplePath}, args...)
		if code, _, _ := runCLI(t, args...); code != exitUsage {
			t.Errorf("run(%q) = %d, want %d", args, code, exitUsage)
		}
	}
}
