package workbook

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, path string, sheets map[string][][]any, order []string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for _, name := range order {
		_, err := f.NewSheet(name)
		require.NoError(t, err)
		for i, row := range sheets[name] {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}
	require.NoError(t, f.DeleteSheet("Sheet1"))
	require.NoError(t, f.SaveAs(path))
}

func TestSheetNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.xlsx")
	writeWorkbook(t, path, map[string][][]any{
		"Summary":          {{"a"}},
		"Site1-FuelHazard": {{"a"}},
	}, []string{"Summary", "Site1-FuelHazard"})

	names, err := SheetNames(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Summary", "Site1-FuelHazard"}, names)
}

func TestSheetNames_Missing(t *testing.T) {
	_, err := SheetNames(filepath.Join(t.TempDir(), "missing.xlsx"))
	assert.Error(t, err)
}

func TestCombine(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(t.TempDir(), "combined.csv")

	writeWorkbook(t, filepath.Join(dir, "a.xlsx"), map[string][][]any{
		"Notes":            {{"ignored"}},
		"Plot1-FuelHazard": {{"Plot", "Score"}, {"P1", 3}, {"P2", 4}},
	}, []string{"Notes", "Plot1-FuelHazard"})
	writeWorkbook(t, filepath.Join(dir, "b.xlsx"), map[string][][]any{
		"Plot9-FuelHazard": {{"Plot", "Score"}, {"P9", 1}, {}, {"P10"}},
	}, []string{"Plot9-FuelHazard"})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	sum, err := Combine(context.Background(), CombineOptions{DataDir: dir, OutputFile: out})
	require.NoError(t, err)
	assert.Equal(t, CombineSummary{Files: 2, Sheets: 2, Rows: 4}, sum)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	a := filepath.Join(dir, "a.xlsx")
	b := filepath.Join(dir, "b.xlsx")
	assert.Equal(t, [][]string{
		{"Plot", "Score", "input_file", "sheet_name"},
		{"P1", "3", a, "Plot1-FuelHazard"},
		{"P2", "4", a, "Plot1-FuelHazard"},
		{"P9", "1", b, "Plot9-FuelHazard"},
		{"P10", "", b, "Plot9-FuelHazard"},
	}, records)
}

func TestCombine_RequiresOutput(t *testing.T) {
	_, err := Combine(context.Background(), CombineOptions{DataDir: t.TempDir()})
	assert.Error(t, err)
}

func TestTable(t *testing.T) {
	header, records := Table([][]string{
		{"Plot", "", "Plot", "Score"},
		{"P1", "x", "y"},
		{"", " "},
		{"P2", "", "", "5", "extra"},
	})

	assert.Equal(t, []string{"Plot", "Unnamed: 1", "Plot.1", "Score", "Unnamed: 4"}, header)
	assert.Equal(t, [][]string{
		{"P1", "x", "y", "", ""},
		{"P2", "", "", "5", "extra"},
	}, records)
}

func TestTable_Empty(t *testing.T) {
	header, records := Table(nil)
	assert.Nil(t, header)
	assert.Nil(t, records)
}
