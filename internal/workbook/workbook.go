// Package workbook lists spreadsheet tabs and merges multi-tab exports into
// a single CSV.
package workbook

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/lox/merdata/internal/csvout"
	"github.com/lox/merdata/internal/metrics"
)

// DefaultSheetIdentifier selects the fuel hazard tabs of Fuel Monitoring
// Portal exports.
const DefaultSheetIdentifier = "-FuelHazard"

// Columns appended to every combined row.
const (
	ColumnInputFile = "input_file"
	ColumnSheetName = "sheet_name"
)

// SheetNames returns the tab names of the workbook at path in workbook order.
func SheetNames(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("workbook: open %s: %w", path, err)
	}
	defer f.Close()
	return f.GetSheetList(), nil
}

type CombineOptions struct {
	DataDir         string
	OutputFile      string
	SheetIdentifier string
	Logger          *zap.Logger
}

type CombineSummary struct {
	Files  int
	Sheets int
	Rows   int
}

// Combine appends every tab whose name contains the sheet identifier, from
// every .xlsx file in DataDir, to OutputFile. Each tab's first row is its
// header; input_file and sheet_name columns are added to every row.
func Combine(ctx context.Context, opts CombineOptions) (CombineSummary, error) {
	var sum CombineSummary
	if opts.SheetIdentifier == "" {
		opts.SheetIdentifier = DefaultSheetIdentifier
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.OutputFile == "" {
		return sum, errors.New("workbook: output file is required")
	}

	inputs, err := filepath.Glob(filepath.Join(opts.DataDir, "*xlsx"))
	if err != nil {
		return sum, fmt.Errorf("workbook: explore %s: %w", opts.DataDir, err)
	}

	for _, input := range inputs {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		opts.Logger.Info("workbook: reading", zap.String("file", input))
		n, rows, err := combineFile(input, opts)
		if err != nil {
			return sum, err
		}
		sum.Files++
		sum.Sheets += n
		sum.Rows += rows
	}
	return sum, nil
}

func combineFile(input string, opts CombineOptions) (int, int, error) {
	f, err := excelize.OpenFile(input)
	if err != nil {
		return 0, 0, fmt.Errorf("workbook: open %s: %w", input, err)
	}
	defer f.Close()

	var sheets, written int
	for _, sheet := range f.GetSheetList() {
		if !strings.Contains(sheet, opts.SheetIdentifier) {
			continue
		}
		opts.Logger.Info("workbook: opening tab", zap.String("sheet", sheet))

		rows, err := f.GetRows(sheet)
		if err != nil {
			return sheets, written, fmt.Errorf("workbook: read %s/%s: %w", input, sheet, err)
		}
		header, records := Table(rows)
		if header == nil {
			continue
		}

		header = append(header, ColumnInputFile, ColumnSheetName)
		for i := range records {
			records[i] = append(records[i], input, sheet)
		}

		n, err := csvout.Append(opts.OutputFile, header, records)
		if err != nil {
			return sheets, written, fmt.Errorf("workbook: append %s/%s: %w", input, sheet, err)
		}
		sheets++
		written += n
		metrics.SheetsCombined.Inc()
	}
	return sheets, written, nil
}

// Table turns raw sheet rows into a header and rectangular records. Blank
// rows are dropped, short rows padded, and header cells made unique:
// blanks become "Unnamed: <i>" and repeats get a ".<n>" suffix.
func Table(rows [][]string) ([]string, [][]string) {
	if len(rows) == 0 {
		return nil, nil
	}

	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	if width == 0 {
		return nil, nil
	}

	header := normalizeHeader(pad(rows[0], width))
	var records [][]string
	for _, r := range rows[1:] {
		if blank(r) {
			continue
		}
		records = append(records, pad(r, width))
	}
	return header, records
}

func normalizeHeader(cells []string) []string {
	out := make([]string, len(cells))
	seen := map[string]int{}
	for i, c := range cells {
		c = strings.TrimSpace(c)
		if c == "" {
			c = fmt.Sprintf("Unnamed: %d", i)
		}
		if n := seen[c]; n > 0 {
			seen[c] = n + 1
			c = fmt.Sprintf("%s.%d", c, n)
		} else {
			seen[c] = 1
		}
		out[i] = c
	}
	return out
}

func pad(r []string, width int) []string {
	out := make([]string, width)
	copy(out, r)
	return out
}

func blank(r []string) bool {
	for _, c := range r {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
