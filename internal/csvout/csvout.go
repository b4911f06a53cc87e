// Package csvout appends record sets to delimited files that carry a header
// exactly once.
package csvout

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// ErrHeaderMismatch is returned when an existing file's header differs from
// the columns being appended.
var ErrHeaderMismatch = errors.New("csvout: header mismatch")

// Append writes rows to path as one unit. The header is written only when
// the file does not exist yet; otherwise the existing header must equal
// header so that column order never drifts between appends. Nothing is
// written when rows is empty.
func Append(path string, header []string, rows [][]string) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(header) == 0 {
		return 0, fmt.Errorf("csvout: append %s: empty header", path)
	}

	exists := true
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		exists = false
	} else if err != nil {
		return 0, fmt.Errorf("csvout: stat %s: %w", path, err)
	}

	if exists {
		existing, err := ReadHeader(path)
		if err != nil {
			return 0, err
		}
		if existing != nil && !slices.Equal(existing, header) {
			return 0, fmt.Errorf("%w: %s has %v, appending %v", ErrHeaderMismatch, path, existing, header)
		}
	}

	buf, err := render(header, rows, !exists)
	if err != nil {
		return 0, fmt.Errorf("csvout: render %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("csvout: open %s: %w", path, err)
	}
	if _, err := f.Write(buf); err != nil {
		f.Close()
		return 0, fmt.Errorf("csvout: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("csvout: close %s: %w", path, err)
	}
	return len(rows), nil
}

// ReadHeader returns the first record of the file at path, or nil for an
// empty file.
func ReadHeader(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csvout: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("csvout: read header %s: %w", path, err)
	}
	return header, nil
}

// render builds the whole unit in memory so a failure never leaves a
// partially written unit behind.
func render(header []string, rows [][]string, withHeader bool) ([]byte, error) {
	records := make([][]string, 0, len(rows)+1)
	records = append(records, header)
	for i, row := range rows {
		if len(row) != len(header) {
			return nil, fmt.Errorf("row %d has %d fields, header has %d", i, len(row), len(header))
		}
		records = append(records, row)
	}

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nil),
	)
	if df.Err != nil {
		return nil, df.Err
	}

	var buf bytes.Buffer
	if err := df.WriteCSV(&buf, dataframe.WriteHeader(withHeader)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
