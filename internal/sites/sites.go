// Package sites loads the registry of named locations that series are
// extracted for.
package sites

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/lox/merdata/internal/models"
)

// Registry column names.
const (
	ColumnID  = "Site_ID"
	ColumnLat = "Lat"
	ColumnLon = "Long"
)

var (
	ErrMissingColumn = errors.New("sites: missing column")
	ErrEmptyRegistry = errors.New("sites: registry has no sites")
	ErrInvalidID     = errors.New("sites: invalid site id")
)

// Load reads a comma-separated registry with a header row containing at
// least Site_ID, Lat and Long. Rows keep their file order.
func Load(path string) ([]models.Site, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sites: open %s: %w", path, err)
	}
	defer f.Close()

	df := dataframe.ReadCSV(skipBOM(f),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nil),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("sites: read %s: %w", path, df.Err)
	}
	return fromFrame(df)
}

// skipBOM drops a leading UTF-8 byte order mark, as written by Excel's
// "CSV UTF-8" export.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if c, _, err := br.ReadRune(); err != nil || c != '\uFEFF' {
		_ = br.UnreadRune()
	}
	return br
}

func fromFrame(df dataframe.DataFrame) ([]models.Site, error) {
	names := df.Names()
	for _, col := range []string{ColumnID, ColumnLat, ColumnLon} {
		if !slices.Contains(names, col) {
			return nil, fmt.Errorf("%w %q (have %v)", ErrMissingColumn, col, names)
		}
	}
	if df.Nrow() == 0 {
		return nil, ErrEmptyRegistry
	}

	ids := df.Col(ColumnID).Records()
	lats := df.Col(ColumnLat).Records()
	lons := df.Col(ColumnLon).Records()

	sites := make([]models.Site, 0, len(ids))
	for i := range ids {
		row := i + 2 // 1-based, after the header
		id := strings.TrimSpace(ids[i])
		if err := ValidateID(id); err != nil {
			return nil, fmt.Errorf("sites: row %d: %w", row, err)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(lats[i]), 64)
		if err != nil {
			return nil, fmt.Errorf("sites: row %d: %s %q: %w", row, ColumnLat, lats[i], err)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(lons[i]), 64)
		if err != nil {
			return nil, fmt.Errorf("sites: row %d: %s %q: %w", row, ColumnLon, lons[i], err)
		}
		sites = append(sites, models.Site{ID: id, Lat: lat, Lon: lon})
	}
	return sites, nil
}

// ValidateID reports whether id can be used as a file name fragment.
// Letters, digits, '.', '_', '-' and spaces are allowed; '.' and '..' are not.
func ValidateID(id string) error {
	if id == "" || id == "." || id == ".." {
		return fmt.Errorf("%w %q", ErrInvalidID, id)
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.', r == '_', r == '-', r == ' ':
		default:
			return fmt.Errorf("%w %q: character %q not allowed", ErrInvalidID, id, r)
		}
	}
	return nil
}

// OutputName is the per-site output file name for measure, e.g.
// "V1_PM25_data.csv".
func OutputName(site models.Site, measure string) string {
	return fmt.Sprintf("%s_%s_data.csv", site.ID, measure)
}
