package extract

import (
	"strconv"

	"github.com/lox/merdata/internal/csvout"
	"github.com/lox/merdata/internal/grid"
	"github.com/lox/merdata/internal/models"
)

// Header is the output column order for a field named variable.
func Header(variable string) []string {
	return []string{variable, "date", "hour", "lat", "lon", "rank"}
}

// Records renders ranked rows in Header order, formatting floats at the
// precision they were stored with in field.
func Records(ranked []models.RankedObservation, field *grid.Field) [][]string {
	records := make([][]string, len(ranked))
	for i, r := range ranked {
		records[i] = []string{
			csvout.FormatFloat(r.Value, field.ValueBits),
			r.Date,
			strconv.Itoa(r.Hour),
			csvout.FormatFloat(r.Lat, field.CoordBits),
			csvout.FormatFloat(r.Lon, field.CoordBits),
			strconv.Itoa(r.Rank),
		}
	}
	return records
}
