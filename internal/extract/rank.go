package extract

import (
	"math"
	"slices"

	"github.com/lox/merdata/internal/models"
)

// InvalidHour marks the trailing time step of a daily file. It duplicates
// hour 0 of the following day and carries a zero value.
const InvalidHour = 24

// DropInvalidHours returns rows without the hour-24 duplicates and the
// number of rows removed.
func DropInvalidHours(rows []models.Observation) ([]models.Observation, int) {
	kept := make([]models.Observation, 0, len(rows))
	for _, r := range rows {
		if r.Hour == InvalidHour {
			continue
		}
		kept = append(kept, r)
	}
	return kept, len(rows) - len(kept)
}

// FilterByBox selects the rows strictly inside the window around site.
// Points on the box edge are excluded.
func FilterByBox(rows []models.Observation, site models.Site, w models.Window) []models.Observation {
	minLat, maxLat := site.Lat-w.Lat, site.Lat+w.Lat
	minLon, maxLon := site.Lon-w.Lon, site.Lon+w.Lon

	var selected []models.Observation
	for _, r := range rows {
		if r.Lat > minLat && r.Lat < maxLat && r.Lon > minLon && r.Lon < maxLon {
			selected = append(selected, r)
		}
	}
	return selected
}

// Distance is the proximity measure used for ranking. Absolute values are
// taken before differencing, so it is only a true Euclidean distance when
// the point and the site share the sign of each coordinate.
func Distance(obs models.Observation, site models.Site) float64 {
	dLat := math.Abs(obs.Lat) - math.Abs(site.Lat)
	dLon := math.Abs(obs.Lon) - math.Abs(site.Lon)
	return math.Sqrt(dLat*dLat + dLon*dLon)
}

// RankByDistance assigns every row the 0-based position of its distance
// among the distinct distances present, ascending. Rows at the same
// distance share a rank. Row order is preserved.
func RankByDistance(rows []models.Observation, site models.Site) []models.RankedObservation {
	if len(rows) == 0 {
		return nil
	}

	distances := make([]float64, len(rows))
	for i, r := range rows {
		distances[i] = Distance(r, site)
	}

	distinct := slices.Clone(distances)
	slices.Sort(distinct)
	distinct = slices.Compact(distinct)

	ranks := make(map[float64]int, len(distinct))
	for i, d := range distinct {
		ranks[d] = i
	}

	ranked := make([]models.RankedObservation, len(rows))
	for i, r := range rows {
		ranked[i] = models.RankedObservation{Observation: r, Rank: ranks[distances[i]]}
	}
	return ranked
}
