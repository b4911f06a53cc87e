package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GridFilesProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "merdata_grid_files_processed_total",
			Help: "Total gridded input files loaded by the extractor",
		},
	)

	GridFilesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "merdata_grid_files_skipped_total",
			Help: "Directory entries skipped because their name lacks the file identifier",
		},
	)

	ObservationsFlattened = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "merdata_observations_flattened_total",
			Help: "Total grid observations read from input files",
		},
	)

	InvalidHoursDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "merdata_invalid_hours_dropped_total",
			Help: "Hour-24 duplicate observations dropped before site selection",
		},
	)

	SiteRowsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "merdata_site_rows_written_total",
			Help: "Ranked rows appended to per-site output files",
		},
		[]string{"site"},
	)

	SiteUnitsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "merdata_site_units_skipped_total",
			Help: "Site/file units not written, by reason",
		},
		[]string{"reason"},
	)

	SheetsCombined = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "merdata_sheets_combined_total",
			Help: "Spreadsheet tabs appended to a combined export",
		},
	)

	FilesFetched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "merdata_files_fetched_total",
			Help: "Gridded files downloaded over FTP",
		},
	)
)

// WriteTextfile exports every registered metric in the node_exporter
// textfile format. An empty path is a no-op.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
