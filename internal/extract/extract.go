// Package extract builds per-site time series from gridded files by
// selecting the grid cells around each site and ranking them by proximity.
package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/lox/merdata/internal/csvout"
	"github.com/lox/merdata/internal/grid"
	"github.com/lox/merdata/internal/metrics"
	"github.com/lox/merdata/internal/models"
	"github.com/lox/merdata/internal/sites"
	"github.com/lox/merdata/internal/store"
)

var ErrNegativeWindow = errors.New("extract: window half-widths must be non-negative")

// Options are the parameters of one extraction run.
type Options struct {
	GridDir    string
	Identifier string // only file names containing this are read
	OutputDir  string
	Measure    string // output file infix, "<Site_ID>_<Measure>_data.csv"
	Names      grid.Names
	Window     models.Window
}

// Manifest records which site/file units have been written. It is
// optional; without one every run appends every unit.
type Manifest interface {
	IsProcessed(siteID, sourceFile, measure string) (bool, error)
	MarkProcessed(pf store.ProcessedFile) error
}

// Summary counts what a run did.
type Summary struct {
	FilesProcessed int
	FilesSkipped   int
	RowsDropped    int
	UnitsWritten   int
	UnitsEmpty     int
	UnitsSkipped   int
	RowsWritten    int
}

type Extractor struct {
	opts     Options
	sites    []models.Site
	manifest Manifest
	runID    int64
	logger   *zap.Logger
}

func New(opts Options, registry []models.Site, logger *zap.Logger) (*Extractor, error) {
	if opts.Window.Lat < 0 || opts.Window.Lon < 0 {
		return nil, ErrNegativeWindow
	}
	if opts.Names.Variable == "" {
		opts.Names = grid.DefaultNames
	}
	if opts.Measure == "" {
		opts.Measure = opts.Names.Variable
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{opts: opts, sites: registry, logger: logger}, nil
}

// SetManifest makes the extractor skip units already recorded in m and
// record each unit it writes, attributed to runID.
func (e *Extractor) SetManifest(m Manifest, runID int64) {
	e.manifest = m
	e.runID = runID
}

// Run processes every matching file in the grid directory in name order.
// Any load or write failure aborts the run; units written before the
// failure stay complete.
func (e *Extractor) Run(ctx context.Context) (Summary, error) {
	var sum Summary

	entries, err := os.ReadDir(e.opts.GridDir)
	if err != nil {
		return sum, fmt.Errorf("extract: read grid dir: %w", err)
	}
	if len(e.sites) == 0 {
		e.logger.Warn("extract: site registry is empty, nothing to do")
		return sum, nil
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if entry.IsDir() {
			continue
		}
		if !strings.Contains(entry.Name(), e.opts.Identifier) {
			sum.FilesSkipped++
			metrics.GridFilesSkipped.Inc()
			continue
		}
		if err := e.processFile(ctx, entry.Name(), &sum); err != nil {
			return sum, err
		}
	}

	e.logger.Info("extract: run complete",
		zap.Int("files", sum.FilesProcessed),
		zap.Int("units_written", sum.UnitsWritten),
		zap.Int("rows_written", sum.RowsWritten))
	return sum, nil
}

func (e *Extractor) processFile(ctx context.Context, name string, sum *Summary) error {
	e.logger.Info("extract: opening file", zap.String("file", name))

	field, err := grid.Load(filepath.Join(e.opts.GridDir, name), e.opts.Names)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	sum.FilesProcessed++
	metrics.GridFilesProcessed.Inc()

	rows := grid.Flatten(field, grid.DateFromFileName(name))
	metrics.ObservationsFlattened.Add(float64(len(rows)))

	rows, dropped := DropInvalidHours(rows)
	sum.RowsDropped += dropped
	metrics.InvalidHoursDropped.Add(float64(dropped))

	header := Header(field.Variable)
	for _, site := range e.sites {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.processSite(name, site, rows, field, header, sum); err != nil {
			return err
		}
	}
	return nil
}

func (e *Extractor) processSite(name string, site models.Site, rows []models.Observation, field *grid.Field, header []string, sum *Summary) error {
	if e.manifest != nil {
		done, err := e.manifest.IsProcessed(site.ID, name, e.opts.Measure)
		if err != nil {
			return fmt.Errorf("extract: manifest lookup %s/%s: %w", site.ID, name, err)
		}
		if done {
			sum.UnitsSkipped++
			metrics.SiteUnitsSkipped.WithLabelValues("manifest").Inc()
			e.logger.Debug("extract: already processed", zap.String("site", site.ID), zap.String("file", name))
			return nil
		}
	}

	selected := FilterByBox(rows, site, e.opts.Window)
	if len(selected) == 0 {
		sum.UnitsEmpty++
		metrics.SiteUnitsSkipped.WithLabelValues("empty").Inc()
		return nil
	}

	ranked := RankByDistance(selected, site)
	out := filepath.Join(e.opts.OutputDir, sites.OutputName(site, e.opts.Measure))
	n, err := csvout.Append(out, header, Records(ranked, field))
	if err != nil {
		return fmt.Errorf("extract: site %s: %w", site.ID, err)
	}
	sum.UnitsWritten++
	sum.RowsWritten += n
	metrics.SiteRowsWritten.WithLabelValues(site.ID).Add(float64(n))

	if e.manifest != nil {
		pf := store.ProcessedFile{SiteID: site.ID, SourceFile: name, Measure: e.opts.Measure, RowsWritten: n}
		if e.runID > 0 {
			pf.RunID.Int64, pf.RunID.Valid = e.runID, true
		}
		if err := e.manifest.MarkProcessed(pf); err != nil {
			return fmt.Errorf("extract: manifest record %s/%s: %w", site.ID, name, err)
		}
	}
	return nil
}
