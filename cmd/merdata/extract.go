package main

import (
	"go.uber.org/zap"

	"github.com/lox/merdata/internal/extract"
	"github.com/lox/merdata/internal/grid"
	"github.com/lox/merdata/internal/models"
	"github.com/lox/merdata/internal/sites"
	"github.com/lox/merdata/internal/store"
)

type ExtractCmd struct {
	GridDir    string  `help:"Directory holding the gridded netCDF files." default:"test_data" env:"MERDATA_GRID_DIR" type:"path"`
	Identifier string  `help:"Only files whose name contains this are read." default:"PM25plus_vtas" env:"MERDATA_IDENTIFIER"`
	Sites      string  `help:"Site registry CSV with Site_ID, Lat and Long columns." default:"vineyard_xy.csv" env:"MERDATA_SITES" type:"path"`
	OutputDir  string  `help:"Directory for the per-site CSV files." default:"." env:"MERDATA_OUTPUT_DIR" type:"path"`
	LatWindow  float64 `help:"Half-width of the search box in degrees latitude." default:"0.035"`
	LonWindow  float64 `help:"Half-width of the search box in degrees longitude." default:"0.035"`
	Variable   string  `help:"Gridded variable to extract." default:"PM25"`
	Measure    string  `help:"Measure name used in output file names. Defaults to the variable."`
	TimeDim    string  `help:"Name of the time dimension." default:"time"`
	LatDim     string  `help:"Name of the latitude dimension." default:"lat"`
	LonDim     string  `help:"Name of the longitude dimension." default:"lon"`
	Manifest   string  `help:"SQLite manifest recording processed site/file pairs; reruns skip them." env:"MERDATA_MANIFEST" type:"path"`
}

func (c *ExtractCmd) Run(g *Globals) error {
	registry, err := sites.Load(c.Sites)
	if err != nil {
		return err
	}
	g.Logger.Info("extract: sites loaded", zap.Int("count", len(registry)), zap.String("file", c.Sites))

	ex, err := extract.New(extract.Options{
		GridDir:    c.GridDir,
		Identifier: c.Identifier,
		OutputDir:  c.OutputDir,
		Measure:    c.Measure,
		Names: grid.Names{
			Variable: c.Variable,
			Time:     c.TimeDim,
			Lat:      c.LatDim,
			Lon:      c.LonDim,
		},
		Window: models.Window{Lat: c.LatWindow, Lon: c.LonWindow},
	}, registry, g.Logger)
	if err != nil {
		return err
	}

	if c.Manifest == "" {
		_, err := ex.Run(g.Ctx)
		return err
	}

	st, err := store.Open(c.Manifest, g.Logger)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := st.StartRun(c.GridDir, c.Identifier)
	if err != nil {
		return err
	}
	ex.SetManifest(st, run.ID)

	sum, runErr := ex.Run(g.Ctx)
	run.FilesProcessed = sum.FilesProcessed
	run.RowsWritten = sum.RowsWritten
	if err := st.CompleteRun(run, runErr); err != nil {
		g.Logger.Error("extract: record run", zap.Int64("run", run.ID), zap.Error(err))
	}
	if sum.UnitsSkipped > 0 {
		g.Logger.Info("extract: skipped units already in manifest", zap.Int("units", sum.UnitsSkipped))
	}
	return runErr
}
