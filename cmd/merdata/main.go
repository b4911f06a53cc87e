package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/lox/merdata/internal/config"
	"github.com/lox/merdata/internal/metrics"
	"github.com/lox/merdata/internal/observability"
)

type CLI struct {
	Config      kong.ConfigFlag `help:"Load flag values from a YAML file." placeholder:"PATH"`
	MetricsFile string          `help:"Write Prometheus metrics to this textfile on exit." env:"MERDATA_METRICS_FILE" type:"path"`

	Extract ExtractCmd `cmd:"" help:"Extract nearest-grid-cell series for each site."`
	Fetch   FetchCmd   `cmd:"" help:"Download gridded files over FTP."`
	Sheets  SheetsCmd  `cmd:"" help:"List the tabs of a spreadsheet."`
	Combine CombineCmd `cmd:"" help:"Merge matching tabs of .xlsx exports into one CSV."`
	Env     EnvCmd     `cmd:"" help:"Print environment variables, one path element per line."`
	DBPing  DBPingCmd  `cmd:"" name:"db-ping" help:"Load credentials and connect to a SQL database."`
}

// Globals are bound into every command's Run method.
type Globals struct {
	Ctx    context.Context
	Logger *zap.Logger
}

func main() {
	_ = godotenv.Load()

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("merdata"),
		kong.Description("Data wrangling tools for the air quality and fuel monitoring workflows."),
		kong.UsageOnError(),
		kong.Configuration(config.YAML, "merdata.yaml"),
	)

	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runErr := kctx.Run(&Globals{Ctx: ctx, Logger: logger})

	if err := metrics.WriteTextfile(cli.MetricsFile); err != nil {
		logger.Error("metrics: write textfile", zap.String("path", cli.MetricsFile), zap.Error(err))
	}
	if runErr != nil {
		logger.Error(kctx.Command(), zap.Error(runErr))
		_ = logger.Sync()
		os.Exit(1)
	}
}
