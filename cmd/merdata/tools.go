package main

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/lox/merdata/internal/config"
	"github.com/lox/merdata/internal/ingest"
	"github.com/lox/merdata/internal/sqldb"
	"github.com/lox/merdata/internal/workbook"
)

type FetchCmd struct {
	Addr       string        `help:"FTP server host:port." required:"" env:"MERDATA_FTP_ADDR"`
	User       string        `help:"FTP user; anonymous when empty." env:"MERDATA_FTP_USER"`
	Password   string        `help:"FTP password." env:"MERDATA_FTP_PASSWORD"`
	RemoteDir  string        `help:"Remote directory to list." default:"/"`
	Identifier string        `help:"Only files whose name contains this are fetched." default:"PM25plus_vtas" env:"MERDATA_IDENTIFIER"`
	Dest       string        `help:"Local directory to download into." default:"test_data" env:"MERDATA_GRID_DIR" type:"path"`
	Timeout    time.Duration `help:"Dial timeout." default:"30s"`
}

func (c *FetchCmd) Run(g *Globals) error {
	fetcher := ingest.NewFTPFetcher(ingest.FTPConfig{
		Addr:     c.Addr,
		User:     c.User,
		Password: c.Password,
		Timeout:  c.Timeout,
	}, g.Logger)

	fetched, err := fetcher.Fetch(g.Ctx, c.RemoteDir, c.Identifier, c.Dest)
	g.Logger.Info("fetch: done", zap.Int("files", len(fetched)))
	return err
}

type SheetsCmd struct {
	File string `arg:"" help:"Spreadsheet to inspect." type:"existingfile"`
}

func (c *SheetsCmd) Run(g *Globals) error {
	names, err := workbook.SheetNames(c.File)
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Println(n)
	}
	return nil
}

type CombineCmd struct {
	DataDir         string `help:"Directory of .xlsx exports." required:"" type:"existingdir"`
	Output          string `help:"Combined CSV to create or append to." required:"" type:"path"`
	SheetIdentifier string `help:"Only tabs whose name contains this are merged." default:"-FuelHazard"`
}

func (c *CombineCmd) Run(g *Globals) error {
	sum, err := workbook.Combine(g.Ctx, workbook.CombineOptions{
		DataDir:         c.DataDir,
		OutputFile:      c.Output,
		SheetIdentifier: c.SheetIdentifier,
		Logger:          g.Logger,
	})
	if err != nil {
		return err
	}
	g.Logger.Info("combine: done", zap.Int("files", sum.Files), zap.Int("sheets", sum.Sheets), zap.Int("rows", sum.Rows))
	return nil
}

type EnvCmd struct {
	Names []string `arg:"" help:"Environment variables to print." default:"PATH"`
}

func (c *EnvCmd) Run(g *Globals) error {
	return config.PrintEnv(os.Stdout, c.Names...)
}

type DBPingCmd struct {
	CredentialsDir string `help:"Directory holding <user>_<db>_credentials.csv files." required:"" env:"MERDATA_CREDENTIALS_DIR" type:"existingdir"`
	User           string `help:"Credentials user." required:"" env:"MERDATA_DB_USER"`
	Database       string `help:"Database name." required:"" env:"MERDATA_DB"`
}

func (c *DBPingCmd) Run(g *Globals) error {
	creds, err := config.LoadCredentials(config.CredentialsSource{
		Dir:      c.CredentialsDir,
		User:     c.User,
		Database: c.Database,
	})
	if err != nil {
		return err
	}

	db, err := sqldb.Open(g.Ctx, creds, sqldb.Options{Logger: g.Logger})
	if err != nil {
		return err
	}
	return db.Close()
}
