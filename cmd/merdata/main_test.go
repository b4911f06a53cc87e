package main

import (
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, args ...string) (*CLI, *kong.Context) {
	t.Helper()
	var cli CLI
	parser, err := kong.New(&cli, kong.Name("merdata"), kong.Exit(func(int) { t.Fatal("kong exited") }))
	require.NoError(t, err)
	kctx, err := parser.Parse(args)
	require.NoError(t, err)
	return &cli, kctx
}

func TestExtractDefaults(t *testing.T) {
	cli, kctx := parse(t, "extract")

	assert.Equal(t, "extract", kctx.Command())
	assert.Equal(t, 0.035, cli.Extract.LatWindow)
	assert.Equal(t, 0.035, cli.Extract.LonWindow)
	assert.Equal(t, "PM25plus_vtas", cli.Extract.Identifier)
	assert.Equal(t, "PM25", cli.Extract.Variable)
	assert.Empty(t, cli.Extract.Manifest)
}

func TestExtractEnv(t *testing.T) {
	t.Setenv("MERDATA_IDENTIFIER", "NO2plus_vtas")

	cli, _ := parse(t, "extract", "--lat-window", "0.1")
	assert.Equal(t, "NO2plus_vtas", cli.Extract.Identifier)
	assert.Equal(t, 0.1, cli.Extract.LatWindow)
}

func TestDBPingRequiresFlags(t *testing.T) {
	var cli CLI
	parser, err := kong.New(&cli, kong.Exit(func(int) {}))
	require.NoError(t, err)
	_, err = parser.Parse([]string{"db-ping"})
	assert.Error(t, err)
}

func TestEnvDefaultsToPath(t *testing.T) {
	cli, _ := parse(t, "env")
	assert.Equal(t, []string{"PATH"}, cli.Env.Names)
}
