package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bdc-cli/internal/config"
)

func TestSplitAndTrim(t *testing.T) {
	assert.Equal(t, []string{"CO", "UT"}, splitAndTrim("CO, UT"))
	assert.Equal(t, []string{"CO"}, splitAndTrim("CO,,"))
	assert.Empty(t, splitAndTrim(""))
}

func TestResolveStatesFlag(t *testing.T) {
	cfg = &config.Config{}
	t.Cleanup(func() { cfg = nil })

	sts, err := resolveStates("CO,UT")
	require.NoError(t, err)
	require.Len(t, sts, 2)
	assert.Equal(t, "CO", sts[0].Abbr)
	assert.Equal(t, "UT", sts[1].Abbr)
}

func TestResolveStatesDefaultAll(t *testing.T) {
	cfg = &config.Config{}
	t.Cleanup(func() { cfg = nil })

	sts, err := resolveStates("")
	require.NoError(t, err)
	assert.Greater(t, len(sts), 50)
}

func TestResolveStatesOverrideFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "states.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"states:\n  - fips: \"08\"\n    abbr: CO\n    name: Colorado\n",
	), 0o644))

	cfg = &config.Config{}
	cfg.Data.StatesFile = path
	t.Cleanup(func() { cfg = nil })

	sts, err := resolveStates("")
	require.NoError(t, err)
	require.Len(t, sts, 1)
	assert.Equal(t, "CO", sts[0].Abbr)
}

func TestBuildSinksUnknownFormat(t *testing.T) {
	cfg = &config.Config{}
	t.Cleanup(func() { cfg = nil })

	_, _, err := buildSinks(t.Context(), []string{"shapefile"})
	assert.Error(t, err)
}

func TestBuildSinksFileFormats(t *testing.T) {
	cfg = &config.Config{}
	cfg.Output.Dir = t.TempDir()
	t.Cleanup(func() { cfg = nil })

	sinks, cleanup, err := buildSinks(t.Context(), []string{"geojson", "gpkg", "csv"})
	require.NoError(t, err)
	defer cleanup()

	require.Len(t, sinks, 3)
	assert.Equal(t, "geojson", sinks[0].Name())
	assert.Equal(t, "gpkg", sinks[1].Name())
	assert.Equal(t, "csv", sinks[2].Name())
}
