package states

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByAbbr(t *testing.T) {
	s, ok := ByAbbr("co")
	assert.True(t, ok)
	assert.Equal(t, "08", s.FIPS)
	assert.Equal(t, "Colorado", s.Name)

	_, ok = ByAbbr("ZZ")
	assert.False(t, ok)
}

func TestAll_IncludesOutlyingTerritories(t *testing.T) {
	require.Len(t, All, 60)
	for _, abbr := range []string{"AS", "FM", "GU", "MH", "MP", "PW", "PR", "UM", "VI"} {
		_, ok := ByAbbr(abbr)
		assert.True(t, ok, abbr)
	}
}

func TestByFIPS_PadsSingleDigit(t *testing.T) {
	s, ok := ByFIPS("8")
	assert.True(t, ok)
	assert.Equal(t, "CO", s.Abbr)
}

func TestDirName(t *testing.T) {
	s, _ := ByAbbr("NM")
	assert.Equal(t, "35_NM_New_Mexico", s.DirName())
}

func TestExpand_Empty(t *testing.T) {
	got, err := Expand(nil)
	require.NoError(t, err)
	assert.Len(t, got, len(All))
}

func TestExpand_Range(t *testing.T) {
	got, err := Expand([]string{"CO-DE"})
	require.NoError(t, err)
	// 08 CO, 09 CT, 10 DE
	require.Len(t, got, 3)
	assert.Equal(t, "CO", got[0].Abbr)
	assert.Equal(t, "CT", got[1].Abbr)
	assert.Equal(t, "DE", got[2].Abbr)
}

func TestExpand_ReversedRange(t *testing.T) {
	got, err := Expand([]string{"DE-CO"})
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestExpand_Dedup(t *testing.T) {
	got, err := Expand([]string{"CO", "co", "CO-CT"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestExpand_Unknown(t *testing.T) {
	_, err := Expand([]string{"XX"})
	assert.Error(t, err)
}

func TestLoadOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "states.yaml")
	doc := "states:\n  - fips: \"08\"\n    abbr: CO\n    name: Colorado\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	got, err := LoadOverride(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "CO", got[0].Abbr)
}

func TestLoadOverride_Empty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "states.yaml")
	require.NoError(t, os.WriteFile(path, []byte("states: []\n"), 0o644))

	_, err := LoadOverride(path)
	assert.Error(t, err)
}
