package bdc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTechTable_Resolve(t *testing.T) {
	tbl := NewTechTable(DefaultTechnologies())

	fiber := tbl.Resolve(50)
	assert.Equal(t, "Fiber", fiber.Abbr)
	assert.True(t, fiber.CountsTowardServing)

	sat := tbl.Resolve(60)
	assert.Equal(t, "GeoSat", sat.Abbr)
	assert.False(t, sat.CountsTowardServing)
}

func TestTechTable_ResolveStringForm(t *testing.T) {
	tbl := NewTechTable(DefaultTechnologies())
	assert.Equal(t, "Cable", tbl.Resolve("40").Abbr)
	assert.Equal(t, "Cable", tbl.Resolve(" 40 ").Abbr)
}

func TestTechTable_UnknownCode(t *testing.T) {
	tbl := NewTechTable(DefaultTechnologies())

	unknown := tbl.Resolve(999)
	assert.Equal(t, UnknownSentinel, unknown.Abbr)
	assert.False(t, unknown.CountsTowardServing)

	malformed := tbl.Resolve("not-a-code")
	assert.Equal(t, UnknownSentinel, malformed.Abbr)
}

func TestTechTable_AbbrsOrdered(t *testing.T) {
	tbl := NewTechTable(DefaultTechnologies())
	abbrs := tbl.Abbrs()
	require.Len(t, abbrs, 12)
	assert.Equal(t, "Copper", abbrs[0])
	assert.Equal(t, "5GNR", abbrs[11])
}

func TestProviderTable_Resolve(t *testing.T) {
	tbl := NewProviderTable(map[string]string{
		"130077": "AT&T Inc.",
		"5678":   "Example Holdings",
	})

	assert.Equal(t, "AT&T Inc.", tbl.Resolve("130077"))
	// Integer form and unpadded string form hit the same canonical key.
	assert.Equal(t, "Example Holdings", tbl.Resolve(5678))
	assert.Equal(t, "Example Holdings", tbl.Resolve("005678"))
}

func TestProviderTable_Unknown(t *testing.T) {
	tbl := NewProviderTable(nil)
	assert.Equal(t, UnknownSentinel, tbl.Resolve("999999"))
}

func TestCanonicalProviderID(t *testing.T) {
	assert.Equal(t, "000042", CanonicalProviderID(42))
	assert.Equal(t, "000042", CanonicalProviderID("42"))
	assert.Equal(t, "1234567", CanonicalProviderID("1234567"))
}
