package bdc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssemble_Completeness(t *testing.T) {
	tbl := NewTechTable(DefaultTechnologies())
	recs := []AvailabilityRecord{
		rec("b1", "Fiber", "Acme", "l1", 500),
	}

	record := Assemble("b1", 4, AggregateBlock(recs), ClassifyBlock(recs, tbl, 4), tbl)

	// Every known abbreviation is a key, covered or not.
	require.Len(t, record.Technologies, len(tbl.Abbrs()))
	for _, abbr := range tbl.Abbrs() {
		_, ok := record.Technologies[abbr]
		assert.True(t, ok, "missing technology key %q", abbr)
	}

	assert.NotNil(t, record.Technologies["Fiber"])
	assert.Nil(t, record.Technologies["Cable"])
}

func TestAssemble_EmptyBlock(t *testing.T) {
	tbl := NewTechTable(DefaultTechnologies())

	record := Assemble("b9", 3, AggregateBlock(nil), ClassifyBlock(nil, tbl, 3), tbl)

	for abbr, entry := range record.Technologies {
		assert.Nil(t, entry, "technology %q should be nil for empty block", abbr)
	}
	assert.Equal(t, 3, record.Serving.ResidentialUnserved)
	assert.Equal(t, 0, record.Serving.TotalLocations)
}

func TestProperties_Flattening(t *testing.T) {
	tbl := NewTechTable(DefaultTechnologies())
	recs := []AvailabilityRecord{
		rec("b1", "Fiber", "Acme", "l1", 500),
	}
	record := Assemble("b1", 0, AggregateBlock(recs), ClassifyBlock(recs, tbl, 0), tbl)

	props := record.Properties()
	assert.Equal(t, 1, props["Total_Locations"])
	assert.Equal(t, 1, props["Residential_Served"])
	assert.Contains(t, props, "GeoSat")
	assert.Nil(t, props["GeoSat"])

	entry, ok := props["Fiber"].(*TechEntry)
	require.True(t, ok)
	assert.Equal(t, []string{"Acme"}, entry.Holders)
}

func TestAssemble_Idempotence(t *testing.T) {
	tbl := NewTechTable(DefaultTechnologies())
	recs := []AvailabilityRecord{
		rec("b1", "Fiber", "Acme", "l1", 500),
		rec("b1", "Cable", "CableCo", "l2", 80),
		rec("b1", "Fiber", "Acme", "l1", 500),
	}

	first := Assemble("b1", 5, AggregateBlock(recs), ClassifyBlock(recs, tbl, 5), tbl)
	second := Assemble("b1", 5, AggregateBlock(recs), ClassifyBlock(recs, tbl, 5), tbl)

	assert.Equal(t, first, second)
}
