package bdc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rec builds a normalized record with sensible defaults for aggregation tests.
func rec(geoid, abbr, holder, loc string, down int, opts ...func(*AvailabilityRecord)) AvailabilityRecord {
	r := AvailabilityRecord{
		BlockGeoid:     geoid,
		TechAbbr:       abbr,
		TechCode:       50,
		HoldingCompany: holder,
		ProviderID:     "000001",
		BrandName:      holder,
		LocationID:     loc,
		MaxDown:        down,
		MaxUp:          down / 10,
		SpeedValid:     true,
		CustomerClass:  ClassResidential,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

func TestGroupByBlock(t *testing.T) {
	recs := []AvailabilityRecord{
		rec("b1", "Fiber", "A", "l1", 100),
		rec("b2", "Fiber", "A", "l2", 100),
		rec("b1", "Cable", "B", "l3", 100),
	}

	byBlock, order := GroupByBlock(recs)
	assert.Equal(t, []string{"b1", "b2"}, order)
	assert.Len(t, byBlock["b1"], 2)
	assert.Len(t, byBlock["b2"], 1)
}

func TestAggregateBlock_HolderAppearsOnce(t *testing.T) {
	// Same holder files two records for the same technology with
	// different location IDs: one holder entry, location count 2.
	agg := AggregateBlock([]AvailabilityRecord{
		rec("b1", "Fiber", "Acme Fiber", "l1", 500),
		rec("b1", "Fiber", "Acme Fiber", "l2", 300),
	})

	entry := agg["Fiber"]
	require.NotNil(t, entry)
	assert.Equal(t, []string{"Acme Fiber"}, entry.Holders)
	assert.Equal(t, []int{2}, entry.Locations)
	// Parallel arrays stay index-aligned with the holder list.
	assert.Len(t, entry.MaxDown, 1)
	assert.Len(t, entry.BrandNames, 1)
	assert.Len(t, entry.CustomerClass, 1)
}

func TestAggregateBlock_DuplicateGrainCollapses(t *testing.T) {
	// Two filings for the same (tech, holder, location) tuple collapse by
	// max speed and OR of low latency, and count as one location.
	agg := AggregateBlock([]AvailabilityRecord{
		rec("b1", "Cable", "CableCo", "l1", 100, func(r *AvailabilityRecord) { r.LowLatency = false }),
		rec("b1", "Cable", "CableCo", "l1", 300, func(r *AvailabilityRecord) { r.LowLatency = true }),
	})

	entry := agg["Cable"]
	require.NotNil(t, entry)
	assert.Equal(t, []int{1}, entry.Locations)
	assert.Equal(t, []int{300}, entry.MaxDown)
	assert.Equal(t, []bool{true}, entry.LowLatency)
}

func TestAggregateBlock_FirstSeenHolderOrder(t *testing.T) {
	agg := AggregateBlock([]AvailabilityRecord{
		rec("b1", "Fiber", "Second Seen", "l1", 100),
		rec("b1", "Fiber", "First By Name", "l2", 100),
		rec("b1", "Fiber", "Second Seen", "l3", 100),
	})

	entry := agg["Fiber"]
	require.NotNil(t, entry)
	assert.Equal(t, []string{"Second Seen", "First By Name"}, entry.Holders)
	assert.Equal(t, []int{2, 1}, entry.Locations)
}

func TestAggregateBlock_SplitsByTechnology(t *testing.T) {
	agg := AggregateBlock([]AvailabilityRecord{
		rec("b1", "Fiber", "Acme", "l1", 500),
		rec("b1", "Cable", "Acme", "l1", 200),
	})

	require.Len(t, agg, 2)
	assert.Equal(t, []string{"Acme"}, agg["Fiber"].Holders)
	assert.Equal(t, []string{"Acme"}, agg["Cable"].Holders)
}

func TestAggregateBlock_InvalidSpeedThenValid(t *testing.T) {
	// A malformed-speed filing followed by a valid one for the same grain
	// ends up with the valid speed.
	agg := AggregateBlock([]AvailabilityRecord{
		rec("b1", "Fiber", "Acme", "l1", 0, func(r *AvailabilityRecord) { r.SpeedValid = false }),
		rec("b1", "Fiber", "Acme", "l1", 250),
	})

	entry := agg["Fiber"]
	require.NotNil(t, entry)
	assert.Equal(t, []int{250}, entry.MaxDown)
}

func TestAggregateBlock_HolderUniquenessProperty(t *testing.T) {
	recs := []AvailabilityRecord{
		rec("b1", "Fiber", "A", "l1", 100),
		rec("b1", "Fiber", "B", "l2", 100),
		rec("b1", "Fiber", "A", "l3", 100),
		rec("b1", "Cable", "A", "l1", 100),
		rec("b1", "Cable", "A", "l1", 120),
	}

	for _, entry := range AggregateBlock(recs) {
		seen := make(map[string]bool)
		for _, h := range entry.Holders {
			assert.False(t, seen[h], "holder %q appears twice", h)
			seen[h] = true
		}
	}
}
