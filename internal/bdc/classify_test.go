package bdc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func classifyRec(abbr string, code int, loc string, down int, class CustomerClass, opts ...func(*AvailabilityRecord)) AvailabilityRecord {
	r := rec("b1", abbr, "Acme", loc, down)
	r.TechCode = code
	r.CustomerClass = class
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

func TestClassifyBlock_HousingReconciliation(t *testing.T) {
	// housing20=10, one residential location at 50 Mbps, one at 10 Mbps:
	// raw tiers are unserved=1, underserved=1, served=0; the sum (2) is
	// below housing20, so unserved becomes 10-1-0=9.
	tbl := NewTechTable(DefaultTechnologies())
	counts := ClassifyBlock([]AvailabilityRecord{
		classifyRec("Fiber", 50, "l1", 50, ClassResidential),
		classifyRec("Fiber", 50, "l2", 10, ClassResidential),
	}, tbl, 10)

	assert.Equal(t, 9, counts.ResidentialUnserved)
	assert.Equal(t, 1, counts.ResidentialUnderserved)
	assert.Equal(t, 0, counts.ResidentialServed)
	assert.Equal(t, 2, counts.TotalLocations)
}

func TestClassifyBlock_NegativeUnservedNotClamped(t *testing.T) {
	// Underserved+served alone exceed housing20: the reconciled unserved
	// count goes negative and stays negative.
	tbl := NewTechTable(DefaultTechnologies())
	counts := ClassifyBlock([]AvailabilityRecord{
		classifyRec("Fiber", 50, "l1", 50, ClassResidential),
		classifyRec("Fiber", 50, "l2", 60, ClassResidential),
		classifyRec("Fiber", 50, "l3", 200, ClassResidential),
	}, tbl, 1)

	assert.Equal(t, -2, counts.ResidentialUnserved)
	assert.Equal(t, 2, counts.ResidentialUnderserved)
	assert.Equal(t, 1, counts.ResidentialServed)
}

func TestClassifyBlock_NonCountingTechnology(t *testing.T) {
	// An unknown technology code resolves to Unknown/false: the location
	// is excluded from tiering but still counted in TotalLocations.
	tbl := NewTechTable(DefaultTechnologies())
	counts := ClassifyBlock([]AvailabilityRecord{
		classifyRec(UnknownSentinel, 999, "l1", 500, ClassResidential),
	}, tbl, 0)

	assert.Equal(t, 1, counts.TotalLocations)
	assert.Equal(t, 0, counts.ResidentialServed)
	assert.Equal(t, 0, counts.ResidentialUnserved)
}

func TestClassifyBlock_SatelliteExcluded(t *testing.T) {
	tbl := NewTechTable(DefaultTechnologies())
	counts := ClassifyBlock([]AvailabilityRecord{
		classifyRec("GeoSat", 60, "l1", 150, ClassResidential),
		classifyRec("Fiber", 50, "l1", 30, ClassResidential),
	}, tbl, 0)

	// The satellite speed is ignored; fiber at 30 puts the location in
	// the underserved tier.
	assert.Equal(t, 1, counts.ResidentialUnderserved)
	assert.Equal(t, 0, counts.ResidentialServed)
	assert.Equal(t, 1, counts.TotalLocations)
}

func TestClassifyBlock_BestSpeedAcrossProviders(t *testing.T) {
	tbl := NewTechTable(DefaultTechnologies())
	counts := ClassifyBlock([]AvailabilityRecord{
		classifyRec("Copper", 10, "l1", 15, ClassResidential),
		classifyRec("Fiber", 50, "l1", 940, ClassResidential),
	}, tbl, 0)

	assert.Equal(t, 1, counts.ResidentialServed)
	assert.Equal(t, 0, counts.ResidentialUnserved)
}

func TestClassifyBlock_ClassPartitions(t *testing.T) {
	tbl := NewTechTable(DefaultTechnologies())
	counts := ClassifyBlock([]AvailabilityRecord{
		classifyRec("Fiber", 50, "l1", 10, ClassResidential),
		classifyRec("Fiber", 50, "l2", 50, ClassMixed),
		classifyRec("Fiber", 50, "l3", 150, ClassBusiness),
	}, tbl, 0)

	assert.Equal(t, 1, counts.ResidentialUnserved)
	assert.Equal(t, 1, counts.MixedUnderserved)
	assert.Equal(t, 1, counts.BusinessServed)

	// Partition disjointness: each location lands in exactly one class.
	total := counts.ResidentialUnserved + counts.ResidentialUnderserved + counts.ResidentialServed +
		counts.MixedUnserved + counts.MixedUnderserved + counts.MixedServed +
		counts.BusinessUnserved + counts.BusinessUnderserved + counts.BusinessServed
	assert.Equal(t, 3, total)
}

func TestClassifyBlock_ClassDisagreementFirstSeenWins(t *testing.T) {
	tbl := NewTechTable(DefaultTechnologies())
	counts := ClassifyBlock([]AvailabilityRecord{
		classifyRec("Fiber", 50, "l1", 200, ClassBusiness),
		classifyRec("Cable", 40, "l1", 300, ClassResidential),
	}, tbl, 0)

	assert.Equal(t, 1, counts.BusinessServed)
	assert.Equal(t, 0, counts.ResidentialServed)
}

func TestClassifyBlock_TierBoundaries(t *testing.T) {
	tbl := NewTechTable(DefaultTechnologies())
	counts := ClassifyBlock([]AvailabilityRecord{
		classifyRec("Fiber", 50, "l1", 24, ClassResidential),
		classifyRec("Fiber", 50, "l2", 25, ClassResidential),
		classifyRec("Fiber", 50, "l3", 99, ClassResidential),
		classifyRec("Fiber", 50, "l4", 100, ClassResidential),
	}, tbl, 0)

	assert.Equal(t, 1, counts.ResidentialUnserved)
	assert.Equal(t, 2, counts.ResidentialUnderserved)
	assert.Equal(t, 1, counts.ResidentialServed)
}

func TestClassifyBlock_MalformedSpeedExcludedFromTiering(t *testing.T) {
	tbl := NewTechTable(DefaultTechnologies())
	counts := ClassifyBlock([]AvailabilityRecord{
		classifyRec("Fiber", 50, "l1", 0, ClassResidential, func(r *AvailabilityRecord) { r.SpeedValid = false }),
	}, tbl, 0)

	assert.Equal(t, 1, counts.TotalLocations)
	assert.Equal(t, 0, counts.ResidentialUnserved+counts.ResidentialUnderserved+counts.ResidentialServed)
}

func TestClassifyBlock_EmptyBlockStillReconciles(t *testing.T) {
	tbl := NewTechTable(DefaultTechnologies())
	counts := ClassifyBlock(nil, tbl, 7)

	assert.Equal(t, 7, counts.ResidentialUnserved)
	assert.Equal(t, 0, counts.TotalLocations)
}

func TestClassifyBlock_CountConsistencyProperty(t *testing.T) {
	tbl := NewTechTable(DefaultTechnologies())
	for housing := 0; housing <= 12; housing += 3 {
		counts := ClassifyBlock([]AvailabilityRecord{
			classifyRec("Fiber", 50, "l1", 10, ClassResidential),
			classifyRec("Fiber", 50, "l2", 500, ClassResidential),
		}, tbl, housing)

		sum := counts.ResidentialUnserved + counts.ResidentialUnderserved + counts.ResidentialServed
		assert.GreaterOrEqual(t, sum, housing, "housing20=%d", housing)
	}
}
