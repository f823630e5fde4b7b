package bdc

// Speed thresholds in Mbps. A location's tier comes from its best available
// download speed: unserved below 25, underserved 25 through 99, served at
// 100 and above.
const (
	UnservedBelow = 25
	ServedAtLeast = 100
)

// ServingCounts holds the per-customer-class serving tiers and the distinct
// location count for one census block. JSON tags match the attribute names
// in the published GeoJSON/GeoPackage outputs.
type ServingCounts struct {
	ResidentialUnserved    int `json:"Residential_Unserved"`
	ResidentialUnderserved int `json:"Residential_Underserved"`
	ResidentialServed      int `json:"Residential_Served"`

	MixedUnserved    int `json:"Residential_and_Business_Unserved"`
	MixedUnderserved int `json:"Residential_and_Business_Underserved"`
	MixedServed      int `json:"Residential_and_Business_Served"`

	BusinessUnserved    int `json:"Business_Unserved"`
	BusinessUnderserved int `json:"Business_Underserved"`
	BusinessServed      int `json:"Business_Served"`

	// TotalLocations counts distinct location IDs across all technologies,
	// classifying or not.
	TotalLocations int `json:"Total_Locations"`
}

// ClassifyBlock computes serving tiers for one block from its normalized
// records and the block's authoritative housing-unit count. It is a pure
// function of its input.
//
// Only technologies whose CountsTowardServing flag is set contribute to
// tiering; everything contributes to TotalLocations. A location served by
// several providers or technologies is tiered by its best download speed.
// When records disagree on a location's customer class, the first-seen
// class wins.
//
// Residential counts are reconciled against housing20: housing units not
// counted as underserved or served are assumed unserved, so the unserved
// count is raised to housing20 minus the other two tiers whenever the
// three tiers sum below housing20. The result is deliberately not clamped
// at zero.
func ClassifyBlock(recs []AvailabilityRecord, techs *TechTable, housing20 int) ServingCounts {
	var counts ServingCounts

	seen := make(map[string]bool)
	best := make(map[string]int)
	class := make(map[string]CustomerClass)

	for _, rec := range recs {
		if !seen[rec.LocationID] {
			seen[rec.LocationID] = true
			counts.TotalLocations++
		}

		if !techs.Resolve(rec.TechCode).CountsTowardServing {
			continue
		}
		if !rec.SpeedValid {
			// Malformed speeds stay out of tiering but keep their
			// location in TotalLocations.
			continue
		}

		if cur, ok := best[rec.LocationID]; !ok || rec.MaxDown > cur {
			best[rec.LocationID] = rec.MaxDown
		}
		if _, ok := class[rec.LocationID]; !ok {
			class[rec.LocationID] = rec.CustomerClass
		}
	}

	for loc, speed := range best {
		var unserved, underserved, served *int
		switch class[loc] {
		case ClassResidential:
			unserved, underserved, served = &counts.ResidentialUnserved, &counts.ResidentialUnderserved, &counts.ResidentialServed
		case ClassMixed:
			unserved, underserved, served = &counts.MixedUnserved, &counts.MixedUnderserved, &counts.MixedServed
		case ClassBusiness:
			unserved, underserved, served = &counts.BusinessUnserved, &counts.BusinessUnderserved, &counts.BusinessServed
		default:
			continue
		}

		switch {
		case speed < UnservedBelow:
			*unserved++
		case speed < ServedAtLeast:
			*underserved++
		default:
			*served++
		}
	}

	if counts.ResidentialUnserved+counts.ResidentialUnderserved+counts.ResidentialServed < housing20 {
		counts.ResidentialUnserved = housing20 - counts.ResidentialUnderserved - counts.ResidentialServed
	}

	return counts
}
