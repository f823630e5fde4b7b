package bdc

// TechEntry aggregates one technology's providers within a census block.
// All slices are index-aligned with Holders; a holding company appears at
// most once per technology per block.
type TechEntry struct {
	Holders       []string        `json:"holding_company"`
	Locations     []int           `json:"locations"`
	ProviderIDs   []string        `json:"provider_id"`
	BrandNames    []string        `json:"brand_name"`
	TechCode      int             `json:"technology"`
	TechAbbr      string          `json:"technology_description"`
	MaxDown       []int           `json:"max_advertised_download_speed"`
	MaxUp         []int           `json:"max_advertised_upload_speed"`
	LowLatency    []bool          `json:"low_latency"`
	CustomerClass []CustomerClass `json:"business_residential_code"`
}

// BlockAggregate maps technology abbreviation to its aggregated entry for
// one block. Absent technologies are simply missing; the Assembler fills
// them with nil entries on output.
type BlockAggregate map[string]*TechEntry

// grainKey is the finest aggregation grain: duplicate filings for the same
// tuple collapse into one logical location record.
type grainKey struct {
	abbr   string
	holder string
	loc    string
}

// grain is the collapsed view of all filings for a grainKey.
type grain struct {
	rec AvailabilityRecord
}

// GroupByBlock partitions normalized records by block geoid, preserving
// input order within each block. The returned geoid slice is in first-seen
// order.
func GroupByBlock(recs []AvailabilityRecord) (map[string][]AvailabilityRecord, []string) {
	byBlock := make(map[string][]AvailabilityRecord)
	var order []string
	for _, rec := range recs {
		if _, ok := byBlock[rec.BlockGeoid]; !ok {
			order = append(order, rec.BlockGeoid)
		}
		byBlock[rec.BlockGeoid] = append(byBlock[rec.BlockGeoid], rec)
	}
	return byBlock, order
}

// AggregateBlock builds the per-technology holder aggregation for one
// block's normalized records. It is a pure function of its input.
//
// Duplicate rows at the (technology, holder, location) grain collapse by
// taking max download, max upload, and OR of low latency. Holders enter a
// technology entry exactly once, in first-seen order; their location count
// is the number of distinct location IDs seen for that holder and
// technology.
func AggregateBlock(recs []AvailabilityRecord) BlockAggregate {
	grains := make(map[grainKey]*grain)
	var grainOrder []grainKey

	for _, rec := range recs {
		key := grainKey{abbr: rec.TechAbbr, holder: rec.HoldingCompany, loc: rec.LocationID}
		g, ok := grains[key]
		if !ok {
			grains[key] = &grain{rec: rec}
			grainOrder = append(grainOrder, key)
			continue
		}
		// Collapse duplicate filings for the same grain.
		if rec.SpeedValid {
			if !g.rec.SpeedValid {
				g.rec.MaxDown, g.rec.MaxUp = rec.MaxDown, rec.MaxUp
				g.rec.SpeedValid = true
			} else {
				if rec.MaxDown > g.rec.MaxDown {
					g.rec.MaxDown = rec.MaxDown
				}
				if rec.MaxUp > g.rec.MaxUp {
					g.rec.MaxUp = rec.MaxUp
				}
			}
		}
		g.rec.LowLatency = g.rec.LowLatency || rec.LowLatency
	}

	agg := make(BlockAggregate)
	for _, key := range grainOrder {
		rec := grains[key].rec

		entry, ok := agg[key.abbr]
		if !ok {
			entry = &TechEntry{TechCode: rec.TechCode, TechAbbr: rec.TechAbbr}
			agg[key.abbr] = entry
		}

		idx := holderIndex(entry.Holders, key.holder)
		if idx < 0 {
			entry.Holders = append(entry.Holders, key.holder)
			entry.Locations = append(entry.Locations, 0)
			entry.ProviderIDs = append(entry.ProviderIDs, rec.ProviderID)
			entry.BrandNames = append(entry.BrandNames, rec.BrandName)
			entry.MaxDown = append(entry.MaxDown, rec.MaxDown)
			entry.MaxUp = append(entry.MaxUp, rec.MaxUp)
			entry.LowLatency = append(entry.LowLatency, rec.LowLatency)
			entry.CustomerClass = append(entry.CustomerClass, rec.CustomerClass)
			idx = len(entry.Holders) - 1
		}
		// One grain per distinct (holder, location).
		entry.Locations[idx]++
	}

	return agg
}

// holderIndex returns the index of holder in holders, or -1. Holder lists
// are small (a handful of providers per block), so linear scan beats a map.
func holderIndex(holders []string, holder string) int {
	for i, h := range holders {
		if h == holder {
			return i
		}
	}
	return -1
}
