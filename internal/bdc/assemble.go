package bdc

// BlockRecord is the assembled output for one census block: the technology
// map with every known abbreviation present, the serving counts, and the
// block identity. Geometry is carried separately by the sinks.
type BlockRecord struct {
	BlockGeoid   string
	Housing20    int
	Technologies map[string]*TechEntry // nil entry when the block has no coverage for that technology
	Serving      ServingCounts
}

// Assemble merges a block's aggregate and serving counts into its final
// record. Every abbreviation known to the technology table appears as a
// key; technologies absent from the block get a nil entry. Deterministic
// and total: blocks with no availability records get an all-nil technology
// map and zero counts (subject to the housing reconciliation already
// applied by ClassifyBlock).
func Assemble(geoid string, housing20 int, agg BlockAggregate, counts ServingCounts, techs *TechTable) BlockRecord {
	techMap := make(map[string]*TechEntry, len(techs.Abbrs()))
	for _, abbr := range techs.Abbrs() {
		techMap[abbr] = nil
	}
	for abbr, entry := range agg {
		techMap[abbr] = entry
	}

	return BlockRecord{
		BlockGeoid:   geoid,
		Housing20:    housing20,
		Technologies: techMap,
		Serving:      counts,
	}
}

// Properties flattens the record into GeoJSON feature properties, one key
// per technology abbreviation plus the named count attributes.
func (r BlockRecord) Properties() map[string]any {
	props := make(map[string]any, len(r.Technologies)+11)
	for abbr, entry := range r.Technologies {
		if entry == nil {
			props[abbr] = nil
		} else {
			props[abbr] = entry
		}
	}
	props["Total_Locations"] = r.Serving.TotalLocations
	props["Residential_Unserved"] = r.Serving.ResidentialUnserved
	props["Residential_Underserved"] = r.Serving.ResidentialUnderserved
	props["Residential_Served"] = r.Serving.ResidentialServed
	props["Residential_and_Business_Unserved"] = r.Serving.MixedUnserved
	props["Residential_and_Business_Underserved"] = r.Serving.MixedUnderserved
	props["Residential_and_Business_Served"] = r.Serving.MixedServed
	props["Business_Unserved"] = r.Serving.BusinessUnserved
	props["Business_Underserved"] = r.Serving.BusinessUnderserved
	props["Business_Served"] = r.Serving.BusinessServed
	return props
}
