package bdc

// Normalizer attaches reference data to raw availability records. It holds
// only read-only lookup tables and is safe for concurrent use.
type Normalizer struct {
	techs     *TechTable
	providers *ProviderTable
}

// NewNormalizer creates a Normalizer over the given lookup tables.
func NewNormalizer(techs *TechTable, providers *ProviderTable) *Normalizer {
	return &Normalizer{techs: techs, providers: providers}
}

// Normalize resolves the technology abbreviation and holding company for a
// record. Unresolved codes and provider IDs are warn-logged by the tables
// and replaced with the Unknown sentinel; the record is never dropped.
func (n *Normalizer) Normalize(rec AvailabilityRecord) AvailabilityRecord {
	rec.TechAbbr = n.techs.Resolve(rec.TechCode).Abbr
	rec.HoldingCompany = n.providers.Resolve(rec.ProviderID)
	return rec
}

// NormalizeAll normalizes a batch of records in place order.
func (n *Normalizer) NormalizeAll(recs []AvailabilityRecord) []AvailabilityRecord {
	out := make([]AvailabilityRecord, len(recs))
	for i, rec := range recs {
		out[i] = n.Normalize(rec)
	}
	return out
}

// Techs exposes the technology table for downstream classification.
func (n *Normalizer) Techs() *TechTable { return n.techs }
