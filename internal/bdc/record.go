package bdc

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// CustomerClass is the BDC business/residential code.
type CustomerClass string

// Customer classes as filed in BDC availability data.
const (
	ClassResidential CustomerClass = "R"
	ClassBusiness    CustomerClass = "B"
	ClassMixed       CustomerClass = "X" // residential and business
)

// RequiredColumns lists the availability CSV columns the pipeline needs.
// Files missing any of these are rejected during discovery.
var RequiredColumns = []string{
	"frn", "provider_id", "brand_name", "location_id", "technology",
	"max_advertised_download_speed", "max_advertised_upload_speed",
	"low_latency", "business_residential_code", "state_usps",
	"block_geoid", "h3_res8_id",
}

// AvailabilityRecord is one provider/technology/location filing row.
// Raw fields come from the BDC CSV; derived fields are attached by the
// Normalizer. Records are immutable once normalized.
type AvailabilityRecord struct {
	FRN           string
	ProviderID    string // zero-padded to 6
	BrandName     string
	LocationID    string // zero-padded to 10
	TechCode      int
	MaxDown       int
	MaxUp         int
	SpeedValid    bool // false when a speed field failed to parse
	LowLatency    bool
	CustomerClass CustomerClass
	StateUSPS     string
	BlockGeoid    string // zero-padded to 15
	H3Res8        string

	// Derived by the Normalizer.
	TechAbbr       string
	HoldingCompany string
}

// Layout maps availability CSV columns to their positions for one file.
type Layout struct {
	idx map[string]int
}

// NewLayout builds a Layout from a CSV header row. Returns an error listing
// every missing required column.
func NewLayout(header []string) (*Layout, error) {
	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[strings.ToLower(strings.TrimSpace(col))] = i
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, eris.Errorf("bdc: header missing required columns: %s", strings.Join(missing, ", "))
	}

	return &Layout{idx: idx}, nil
}

// HasColumns reports whether a header row carries every required column.
func HasColumns(header []string) bool {
	_, err := NewLayout(header)
	return err == nil
}

// ParseRecord converts one CSV row into an AvailabilityRecord. Identifier
// fields are zero-padded to their fixed widths. Malformed speed values mark
// the record SpeedValid=false (excluded from tiering, kept for counts)
// rather than dropping the row.
func (l *Layout) ParseRecord(row []string) (AvailabilityRecord, error) {
	field := func(name string) string {
		i := l.idx[name]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	geoid := field("block_geoid")
	if geoid == "" {
		return AvailabilityRecord{}, eris.New("bdc: row has empty block_geoid")
	}

	techCode, err := CanonicalTechCode(field("technology"))
	if err != nil {
		return AvailabilityRecord{}, eris.Wrapf(err, "bdc: parse technology code %q", field("technology"))
	}

	rec := AvailabilityRecord{
		FRN:           field("frn"),
		ProviderID:    CanonicalProviderID(field("provider_id")),
		BrandName:     field("brand_name"),
		LocationID:    padLeft(field("location_id"), 10),
		TechCode:      techCode,
		SpeedValid:    true,
		LowLatency:    parseFlag(field("low_latency")),
		CustomerClass: CustomerClass(strings.ToUpper(field("business_residential_code"))),
		StateUSPS:     field("state_usps"),
		BlockGeoid:    padLeft(geoid, 15),
		H3Res8:        field("h3_res8_id"),
	}

	rec.MaxDown, err = strconv.Atoi(field("max_advertised_download_speed"))
	if err != nil {
		zap.L().Warn("bdc: invalid max download speed",
			zap.String("value", field("max_advertised_download_speed")),
			zap.String("location_id", rec.LocationID),
		)
		rec.SpeedValid = false
	}

	rec.MaxUp, err = strconv.Atoi(field("max_advertised_upload_speed"))
	if err != nil {
		zap.L().Warn("bdc: invalid max upload speed",
			zap.String("value", field("max_advertised_upload_speed")),
			zap.String("location_id", rec.LocationID),
		)
		rec.SpeedValid = false
	}

	return rec, nil
}

// parseFlag interprets the low_latency column, filed as 0/1 or TRUE/FALSE.
func parseFlag(s string) bool {
	switch strings.ToUpper(s) {
	case "1", "TRUE", "T", "YES", "Y":
		return true
	default:
		return false
	}
}
