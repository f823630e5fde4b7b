package bdc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testHeader = []string{
	"frn", "provider_id", "brand_name", "location_id", "technology",
	"max_advertised_download_speed", "max_advertised_upload_speed",
	"low_latency", "business_residential_code", "state_usps",
	"block_geoid", "h3_res8_id",
}

func testRow(overrides map[string]string) []string {
	row := map[string]string{
		"frn":                           "0001234567",
		"provider_id":                   "130077",
		"brand_name":                    "ExampleNet",
		"location_id":                   "123456789",
		"technology":                    "50",
		"max_advertised_download_speed": "940",
		"max_advertised_upload_speed":   "880",
		"low_latency":                   "1",
		"business_residential_code":     "R",
		"state_usps":                    "CO",
		"block_geoid":                   "80013007052002",
		"h3_res8_id":                    "8828308281fffff",
	}
	for k, v := range overrides {
		row[k] = v
	}
	out := make([]string, len(testHeader))
	for i, col := range testHeader {
		out[i] = row[col]
	}
	return out
}

func TestNewLayout_MissingColumns(t *testing.T) {
	_, err := NewLayout([]string{"frn", "provider_id"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "block_geoid")
}

func TestHasColumns(t *testing.T) {
	assert.True(t, HasColumns(testHeader))
	assert.False(t, HasColumns(testHeader[:5]))
}

func TestParseRecord_ZeroPadding(t *testing.T) {
	layout, err := NewLayout(testHeader)
	require.NoError(t, err)

	rec, err := layout.ParseRecord(testRow(nil))
	require.NoError(t, err)

	assert.Equal(t, "080013007052002", rec.BlockGeoid)
	assert.Len(t, rec.BlockGeoid, 15)
	assert.Equal(t, "0123456789", rec.LocationID)
	assert.Equal(t, "130077", rec.ProviderID)
	assert.Equal(t, 50, rec.TechCode)
	assert.Equal(t, 940, rec.MaxDown)
	assert.True(t, rec.SpeedValid)
	assert.True(t, rec.LowLatency)
	assert.Equal(t, ClassResidential, rec.CustomerClass)
}

func TestParseRecord_MalformedSpeed(t *testing.T) {
	layout, err := NewLayout(testHeader)
	require.NoError(t, err)

	rec, err := layout.ParseRecord(testRow(map[string]string{
		"max_advertised_download_speed": "n/a",
	}))
	require.NoError(t, err)
	assert.False(t, rec.SpeedValid)
}

func TestParseRecord_EmptyGeoid(t *testing.T) {
	layout, err := NewLayout(testHeader)
	require.NoError(t, err)

	_, err = layout.ParseRecord(testRow(map[string]string{"block_geoid": ""}))
	assert.Error(t, err)
}

func TestParseRecord_BadTechCode(t *testing.T) {
	layout, err := NewLayout(testHeader)
	require.NoError(t, err)

	_, err = layout.ParseRecord(testRow(map[string]string{"technology": "fiber"}))
	assert.Error(t, err)
}

func TestParseFlag(t *testing.T) {
	assert.True(t, parseFlag("1"))
	assert.True(t, parseFlag("TRUE"))
	assert.False(t, parseFlag("0"))
	assert.False(t, parseFlag(""))
}
