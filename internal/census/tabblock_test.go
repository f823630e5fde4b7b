package census

import (
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTabblockURL(t *testing.T) {
	assert.Equal(t,
		"https://www2.census.gov/geo/tiger/TIGER2023/TABBLOCK20/tl_2023_08_tabblock20.zip",
		TabblockURL(2023, "08"),
	)
	assert.Equal(t,
		"ftp://ftp2.census.gov/geo/tiger/TIGER2023/TABBLOCK20/tl_2023_08_tabblock20.zip",
		TabblockFTPURL(2023, "08"),
	)
}

func TestPolygonToMultiPolygon(t *testing.T) {
	poly := &shp.Polygon{
		NumParts: 1,
		Parts:    []int32{0},
		Points: []shp.Point{
			{X: -105.0, Y: 39.0},
			{X: -105.0, Y: 39.1},
			{X: -104.9, Y: 39.1},
			{X: -104.9, Y: 39.0},
			{X: -105.0, Y: 39.0},
		},
	}
	poly.NumPoints = int32(len(poly.Points))

	mp := polygonToMultiPolygon(poly)
	require.NotNil(t, mp)
	assert.Equal(t, SRID, mp.SRID())
	assert.Equal(t, 1, mp.NumPolygons())
}

func TestPolygonToMultiPolygon_MultiPart(t *testing.T) {
	square := func(x float64) []shp.Point {
		return []shp.Point{
			{X: x, Y: 0}, {X: x, Y: 1}, {X: x + 1, Y: 1}, {X: x + 1, Y: 0}, {X: x, Y: 0},
		}
	}
	points := append(square(0), square(10)...)
	poly := &shp.Polygon{
		NumParts:  2,
		Parts:     []int32{0, 5},
		NumPoints: int32(len(points)),
		Points:    points,
	}

	mp := polygonToMultiPolygon(poly)
	require.NotNil(t, mp)
	assert.Equal(t, 2, mp.NumPolygons())
}

func TestPolygonToMultiPolygon_Empty(t *testing.T) {
	assert.Nil(t, polygonToMultiPolygon(nil))
	assert.Nil(t, polygonToMultiPolygon(&shp.Polygon{}))
}

func TestBlockIndex(t *testing.T) {
	blocks := []Block{
		{GEOID: "080010001001000", Housing20: 12},
		{GEOID: "080010001001001", Housing20: 0},
	}

	idx := BlockIndex(blocks)
	require.Len(t, idx, 2)
	assert.Equal(t, 12, idx["080010001001000"].Housing20)
}

func TestAtoiSafe(t *testing.T) {
	assert.Equal(t, 42, atoiSafe("42"))
	assert.Equal(t, 0, atoiSafe(""))
	assert.Equal(t, 0, atoiSafe("n/a"))
}
