// Package census reads Census TIGER/Line tabblock20 shapefiles into block
// records carrying housing counts and geometry.
package census

import (
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
)

// SRID is the spatial reference of TIGER/Line data (NAD83).
const SRID = 4269

// Block is one census block from a tabblock20 shapefile. Geometry is
// carried opaquely through the pipeline and only touched by the sinks.
type Block struct {
	GEOID     string
	Name      string // NAMELSAD20, e.g. "Block 2002"
	Housing20 int
	Pop20     int
	ALand     int64
	AWater    int64
	Geometry  *geom.MultiPolygon
}

// ReadTabblock reads a tl_*_tabblock20 shapefile and returns its blocks.
// Blocks with unreadable geometry are kept with nil geometry and counted
// in the debug log; attribute text is decoded from the DBF's Latin-1.
func ReadTabblock(shpPath string) ([]Block, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "census: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToUpper(name)] = i
	}

	for _, required := range []string{"GEOID20", "HOUSING20"} {
		if _, ok := fieldIdx[required]; !ok {
			return nil, eris.Errorf("census: shapefile %s missing %s field", shpPath, required)
		}
	}

	attr := func(name string) string {
		idx, ok := fieldIdx[name]
		if !ok {
			return ""
		}
		raw := strings.TrimRight(reader.Attribute(idx), "\x00")
		decoded, decErr := charmap.ISO8859_1.NewDecoder().String(raw)
		if decErr != nil {
			return strings.TrimSpace(raw)
		}
		return strings.TrimSpace(decoded)
	}

	var blocks []Block
	var badGeom int

	for reader.Next() {
		_, shape := reader.Shape()

		b := Block{
			GEOID:     attr("GEOID20"),
			Name:      attr("NAMELSAD20"),
			Housing20: atoiSafe(attr("HOUSING20")),
			Pop20:     atoiSafe(attr("POP20")),
			ALand:     atoi64Safe(attr("ALAND20")),
			AWater:    atoi64Safe(attr("AWATER20")),
		}

		if b.GEOID == "" {
			continue
		}

		if poly, ok := shape.(*shp.Polygon); ok {
			b.Geometry = polygonToMultiPolygon(poly)
		}
		if b.Geometry == nil {
			badGeom++
		}

		blocks = append(blocks, b)
	}

	if badGeom > 0 {
		zap.L().Debug("census: blocks with unreadable geometry",
			zap.String("shapefile", shpPath),
			zap.Int("count", badGeom),
		)
	}

	return blocks, nil
}

// BlockIndex maps GEOID to its block for join lookups.
func BlockIndex(blocks []Block) map[string]*Block {
	idx := make(map[string]*Block, len(blocks))
	for i := range blocks {
		idx[blocks[i].GEOID] = &blocks[i]
	}
	return idx
}

// polygonToMultiPolygon converts a shapefile Polygon to a go-geom
// MultiPolygon in NAD83. Shapefile polygons interleave outer rings and
// holes in one part list; each part becomes its own single-ring polygon,
// which is how the original outputs carried them.
func polygonToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(SRID)

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("census: skipping malformed polygon ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("census: skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

func atoiSafe(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func atoi64Safe(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
