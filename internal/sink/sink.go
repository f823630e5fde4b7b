// Package sink writes assembled block availability records to their output
// formats: GeoJSON, GeoPackage, legacy CSV, and Postgres.
package sink

import (
	"context"

	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/bdc-cli/internal/bdc"
	"github.com/sells-group/bdc-cli/internal/census"
	"github.com/sells-group/bdc-cli/internal/states"
)

// Feature pairs an assembled block record with its tabblock geometry.
// Geometry is nil when the block GEOID has no match in the shapefile.
type Feature struct {
	Record   bdc.BlockRecord
	Geometry *geom.MultiPolygon
}

// Sink writes one state's worth of features.
type Sink interface {
	Name() string
	Write(ctx context.Context, st states.State, features []Feature) error
}

// BuildFeatures joins block records against the tabblock index, preserving
// record order. Records without a matching block keep a nil geometry; the
// mismatch count is logged once per state.
func BuildFeatures(st states.State, records []bdc.BlockRecord, index map[string]*census.Block) []Feature {
	features := make([]Feature, 0, len(records))
	missing := 0
	for _, rec := range records {
		f := Feature{Record: rec}
		if blk, ok := index[rec.BlockGeoid]; ok {
			f.Geometry = blk.Geometry
		} else {
			missing++
		}
		features = append(features, f)
	}
	if missing > 0 {
		zap.L().Warn("sink: blocks without tabblock geometry",
			zap.String("state", st.Abbr),
			zap.Int("missing", missing),
			zap.Int("total", len(records)),
		)
	}
	return features
}
