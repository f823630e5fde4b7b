package sink

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/bdc-cli/internal/states"
)

// GeoJSONSink writes one FeatureCollection file per state. Features
// without geometry are dropped from the collection; the other sinks keep
// them.
type GeoJSONSink struct {
	Dir string
}

func NewGeoJSON(dir string) *GeoJSONSink { return &GeoJSONSink{Dir: dir} }

func (s *GeoJSONSink) Name() string { return "geojson" }

func (s *GeoJSONSink) Write(ctx context.Context, st states.State, features []Feature) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return eris.Wrap(err, "geojson: create output dir")
	}

	fc := geojson.FeatureCollection{}
	for _, f := range features {
		if ctx.Err() != nil {
			return eris.Wrap(ctx.Err(), "geojson: cancelled")
		}
		if f.Geometry == nil {
			continue
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         f.Record.BlockGeoid,
			Geometry:   f.Geometry,
			Properties: f.Record.Properties(),
		})
	}

	path := filepath.Join(s.Dir, st.DirName()+".geojson")
	data, err := json.Marshal(&fc)
	if err != nil {
		return eris.Wrapf(err, "geojson: marshal %s", st.Abbr)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "geojson: write %s", path)
	}

	zap.L().Info("geojson written",
		zap.String("state", st.Abbr),
		zap.String("path", path),
		zap.Int("features", len(fc.Features)),
	)
	return nil
}
