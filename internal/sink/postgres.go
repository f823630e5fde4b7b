package sink

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/wkb"
	"go.uber.org/zap"

	"github.com/sells-group/bdc-cli/internal/db"
	"github.com/sells-group/bdc-cli/internal/states"
)

const (
	pgSchema = "bdc"
	pgTable  = "block_availability"
)

var pgColumns = []string{
	"block_geoid", "state_fips", "housing20", "technologies",
	"total_locations",
	"res_unserved", "res_underserved", "res_served",
	"mixed_unserved", "mixed_underserved", "mixed_served",
	"bus_unserved", "bus_underserved", "bus_served",
	"geom",
}

// PostgresSink loads block records into bdc.block_availability. The
// technology map goes in as JSONB and the geometry as EWKB-compatible WKB
// bytes, so a PostGIS column can be populated from it downstream.
//
// The default mode upserts on block_geoid so re-runs converge. Replace mode
// truncates the table once per run and loads each state with plain COPY,
// for full refreshes where the upsert bookkeeping is wasted work.
type PostgresSink struct {
	pool    db.Pool
	replace bool

	truncOnce sync.Once
	truncErr  error
}

func NewPostgres(pool db.Pool, replace bool) *PostgresSink {
	return &PostgresSink{pool: pool, replace: replace}
}

func (s *PostgresSink) Name() string { return "postgres" }

// EnsureSchema creates the target schema and table when absent.
func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE SCHEMA IF NOT EXISTS bdc`,
		`CREATE TABLE IF NOT EXISTS bdc.block_availability (
			block_geoid TEXT PRIMARY KEY,
			state_fips TEXT NOT NULL,
			housing20 BIGINT NOT NULL,
			technologies JSONB NOT NULL,
			total_locations BIGINT NOT NULL,
			res_unserved BIGINT NOT NULL,
			res_underserved BIGINT NOT NULL,
			res_served BIGINT NOT NULL,
			mixed_unserved BIGINT NOT NULL,
			mixed_underserved BIGINT NOT NULL,
			mixed_served BIGINT NOT NULL,
			bus_unserved BIGINT NOT NULL,
			bus_underserved BIGINT NOT NULL,
			bus_served BIGINT NOT NULL,
			geom BYTEA
		)`,
		`CREATE INDEX IF NOT EXISTS idx_block_availability_state ON bdc.block_availability(state_fips)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return eris.Wrap(err, "postgres sink: ensure schema")
		}
	}
	return nil
}

func (s *PostgresSink) Write(ctx context.Context, st states.State, features []Feature) error {
	rows := make([][]any, 0, len(features))
	for _, f := range features {
		row, err := pgRow(st, f)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	var n int64
	var err error
	if s.replace {
		s.truncOnce.Do(func() {
			s.truncErr = db.TruncateTable(ctx, s.pool, pgSchema, pgTable)
		})
		if s.truncErr != nil {
			return eris.Wrap(s.truncErr, "postgres sink: truncate for replace")
		}
		n, err = db.CopyFrom(ctx, s.pool, pgSchema, pgTable, pgColumns, rows, 0)
	} else {
		n, err = db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
			Table:        pgSchema + "." + pgTable,
			Columns:      pgColumns,
			ConflictKeys: []string{"block_geoid"},
		}, rows)
	}
	if err != nil {
		return eris.Wrapf(err, "postgres sink: load %s", st.Abbr)
	}

	zap.L().Info("postgres loaded",
		zap.String("state", st.Abbr),
		zap.Int64("rows", n),
	)
	return nil
}

func pgRow(st states.State, f Feature) ([]any, error) {
	techJSON, err := json.Marshal(f.Record.Technologies)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres sink: marshal technologies for %s", f.Record.BlockGeoid)
	}

	var geomBytes []byte
	if f.Geometry != nil {
		geomBytes, err = wkb.Marshal(f.Geometry, wkb.NDR)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres sink: encode geometry for %s", f.Record.BlockGeoid)
		}
	}

	c := f.Record.Serving
	return []any{
		f.Record.BlockGeoid, st.FIPS, f.Record.Housing20, string(techJSON),
		c.TotalLocations,
		c.ResidentialUnserved, c.ResidentialUnderserved, c.ResidentialServed,
		c.MixedUnserved, c.MixedUnderserved, c.MixedServed,
		c.BusinessUnserved, c.BusinessUnderserved, c.BusinessServed,
		geomBytes,
	}, nil
}
