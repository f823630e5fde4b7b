package sink

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sells-group/bdc-cli/internal/census"
	"github.com/sells-group/bdc-cli/internal/states"
)

const gpkgLayer = "block_availability"

// GPKGSink writes one GeoPackage file per state with a single feature
// layer. The container is written directly over SQLite, so no GDAL
// runtime is needed.
type GPKGSink struct {
	Dir string
}

func NewGPKG(dir string) *GPKGSink { return &GPKGSink{Dir: dir} }

func (s *GPKGSink) Name() string { return "gpkg" }

func (s *GPKGSink) Write(ctx context.Context, st states.State, features []Feature) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return eris.Wrap(err, "gpkg: create output dir")
	}

	path := filepath.Join(s.Dir, st.DirName()+".gpkg")
	// GeoPackage files are whole-run artifacts; stale ones are replaced.
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return eris.Wrapf(err, "gpkg: remove stale %s", path)
	}

	dbc, err := sql.Open("sqlite", path)
	if err != nil {
		return eris.Wrap(err, "gpkg: open")
	}
	defer dbc.Close() //nolint:errcheck

	if err := initGeoPackage(ctx, dbc); err != nil {
		return err
	}

	techAbbrs := techColumns(features)
	if err := createLayer(ctx, dbc, techAbbrs); err != nil {
		return err
	}

	tx, err := dbc.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "gpkg: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, insertSQL(techAbbrs))
	if err != nil {
		return eris.Wrap(err, "gpkg: prepare insert")
	}
	defer stmt.Close() //nolint:errcheck

	bounds := geom.NewBounds(geom.XY)
	written := 0
	for _, f := range features {
		if ctx.Err() != nil {
			return eris.Wrap(ctx.Err(), "gpkg: cancelled")
		}

		var gb []byte
		if f.Geometry != nil {
			gb, err = gpkgGeometry(f.Geometry, census.SRID)
			if err != nil {
				return eris.Wrapf(err, "gpkg: encode geometry for %s", f.Record.BlockGeoid)
			}
			bounds.Extend(f.Geometry)
		}

		args := make([]any, 0, len(techAbbrs)+12)
		args = append(args, gb, f.Record.BlockGeoid, f.Record.Housing20)
		for _, abbr := range techAbbrs {
			entry := f.Record.Technologies[abbr]
			if entry == nil {
				args = append(args, nil)
				continue
			}
			js, err := json.Marshal(entry)
			if err != nil {
				return eris.Wrapf(err, "gpkg: marshal %s entry for %s", abbr, f.Record.BlockGeoid)
			}
			args = append(args, string(js))
		}
		c := f.Record.Serving
		args = append(args, c.TotalLocations,
			c.ResidentialUnserved, c.ResidentialUnderserved, c.ResidentialServed,
			c.MixedUnserved, c.MixedUnderserved, c.MixedServed,
			c.BusinessUnserved, c.BusinessUnderserved, c.BusinessServed,
		)

		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return eris.Wrapf(err, "gpkg: insert %s", f.Record.BlockGeoid)
		}
		written++
	}

	if err := registerLayer(ctx, tx, st, bounds, written); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "gpkg: commit")
	}

	zap.L().Info("geopackage written",
		zap.String("state", st.Abbr),
		zap.String("path", path),
		zap.Int("features", written),
	)
	return nil
}

// techColumns returns the technology abbreviations in map-stable sorted
// order so every state file carries the same layer schema.
func techColumns(features []Feature) []string {
	if len(features) == 0 {
		return nil
	}
	abbrs := make([]string, 0, len(features[0].Record.Technologies))
	for abbr := range features[0].Record.Technologies {
		abbrs = append(abbrs, abbr)
	}
	sort.Strings(abbrs)
	return abbrs
}

func initGeoPackage(ctx context.Context, dbc *sql.DB) error {
	stmts := []string{
		"PRAGMA application_id = 0x47504B47", // "GPKG"
		"PRAGMA user_version = 10300",
		`CREATE TABLE gpkg_spatial_ref_sys (
			srs_name TEXT NOT NULL,
			srs_id INTEGER PRIMARY KEY,
			organization TEXT NOT NULL,
			organization_coordsys_id INTEGER NOT NULL,
			definition TEXT NOT NULL,
			description TEXT
		)`,
		`INSERT INTO gpkg_spatial_ref_sys VALUES
			('Undefined Cartesian', -1, 'NONE', -1, 'undefined', NULL),
			('Undefined Geographic', 0, 'NONE', 0, 'undefined', NULL),
			('WGS 84', 4326, 'EPSG', 4326, 'GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563]],PRIMEM["Greenwich",0],UNIT["degree",0.0174532925199433]]', NULL),
			('NAD83', 4269, 'EPSG', 4269, 'GEOGCS["NAD83",DATUM["North_American_Datum_1983",SPHEROID["GRS 1980",6378137,298.257222101]],PRIMEM["Greenwich",0],UNIT["degree",0.0174532925199433]]', NULL)`,
		`CREATE TABLE gpkg_contents (
			table_name TEXT NOT NULL PRIMARY KEY,
			data_type TEXT NOT NULL,
			identifier TEXT UNIQUE,
			description TEXT DEFAULT '',
			last_change DATETIME NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
			min_x DOUBLE, min_y DOUBLE, max_x DOUBLE, max_y DOUBLE,
			srs_id INTEGER,
			CONSTRAINT fk_gc_r_srs_id FOREIGN KEY (srs_id) REFERENCES gpkg_spatial_ref_sys(srs_id)
		)`,
		`CREATE TABLE gpkg_geometry_columns (
			table_name TEXT NOT NULL,
			column_name TEXT NOT NULL,
			geometry_type_name TEXT NOT NULL,
			srs_id INTEGER NOT NULL,
			z TINYINT NOT NULL,
			m TINYINT NOT NULL,
			CONSTRAINT pk_geom_cols PRIMARY KEY (table_name, column_name)
		)`,
	}
	for _, s := range stmts {
		if _, err := dbc.ExecContext(ctx, s); err != nil {
			return eris.Wrapf(err, "gpkg: init: %s", firstLine(s))
		}
	}
	return nil
}

func createLayer(ctx context.Context, dbc *sql.DB, techAbbrs []string) error {
	var b strings.Builder
	b.WriteString(`CREATE TABLE "` + gpkgLayer + `" (
		fid INTEGER PRIMARY KEY AUTOINCREMENT,
		geom BLOB,
		block_geoid TEXT NOT NULL,
		housing20 INTEGER NOT NULL`)
	for _, abbr := range techAbbrs {
		b.WriteString(fmt.Sprintf(",\n\t\t%q TEXT", abbr))
	}
	for _, col := range countColumns() {
		b.WriteString(fmt.Sprintf(",\n\t\t%q INTEGER NOT NULL", col))
	}
	b.WriteString("\n\t)")

	if _, err := dbc.ExecContext(ctx, b.String()); err != nil {
		return eris.Wrap(err, "gpkg: create layer table")
	}
	return nil
}

func countColumns() []string {
	return []string{
		"Total_Locations",
		"Residential_Unserved", "Residential_Underserved", "Residential_Served",
		"Residential_and_Business_Unserved", "Residential_and_Business_Underserved", "Residential_and_Business_Served",
		"Business_Unserved", "Business_Underserved", "Business_Served",
	}
}

func insertSQL(techAbbrs []string) string {
	cols := []string{"geom", "block_geoid", "housing20"}
	cols = append(cols, techAbbrs...)
	cols = append(cols, countColumns()...)

	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = fmt.Sprintf("%q", c)
		marks[i] = "?"
	}
	return fmt.Sprintf(`INSERT INTO %q (%s) VALUES (%s)`,
		gpkgLayer, strings.Join(quoted, ", "), strings.Join(marks, ", "))
}

func registerLayer(ctx context.Context, tx *sql.Tx, st states.State, bounds *geom.Bounds, written int) error {
	var minX, minY, maxX, maxY any
	if written > 0 && !bounds.IsEmpty() {
		minX, minY = bounds.Min(0), bounds.Min(1)
		maxX, maxY = bounds.Max(0), bounds.Max(1)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO gpkg_contents (table_name, data_type, identifier, description, min_x, min_y, max_x, max_y, srs_id)
		 VALUES (?, 'features', ?, ?, ?, ?, ?, ?, ?)`,
		gpkgLayer, gpkgLayer, "Per-block broadband availability for "+st.Name,
		minX, minY, maxX, maxY, census.SRID,
	); err != nil {
		return eris.Wrap(err, "gpkg: register contents")
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO gpkg_geometry_columns (table_name, column_name, geometry_type_name, srs_id, z, m)
		 VALUES (?, 'geom', 'MULTIPOLYGON', ?, 0, 0)`,
		gpkgLayer, census.SRID,
	); err != nil {
		return eris.Wrap(err, "gpkg: register geometry column")
	}
	return nil
}

// gpkgGeometry encodes a geometry as a GeoPackage binary blob: the "GP"
// header with a little-endian XY envelope, followed by standard WKB.
func gpkgGeometry(g *geom.MultiPolygon, srid int) ([]byte, error) {
	wkbBytes, err := wkb.Marshal(g, wkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "gpkg: wkb marshal")
	}

	var buf bytes.Buffer
	buf.WriteByte('G')
	buf.WriteByte('P')
	buf.WriteByte(0)    // version 1, encoded as 0
	buf.WriteByte(0x03) // little-endian, XY envelope

	hdr := make([]byte, 4)
	binary.LittleEndian.PutUint32(hdr, uint32(srid))
	buf.Write(hdr)

	b := g.Bounds()
	env := make([]byte, 8)
	for _, v := range []float64{b.Min(0), b.Max(0), b.Min(1), b.Max(1)} {
		binary.LittleEndian.PutUint64(env, math.Float64bits(v))
		buf.Write(env)
	}

	buf.Write(wkbBytes)
	return buf.Bytes(), nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
