package sink

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bdc-cli/internal/states"
)

// CSVSink writes the legacy flat aggregation: one row per block, a
// provider-name list column per technology plus a <Abbr>C location count
// column, followed by the serving counts.
type CSVSink struct {
	Dir string
}

func NewCSV(dir string) *CSVSink { return &CSVSink{Dir: dir} }

func (s *CSVSink) Name() string { return "csv" }

func (s *CSVSink) Write(ctx context.Context, st states.State, features []Feature) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return eris.Wrap(err, "csv: create output dir")
	}

	path := filepath.Join(s.Dir, st.DirName()+".csv")
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "csv: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	techAbbrs := techColumns(features)

	w := csv.NewWriter(f)
	header := []string{"block_geoid", "housing20"}
	for _, abbr := range techAbbrs {
		header = append(header, abbr, abbr+"C")
	}
	header = append(header, countColumns()...)
	if err := w.Write(header); err != nil {
		return eris.Wrap(err, "csv: write header")
	}

	for _, feat := range features {
		if ctx.Err() != nil {
			return eris.Wrap(ctx.Err(), "csv: cancelled")
		}

		rec := feat.Record
		row := []string{rec.BlockGeoid, strconv.Itoa(rec.Housing20)}
		for _, abbr := range techAbbrs {
			entry := rec.Technologies[abbr]
			if entry == nil {
				row = append(row, "", "0")
				continue
			}
			total := 0
			for _, n := range entry.Locations {
				total += n
			}
			row = append(row, strings.Join(entry.Holders, "; "), strconv.Itoa(total))
		}
		c := rec.Serving
		for _, n := range []int{
			c.TotalLocations,
			c.ResidentialUnserved, c.ResidentialUnderserved, c.ResidentialServed,
			c.MixedUnserved, c.MixedUnderserved, c.MixedServed,
			c.BusinessUnserved, c.BusinessUnderserved, c.BusinessServed,
		} {
			row = append(row, strconv.Itoa(n))
		}

		if err := w.Write(row); err != nil {
			return eris.Wrapf(err, "csv: write row for %s", rec.BlockGeoid)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrapf(err, "csv: flush %s", path)
	}

	zap.L().Info("csv written",
		zap.String("state", st.Abbr),
		zap.String("path", path),
		zap.Int("rows", len(features)),
	)
	return nil
}
