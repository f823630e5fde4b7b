package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bdc-cli/internal/bdc"
	"github.com/sells-group/bdc-cli/internal/census"
	"github.com/sells-group/bdc-cli/internal/discover"
	"github.com/sells-group/bdc-cli/internal/fetcher"
	"github.com/sells-group/bdc-cli/internal/sink"
	"github.com/sells-group/bdc-cli/internal/states"
)

// processState runs one state end to end.
func (p *Pipeline) processState(ctx context.Context, st states.State) StateResult {
	log := zap.L().With(
		zap.String("component", "pipeline.state"),
		zap.String("state", st.Abbr),
	)
	start := time.Now()

	stateDir := filepath.Join(p.cfg.Data.BDCDir, st.DirName())
	sources, err := discover.Availability(stateDir)
	if err != nil {
		return StateResult{Err: eris.Wrapf(err, "pipeline: discover availability for %s", st.Abbr)}
	}
	if len(sources) == 0 {
		return StateResult{Err: eris.Errorf("pipeline: no availability files for %s in %s", st.Abbr, stateDir)}
	}

	var index map[string]*census.Block
	var blockOrder []string
	if !p.geometryFree {
		blocks, err := p.loadTabblock(ctx, st)
		if err != nil {
			return StateResult{Err: err}
		}
		index = census.BlockIndex(blocks)
		blockOrder = make([]string, 0, len(blocks))
		for i := range blocks {
			blockOrder = append(blockOrder, blocks[i].GEOID)
		}
		log.Info("tabblock loaded", zap.Int("blocks", len(blocks)))
	}

	records, err := p.loadRecords(ctx, sources, st)
	if err != nil {
		return StateResult{Err: err}
	}
	log.Info("availability parsed",
		zap.Int("files", len(sources)),
		zap.Int("records", len(records)),
	)

	byBlock, recordOrder := bdc.GroupByBlock(records)

	order := mergeOrder(blockOrder, recordOrder)

	techs := p.normalizer.Techs()
	blockRecs := make([]bdc.BlockRecord, 0, len(order))
	for _, geoid := range order {
		housing := 0
		if blk, ok := index[geoid]; ok {
			housing = blk.Housing20
		}
		recs := byBlock[geoid]
		agg := bdc.AggregateBlock(recs)
		counts := bdc.ClassifyBlock(recs, techs, housing)
		blockRecs = append(blockRecs, bdc.Assemble(geoid, housing, agg, counts, techs))
	}

	features := sink.BuildFeatures(st, blockRecs, index)
	for _, s := range p.sinks {
		if err := s.Write(ctx, st, features); err != nil {
			return StateResult{Err: eris.Wrapf(err, "pipeline: %s sink for %s", s.Name(), st.Abbr)}
		}
	}

	log.Info("state complete",
		zap.Int("blocks", len(blockRecs)),
		zap.Int("records", len(records)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return StateResult{Blocks: len(blockRecs), Records: len(records)}
}

// mergeOrder puts shapefile blocks first in file order, then appends
// record-bearing blocks missing from the shapefile in first-seen order,
// so no filing is silently dropped. With no shapefile the record order
// stands alone.
func mergeOrder(blockOrder, recordOrder []string) []string {
	if blockOrder == nil {
		return recordOrder
	}
	inShape := make(map[string]bool, len(blockOrder))
	for _, g := range blockOrder {
		inShape[g] = true
	}
	order := blockOrder
	for _, g := range recordOrder {
		if !inShape[g] {
			order = append(order, g)
		}
	}
	return order
}

// loadTabblock finds or downloads the state's tabblock20 shapefile and
// reads its blocks.
func (p *Pipeline) loadTabblock(ctx context.Context, st states.State) ([]census.Block, error) {
	destDir := filepath.Join(p.cfg.Data.TabblockDir, st.DirName())

	var shpPath string
	if p.httpF != nil {
		var err error
		shpPath, err = census.FetchTabblock(ctx, p.httpF, p.ftpF, p.cfg.Census.Year, st.FIPS, destDir)
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: fetch tabblock for %s", st.Abbr)
		}
	} else {
		matches, err := filepath.Glob(filepath.Join(destDir, "*.shp"))
		if err != nil || len(matches) == 0 {
			return nil, eris.Errorf("pipeline: no tabblock shapefile under %s (downloads disabled)", destDir)
		}
		shpPath = matches[0]
	}

	blocks, err := census.ReadTabblock(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: read tabblock for %s", st.Abbr)
	}
	return blocks, nil
}

// loadRecords parses and normalizes every availability file for a state.
// Rows that fail to parse are warn-logged and skipped; a file whose header
// lacks required columns fails the state.
func (p *Pipeline) loadRecords(ctx context.Context, sources []discover.SourceFile, st states.State) ([]bdc.AvailabilityRecord, error) {
	tempDir := filepath.Join(p.cfg.Data.TempDir, st.DirName())
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, eris.Wrap(err, "pipeline: create temp dir")
	}
	if !p.cfg.Pipeline.KeepTemp {
		defer os.RemoveAll(tempDir) //nolint:errcheck
	}

	var records []bdc.AvailabilityRecord
	for _, src := range sources {
		recs, err := p.loadFile(ctx, src, tempDir)
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: load %s", src.Path)
		}
		records = append(records, recs...)
	}
	return records, nil
}

func (p *Pipeline) loadFile(ctx context.Context, src discover.SourceFile, tempDir string) ([]bdc.AvailabilityRecord, error) {
	csvPath, err := discover.ResolveCSV(src, tempDir)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(csvPath)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: open %s", csvPath)
	}
	defer f.Close() //nolint:errcheck

	headerCh := make(chan []string, 1)
	rowCh, errCh := fetcher.StreamCSV(ctx, f, fetcher.CSVOptions{
		HasHeader: true,
		HeaderCh:  headerCh,
		TrimSpace: true,
	})

	var layout *bdc.Layout
	var records []bdc.AvailabilityRecord
	skipped := 0

	for row := range rowCh {
		if layout == nil {
			// Header arrives before the first data row.
			header := <-headerCh
			layout, err = bdc.NewLayout(header)
			if err != nil {
				// Drain so the reader goroutine can exit.
				for range rowCh {
				}
				<-errCh
				return nil, err
			}
		}

		rec, err := layout.ParseRecord(row)
		if err != nil {
			skipped++
			zap.L().Warn("bdc: skipping malformed row", zap.Error(err))
			continue
		}
		records = append(records, p.normalizer.Normalize(rec))
	}
	if err := <-errCh; err != nil {
		return nil, err
	}

	// Header-only files still need layout validation.
	if layout == nil {
		select {
		case header := <-headerCh:
			if _, err := bdc.NewLayout(header); err != nil {
				return nil, err
			}
		default:
			return nil, eris.Errorf("pipeline: %s is empty", csvPath)
		}
	}

	if skipped > 0 {
		zap.L().Warn("bdc: rows skipped",
			zap.String("file", filepath.Base(csvPath)),
			zap.Int("skipped", skipped),
			zap.Int("kept", len(records)),
		)
	}
	return records, nil
}
