// Package pipeline orchestrates the per-state BDC processing: discover
// availability files, parse and normalize filings, aggregate and classify
// per block, join block geometry, and write the configured sinks.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/bdc-cli/internal/bdc"
	"github.com/sells-group/bdc-cli/internal/config"
	"github.com/sells-group/bdc-cli/internal/fetcher"
	"github.com/sells-group/bdc-cli/internal/runlog"
	"github.com/sells-group/bdc-cli/internal/sink"
	"github.com/sells-group/bdc-cli/internal/states"
)

// StateResult summarizes one state's processing.
type StateResult struct {
	State   states.State
	Blocks  int
	Records int
	Skipped bool // already succeeded in the resumed run
	Err     error
}

// Pipeline runs states through the availability aggregation.
type Pipeline struct {
	cfg        *config.Config
	normalizer *bdc.Normalizer
	sinks      []sink.Sink
	runLog     *runlog.Log // optional
	httpF      fetcher.Fetcher
	ftpF       fetcher.Fetcher
	resumeID   string

	// geometryFree skips tabblock joins for the legacy CSV aggregation.
	geometryFree bool
}

// New creates a Pipeline. runLog, httpF, and ftpF may be nil; a nil
// fetcher disables tabblock downloads, requiring shapefiles on disk.
func New(cfg *config.Config, normalizer *bdc.Normalizer, sinks []sink.Sink, runLog *runlog.Log, httpF, ftpF fetcher.Fetcher) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		normalizer: normalizer,
		sinks:      sinks,
		runLog:     runLog,
		httpF:      httpF,
		ftpF:       ftpF,
	}
}

// NewLegacy creates a Pipeline for the geometry-free CSV aggregation.
func NewLegacy(cfg *config.Config, normalizer *bdc.Normalizer, sinks []sink.Sink, runLog *runlog.Log) *Pipeline {
	return &Pipeline{
		cfg:          cfg,
		normalizer:   normalizer,
		sinks:        sinks,
		runLog:       runLog,
		geometryFree: true,
	}
}

// Resume reattaches to an earlier run id: states that already have a
// successful record under it are skipped, the rest are reprocessed.
// Requires a run log.
func (p *Pipeline) Resume(runID string) {
	p.resumeID = runID
}

// Run processes the given states with bounded parallelism. A failure in
// one state is logged and recorded but never aborts the others; Run
// returns an error only when every state failed.
func (p *Pipeline) Run(ctx context.Context, sts []states.State) ([]StateResult, error) {
	if len(sts) == 0 {
		return nil, eris.New("pipeline: no states to process")
	}

	runID := p.resumeID
	if runID == "" {
		runID = runlog.NewRunID()
	}
	log := zap.L().With(
		zap.String("component", "pipeline"),
		zap.String("run_id", runID),
		zap.Int("states", len(sts)),
	)
	log.Info("run starting")
	start := time.Now()

	results := make([]StateResult, len(sts))
	var mu sync.Mutex

	concurrency := p.cfg.Pipeline.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, st := range sts {
		i, st := i, st
		g.Go(func() error {
			res := p.runState(gctx, runID, st)
			if res.Err != nil {
				log.Error("state failed",
					zap.String("state", st.Abbr),
					zap.Error(res.Err),
				)
			}
			mu.Lock()
			results[i] = res
			mu.Unlock()
			return nil // don't abort other states
		})
	}

	if err := g.Wait(); err != nil {
		return results, eris.Wrap(err, "pipeline: run")
	}

	succeeded, failed, skipped := 0, 0, 0
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
		case r.Skipped:
			skipped++
		default:
			succeeded++
		}
	}
	log.Info("run complete",
		zap.Int("succeeded", succeeded),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
		zap.Duration("elapsed", time.Since(start)),
	)

	if failed == len(results) {
		return results, eris.Errorf("pipeline: all %d states failed", failed)
	}
	return results, nil
}

// runState wraps processState with run-log bookkeeping.
func (p *Pipeline) runState(ctx context.Context, runID string, st states.State) StateResult {
	if p.runLog != nil && p.resumeID != "" {
		done, err := p.runLog.Succeeded(ctx, runID, st.FIPS)
		if err != nil {
			zap.L().Warn("run log unavailable", zap.Error(err))
		} else if done {
			zap.L().Info("state already complete in resumed run",
				zap.String("state", st.Abbr),
				zap.String("run_id", runID),
			)
			return StateResult{State: st, Skipped: true}
		}
	}

	var logID string
	if p.runLog != nil {
		id, err := p.runLog.Start(ctx, runID, st.FIPS, st.Abbr)
		if err != nil {
			zap.L().Warn("run log unavailable", zap.Error(err))
		} else {
			logID = id
		}
	}

	res := p.processState(ctx, st)
	res.State = st

	if logID != "" {
		var logErr error
		if res.Err != nil {
			logErr = p.runLog.Fail(ctx, logID, res.Err)
		} else {
			logErr = p.runLog.Finish(ctx, logID, res.Blocks, res.Records)
		}
		if logErr != nil {
			zap.L().Warn("run log update failed", zap.Error(logErr))
		}
	}
	return res
}
