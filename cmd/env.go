package main

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bdc-cli/internal/bdc"
	"github.com/sells-group/bdc-cli/internal/db"
	"github.com/sells-group/bdc-cli/internal/discover"
	"github.com/sells-group/bdc-cli/internal/fetcher"
	"github.com/sells-group/bdc-cli/internal/reference"
	"github.com/sells-group/bdc-cli/internal/sink"
	"github.com/sells-group/bdc-cli/internal/states"
)

// resolveStates turns the --states flag (or "all") into the state list,
// honoring a YAML override file when configured.
func resolveStates(statesFlag string) ([]states.State, error) {
	if cfg.Data.StatesFile != "" {
		override, err := states.LoadOverride(cfg.Data.StatesFile)
		if err != nil {
			return nil, err
		}
		if statesFlag == "" || statesFlag == "all" {
			return override, nil
		}
	}

	args := []string{"all"}
	if statesFlag != "" {
		args = splitAndTrim(statesFlag)
	}
	return states.Expand(args)
}

// buildNormalizer locates the FCC reference files and loads the lookup
// tables. Explicit config paths win over directory discovery; with
// neither, the built-in technology table and an empty provider list are
// used (every provider resolves to Unknown).
func buildNormalizer(ctx context.Context) (*bdc.Normalizer, error) {
	techPath := cfg.Data.TechCodes
	if techPath == "" && cfg.Data.ResourceDir != "" {
		if p, err := discover.TechCodes(cfg.Data.ResourceDir); err == nil {
			techPath = p
		} else {
			zap.L().Warn("no technology code file found, using built-in table", zap.Error(err))
		}
	}
	techs, err := reference.LoadTechTable(ctx, techPath, cfg.Data.TempDir)
	if err != nil {
		return nil, err
	}

	providerPath := cfg.Data.ProviderList
	if providerPath == "" && cfg.Data.ResourceDir != "" {
		if p, err := discover.ProviderList(cfg.Data.ResourceDir); err == nil {
			providerPath = p
		} else {
			zap.L().Warn("no provider list found, holders resolve to Unknown", zap.Error(err))
		}
	}

	providers := bdc.NewProviderTable(nil)
	if providerPath != "" {
		providers, err = reference.LoadProviderTable(ctx, providerPath, cfg.Data.TempDir)
		if err != nil {
			return nil, err
		}
	}

	return bdc.NewNormalizer(techs, providers), nil
}

// buildSinks assembles the sink list for the configured formats. The
// returned cleanup closes any database pools.
func buildSinks(ctx context.Context, formats []string) ([]sink.Sink, func(), error) {
	var sinks []sink.Sink
	cleanup := func() {}

	for _, f := range formats {
		switch f {
		case "geojson":
			sinks = append(sinks, sink.NewGeoJSON(cfg.Output.Dir))
		case "gpkg":
			sinks = append(sinks, sink.NewGPKG(cfg.Output.Dir))
		case "csv":
			sinks = append(sinks, sink.NewCSV(cfg.Output.Dir))
		case "postgres":
			pool, err := db.Connect(ctx, cfg.Postgres.DatabaseURL, &db.PoolConfig{MaxConns: cfg.Postgres.MaxConns})
			if err != nil {
				cleanup()
				return nil, nil, err
			}
			pg := sink.NewPostgres(pool, cfg.Output.Replace)
			if err := pg.EnsureSchema(ctx); err != nil {
				pool.Close()
				cleanup()
				return nil, nil, err
			}
			sinks = append(sinks, pg)
			cleanup = pool.Close
		default:
			cleanup()
			return nil, nil, eris.Errorf("unknown output format %q", f)
		}
	}
	return sinks, cleanup, nil
}

// buildFetchers returns the HTTP fetcher and, when enabled, the FTP
// fallback for Census downloads.
func buildFetchers() (fetcher.Fetcher, fetcher.Fetcher) {
	httpF := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{})
	var ftpF fetcher.Fetcher
	if cfg.Census.UseFTP {
		ftpF = fetcher.NewFTPFetcher(fetcher.FTPOptions{})
	}
	return httpF, ftpF
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
