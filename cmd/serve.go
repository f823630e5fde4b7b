package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/bdc-cli/internal/runlog"
	"github.com/sells-group/bdc-cli/internal/states"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve produced outputs over a read-only HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		var rl *runlog.Log
		if cfg.Output.RunLog != "" {
			l, err := runlog.Open(cfg.Output.RunLog)
			if err != nil {
				return err
			}
			rl = l
			defer rl.Close() //nolint:errcheck
		}

		cache := &featureCache{dir: cfg.Output.Dir}
		mux := newServeMux(rl, cache)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func newServeMux(rl *runlog.Log, cache *featureCache) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("GET /states", func(w http.ResponseWriter, r *http.Request) {
		if rl == nil {
			http.Error(w, `{"error":"run log not configured"}`, http.StatusNotFound)
			return
		}
		runs, err := rl.List(r.Context(), runlog.Filter{Limit: 200})
		if err != nil {
			zap.L().Error("list runs failed", zap.Error(err))
			http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
			return
		}

		type stateRunResponse struct {
			RunID      string     `json:"run_id"`
			StateFIPS  string     `json:"state_fips"`
			StateAbbr  string     `json:"state_abbr"`
			Status     string     `json:"status"`
			Blocks     int        `json:"blocks"`
			Records    int        `json:"records"`
			Error      string     `json:"error,omitempty"`
			StartedAt  time.Time  `json:"started_at"`
			FinishedAt *time.Time `json:"finished_at,omitempty"`
		}
		out := make([]stateRunResponse, 0, len(runs))
		for _, run := range runs {
			out = append(out, stateRunResponse{
				RunID:      run.RunID,
				StateFIPS:  run.StateFIPS,
				StateAbbr:  run.StateAbbr,
				Status:     run.Status,
				Blocks:     run.Blocks,
				Records:    run.Records,
				Error:      run.Error,
				StartedAt:  run.StartedAt,
				FinishedAt: run.FinishedAt,
			})
		}
		writeJSON(w, http.StatusOK, out)
	})

	mux.HandleFunc("GET /states/{fips}/blocks/{geoid}", func(w http.ResponseWriter, r *http.Request) {
		st, ok := states.ByFIPS(r.PathValue("fips"))
		if !ok {
			http.Error(w, `{"error":"unknown state fips"}`, http.StatusNotFound)
			return
		}

		feature, err := cache.lookup(st, r.PathValue("geoid"))
		if err != nil {
			zap.L().Error("block lookup failed",
				zap.String("state", st.Abbr),
				zap.Error(err),
			)
			http.Error(w, `{"error":"state output not available"}`, http.StatusNotFound)
			return
		}
		if feature == nil {
			http.Error(w, `{"error":"block not found"}`, http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(feature)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// featureCache lazily loads per-state GeoJSON outputs and indexes their
// features by block geoid.
type featureCache struct {
	dir string

	mu     sync.Mutex
	states map[string]map[string]json.RawMessage // fips -> geoid -> feature
}

// lookup returns the raw feature for a block, or nil when the state file
// exists but the block does not.
func (c *featureCache) lookup(st states.State, geoid string) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx, ok := c.states[st.FIPS]
	if !ok {
		var err error
		idx, err = c.load(st)
		if err != nil {
			return nil, err
		}
		if c.states == nil {
			c.states = make(map[string]map[string]json.RawMessage)
		}
		c.states[st.FIPS] = idx
	}
	return idx[geoid], nil
}

func (c *featureCache) load(st states.State) (map[string]json.RawMessage, error) {
	path := filepath.Join(c.dir, st.DirName()+".geojson")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "serve: read %s", path)
	}

	var fc struct {
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrapf(err, "serve: parse %s", path)
	}

	idx := make(map[string]json.RawMessage, len(fc.Features))
	for _, raw := range fc.Features {
		var f struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(raw, &f); err != nil || f.ID == "" {
			continue
		}
		idx[f.ID] = raw
	}

	zap.L().Info("state output indexed",
		zap.String("state", st.Abbr),
		zap.Int("blocks", len(idx)),
	)
	return idx, nil
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
