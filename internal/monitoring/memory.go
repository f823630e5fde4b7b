// Package monitoring samples process memory while the pipeline runs.
// State-sized shapefiles and availability files make memory the usual
// failure mode, so the watcher warns before the OOM killer does.
package monitoring

import (
	"context"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Snapshot is one memory sample.
type Snapshot struct {
	Timestamp  time.Time `json:"timestamp"`
	HeapAlloc  uint64    `json:"heap_alloc"`
	HeapSys    uint64    `json:"heap_sys"`
	Sys        uint64    `json:"sys"`
	NumGC      uint32    `json:"num_gc"`
	Goroutines int       `json:"goroutines"`
}

// Watcher periodically samples memory and warn-logs when heap usage
// crosses the threshold.
type Watcher struct {
	interval  time.Duration
	threshold uint64 // bytes; 0 disables the warning
	log       *zap.Logger

	mu   sync.Mutex
	last Snapshot
	peak uint64
}

// NewWatcher creates a watcher sampling at the given interval. A zero
// interval defaults to 30s.
func NewWatcher(interval time.Duration, thresholdBytes uint64) *Watcher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Watcher{
		interval:  interval,
		threshold: thresholdBytes,
		log:       zap.L().With(zap.String("component", "monitoring.memory")),
	}
}

// Run samples until the context is cancelled. Call in its own goroutine.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Sample()
		}
	}
}

// Sample takes one reading, updates the peak, and logs when over
// threshold.
func (w *Watcher) Sample() Snapshot {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	snap := Snapshot{
		Timestamp:  time.Now().UTC(),
		HeapAlloc:  ms.HeapAlloc,
		HeapSys:    ms.HeapSys,
		Sys:        ms.Sys,
		NumGC:      ms.NumGC,
		Goroutines: runtime.NumGoroutine(),
	}

	w.mu.Lock()
	w.last = snap
	if snap.HeapAlloc > w.peak {
		w.peak = snap.HeapAlloc
	}
	peak := w.peak
	w.mu.Unlock()

	if w.threshold > 0 && snap.HeapAlloc > w.threshold {
		w.log.Warn("heap usage over threshold",
			zap.Uint64("heap_alloc", snap.HeapAlloc),
			zap.Uint64("threshold", w.threshold),
			zap.Uint64("peak", peak),
			zap.Int("goroutines", snap.Goroutines),
		)
	} else {
		w.log.Debug("memory sample",
			zap.Uint64("heap_alloc", snap.HeapAlloc),
			zap.Int("goroutines", snap.Goroutines),
		)
	}

	return snap
}

// Last returns the most recent sample.
func (w *Watcher) Last() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

// Peak returns the largest heap allocation observed.
func (w *Watcher) Peak() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.peak
}
