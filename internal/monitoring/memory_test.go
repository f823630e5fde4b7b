package monitoring

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSampleUpdatesLastAndPeak(t *testing.T) {
	w := NewWatcher(time.Second, 0)

	snap := w.Sample()
	assert.NotZero(t, snap.HeapAlloc)
	assert.NotZero(t, snap.Goroutines)
	assert.Equal(t, snap, w.Last())
	assert.GreaterOrEqual(t, w.Peak(), snap.HeapAlloc)
}

func TestPeakMonotonic(t *testing.T) {
	w := NewWatcher(time.Second, 0)

	w.Sample()
	first := w.Peak()
	w.Sample()
	assert.GreaterOrEqual(t, w.Peak(), first)
}

func TestRunStopsOnCancel(t *testing.T) {
	w := NewWatcher(time.Millisecond, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop on cancel")
	}
	assert.NotZero(t, w.Last().HeapAlloc)
}
