package runlog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestStartFinish(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()
	runID := NewRunID()

	id, err := l.Start(ctx, runID, "08", "CO")
	require.NoError(t, err)
	require.NoError(t, l.Finish(ctx, id, 140000, 2500000))

	runs, err := l.List(ctx, Filter{RunID: runID})
	require.NoError(t, err)
	require.Len(t, runs, 1)

	r := runs[0]
	assert.Equal(t, StatusOK, r.Status)
	assert.Equal(t, "08", r.StateFIPS)
	assert.Equal(t, "CO", r.StateAbbr)
	assert.Equal(t, 140000, r.Blocks)
	assert.Equal(t, 2500000, r.Records)
	assert.Empty(t, r.Error)
	require.NotNil(t, r.FinishedAt)
	assert.False(t, r.FinishedAt.Before(r.StartedAt))
}

func TestFail(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	id, err := l.Start(ctx, NewRunID(), "12", "FL")
	require.NoError(t, err)
	require.NoError(t, l.Fail(ctx, id, errors.New("no availability files")))

	runs, err := l.List(ctx, Filter{Status: StatusFailed})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "no availability files", runs[0].Error)
}

func TestFinishUnknownID(t *testing.T) {
	l := openTestLog(t)
	err := l.Finish(context.Background(), "nope", 0, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSucceeded(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()
	runID := NewRunID()

	ok, err := l.Succeeded(ctx, runID, "08")
	require.NoError(t, err)
	assert.False(t, ok)

	id, err := l.Start(ctx, runID, "08", "CO")
	require.NoError(t, err)
	require.NoError(t, l.Finish(ctx, id, 1, 1))

	ok, err = l.Succeeded(ctx, runID, "08")
	require.NoError(t, err)
	assert.True(t, ok)

	// A failure in another state does not count.
	id2, err := l.Start(ctx, runID, "12", "FL")
	require.NoError(t, err)
	require.NoError(t, l.Fail(ctx, id2, errors.New("boom")))

	ok, err = l.Succeeded(ctx, runID, "12")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListFilters(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	runA, runB := NewRunID(), NewRunID()
	for _, tc := range []struct {
		run, fips, abbr string
	}{
		{runA, "08", "CO"},
		{runA, "12", "FL"},
		{runB, "08", "CO"},
	} {
		_, err := l.Start(ctx, tc.run, tc.fips, tc.abbr)
		require.NoError(t, err)
	}

	runs, err := l.List(ctx, Filter{RunID: runA})
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	runs, err = l.List(ctx, Filter{StateFIPS: "08"})
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	runs, err = l.List(ctx, Filter{RunID: runA, StateFIPS: "12"})
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	runs, err = l.List(ctx, Filter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
