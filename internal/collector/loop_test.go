package collector_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lsardim1/siem-log-collectors/internal/collector"
	"github.com/lsardim1/siem-log-collectors/internal/domain"
)

type recordingReporter struct {
	calls int
	err   error
}

func (r *recordingReporter) GenerateAll(context.Context) error {
	r.calls++
	return r.err
}

const (
	// Short enough that a three-cycle session finishes in under a second.
	testIntervalHours  = 200.0 / 3_600_000
	longCollectionDays = 1.0
)

func TestLoopRetriesFailedWindowViaCatchUp(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := &scriptedClient{
		name: "testsiem",
		results: []collectResult{
			{metrics: []domain.NormalizedMetric{{LogSourceID: 1, LogSourceName: "A", AggregatedEventCount: 10}}},
			{err: errors.New("search timed out")},
			{metrics: []domain.NormalizedMetric{{LogSourceID: 1, LogSourceName: "A", AggregatedEventCount: 20}}},
		},
	}
	client.onCollect = func(call int) {
		if call == 3 {
			cancel()
		}
	}
	reporter := &recordingReporter{}

	loop := collector.NewLoop(collector.Config{
		Client:         client,
		Store:          newTestStore(t),
		Reporter:       reporter,
		CollectionDays: longCollectionDays,
		IntervalHours:  testIntervalHours,
		SkipInventory:  true,
	})
	require.NoError(t, loop.Run(ctx))

	require.Len(t, client.windows, 3)
	first, failed, retried := client.windows[0], client.windows[1], client.windows[2]

	assert.Equal(t, first.EndMS, failed.StartMS, "steady state starts where the last window ended")
	assert.Equal(t, first.EndMS, retried.StartMS,
		"a failed window is not consumed, the retry re-covers its range")
	assert.GreaterOrEqual(t, retried.EndMS, failed.EndMS)

	assert.Equal(t, 1, reporter.calls, "reports generate even after a cancelled session")
	assert.Equal(t, int64(1), loop.Errors().AsMap()["testsiem_query_failed"])
}

func TestLoopInventoryFailureIsNotFatal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := &scriptedClient{
		name:    "testsiem",
		invErr:  errors.New("connection refused"),
		results: []collectResult{{}},
	}
	client.onCollect = func(call int) {
		if call == 1 {
			cancel()
		}
	}
	reporter := &recordingReporter{}

	loop := collector.NewLoop(collector.Config{
		Client:         client,
		Store:          newTestStore(t),
		Reporter:       reporter,
		CollectionDays: longCollectionDays,
		IntervalHours:  testIntervalHours,
	})
	require.NoError(t, loop.Run(ctx))

	assert.Equal(t, 1, client.calls, "collection proceeds without an inventory")
	assert.Equal(t, int64(1), loop.Errors().AsMap()["inventory_failed"])
}

func TestLoopInitialInventorySaved(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := newTestStore(t)
	client := &scriptedClient{
		name: "testsiem",
		inventory: []domain.SourceInventoryEntry{
			{LogSourceID: 1, Name: "Catalogued", TypeName: "TypeA", Enabled: true},
		},
		results: []collectResult{{}},
	}
	client.onCollect = func(call int) {
		if call == 1 {
			cancel()
		}
	}

	loop := collector.NewLoop(collector.Config{
		Client:         client,
		Store:          s,
		Reporter:       &recordingReporter{},
		CollectionDays: longCollectionDays,
		IntervalHours:  testIntervalHours,
	})
	require.NoError(t, loop.Run(ctx))

	// The catalogued source shows up as a zero row for the empty window.
	rows, err := s.GetDailySummary(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Catalogued", rows[0].LogSourceName)
	assert.Zero(t, rows[0].TotalEvents)
}

func TestLoopSurfacesReportError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := &scriptedClient{name: "testsiem", results: []collectResult{{}}}
	client.onCollect = func(call int) {
		if call == 1 {
			cancel()
		}
	}
	reporter := &recordingReporter{err: errors.New("report dir not writable")}

	loop := collector.NewLoop(collector.Config{
		Client:         client,
		Store:          newTestStore(t),
		Reporter:       reporter,
		CollectionDays: longCollectionDays,
		IntervalHours:  testIntervalHours,
		SkipInventory:  true,
	})
	assert.Error(t, loop.Run(ctx))
}
