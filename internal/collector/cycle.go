package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/lsardim1/siem-log-collectors/internal/domain"
	"github.com/lsardim1/siem-log-collectors/internal/logger"
	"github.com/lsardim1/siem-log-collectors/internal/siem"
	"github.com/lsardim1/siem-log-collectors/internal/store"
)

// PostCollectFunc runs after a successful collection with the metrics of
// the window. Backends without a configured source catalog use it to
// grow the inventory from observed sources.
type PostCollectFunc func(ctx context.Context, st *store.Store, metrics []domain.NormalizedMetric) error

// Cycle executes one collection for an exact window: record the run,
// query the backend, persist metrics, run the post-collect hook and
// zero-fill the remaining enabled inventory sources.
//
// A backend failure marks the run failed and skips both persistence and
// zero-fill: a window we could not observe must not be recorded as
// covered time with zero events, or projections would be dragged down
// by data we never saw. The window is not consumed by the caller in
// that case.
type Cycle struct {
	Client        siem.Client
	Store         *store.Store
	IntervalHours float64
	Errors        *ErrorCounter
	PostCollect   PostCollectFunc
	Log           logger.Interface
}

// Run collects one window. It returns the number of sources that had
// data and whether the backend query succeeded; err is reserved for
// persistence failures.
func (c *Cycle) Run(ctx context.Context, window Window) (sources int, ok bool, err error) {
	log := c.Log
	if log == nil {
		log = logger.NewNoOp()
	}

	// Persistence is detached from cancellation: an interrupt during the
	// backend query must not leave a half-recorded window behind.
	storeCtx := context.WithoutCancel(ctx)

	collectionTime := time.Now().UTC().Format(time.RFC3339)
	collectionDate := window.CollectionDate()
	windowSeconds := window.Seconds()

	log.Info("starting collection cycle",
		"collection_time", collectionTime,
		"window_seconds", windowSeconds,
		"window_start_ms", window.StartMS,
		"window_end_ms", window.EndMS)

	runID, err := c.Store.SaveCollectionRun(storeCtx, collectionTime, collectionDate, c.IntervalHours)
	if err != nil {
		return 0, false, err
	}

	runWindow := store.RunWindow{
		RunID:          runID,
		CollectionTime: collectionTime,
		CollectionDate: collectionDate,
		WindowStartMS:  window.StartMS,
		WindowEndMS:    window.EndMS,
		WindowSeconds:  windowSeconds,
		IntervalHours:  c.IntervalHours,
	}

	metrics, queryErr := c.Client.CollectWindow(ctx, window.StartMS, window.EndMS)
	if queryErr != nil {
		if c.Errors != nil {
			c.Errors.Inc(c.Client.Name() + "_query_failed")
		}
		log.Error("failed to collect metrics", "run_id", runID, "error", queryErr.Error())
		if statusErr := c.Store.UpdateRunStatus(storeCtx, runID, domain.RunStatusFailed); statusErr != nil {
			log.Error("could not mark run as failed", "run_id", runID, "error", statusErr.Error())
		}
		return 0, false, nil
	}

	seen := make(map[int64]struct{}, len(metrics))
	if len(metrics) > 0 {
		if err := c.Store.SaveEventMetrics(storeCtx, runWindow, metrics); err != nil {
			return 0, false, err
		}
		for _, m := range metrics {
			seen[m.LogSourceID] = struct{}{}
		}
		log.Info("collection cycle complete",
			"run_id", runID, "sources_with_data", len(metrics))

		if c.PostCollect != nil {
			if err := c.PostCollect(storeCtx, c.Store, metrics); err != nil {
				log.Warn("post-collect hook failed", "run_id", runID, "error", err.Error())
			}
		}
	} else {
		log.Warn("collection cycle returned no results, window empty or sources silent",
			"run_id", runID)
		if c.Errors != nil {
			c.Errors.Inc(c.Client.Name() + "_no_results")
		}
	}

	// An empty successful sample still counts as covered time for every
	// enabled source.
	zeroFilled, err := c.Store.FillZeroEventRows(storeCtx, runWindow, seen)
	if err != nil {
		return len(metrics), true, fmt.Errorf("zero-fill run %d: %w", runID, err)
	}
	if zeroFilled > 0 {
		log.Debug("sources without events this window", "zero_filled", zeroFilled)
	}

	return len(metrics), true, nil
}

// InventoryFromMetrics converts observed metrics to inventory entries.
// Wired as a post-collect hook for backends whose catalog is
// observation-based (Splunk sources, SecOps log types).
func InventoryFromMetrics(ctx context.Context, st *store.Store, metrics []domain.NormalizedMetric) error {
	if len(metrics) == 0 {
		return nil
	}
	entries := make([]domain.SourceInventoryEntry, 0, len(metrics))
	for _, m := range metrics {
		entries = append(entries, domain.SourceInventoryEntry{
			LogSourceID: m.LogSourceID,
			Name:        m.LogSourceName,
			TypeName:    m.LogSourceType,
			Enabled:     true,
		})
	}
	return st.SaveInventory(ctx, entries)
}
