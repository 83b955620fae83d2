package collector

import (
	"context"
	"math"
	"time"

	"github.com/lsardim1/siem-log-collectors/internal/logger"
	"github.com/lsardim1/siem-log-collectors/internal/siem"
	"github.com/lsardim1/siem-log-collectors/internal/store"
)

// Reporter produces the end-of-session report set.
type Reporter interface {
	GenerateAll(ctx context.Context) error
}

// Config wires a collection session.
type Config struct {
	Client         siem.Client
	Store          *store.Store
	Reporter       Reporter
	CollectionDays float64
	IntervalHours  float64
	// DisplayName is the human label used in logs ("IBM QRadar").
	DisplayName string
	// SkipInventory disables the initial catalog fetch.
	SkipInventory bool
	PostCollect   PostCollectFunc
	Logger        logger.Interface
}

// Loop runs the main collection schedule: one cycle per interval for the
// configured number of days, with catch-up after downtime and a report
// at the end.
type Loop struct {
	config Config
	errors *ErrorCounter
	log    logger.Interface
}

// NewLoop builds a Loop, applying default duration and interval.
func NewLoop(config Config) *Loop {
	if config.CollectionDays <= 0 {
		config.CollectionDays = DefaultCollectionDays
	}
	if config.IntervalHours <= 0 {
		config.IntervalHours = DefaultIntervalHours
	}
	log := config.Logger
	if log == nil {
		log = logger.NewNoOp()
	}
	return &Loop{
		config: config,
		errors: NewErrorCounter(),
		log:    log.WithComponent("collector"),
	}
}

// Errors exposes the session error counter.
func (l *Loop) Errors() *ErrorCounter { return l.errors }

// Run executes the session until the collection period ends or ctx is
// cancelled, then generates reports. Cancellation finishes the cycle in
// flight first so no partially persisted window is left behind.
func (l *Loop) Run(ctx context.Context) error {
	interval := time.Duration(l.config.IntervalHours * float64(time.Hour))
	intervalMS := interval.Milliseconds()
	totalHours := l.config.CollectionDays * 24
	totalCollections := int(math.Ceil(totalHours / l.config.IntervalHours))

	l.log.Info("starting collection",
		"siem", l.config.DisplayName,
		"collection_days", l.config.CollectionDays,
		"interval_hours", l.config.IntervalHours,
		"estimated_collections", totalCollections,
		"estimated_end", time.Now().Add(time.Duration(totalHours*float64(time.Hour))).Format(time.RFC3339))

	if !l.config.SkipInventory {
		l.refreshInventory(ctx)
	}

	start := time.Now()
	endAt := start.Add(time.Duration(totalHours * float64(time.Hour)))
	collectionCount := 0
	var lastEndMS int64

	cycle := &Cycle{
		Client:        l.config.Client,
		Store:         l.config.Store,
		IntervalHours: l.config.IntervalHours,
		Errors:        l.errors,
		PostCollect:   l.config.PostCollect,
		Log:           l.log,
	}

	for ctx.Err() == nil {
		if !time.Now().Before(endAt) {
			l.log.Info("collection period complete")
			break
		}

		window := nextWindow(lastEndMS, time.Now().UnixMilli(), intervalMS, l.log)

		sources, ok, err := cycle.Run(ctx, window)
		collectionCount++
		switch {
		case err != nil:
			l.errors.Inc("store_error")
			l.log.Error("collection cycle failed to persist", "error", err.Error())
		case ok:
			// Only a successful cycle consumes the window. A failed one
			// leaves lastEndMS alone so the next tick re-covers the same
			// range via catch-up.
			lastEndMS = window.EndMS

			remaining := max(time.Until(endAt), 0)
			l.log.Info("collection progress",
				"collection", collectionCount,
				"estimated_total", totalCollections,
				"sources_with_data", sources,
				"remaining_hours", remaining.Hours(),
				"errors", l.errors.SummaryLine())
		default:
			l.log.Info("will retry the window at the next interval via catch-up")
		}

		if ctx.Err() != nil {
			break
		}

		// Absolute schedule: the next tick is start + n*interval, so one
		// slow cycle does not shift every later window.
		nextRun := start.Add(time.Duration(collectionCount) * interval)
		if sleep := time.Until(nextRun); sleep > 0 {
			l.log.Info("waiting for next collection", "sleep_hours", sleep.Hours())
			select {
			case <-ctx.Done():
			case <-time.After(sleep):
			}
		}
	}

	if ctx.Err() != nil {
		l.log.Warn("stop requested, finishing after current collection")
	}

	return l.finish(collectionCount)
}

// refreshInventory fetches the backend catalog once before the loop.
// Failure is not fatal: zero-fill just starts from an empty inventory
// and observation-based backends grow it as data arrives.
func (l *Loop) refreshInventory(ctx context.Context) {
	entries, err := l.config.Client.FetchInventory(ctx)
	if err != nil {
		l.errors.Inc("inventory_failed")
		l.log.Warn("could not collect initial inventory", "error", err.Error())
		return
	}
	if len(entries) > 0 {
		if err := l.config.Store.SaveInventory(ctx, entries); err != nil {
			l.errors.Inc("inventory_failed")
			l.log.Warn("could not save initial inventory", "error", err.Error())
			return
		}
	}
	l.log.Info("initial inventory collected", "items", len(entries))
}

func (l *Loop) finish(collectionCount int) error {
	l.log.Info("collection finished, generating reports")

	var reportErr error
	if l.config.Reporter != nil {
		reportErr = l.config.Reporter.GenerateAll(context.Background())
		if reportErr != nil {
			l.log.Error("report generation failed", "error", reportErr.Error())
		}
	}

	if l.errors.Empty() {
		l.log.Info("collection completed successfully",
			"total_collections", collectionCount)
	} else {
		l.log.Warn("collection completed with warnings or errors",
			"total_collections", collectionCount,
			"errors", l.errors.SummaryLine())
	}
	return reportErr
}
