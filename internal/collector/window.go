package collector

import (
	"time"

	"github.com/lsardim1/siem-log-collectors/internal/logger"
)

const (
	// DefaultCollectionDays is how long a collection session runs.
	DefaultCollectionDays = 6.0
	// DefaultIntervalHours is the spacing between collection windows.
	DefaultIntervalHours = 1.0
	// MaxCatchupWindows bounds how far a single window may stretch after
	// downtime, as a multiple of the interval. Anything older is dropped
	// with an explicit data loss warning rather than hammering the SIEM
	// with one oversized query.
	MaxCatchupWindows = 3
)

// Window is a half-open collection interval [StartMS, EndMS) in epoch
// milliseconds.
type Window struct {
	StartMS int64
	EndMS   int64
}

// Seconds returns the window span in seconds, never negative.
func (w Window) Seconds() float64 {
	if w.EndMS <= w.StartMS {
		return 0
	}
	return float64(w.EndMS-w.StartMS) / 1000.0
}

// CollectionDate attributes the window to a UTC calendar day using the
// last contained millisecond. A window ending exactly at midnight
// belongs to the day it closes, not the day it touches.
func (w Window) CollectionDate() string {
	ms := w.EndMS - 1
	if ms < w.StartMS {
		ms = w.StartMS
	}
	return time.UnixMilli(ms).UTC().Format("2006-01-02")
}

// nextWindow derives the window ending at nowMS. The first window (a
// zero lastEndMS) looks back one interval; steady state starts where the
// previous window ended, so consecutive windows tile with no gaps or
// overlaps. After downtime the catch-up span is clamped to
// MaxCatchupWindows intervals and the dropped range is logged.
func nextWindow(lastEndMS, nowMS, intervalMS int64, log logger.Interface) Window {
	if lastEndMS == 0 {
		return Window{StartMS: nowMS - intervalMS, EndMS: nowMS}
	}

	startMS := lastEndMS
	maxSpanMS := intervalMS * MaxCatchupWindows
	if nowMS-startMS > maxSpanMS {
		lostStart := startMS
		startMS = nowMS - maxSpanMS
		if log != nil {
			log.Warn("catch-up exceeded limit, older data will be lost",
				"max_catchup_windows", MaxCatchupWindows,
				"lost_from_ms", lostStart,
				"lost_to_ms", startMS)
		}
	}
	return Window{StartMS: startMS, EndMS: nowMS}
}
