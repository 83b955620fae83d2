package collector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lsardim1/siem-log-collectors/internal/logger"
)

const hourMS = int64(time.Hour / time.Millisecond)

func TestNextWindowFirstLooksBackOneInterval(t *testing.T) {
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC).UnixMilli()

	w := nextWindow(0, now, hourMS, logger.NewNoOp())

	assert.Equal(t, now-hourMS, w.StartMS)
	assert.Equal(t, now, w.EndMS)
	assert.InDelta(t, 3600.0, w.Seconds(), 0.001)
}

func TestNextWindowSteadyStateIsContiguous(t *testing.T) {
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC).UnixMilli()

	first := nextWindow(0, now, hourMS, logger.NewNoOp())
	second := nextWindow(first.EndMS, now+hourMS, hourMS, logger.NewNoOp())

	assert.Equal(t, first.EndMS, second.StartMS, "windows must tile with no gap")
	assert.Equal(t, now+hourMS, second.EndMS)
}

func TestNextWindowCatchUpWithinLimit(t *testing.T) {
	lastEnd := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC).UnixMilli()
	// Two intervals of downtime, below the catch-up limit.
	now := lastEnd + 2*hourMS

	w := nextWindow(lastEnd, now, hourMS, logger.NewNoOp())

	assert.Equal(t, lastEnd, w.StartMS, "catch-up resumes where the last window ended")
	assert.Equal(t, now, w.EndMS)
	assert.InDelta(t, 7200.0, w.Seconds(), 0.001)
}

func TestNextWindowCatchUpClamped(t *testing.T) {
	lastEnd := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC).UnixMilli()
	// Ten intervals of downtime, far beyond the limit.
	now := lastEnd + 10*hourMS

	w := nextWindow(lastEnd, now, hourMS, logger.NewNoOp())

	assert.Equal(t, now-MaxCatchupWindows*hourMS, w.StartMS, "span clamps to the catch-up limit")
	assert.Equal(t, now, w.EndMS)
}

func TestWindowSecondsNeverNegative(t *testing.T) {
	w := Window{StartMS: 2000, EndMS: 1000}
	assert.Equal(t, 0.0, w.Seconds())
}

func TestWindowCollectionDate(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	midday := Window{
		StartMS: day.Add(13 * time.Hour).UnixMilli(),
		EndMS:   day.Add(14 * time.Hour).UnixMilli(),
	}
	assert.Equal(t, "2026-03-10", midday.CollectionDate())

	// A window ending exactly at midnight belongs to the day it closes.
	closing := Window{
		StartMS: day.Add(23 * time.Hour).UnixMilli(),
		EndMS:   day.Add(24 * time.Hour).UnixMilli(),
	}
	assert.Equal(t, "2026-03-10", closing.CollectionDate())

	// A window starting at midnight belongs to the new day.
	opening := Window{
		StartMS: day.Add(24 * time.Hour).UnixMilli(),
		EndMS:   day.Add(25 * time.Hour).UnixMilli(),
	}
	assert.Equal(t, "2026-03-11", opening.CollectionDate())

	// Degenerate zero-length window falls back to its start.
	empty := Window{StartMS: day.UnixMilli(), EndMS: day.UnixMilli()}
	assert.Equal(t, "2026-03-10", empty.CollectionDate())
}
