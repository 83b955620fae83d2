// Package siem defines the backend client contract shared by all SIEM
// integrations, plus the HTTP plumbing they build on.
package siem

import (
	"context"

	"github.com/lsardim1/siem-log-collectors/internal/domain"
)

// Client is the contract every SIEM backend implements. The collection
// engine is backend-agnostic: it only ever sees normalized metrics and
// inventory entries for exact half-open windows [start, end) in epoch
// milliseconds.
type Client interface {
	// Name identifies the backend in logs and reports (e.g. "qradar").
	Name() string

	// TestConnection verifies credentials and reachability before the
	// collection loop starts.
	TestConnection(ctx context.Context) error

	// CollectWindow returns one normalized metric per log source that had
	// activity in [startMS, endMS). Sources without activity are absent;
	// zero-fill against the inventory happens downstream.
	CollectWindow(ctx context.Context, startMS, endMS int64) ([]domain.NormalizedMetric, error)

	// FetchInventory returns the backend's current log source catalog.
	// Backends without a first-class source catalog derive entries from
	// observed data and return only what they have seen.
	FetchInventory(ctx context.Context) ([]domain.SourceInventoryEntry, error)
}
