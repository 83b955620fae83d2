// Package qradar implements the IBM QRadar backend: SEC token auth,
// Range-header pagination and AQL searches against the Ariel API.
package qradar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/lsardim1/siem-log-collectors/internal/domain"
	"github.com/lsardim1/siem-log-collectors/internal/logger"
	"github.com/lsardim1/siem-log-collectors/internal/siem"
)

const (
	// aqlTimeout bounds how long one Ariel search may stay in flight.
	aqlTimeout = 300 * time.Second
	// aqlPollInterval is the pause between Ariel status checks.
	aqlPollInterval = 5 * time.Second
	// arielMaxResults caps a single result fetch. Hitting the cap means
	// the window had more distinct sources than we asked for and data
	// may be truncated.
	arielMaxResults = 50000

	logSourcePageSize = 500
	typePageSize      = 1000
)

// Config holds QRadar connection settings.
type Config struct {
	BaseURL    string
	APIToken   string
	APIVersion string
	VerifyTLS  bool
	Timeout    time.Duration
}

// Client talks to a QRadar console over its REST API.
type Client struct {
	transport *siem.Transport
	log       logger.Interface
}

// New builds a QRadar client. APIVersion defaults to "26.0".
func New(config Config, log logger.Interface) *Client {
	if config.APIVersion == "" {
		config.APIVersion = "26.0"
	}
	if log == nil {
		log = logger.NewNoOp()
	}

	transport := siem.NewTransport(siem.TransportConfig{
		Backend:   "qradar",
		BaseURL:   config.BaseURL,
		Timeout:   config.Timeout,
		VerifyTLS: config.VerifyTLS,
		Headers: map[string]string{
			"SEC":     config.APIToken,
			"Version": config.APIVersion,
		},
		Logger: log,
	})

	return &Client{transport: transport, log: log.WithComponent("qradar")}
}

// Name implements siem.Client.
func (c *Client) Name() string { return "qradar" }

type aboutResponse struct {
	ExternalVersion string `json:"external_version"`
	Version         string `json:"version"`
}

// TestConnection verifies the SEC token against /api/system/about.
func (c *Client) TestConnection(ctx context.Context) error {
	var about aboutResponse
	err := c.transport.DoJSON(ctx, siem.Request{
		Method: http.MethodGet,
		Path:   "api/system/about",
	}, &about)
	if err != nil {
		return err
	}

	version := about.ExternalVersion
	if version == "" {
		version = about.Version
	}
	c.log.Info("connection OK", "qradar_version", version)
	return nil
}

// paginate walks a QRadar collection endpoint with Range headers. A 416
// response marks the end of the collection.
func paginate[T any](ctx context.Context, c *Client, path string, pageSize int) ([]T, error) {
	var all []T
	offset := 0
	for {
		resp, err := c.transport.Do(ctx, siem.Request{
			Method: http.MethodGet,
			Path:   path,
			Headers: map[string]string{
				"Range": fmt.Sprintf("items=%d-%d", offset, offset+pageSize-1),
			},
			AcceptStatuses: []int{http.StatusRequestedRangeNotSatisfiable},
		})
		if err != nil {
			return nil, err
		}
		if resp.Status == http.StatusRequestedRangeNotSatisfiable {
			break
		}

		var batch []T
		if err := siem.DecodeJSON("qradar", resp.Body, &batch); err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}
		all = append(all, batch...)
		if len(batch) < pageSize {
			break
		}
		offset += pageSize
	}
	return all, nil
}

type logSource struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	TypeID      int64  `json:"type_id"`
	Enabled     bool   `json:"enabled"`
	Description string `json:"description"`
}

type logSourceType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// FetchInventory returns the full log source catalog with type names
// resolved. Type resolution failures degrade to a placeholder name so an
// inventory refresh never fails on the secondary endpoint.
func (c *Client) FetchInventory(ctx context.Context) ([]domain.SourceInventoryEntry, error) {
	sources, err := paginate[logSource](ctx, c,
		"api/config/event_sources/log_source_management/log_sources", logSourcePageSize)
	if err != nil {
		return nil, err
	}
	c.log.Info("log sources found", "count", len(sources))

	typeNames := map[int64]string{}
	types, err := paginate[logSourceType](ctx, c,
		"api/config/event_sources/log_source_management/log_source_types", typePageSize)
	if err != nil {
		c.log.Warn("could not fetch log source types", "error", err.Error())
	} else {
		for _, t := range types {
			typeNames[t.ID] = t.Name
		}
	}

	entries := make([]domain.SourceInventoryEntry, 0, len(sources))
	for _, ls := range sources {
		typeName, ok := typeNames[ls.TypeID]
		if !ok {
			typeName = fmt.Sprintf("Type-%d", ls.TypeID)
		}
		entries = append(entries, domain.SourceInventoryEntry{
			LogSourceID: ls.ID,
			Name:        ls.Name,
			TypeName:    typeName,
			TypeID:      ls.TypeID,
			Enabled:     ls.Enabled,
			Description: ls.Description,
		})
	}
	return entries, nil
}

type arielSearch struct {
	SearchID string `json:"search_id"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
}

type arielResults struct {
	Events []aqlRow `json:"events"`
	Flows  []aqlRow `json:"flows"`
}

type aqlRow struct {
	LogSourceID        int64   `json:"logsourceid"`
	LogSourceName      string  `json:"log_source_name"`
	LogSourceType      string  `json:"log_source_type"`
	AggregatedEvents   int64   `json:"aggregated_event_count"`
	TotalEvents        int64   `json:"total_event_count"`
	TotalPayloadBytes  float64 `json:"total_payload_bytes"`
	AvgPayloadBytes    float64 `json:"avg_payload_bytes"`
	UnparsedAggregated int64   `json:"unparsed_aggregated_events"`
	UnparsedTotal      int64   `json:"unparsed_total_events"`
}

// runAQL starts an Ariel search, polls it to completion and fetches the
// results within the arielMaxResults cap.
func (c *Client) runAQL(ctx context.Context, aql string) ([]aqlRow, error) {
	c.log.Info("running AQL search", "query", truncate(aql, 120))

	var search arielSearch
	err := c.transport.DoJSON(ctx, siem.Request{
		Method: http.MethodPost,
		Path:   "api/ariel/searches",
		Query:  url.Values{"query_expression": {aql}},
	}, &search)
	if err != nil {
		return nil, fmt.Errorf("start AQL search: %w", err)
	}
	if search.SearchID == "" {
		return nil, errors.New("qradar: AQL search returned no search_id")
	}

	if err := c.waitForSearch(ctx, search.SearchID); err != nil {
		return nil, err
	}

	var results arielResults
	err = c.transport.DoJSON(ctx, siem.Request{
		Method: http.MethodGet,
		Path:   "api/ariel/searches/" + search.SearchID + "/results",
		Headers: map[string]string{
			"Range": fmt.Sprintf("items=0-%d", arielMaxResults-1),
		},
	}, &results)
	if err != nil {
		return nil, fmt.Errorf("fetch AQL results: %w", err)
	}

	rows := results.Events
	if len(rows) == 0 {
		rows = results.Flows
	}
	if len(rows) >= arielMaxResults {
		c.log.Warn("AQL result hit the row cap, data may be truncated",
			"cap", arielMaxResults)
	}
	return rows, nil
}

func (c *Client) waitForSearch(ctx context.Context, searchID string) error {
	deadline := time.Now().Add(aqlTimeout)
	for {
		if time.Now().After(deadline) {
			return fmt.Errorf("qradar: timed out waiting for AQL search %s", searchID)
		}

		var status arielSearch
		err := c.transport.DoJSON(ctx, siem.Request{
			Method: http.MethodGet,
			Path:   "api/ariel/searches/" + searchID,
		}, &status)
		if err != nil {
			return fmt.Errorf("poll AQL search: %w", err)
		}

		switch status.Status {
		case "COMPLETED":
			return nil
		case "CANCELED", "ERROR":
			return fmt.Errorf("qradar: AQL search %s finished with status %s", searchID, status.Status)
		}

		c.log.Debug("AQL search in progress",
			"search_id", searchID,
			"status", status.Status,
			"progress", status.Progress)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(aqlPollInterval):
		}
	}
}

// CollectWindow samples ingestion metrics for [startMS, endMS) grouped by
// log source. The first attempt includes unparsed-event columns; QRadar
// builds without the isunparsed field reject that query, so a reduced
// query without them is the fallback.
func (c *Client) CollectWindow(ctx context.Context, startMS, endMS int64) ([]domain.NormalizedMetric, error) {
	baseSelect := "SELECT logsourceid, " +
		"LOGSOURCENAME(logsourceid) as log_source_name, " +
		"LOGSOURCETYPENAME(devicetype) as log_source_type, " +
		"COUNT(*) as aggregated_event_count, " +
		"SUM(eventcount) as total_event_count, " +
		"SUM(STRLEN(UTF8(payload))) as total_payload_bytes, " +
		"AVG(STRLEN(UTF8(payload))) as avg_payload_bytes "

	whereClause := fmt.Sprintf(
		"FROM events WHERE starttime >= %d AND starttime < %d "+
			"GROUP BY logsourceid, devicetype "+
			"ORDER BY total_event_count DESC", startMS, endMS)

	withUnparsed := baseSelect +
		", SUM(CASE WHEN isunparsed=1 THEN 1 ELSE 0 END) as unparsed_aggregated_events, " +
		"SUM(CASE WHEN isunparsed=1 THEN eventcount ELSE 0 END) as unparsed_total_events " +
		whereClause

	rows, err := c.runAQL(ctx, withUnparsed)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		c.log.Debug("AQL with unparsed columns failed, falling back", "error", err.Error())
		rows, err = c.runAQL(ctx, baseSelect+whereClause)
		if err != nil {
			return nil, err
		}
	}

	metrics := make([]domain.NormalizedMetric, 0, len(rows))
	for _, row := range rows {
		metrics = append(metrics, domain.NormalizedMetric{
			LogSourceID:          row.LogSourceID,
			LogSourceName:        row.LogSourceName,
			LogSourceType:        row.LogSourceType,
			AggregatedEventCount: row.AggregatedEvents,
			TotalEventCount:      row.TotalEvents,
			UnparsedAggregated:   row.UnparsedAggregated,
			UnparsedTotal:        row.UnparsedTotal,
			TotalPayloadBytes:    row.TotalPayloadBytes,
			AvgPayloadBytes:      row.AvgPayloadBytes,
		})
	}
	return metrics, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
