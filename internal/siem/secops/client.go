// Package secops implements the Google SecOps (formerly Chronicle)
// backend: service account or bearer token auth against the regional
// Backstory API, UDM Search metrics and log type inventory.
package secops

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/lsardim1/siem-log-collectors/internal/domain"
	"github.com/lsardim1/siem-log-collectors/internal/logger"
	"github.com/lsardim1/siem-log-collectors/internal/siem"
)

const (
	backstoryScope = "https://www.googleapis.com/auth/chronicle-backstory"

	// udmSearchMaxEvents is the hard API cap per UDM Search call. When a
	// window returns moreDataAvailable the counts are truncated and the
	// operator should shrink the collection interval.
	udmSearchMaxEvents = 10000
	// udmSearchTimeout matches the documented server-side limit.
	udmSearchTimeout = 600 * time.Second
)

// backstoryEndpoints maps a SecOps region to its Backstory API base URL.
var backstoryEndpoints = map[string]string{
	"us":                      "https://backstory.googleapis.com",
	"europe":                  "https://europe-backstory.googleapis.com",
	"europe-west2":            "https://europe-west2-backstory.googleapis.com",
	"europe-west3":            "https://europe-west3-backstory.googleapis.com",
	"europe-west6":            "https://europe-west6-backstory.googleapis.com",
	"europe-west9":            "https://europe-west9-backstory.googleapis.com",
	"europe-west12":           "https://europe-west12-backstory.googleapis.com",
	"europe-central2":         "https://europe-central2-backstory.googleapis.com",
	"asia-south1":             "https://asia-south1-backstory.googleapis.com",
	"asia-southeast1":         "https://asia-southeast1-backstory.googleapis.com",
	"asia-southeast2":         "https://asia-southeast2-backstory.googleapis.com",
	"asia-northeast1":         "https://asia-northeast1-backstory.googleapis.com",
	"australia-southeast1":    "https://australia-southeast1-backstory.googleapis.com",
	"me-central1":             "https://me-central1-backstory.googleapis.com",
	"me-central2":             "https://me-central2-backstory.googleapis.com",
	"me-west1":                "https://me-west1-backstory.googleapis.com",
	"northamerica-northeast2": "https://northamerica-northeast2-backstory.googleapis.com",
	"southamerica-east1":      "https://southamerica-east1-backstory.googleapis.com",
	"africa-south1":           "https://africa-south1-backstory.googleapis.com",
}

// Config holds Google SecOps connection settings. ServiceAccountFile
// takes precedence over Token; at least one must be set.
type Config struct {
	ServiceAccountFile string
	Token              string
	Region             string
	// BaseURL overrides the regional Backstory endpoint, for deployments
	// that front the API with a proxy.
	BaseURL   string
	VerifyTLS bool
	Timeout   time.Duration
}

// Client talks to the Backstory API for one SecOps region.
type Client struct {
	transport *siem.Transport
	region    string
	log       logger.Interface
}

// New builds a SecOps client. Unknown regions fall back to "us".
func New(config Config, log logger.Interface) (*Client, error) {
	if log == nil {
		log = logger.NewNoOp()
	}
	region := config.Region
	baseURL, ok := backstoryEndpoints[region]
	if !ok {
		region = "us"
		baseURL = backstoryEndpoints[region]
	}
	if config.BaseURL != "" {
		baseURL = config.BaseURL
	}
	if config.Timeout <= 0 {
		config.Timeout = udmSearchTimeout
	}

	headers := map[string]string{}
	var wrap func(http.RoundTripper) http.RoundTripper

	switch {
	case config.ServiceAccountFile != "":
		saJSON, err := os.ReadFile(config.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("secops: read service account file: %w", err)
		}
		jwtConfig, err := google.JWTConfigFromJSON(saJSON, backstoryScope)
		if err != nil {
			return nil, fmt.Errorf("secops: parse service account file: %w", err)
		}
		source := jwtConfig.TokenSource(context.Background())
		wrap = func(base http.RoundTripper) http.RoundTripper {
			return &oauth2.Transport{Source: source, Base: base}
		}
	case config.Token != "":
		headers["Authorization"] = "Bearer " + config.Token
	default:
		return nil, errors.New("secops: provide a service account file or a bearer token")
	}

	transport := siem.NewTransport(siem.TransportConfig{
		Backend:       "secops",
		BaseURL:       baseURL,
		Timeout:       config.Timeout,
		VerifyTLS:     config.VerifyTLS,
		Headers:       headers,
		WrapTransport: wrap,
		Logger:        log,
	})

	return &Client{transport: transport, region: region, log: log.WithComponent("secops")}, nil
}

// Name implements siem.Client.
func (c *Client) Name() string { return "secops" }

type udmSearchResult struct {
	Events            []udmEvent `json:"events"`
	MoreDataAvailable bool       `json:"moreDataAvailable"`
}

type udmEvent struct {
	UDM struct {
		// The API has shipped both camelCase and snake_case metadata
		// keys across versions, so values are picked leniently.
		Metadata map[string]any `json:"metadata"`
	} `json:"udm"`
}

func metaValue(metadata map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := metadata[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// udmSearch runs one UDM Search over [startISO, endISO).
func (c *Client) udmSearch(ctx context.Context, query, startISO, endISO string, limit int) (*udmSearchResult, error) {
	if limit <= 0 || limit > udmSearchMaxEvents {
		limit = udmSearchMaxEvents
	}
	c.log.Info("running UDM search", "query", query, "start", startISO, "end", endISO)

	var result udmSearchResult
	err := c.transport.DoJSON(ctx, siem.Request{
		Method: http.MethodGet,
		Path:   "v1/events:udmSearch",
		Query: url.Values{
			"query":                 {query},
			"time_range.start_time": {startISO},
			"time_range.end_time":   {endISO},
			"limit":                 {strconv.Itoa(limit)},
		},
	}, &result)
	if err != nil {
		return nil, err
	}

	c.log.Info("UDM search returned",
		"events", len(result.Events),
		"more_data_available", result.MoreDataAvailable)
	return &result, nil
}

// TestConnection runs a minimal UDM Search over the last hour.
func (c *Client) TestConnection(ctx context.Context) error {
	now := time.Now().UTC()
	_, err := c.udmSearch(ctx, `metadata.event_type != ""`,
		now.Add(-time.Hour).Format("2006-01-02T15:04:05Z"),
		now.Format("2006-01-02T15:04:05Z"), 1)
	if err != nil {
		return err
	}
	c.log.Info("connection OK", "region", c.region)
	return nil
}

// CollectWindow samples the window through UDM Search and aggregates
// client-side by (log type, product name), since the API exposes raw
// events rather than grouped counts. Payload byte columns stay zero:
// UDM Search does not report raw event sizes.
func (c *Client) CollectWindow(ctx context.Context, startMS, endMS int64) ([]domain.NormalizedMetric, error) {
	startISO := time.UnixMilli(startMS).UTC().Format("2006-01-02T15:04:05Z")
	endISO := time.UnixMilli(endMS).UTC().Format("2006-01-02T15:04:05Z")

	result, err := c.udmSearch(ctx, `metadata.event_type != ""`, startISO, endISO, udmSearchMaxEvents)
	if err != nil {
		return nil, err
	}
	if result.MoreDataAvailable {
		c.log.Warn("UDM search hit the event cap, counts may be truncated",
			"cap", udmSearchMaxEvents,
			"hint", "use a smaller collection interval, e.g. 0.25h windows")
	}

	type bucket struct {
		logType string
		product string
		vendor  string
		count   int64
	}
	buckets := map[string]*bucket{}
	for _, event := range result.Events {
		metadata := event.UDM.Metadata
		logType := metaValue(metadata, "logType", "log_type")
		if logType == "" {
			logType = "UNKNOWN"
		}
		product := metaValue(metadata, "productName", "product_name")
		if product == "" {
			product = "Unknown"
		}
		vendor := metaValue(metadata, "vendorName", "vendor_name")
		if vendor == "" {
			vendor = "Unknown"
		}

		key := logType + "|" + product
		b, ok := buckets[key]
		if !ok {
			b = &bucket{logType: logType, product: product, vendor: vendor}
			buckets[key] = b
		}
		b.count++
	}

	metrics := make([]domain.NormalizedMetric, 0, len(buckets))
	for key, b := range buckets {
		name := b.product
		if b.vendor != "Unknown" {
			name = fmt.Sprintf("%s (%s)", b.product, b.vendor)
		}
		metrics = append(metrics, domain.NormalizedMetric{
			LogSourceID:          siem.StableID(key),
			LogSourceName:        name,
			LogSourceType:        b.logType,
			AggregatedEventCount: b.count,
			TotalEventCount:      b.count,
		})
	}
	sort.Slice(metrics, func(i, j int) bool {
		return metrics[i].TotalEventCount > metrics[j].TotalEventCount
	})
	return metrics, nil
}

// FetchInventory discovers log types seen over the last 24h. SecOps has
// no configured source catalog, so the inventory is observation-based.
func (c *Client) FetchInventory(ctx context.Context) ([]domain.SourceInventoryEntry, error) {
	now := time.Now().UTC()
	result, err := c.udmSearch(ctx, `metadata.event_type != ""`,
		now.Add(-24*time.Hour).Format("2006-01-02T15:04:05Z"),
		now.Format("2006-01-02T15:04:05Z"), udmSearchMaxEvents)
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	for _, event := range result.Events {
		if lt := metaValue(event.UDM.Metadata, "logType", "log_type"); lt != "" {
			seen[lt] = struct{}{}
		}
	}

	logTypes := make([]string, 0, len(seen))
	for lt := range seen {
		logTypes = append(logTypes, lt)
	}
	sort.Strings(logTypes)

	entries := make([]domain.SourceInventoryEntry, 0, len(logTypes))
	for _, lt := range logTypes {
		entries = append(entries, domain.SourceInventoryEntry{
			LogSourceID: siem.StableID("logtype:" + lt),
			Name:        lt,
			TypeName:    lt,
			Enabled:     true,
			Description: "Google SecOps Log Type: " + lt,
		})
	}
	c.log.Info("log types discovered", "count", len(entries))
	return entries, nil
}
