package secops_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lsardim1/siem-log-collectors/internal/siem"
	"github.com/lsardim1/siem-log-collectors/internal/siem/secops"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *secops.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := secops.New(secops.Config{
		Token:   "access-token",
		Region:  "europe",
		BaseURL: server.URL,
	}, nil)
	require.NoError(t, err)
	return client
}

func udmEvent(metadata map[string]any) map[string]any {
	return map[string]any{"udm": map[string]any{"metadata": metadata}}
}

func TestNewRequiresAuth(t *testing.T) {
	_, err := secops.New(secops.Config{Region: "us"}, nil)
	assert.Error(t, err)

	client, err := secops.New(secops.Config{Token: "tok", Region: "not-a-region"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "secops", client.Name())
}

func TestCollectWindowAggregatesByLogTypeAndProduct(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/events:udmSearch", r.URL.Path)
		assert.Equal(t, "Bearer access-token", r.Header.Get("Authorization"))
		assert.Equal(t, `metadata.event_type != ""`, r.URL.Query().Get("query"))
		assert.Equal(t, "2023-11-14T22:13:20Z", r.URL.Query().Get("time_range.start_time"))
		assert.Equal(t, "2023-11-14T23:13:20Z", r.URL.Query().Get("time_range.end_time"))
		assert.Equal(t, "10000", r.URL.Query().Get("limit"))

		events := []map[string]any{
			// camelCase and snake_case metadata both occur in the wild.
			udmEvent(map[string]any{"logType": "WINDOWS_DNS", "productName": "DNS Server", "vendorName": "Microsoft"}),
			udmEvent(map[string]any{"log_type": "WINDOWS_DNS", "product_name": "DNS Server", "vendor_name": "Microsoft"}),
			udmEvent(map[string]any{"logType": "WINDOWS_DNS", "productName": "DNS Server", "vendorName": "Microsoft"}),
			udmEvent(map[string]any{"logType": "CS_EDR", "productName": "Falcon"}),
			udmEvent(map[string]any{}),
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"events": events}))
	})

	metrics, err := client.CollectWindow(context.Background(), 1_700_000_000_000, 1_700_003_600_000)
	require.NoError(t, err)
	require.Len(t, metrics, 3)

	// Sorted by event count, largest bucket first.
	top := metrics[0]
	assert.Equal(t, "DNS Server (Microsoft)", top.LogSourceName)
	assert.Equal(t, "WINDOWS_DNS", top.LogSourceType)
	assert.Equal(t, int64(3), top.TotalEventCount)
	assert.Equal(t, int64(3), top.AggregatedEventCount)
	assert.Zero(t, top.TotalPayloadBytes, "UDM Search reports no event sizes")
	assert.Equal(t, siem.StableID("WINDOWS_DNS|DNS Server"), top.LogSourceID)

	assert.Equal(t, "Falcon", metrics[1].LogSourceName, "vendor omitted when unknown")

	unknown := metrics[2]
	assert.Equal(t, "UNKNOWN", unknown.LogSourceType)
	assert.Equal(t, int64(1), unknown.TotalEventCount)
}

func TestFetchInventoryDiscoversLogTypes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		events := []map[string]any{
			udmEvent(map[string]any{"logType": "WINDOWS_DNS"}),
			udmEvent(map[string]any{"logType": "AZURE_AD"}),
			udmEvent(map[string]any{"log_type": "WINDOWS_DNS"}),
			udmEvent(map[string]any{}),
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"events": events}))
	})

	entries, err := client.FetchInventory(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "AZURE_AD", entries[0].Name, "log types come back sorted")
	assert.Equal(t, "WINDOWS_DNS", entries[1].Name)
	assert.Equal(t, siem.StableID("logtype:AZURE_AD"), entries[0].LogSourceID)
	assert.True(t, entries[0].Enabled)
}

func TestTestConnection(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"events": []any{}}))
	})

	assert.NoError(t, client.TestConnection(context.Background()))
}
