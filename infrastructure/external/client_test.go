package external

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightgrid/platform/config"
	"github.com/insightgrid/platform/pkg/logging"
	"github.com/insightgrid/platform/pkg/metrics"
	"github.com/insightgrid/platform/shared/common"
	"github.com/insightgrid/platform/shared/types"
)

func newTestClient(t *testing.T, baseURL string, breaker config.BreakerConfig) *Client {
	t.Helper()
	logger := logging.NewDevelopmentLogger("client-test")
	collector := metrics.NewCollector("client_test_" + t.Name())
	return NewClient("test_service", config.CollaboratorConfig{
		BaseURL: baseURL,
		Timeout: 2 * time.Second,
		Breaker: breaker,
	}, logger, collector)
}

func TestClient_PostJSONRoundTrip(t *testing.T) {
	var gotContentType, gotCorrelationID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotCorrelationID = r.Header.Get("X-Correlation-ID")

		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "src-1", payload["file_id"])

		json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, config.BreakerConfig{})

	reqCtx := types.NewRequestContext()
	ctx := context.WithValue(context.Background(), types.RequestContextKey, reqCtx)

	var out struct {
		Success bool `json:"success"`
	}
	err := client.PostJSON(ctx, "/api/v1/test", map[string]string{"file_id": "src-1"}, &out)

	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, reqCtx.CorrelationID.String(), gotCorrelationID)
}

func TestClient_ErrorStatusSurfacesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "schema not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, config.BreakerConfig{})

	err := client.GetJSON(context.Background(), "/api/v1/test", nil)
	require.Error(t, err)
	assert.True(t, common.HasErrorCode(err, common.ErrCodeExternalService))
	assert.Contains(t, err.Error(), "schema not found")
}

func TestClient_BreakerOpensAfterFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, config.BreakerConfig{
		Enabled:     true,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		MinRequests: 2,
		FailureRate: 0.5,
	})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		err := client.GetJSON(ctx, "/api/v1/test", nil)
		require.Error(t, err)
		assert.True(t, common.HasErrorCode(err, common.ErrCodeExternalService))
	}

	err := client.GetJSON(ctx, "/api/v1/test", nil)
	require.Error(t, err)
	assert.True(t, common.HasErrorCode(err, common.ErrCodeCircuitOpen))
}

func TestClient_NoBodyExpected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, config.BreakerConfig{})
	assert.NoError(t, client.PostJSON(context.Background(), "/api/v1/test", map[string]string{}, nil))
}
