package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/driftwatch/driftwatch/internal/drift"
	"github.com/driftwatch/driftwatch/internal/sink"
)

func testServer(t *testing.T, mutate func(*Config)) *Server {
	t.Helper()

	columns := map[string][]float64{"f": make([]float64, 500)}
	for i := range columns["f"] {
		columns["f"][i] = float64(i % 100)
	}
	ref, err := drift.NewReferenceDataset("test", columns)
	require.NoError(t, err)

	results := sink.NewMemory(100)
	emitter := drift.NewEmitter(zap.NewNop(), results)

	cfg := drift.DefaultConfig()
	cfg.CheckInterval = 10
	cfg.MinSamples = 10
	eval, err := drift.NewEvaluator(cfg, ref, emitter, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { eval.Close() })

	srvConfig := DefaultConfig()
	srvConfig.EnableMetrics = false
	srvConfig.EnableRateLimit = false
	if mutate != nil {
		mutate(srvConfig)
	}
	return New(srvConfig, eval, results, zap.NewNop())
}

func doJSON(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoints(t *testing.T) {
	s := testServer(t, nil)

	w := doJSON(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")

	w = doJSON(t, s, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIngestRecord(t *testing.T) {
	s := testServer(t, nil)

	w := doJSON(t, s, http.MethodPost, "/api/v1/records", `{"features": {"f": 42}}`)
	assert.Equal(t, http.StatusAccepted, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["accepted"])
}

func TestIngestRecordRejectsBadInput(t *testing.T) {
	s := testServer(t, nil)

	// Malformed JSON
	w := doJSON(t, s, http.MethodPost, "/api/v1/records", `{`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Missing features field
	w = doJSON(t, s, http.MethodPost, "/api/v1/records", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Tracked feature absent
	w = doJSON(t, s, http.MethodPost, "/api/v1/records", `{"features": {"other": 1}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "missing feature")

	// Untracked extra feature
	w = doJSON(t, s, http.MethodPost, "/api/v1/records", `{"features": {"f": 1, "ghost": 2}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "ghost")
}

func TestIngestBatchSkipsInvalidRecords(t *testing.T) {
	s := testServer(t, nil)

	body := `{"records": [
		{"features": {"f": 1}},
		{"features": {"ghost": 2}},
		{"features": {"f": 3}}
	]}`
	w := doJSON(t, s, http.MethodPost, "/api/v1/records/batch", body)
	assert.Equal(t, http.StatusAccepted, w.Code)

	var resp struct {
		Accepted int              `json:"accepted"`
		Rejected []map[string]any `json:"rejected"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Accepted)
	require.Len(t, resp.Rejected, 1)
	assert.Equal(t, float64(1), resp.Rejected[0]["index"])
}

func TestResultsEndpoint(t *testing.T) {
	s := testServer(t, nil)

	// Ten records trip the check interval and produce results.
	for i := 0; i < 10; i++ {
		w := doJSON(t, s, http.MethodPost, "/api/v1/records",
			fmt.Sprintf(`{"features": {"f": %d}}`, i*10))
		require.Equal(t, http.StatusAccepted, w.Code)
	}

	// Delivery is queued; Close drains it into the memory sink.
	require.NoError(t, s.eval.Close())

	w := doJSON(t, s, http.MethodGet, "/api/v1/results", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Results []drift.Result `json:"results"`
		Count   int            `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count) // feature + overall
	assert.Equal(t, "f", resp.Results[0].Feature)

	w = doJSON(t, s, http.MethodGet, "/api/v1/results?limit=1", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
}

func TestStatusEndpoint(t *testing.T) {
	s := testServer(t, nil)

	w := doJSON(t, s, http.MethodPost, "/api/v1/records", `{"features": {"f": 1}}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	w = doJSON(t, s, http.MethodGet, "/api/v1/status", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var stats drift.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, "accumulating", stats.State)
	assert.Equal(t, uint64(1), stats.Ingested)
	assert.Equal(t, []string{"f"}, stats.Features)
}

func TestConfigEndpoint(t *testing.T) {
	s := testServer(t, nil)

	w := doJSON(t, s, http.MethodGet, "/api/v1/config", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var cfg drift.Config
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cfg))
	assert.Equal(t, 10, cfg.CheckInterval)
	assert.Equal(t, 1000, cfg.WindowSize)
}

func TestAuthProtectsIngestion(t *testing.T) {
	const secret = "test-secret"
	s := testServer(t, func(c *Config) {
		c.EnableAuth = true
		c.JWTSecret = secret
	})

	// No token
	w := doJSON(t, s, http.MethodPost, "/api/v1/records", `{"features": {"f": 1}}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Read endpoints stay open
	w = doJSON(t, s, http.MethodGet, "/api/v1/status", "")
	assert.Equal(t, http.StatusOK, w.Code)

	// Bad token
	req := httptest.NewRequest(http.MethodPost, "/api/v1/records", strings.NewReader(`{"features": {"f": 1}}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Valid token
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "producer-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/records", strings.NewReader(`{"features": {"f": 1}}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+signed)
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestClosedEngineReturnsUnavailable(t *testing.T) {
	s := testServer(t, nil)
	require.NoError(t, s.eval.Close())

	w := doJSON(t, s, http.MethodPost, "/api/v1/records", `{"features": {"f": 1}}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
