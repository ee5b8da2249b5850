package sink

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftwatch/driftwatch/internal/drift"
)

func TestWebhookPostsAlertPayload(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))
	}))
	defer srv.Close()

	hook := NewWebhook(srv.URL, drift.PossibleDrift)
	require.NoError(t, hook.Consume(testResult("amount", 0.3123, drift.LikelyDrift)))

	require.Contains(t, got, "text")
	assert.Contains(t, got["text"], "Likely Drift")
	assert.Contains(t, got["text"], "amount")
	assert.Contains(t, got["text"], "0.3123")
}

func TestWebhookSkipsBelowMinimumSeverity(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	hook := NewWebhook(srv.URL, drift.LikelyDrift)
	require.NoError(t, hook.Consume(testResult("f", 0.05, drift.NoDrift)))
	require.NoError(t, hook.Consume(testResult("f", 0.15, drift.PossibleDrift)))
	assert.Equal(t, 0, calls)

	require.NoError(t, hook.Consume(testResult("f", 0.5, drift.LikelyDrift)))
	assert.Equal(t, 1, calls)
}

func TestWebhookReportsDeliveryFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	hook := NewWebhook(srv.URL, drift.PossibleDrift)
	err := hook.Consume(testResult("f", 0.5, drift.LikelyDrift))
	assert.Error(t, err)

	srv.Close()
	err = hook.Consume(testResult("f", 0.5, drift.LikelyDrift))
	assert.Error(t, err)
}
