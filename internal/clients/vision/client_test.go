package vision

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bidflow/internal/common/logger"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	return NewClient(Config{
		BaseURL:    baseURL,
		APIKey:     "test-key",
		Timeout:    2 * time.Second,
		MaxRetries: 2,
	}, logger.NewTestLogger(t))
}

func TestAnalyzeSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/vision/analyze", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotEmpty(t, body["image_base64"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"labels":            []string{"roof", "shingles"},
			"description":       "damaged roof shingles",
			"damage_assessment": "moderate shingle damage",
			"confidence":        0.82,
		})
	}))
	defer server.Close()

	ev, err := newTestClient(t, server.URL).Analyze(context.Background(), []byte("fake-image"))
	require.NoError(t, err)
	assert.Equal(t, []string{"roof", "shingles"}, ev.Labels)
	assert.Equal(t, "moderate shingle damage", ev.DamageAssessment)
	assert.Equal(t, 0.82, ev.Confidence)
}

func TestAnalyzeRetriesOnServerError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"labels": []string{"grass"}})
	}))
	defer server.Close()

	ev, err := newTestClient(t, server.URL).Analyze(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, []string{"grass"}, ev.Labels)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestAnalyzeExhaustsRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).Analyze(context.Background(), []byte("img"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAnalysisFailed)
}

func TestAnalyzeTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestClient(t, server.URL).Analyze(ctx, []byte("img"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAPITimeout)
}
