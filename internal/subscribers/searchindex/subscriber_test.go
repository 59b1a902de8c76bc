package searchindex

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bidflow/internal/common/logger"
	"bidflow/internal/events"
)

func newTestES(t *testing.T, handler http.HandlerFunc) *elasticsearch.Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{server.URL}})
	require.NoError(t, err)
	return es
}

func projectCreatedEnv() events.Envelope {
	return events.NewEnvelope(events.TopicProjectCreated, "dialogue-engine", "", map[string]interface{}{
		"project_id":    "proj-1",
		"user_id":       "user-1",
		"description":   "lawn mowing in Austin, TX",
		"category":      "maintenance",
		"ai_confidence": 0.35,
		"status":        "draft",
	})
}

func TestHandleIndexesDocument(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}

	es := newTestES(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotBody)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"result":"created"}`))
	})

	sub := New(es, "bid-cards", logger.NewTestLogger(t))
	require.NoError(t, sub.Handle(context.Background(), projectCreatedEnv()))

	assert.Equal(t, "/bid-cards/_doc/proj-1", gotPath)
	assert.Equal(t, "maintenance", gotBody["category"])
	assert.Equal(t, "user-1", gotBody["user_id"])
}

func TestHandleServerError(t *testing.T) {
	es := newTestES(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"boom"}`))
	})

	sub := New(es, "bid-cards", logger.NewTestLogger(t))
	assert.Error(t, sub.Handle(context.Background(), projectCreatedEnv()))
}

func TestHandleMissingProjectID(t *testing.T) {
	es := newTestES(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	sub := New(es, "bid-cards", logger.NewTestLogger(t))
	env := events.NewEnvelope(events.TopicProjectCreated, "dialogue-engine", "", map[string]interface{}{
		"user_id": "user-1",
	})
	assert.Error(t, sub.Handle(context.Background(), env))
}
