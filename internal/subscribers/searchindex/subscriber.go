// Package searchindex mirrors finished bid cards into Elasticsearch so
// contractor matching can query them.
package searchindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"

	"bidflow/internal/common/logger"
	"bidflow/internal/events"
)

type Subscriber struct {
	es    *elasticsearch.Client
	index string
	log   logger.Logger
}

func New(es *elasticsearch.Client, index string, log logger.Logger) *Subscriber {
	return &Subscriber{
		es:    es,
		index: index,
		log: log.WithFields(map[string]interface{}{
			"subscriber": "searchindex",
		}),
	}
}

// Handle indexes the event payload under the project id. Indexing the
// same project twice overwrites the earlier document.
func (s *Subscriber) Handle(ctx context.Context, env events.Envelope) error {
	projectID, _ := env.Payload["project_id"].(string)
	if projectID == "" {
		return fmt.Errorf("event %s has no project_id", env.ID)
	}

	body, err := json.Marshal(env.Payload)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	res, err := s.es.Index(
		s.index,
		bytes.NewReader(body),
		s.es.Index.WithDocumentID(projectID),
		s.es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("index bid card %s: %w", projectID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index bid card %s: %s", projectID, res.Status())
	}

	s.log.Info("bid card indexed", map[string]interface{}{
		"project_id": projectID,
		"index":      s.index,
	})
	return nil
}
