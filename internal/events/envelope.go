// Package events implements the in-process event bus used to announce
// bid card progress to downstream subscribers.
package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"
)

// Topics published by the engine.
const (
	TopicProjectCreated = "project.created"
	TopicBidCardUpdated = "bidcard.updated"
)

// Envelope wraps one event for delivery. Recipient is empty for
// broadcast topics.
type Envelope struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Topic     string                 `json:"topic"`
	Sender    string                 `json:"sender"`
	Recipient string                 `json:"recipient,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload"`
}

// NewEnvelope stamps a payload with identity and time.
func NewEnvelope(topic, sender, recipient string, payload map[string]interface{}) Envelope {
	return Envelope{
		ID:        uuid.New().String(),
		Type:      "event",
		Topic:     topic,
		Sender:    sender,
		Recipient: recipient,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// topicSchemas holds the JSON schema source for each known topic.
// Payloads must validate before an envelope is built.
var topicSchemas = map[string]string{
	TopicProjectCreated: `{
		"type": "object",
		"properties": {
			"project_id": {"type": "string"},
			"user_id": {"type": "string"},
			"description": {"type": "string"},
			"category": {"type": "string"},
			"job_type": {"type": "string"},
			"ai_confidence": {"type": "number"},
			"status": {"type": "string"},
			"created_at": {"type": "string"}
		},
		"required": ["project_id", "user_id", "description"]
	}`,
	TopicBidCardUpdated: `{
		"type": "object",
		"properties": {
			"project_id": {"type": "string"},
			"user_id": {"type": "string"},
			"filled_slots": {"type": "array", "items": {"type": "string"}},
			"missing_slots": {"type": "array", "items": {"type": "string"}},
			"updated_at": {"type": "string"}
		},
		"required": ["project_id", "user_id", "filled_slots"]
	}`,
}

var compiledSchemas = map[string]*gojsonschema.Schema{}

func init() {
	for topic, src := range topicSchemas {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
		if err != nil {
			panic("invalid event schema for topic " + topic + ": " + err.Error())
		}
		compiledSchemas[topic] = schema
	}
}
