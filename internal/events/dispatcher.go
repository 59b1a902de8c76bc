package events

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"bidflow/internal/common/errors"
	"bidflow/internal/common/logger"
)

// Handler consumes one event. Handler errors and panics are logged and
// never propagate to the publisher.
type Handler func(ctx context.Context, env Envelope) error

// Dispatcher validates payloads against their topic schema and fans
// events out to the registered handlers. Registration happens at
// startup, before any Publish call, so the handler map needs no lock.
type Dispatcher struct {
	handlers map[string][]Handler
	wait     time.Duration
	log      logger.Logger
}

func NewDispatcher(wait time.Duration, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		handlers: map[string][]Handler{},
		wait:     wait,
		log:      log,
	}
}

// Register appends a handler for a topic.
func (d *Dispatcher) Register(topic string, h Handler) {
	d.handlers[topic] = append(d.handlers[topic], h)
}

// Publish validates the payload, builds the envelope, and delivers it
// to every handler concurrently. It waits for handlers up to the
// configured bound; slow handlers keep running but no longer block the
// publisher. A topic with no handlers is a validated no-op.
func (d *Dispatcher) Publish(ctx context.Context, topic, sender, recipient string, payload map[string]interface{}) (Envelope, error) {
	schema, ok := compiledSchemas[topic]
	if !ok {
		return Envelope{}, errors.NewUnknownTopicError(topic)
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(payload))
	if err != nil {
		return Envelope{}, errors.NewEventPayloadInvalidError(topic, err.Error())
	}
	if !result.Valid() {
		var details []string
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return Envelope{}, errors.NewEventPayloadInvalidError(topic, strings.Join(details, "; "))
	}

	env := NewEnvelope(topic, sender, recipient, payload)
	handlers := d.handlers[topic]
	if len(handlers) == 0 {
		d.log.Debug("no handlers for topic", map[string]interface{}{"topic": topic, "event_id": env.ID})
		return env, nil
	}

	var wg sync.WaitGroup
	for _, h := range handlers {
		wg.Add(1)
		go func(h Handler) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					d.log.Error("event handler panicked", map[string]interface{}{
						"topic":    topic,
						"event_id": env.ID,
						"panic":    fmt.Sprintf("%v", r),
					})
				}
			}()
			if err := h(ctx, env); err != nil {
				d.log.WithError(err).Warn("event handler failed", map[string]interface{}{
					"topic":    topic,
					"event_id": env.ID,
				})
			}
		}(h)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(d.wait):
		d.log.Warn("event fan-out exceeded wait bound", map[string]interface{}{
			"topic":    topic,
			"event_id": env.ID,
		})
	}
	return env, nil
}
