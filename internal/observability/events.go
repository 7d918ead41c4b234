package observability

import (
	"context"
	"log"
)

// EventEnvelope is the body of every domain event published to the broker.
type EventEnvelope struct {
	EventType string      `json:"event_type"`
	EventName string      `json:"event_name"`
	Payload   interface{} `json:"payload"`
}

func BuildHeaders(requestID, traceID string) map[string]string {
	headers := map[string]string{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}

// Publisher is satisfied by the rabbitmq publishers.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// Events publishes envelopes and counts failures. A nil *Events drops everything.
type Events struct {
	publisher Publisher
}

func NewEvents(publisher Publisher) *Events {
	return &Events{publisher: publisher}
}

func (e *Events) Publish(ctx context.Context, routingKey, eventType, eventName string, payload interface{}) {
	if e == nil || e.publisher == nil {
		return
	}
	envelope := EventEnvelope{EventType: eventType, EventName: eventName, Payload: payload}
	if err := e.publisher.Publish(ctx, routingKey, envelope); err != nil {
		IncAMQPPublishError()
		log.Printf("event publish failed routing_key=%s event=%s: %v", routingKey, eventName, err)
	}
}
