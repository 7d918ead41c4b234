package telemetry

import (
	"context"
	"log"
	"time"

	"minichat/internal/observability"
)

// Publisher delivers audit envelopes to the broker.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// AuditEmitter records security-relevant actions (sign-ups, sign-ins,
// uploads) as audit_log events.
type AuditEmitter struct {
	publisher   Publisher
	routingKey  string
	service     string
	environment string
}

type AuditEnvelope struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	OccurredAt    string       `json:"occurred_at"`
	Service       string       `json:"service"`
	Environment   string       `json:"environment"`
	RequestID     string       `json:"request_id"`
	UserID        *string      `json:"user_id,omitempty"`
	Payload       AuditPayload `json:"payload"`
}

type AuditPayload struct {
	Level  string `json:"level"`
	Action string `json:"action"`
	Text   string `json:"text"`
}

func NewAuditEmitter(publisher Publisher, routingKey, service, environment string) *AuditEmitter {
	return &AuditEmitter{
		publisher:   publisher,
		routingKey:  routingKey,
		service:     service,
		environment: environment,
	}
}

// Emit publishes one audit record. The request id is taken from ctx; an
// empty userID is omitted.
func (e *AuditEmitter) Emit(ctx context.Context, level, action, text, userID string) {
	if e == nil || e.publisher == nil {
		return
	}

	requestID := observability.RequestIDFromContext(ctx)
	log.Printf("audit emit: level=%s action=%s request_id=%s user_id=%s text=%q", level, action, requestID, userID, text)
	envelope := AuditEnvelope{
		SchemaVersion: 1,
		EventType:     "audit_log",
		OccurredAt:    time.Now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		RequestID:     requestID,
		Payload: AuditPayload{
			Level:  level,
			Action: action,
			Text:   text,
		},
	}
	if userID != "" {
		envelope.UserID = &userID
	}

	if err := e.publisher.Publish(ctx, e.routingKey, envelope); err != nil {
		observability.IncAMQPPublishError()
		log.Printf("audit publish failed: %v", err)
	}
}
