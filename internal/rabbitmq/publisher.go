// Package rabbitmq ships chat events and audit records to a topic exchange.
package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"minichat/internal/observability"
	"minichat/internal/telemetry"
)

const appID = "minichat"

// Publisher publishes chat events and audit records.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

// Status describes the publisher NewPublisher settled on.
type Status struct {
	Mode   string
	Reason string
}

// Describe reports whether p talks to a broker or drops events, and why.
func Describe(p Publisher) Status {
	switch p := p.(type) {
	case *brokerPublisher:
		return Status{Mode: "amqp"}
	case disabledPublisher:
		return Status{Mode: "noop", Reason: p.reason}
	}
	return Status{Mode: "unknown"}
}

// NewPublisher connects to the broker at amqpURL and declares exchange. When
// the URL is empty or the broker cannot be reached it returns a publisher that
// logs and drops events.
func NewPublisher(amqpURL, exchange string) Publisher {
	if amqpURL == "" {
		return disabled("empty amqp url")
	}
	pub, err := dial(amqpURL, exchange)
	if err != nil {
		return disabled(err.Error())
	}
	log.Printf("rabbitmq connected exchange=%s", exchange)
	return pub
}

func disabled(reason string) Publisher {
	log.Printf("rabbitmq disabled, events are dropped: %s", reason)
	return disabledPublisher{reason: reason}
}

func dial(amqpURL, exchange string) (*brokerPublisher, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &brokerPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

type brokerPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func (p *brokerPublisher) Publish(ctx context.Context, routingKey string, event any) error {
	msg, err := publishing(ctx, event, time.Now())
	if err != nil {
		return fmt.Errorf("encode %s event: %w", routingKey, err)
	}
	if err := p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}

func (p *brokerPublisher) Close() error {
	_ = p.ch.Close()
	return p.conn.Close()
}

// publishing wraps event in a persistent JSON message carrying the request
// and trace ids found in ctx.
func publishing(ctx context.Context, event any, at time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, err
	}
	headers := amqp.Table{}
	for k, v := range observability.BuildHeaders(observability.RequestIDFromContext(ctx), observability.TraceIDFromContext(ctx)) {
		headers[k] = v
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    at.UTC(),
		AppId:        appID,
		Type:         eventKind(event),
		Headers:      headers,
		Body:         body,
	}, nil
}

func eventKind(event any) string {
	switch e := event.(type) {
	case observability.EventEnvelope:
		return e.EventName
	case telemetry.AuditEnvelope:
		return e.EventType
	}
	return ""
}

type disabledPublisher struct {
	reason string
}

func (disabledPublisher) Publish(_ context.Context, routingKey string, event any) error {
	if audit, ok := event.(telemetry.AuditEnvelope); ok {
		log.Printf("event dropped routing_key=%s kind=%s action=%s request_id=%s", routingKey, audit.EventType, audit.Payload.Action, audit.RequestID)
		return nil
	}
	log.Printf("event dropped routing_key=%s kind=%s", routingKey, eventKind(event))
	return nil
}

func (disabledPublisher) Close() error { return nil }
