package mocks

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"minichat/internal/observability"
)

// PublishedEvent is one recorded Publish call.
type PublishedEvent struct {
	RoutingKey string
	Event      any
}

// PublisherMock records every event handed to it. Without expectations set
// through On, Publish and Close succeed.
type PublisherMock struct {
	mock.Mock

	mu        sync.Mutex
	published []PublishedEvent
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	m.mu.Lock()
	m.published = append(m.published, PublishedEvent{RoutingKey: routingKey, Event: event})
	m.mu.Unlock()

	if !m.expects("Publish") {
		return nil
	}
	return m.Called(ctx, routingKey, event).Error(0)
}

func (m *PublisherMock) Close() error {
	if !m.expects("Close") {
		return nil
	}
	return m.Called().Error(0)
}

// Published returns the recorded calls in order.
func (m *PublisherMock) Published() []PublishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PublishedEvent(nil), m.published...)
}

// EventNames lists the names of the envelopes published under routingKey.
func (m *PublisherMock) EventNames(routingKey string) []string {
	var names []string
	for _, p := range m.Published() {
		if p.RoutingKey != routingKey {
			continue
		}
		if env, ok := p.Event.(observability.EventEnvelope); ok {
			names = append(names, env.EventName)
		}
	}
	return names
}

func (m *PublisherMock) expects(method string) bool {
	for _, call := range m.ExpectedCalls {
		if call.Method == method {
			return true
		}
	}
	return false
}
