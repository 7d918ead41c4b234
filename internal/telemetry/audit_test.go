package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"minichat/internal/mocks"
	"minichat/internal/observability"
)

func TestEmitBuildsEnvelope(t *testing.T) {
	pub := new(mocks.PublisherMock)
	emitter := NewAuditEmitter(pub, "audit.chat", "minichat", "test")
	ctx := observability.WithRequestID(context.Background(), "req-1")

	pub.On("Publish", mock.Anything, "audit.chat", mock.MatchedBy(func(ev AuditEnvelope) bool {
		return ev.EventType == "audit_log" &&
			ev.Service == "minichat" &&
			ev.RequestID == "req-1" &&
			ev.UserID != nil && *ev.UserID == "u1" &&
			ev.Payload.Action == "sign_in"
	})).Return(nil).Once()

	emitter.Emit(ctx, "INFO", "sign_in", "user signed in", "u1")
	pub.AssertExpectations(t)
}

func TestEmitOmitsAnonymousUser(t *testing.T) {
	pub := new(mocks.PublisherMock)
	emitter := NewAuditEmitter(pub, "audit.chat", "minichat", "test")

	pub.On("Publish", mock.Anything, "audit.chat", mock.MatchedBy(func(ev AuditEnvelope) bool {
		return ev.UserID == nil
	})).Return(assert.AnError).Once()

	emitter.Emit(context.Background(), "WARN", "sign_in", "invalid credentials", "")
	pub.AssertExpectations(t)
}

func TestNilEmitterIsNoop(t *testing.T) {
	var emitter *AuditEmitter
	emitter.Emit(context.Background(), "INFO", "x", "y", "")
}
