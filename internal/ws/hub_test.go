package ws

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"minichat/internal/mocks"
	"minichat/internal/observability"
)

func TestHubAddAndRemove(t *testing.T) {
	hub := NewHub(nil)

	hub.Add(KindMessages, "c1", nil, ConnInfo{ConnID: "x"})
	assert.Equal(t, 1, hub.Count(KindMessages, "c1"))
	assert.Equal(t, 0, hub.Count(KindChats, "c1"))

	hub.Remove(KindMessages, "c1", nil, "bye")
	assert.Equal(t, 0, hub.Count(KindMessages, "c1"))
	assert.Empty(t, hub.rooms)

	// Removing an unknown connection is a no-op.
	hub.Remove(KindMessages, "c1", nil, "bye")
}

func TestHubPublishesLifecycleEvents(t *testing.T) {
	pub := new(mocks.PublisherMock)
	hub := NewHub(observability.NewEvents(pub))

	for _, name := range []string{"ws_connect", "ws_error", "ws_disconnect"} {
		name := name
		pub.On("Publish", mock.Anything, "ws_events.chats", mock.MatchedBy(func(ev observability.EventEnvelope) bool {
			return ev.EventType == "ws_events" && ev.EventName == name
		})).Return(nil).Once()
	}

	hub.Add(KindChats, "u1", nil, ConnInfo{ConnID: "x", UserID: "u1"})
	hub.ReportError(KindChats, "u1", nil, errors.New("broken pipe"))
	hub.Remove(KindChats, "u1", nil, "closed")

	pub.AssertExpectations(t)
}
