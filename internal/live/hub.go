package live

import "sync"

// Hub fans change notifications out to watchers of a topic. Notifications
// carry no payload: watchers re-read whatever they are interested in, so a
// slow watcher only ever has one pending notification.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[uint64]chan struct{}
	nextID uint64
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{topics: make(map[string]map[uint64]chan struct{})}
}

// Watch registers interest in topic. The returned cancel func must be called
// to unregister.
func (h *Hub) Watch(topic string) (<-chan struct{}, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.topics[topic]; !ok {
		h.topics[topic] = make(map[uint64]chan struct{})
	}
	h.nextID++
	id := h.nextID
	ch := make(chan struct{}, 1)
	h.topics[topic][id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() { h.unwatch(topic, id) })
	}
}

func (h *Hub) unwatch(topic string, id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if watchers, ok := h.topics[topic]; ok {
		delete(watchers, id)
		if len(watchers) == 0 {
			delete(h.topics, topic)
		}
	}
}

// Notify wakes every watcher of the given topics.
func (h *Hub) Notify(topics ...string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, topic := range topics {
		for _, ch := range h.topics[topic] {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	}
}

// Subscribers returns the number of active watchers of topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}
