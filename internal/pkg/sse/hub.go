package sse

import (
	"sync"
)

const (
	EventPunchRecorded         = "punch.recorded"
	EventJustificationCreated  = "justification.created"
	EventJustificationReviewed = "justification.reviewed"
)

// Event is one server-sent event.
type Event struct {
	Topic string      `json:"-"`
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// UserTopic is the stream of one user's own events.
func UserTopic(userID string) string {
	return "user:" + userID
}

// CompanyTopic is the stream managers follow for their company.
func CompanyTopic(companyID string) string {
	return "company:" + companyID
}

// Hub fans events out to subscribers by topic.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[chan Event]struct{}),
	}
}

// Subscribe registers one channel for all topics and returns it with its
// cleanup function.
func (h *Hub) Subscribe(topics ...string) (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, 16)
	for _, topic := range topics {
		if h.subscribers[topic] == nil {
			h.subscribers[topic] = make(map[chan Event]struct{})
		}
		h.subscribers[topic][ch] = struct{}{}
	}

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			for _, topic := range topics {
				delete(h.subscribers[topic], ch)
				if len(h.subscribers[topic]) == 0 {
					delete(h.subscribers, topic)
				}
			}
			close(ch)
		})
	}

	return ch, cleanup
}

// Publish sends event to every subscriber of topic. Slow subscribers
// miss events instead of blocking the publisher.
func (h *Hub) Publish(topic string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	event.Topic = topic
	for ch := range h.subscribers[topic] {
		select {
		case ch <- event:
		default:
		}
	}
}

func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[topic])
}
