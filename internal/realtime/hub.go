// Package realtime fans events out to subscribed websocket connections.
// The Hub itself is transport-agnostic: it tracks topic membership over a
// Subscriber interface, and delivery is best effort, a subscriber that
// cannot keep up loses messages without affecting anyone else.
package realtime

import (
	"log/slog"
	"sync"
	"time"
)

// GlobalTopic receives every broadcast addressed to no particular repository
// or user.
const GlobalTopic = "global"

// RepoTopic names the topic for a repository's events.
func RepoTopic(fullName string) string {
	return "repo:" + fullName
}

// UserTopic names a user's personal topic.
func UserTopic(userID string) string {
	return "user:" + userID
}

// Message is the envelope written to subscribers. Timestamp is stamped by
// the hub at broadcast time.
type Message struct {
	Data      any       `json:"data,omitempty"`
	Event     string    `json:"event"`
	Topic     string    `json:"topic"`
	Timestamp time.Time `json:"timestamp"`
}

// Subscriber is one connected client. Send must not block: it returns false
// when the message could not be enqueued, and the hub drops the message for
// that subscriber only.
type Subscriber interface {
	Send(msg Message) bool
}

// Hub maps topics to subscribers. All methods are safe for concurrent use.
type Hub struct {
	topics map[string]map[Subscriber]struct{}
	subs   map[Subscriber]map[string]struct{}
	mu     sync.RWMutex
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{
		topics: make(map[string]map[Subscriber]struct{}),
		subs:   make(map[Subscriber]map[string]struct{}),
	}
}

// Subscribe adds sub to topic. Subscribing twice is a no-op.
func (h *Hub) Subscribe(sub Subscriber, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.topics[topic] == nil {
		h.topics[topic] = make(map[Subscriber]struct{})
	}
	h.topics[topic][sub] = struct{}{}

	if h.subs[sub] == nil {
		h.subs[sub] = make(map[string]struct{})
	}
	h.subs[sub][topic] = struct{}{}
}

// Unsubscribe removes sub from topic. Unsubscribing from a topic sub never
// joined is a no-op.
func (h *Hub) Unsubscribe(sub Subscriber, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(sub, topic)
}

// Disconnect removes sub from every topic it joined.
func (h *Hub) Disconnect(sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for topic := range h.subs[sub] {
		h.removeLocked(sub, topic)
	}
	delete(h.subs, sub)
}

func (h *Hub) removeLocked(sub Subscriber, topic string) {
	if members, ok := h.topics[topic]; ok {
		delete(members, sub)
		if len(members) == 0 {
			delete(h.topics, topic)
		}
	}
	if topics, ok := h.subs[sub]; ok {
		delete(topics, topic)
	}
}

// Broadcast sends msg to every subscriber of topic and returns how many
// accepted it. Subscribers whose buffers are full are skipped.
func (h *Hub) Broadcast(topic string, event string, data any) int {
	msg := Message{Topic: topic, Event: event, Data: data, Timestamp: time.Now().UTC()}

	h.mu.RLock()
	members := make([]Subscriber, 0, len(h.topics[topic]))
	for sub := range h.topics[topic] {
		members = append(members, sub)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, sub := range members {
		if sub.Send(msg) {
			delivered++
		} else {
			slog.Debug("dropping realtime message for slow subscriber", "topic", topic, "event", event)
		}
	}
	return delivered
}

// BroadcastRepo sends an event to a repository's topic. Repo-scoped events
// stay on their topic; the global topic is reserved for system-wide
// messages so clients never see repositories they did not subscribe to.
func (h *Hub) BroadcastRepo(fullName string, event string, data any) {
	h.Broadcast(RepoTopic(fullName), event, data)
}

// BroadcastGlobal sends an event to every connection on the global topic.
func (h *Hub) BroadcastGlobal(event string, data any) int {
	return h.Broadcast(GlobalTopic, event, data)
}

// Topics returns the topics sub currently belongs to.
func (h *Hub) Topics(sub Subscriber) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]string, 0, len(h.subs[sub]))
	for topic := range h.subs[sub] {
		out = append(out, topic)
	}
	return out
}

// Stats reports current connection and topic counts.
type Stats struct {
	Connections int `json:"connections"`
	Topics      int `json:"topics"`
}

func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return Stats{Connections: len(h.subs), Topics: len(h.topics)}
}
