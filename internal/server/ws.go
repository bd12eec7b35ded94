package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alfredjeanlab/pipeline/internal/events"
	"github.com/alfredjeanlab/pipeline/internal/idgen"
)

const (
	// wsWriteTimeout bounds a single frame write to a slow peer.
	wsWriteTimeout = 10 * time.Second

	// wsClientBuffer is the per-connection outbound queue. Connections
	// that fall this far behind start dropping events; subscribers are
	// expected to tolerate gaps and refetch.
	wsClientBuffer = 64
)

// wsEnvelope is the frame format pushed to websocket subscribers.
type wsEnvelope struct {
	Topic string          `json:"topic"`
	Data  json.RawMessage `json:"data"`
}

// wsHub fans out published events to connected websocket subscribers.
// Delivery is best effort: a subscriber that cannot keep up loses events
// rather than blocking the publisher.
type wsHub struct {
	mu      sync.RWMutex
	clients map[*wsSubscriber]struct{}
}

// wsSubscriber is a single connected websocket consumer.
type wsSubscriber struct {
	topics []string         // topic glob patterns to match (empty = all)
	ch     chan *wsEnvelope // buffered channel for event delivery
}

func newWSHub() *wsHub {
	return &wsHub{
		clients: make(map[*wsSubscriber]struct{}),
	}
}

// broadcast sends an event to all subscribers whose topic filters match.
func (h *wsHub) broadcast(topic string, payload []byte) {
	evt := &wsEnvelope{Topic: topic, Data: payload}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.matchesTopic(topic) {
			select {
			case c.ch <- evt:
			default:
				// Drop if subscriber is slow — prevents blocking the publisher.
			}
		}
	}
}

// subscribe registers a new subscriber. Call unsubscribe when done.
func (h *wsHub) subscribe(topics []string) *wsSubscriber {
	c := &wsSubscriber{
		topics: topics,
		ch:     make(chan *wsEnvelope, wsClientBuffer),
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

// unsubscribe removes a subscriber from the hub.
func (h *wsHub) unsubscribe(c *wsSubscriber) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// matchesTopic checks whether the subscriber's topic filters match the given
// topic. An empty filter list matches all topics.
func (c *wsSubscriber) matchesTopic(topic string) bool {
	if len(c.topics) == 0 {
		return true
	}
	for _, pattern := range c.topics {
		if matchTopicPattern(pattern, topic) {
			return true
		}
	}
	return false
}

// matchTopicPattern matches a dot-separated topic against a pattern.
// Supports "*" as a single-segment wildcard and ">" as a multi-segment
// suffix wildcard (NATS-style).
func matchTopicPattern(pattern, topic string) bool {
	if pattern == topic {
		return true
	}

	patParts := strings.Split(pattern, ".")
	topParts := strings.Split(topic, ".")

	for i, pp := range patParts {
		if pp == ">" {
			// ">" matches one or more remaining segments.
			return i < len(topParts)
		}
		if i >= len(topParts) {
			return false
		}
		if pp != "*" && pp != topParts[i] {
			return false
		}
	}

	return len(patParts) == len(topParts)
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Token auth already ran in the middleware; browser clients connect
	// from whatever origin serves the dashboard.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleClientsWS handles GET /ws/clients. Subscribers receive pipeline
// events as JSON envelopes, optionally filtered by a comma-separated
// topics query parameter.
func (s *PipelineServer) handleClientsWS(w http.ResponseWriter, r *http.Request) {
	var topics []string
	if q := r.URL.Query().Get("topics"); q != "" {
		for _, t := range strings.Split(q, ",") {
			t = strings.TrimSpace(t)
			if t != "" {
				topics = append(topics, t)
			}
		}
	}

	// Subscribe before the handshake completes so callers never miss
	// events raced against their own follow-up requests.
	sub := s.hub.subscribe(topics)
	defer s.hub.unsubscribe(sub)

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		return
	}
	defer conn.Close()

	// Reader exists only to observe the close handshake; subscribers on
	// this endpoint never send application frames.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case evt := <-sub.ch:
			payload, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}
}

type chatFrame struct {
	Sender string `json:"sender"`
	Body   string `json:"body"`
}

// handleChatWS handles GET /ws/chat. Each inbound frame is stamped with the
// session and server time, fanned out to chat subscribers, and published to
// the event bus for offline consumers.
func (s *PipelineServer) handleChatWS(w http.ResponseWriter, r *http.Request) {
	session := r.URL.Query().Get("session")
	if session == "" {
		var err error
		if session, err = idgen.NewSessionID(); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to create session")
			return
		}
	}

	sub := s.chat.subscribe(nil)
	defer s.chat.unsubscribe(sub)

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var frame chatFrame
			if err := json.Unmarshal(data, &frame); err != nil || frame.Body == "" {
				continue
			}
			msg := events.ChatMessage{
				Session: session,
				Sender:  frame.Sender,
				Body:    frame.Body,
				SentAt:  time.Now().UTC(),
			}
			if err := s.publisher.Publish(r.Context(), events.TopicChatMessage, msg); err != nil {
				s.logger.Warn("failed to publish chat message", "session", session, "error", err)
			}
			if payload, err := json.Marshal(msg); err == nil {
				s.chat.broadcast(events.TopicChatMessage, payload)
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case evt := <-sub.ch:
			payload, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}
}
