// Package server implements the pipeline HTTP/JSON API: client CRUD,
// status moves with server-side permission enforcement, and websocket
// streams for pipeline events and chat.
package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/alfredjeanlab/pipeline/internal/events"
	"github.com/alfredjeanlab/pipeline/internal/permission"
	"github.com/alfredjeanlab/pipeline/internal/store"
)

// RoleResolver maps an actor identity (the X-Pipeline-Actor header) to its
// pipeline roles. A nil resolver disables server-side permission checks.
type RoleResolver interface {
	Resolve(actor string) []permission.Role
}

// PipelineServer serves the client book over HTTP and websockets.
type PipelineServer struct {
	store     store.Store
	publisher events.Publisher
	gate      *permission.Gate
	resolver  RoleResolver
	hub       *wsHub
	chat      *wsHub
	logger    *slog.Logger
}

// NewPipelineServer returns a new PipelineServer backed by the given store
// and publisher. When resolver is non-nil, mutating endpoints enforce the
// gate against the caller's resolved roles.
func NewPipelineServer(s store.Store, p events.Publisher, gate *permission.Gate, resolver RoleResolver) *PipelineServer {
	return &PipelineServer{
		store:     s,
		publisher: p,
		gate:      gate,
		resolver:  resolver,
		hub:       newWSHub(),
		chat:      newWSHub(),
		logger:    slog.Default(),
	}
}

// publish sends an event to NATS and fans it out to connected websocket
// clients. Both operations are best-effort; failures are logged but do not
// block the caller.
func (s *PipelineServer) publish(ctx context.Context, topic, clientID string, event any) {
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		s.logger.Warn("failed to publish event", "topic", topic, "client_id", clientID, "error", err)
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Warn("failed to marshal event", "topic", topic, "client_id", clientID, "error", err)
		return
	}
	s.hub.broadcast(topic, payload)
}

// inputError indicates invalid user input. The transport maps it to 400.
type inputError string

func (e inputError) Error() string { return string(e) }
