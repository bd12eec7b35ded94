package events

import (
	"context"
	"time"

	"github.com/alfredjeanlab/pipeline/internal/model"
)

// Event topic constants
const (
	TopicClientCreated = "pipeline.client.created"
	TopicClientUpdated = "pipeline.client.updated"
	TopicClientMoved   = "pipeline.client.moved"
	TopicClientRemoved = "pipeline.client.removed"

	// Chat events (relayed to connected dashboard sessions).
	TopicChatMessage = "pipeline.chat.message"

	// Export lifecycle events
	TopicExportStarted  = "pipeline.export.started"
	TopicExportFinished = "pipeline.export.finished"
)

// Event types

type ClientCreated struct {
	Client *model.Client `json:"client"`
}

type ClientUpdated struct {
	Client  *model.Client  `json:"client"`
	Changes map[string]any `json:"changes"` // field name -> new value
}

type ClientMoved struct {
	ClientID  string       `json:"client_id"`
	From      model.Status `json:"from"`
	To        model.Status `json:"to"`
	RequestID string       `json:"request_id"`
	Actor     string       `json:"actor,omitempty"`
}

type ClientRemoved struct {
	ClientID string `json:"client_id"`
}

// Chat events

type ChatMessage struct {
	Session string    `json:"session"`
	Sender  string    `json:"sender"`
	Body    string    `json:"body"`
	SentAt  time.Time `json:"sent_at"`
}

// Export events

type ExportStarted struct {
	Destination string `json:"destination"`
	Format      string `json:"format"`
}

type ExportFinished struct {
	Destination string `json:"destination"`
	Format      string `json:"format"`
	Clients     int    `json:"clients"`
	Error       string `json:"error,omitempty"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
