// Package client provides a transport-agnostic interface for the pipeline
// service and an HTTP/JSON implementation that talks to the pipeline REST API.
package client

import (
	"context"

	"github.com/alfredjeanlab/pipeline/internal/model"
)

// PipelineClient is the interface that all pipectl commands use to
// communicate with the pipeline server. It is implemented by HTTPClient
// (default) and can be backed by any transport.
type PipelineClient interface {
	// Client CRUD
	CreateClient(ctx context.Context, req *CreateClientRequest) (*model.Client, error)
	GetClient(ctx context.Context, id string) (*model.Client, error)
	ListClients(ctx context.Context, req *ListClientsRequest) (*ListClientsResponse, error)
	UpdateClient(ctx context.Context, id string, req *UpdateClientRequest) (*model.Client, error)
	DeleteClient(ctx context.Context, id string) error

	// Status moves
	MoveClient(ctx context.Context, req *MoveRequest) (*MoveResponse, error)
	BulkMove(ctx context.Context, req *BulkMoveRequest) (*BulkMoveResponse, error)

	// Health
	Health(ctx context.Context) (string, error)

	// Lifecycle
	Close() error
}

// CreateClientRequest holds parameters for creating a client record.
type CreateClientRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Company   string `json:"company,omitempty"`
	Franchise string `json:"franchise,omitempty"`
	Status    string `json:"status,omitempty"`
	Assignee  string `json:"assignee,omitempty"`
	CreatedBy string `json:"created_by,omitempty"`
}

// ListClientsRequest holds parameters for listing clients.
type ListClientsRequest struct {
	Status    []string `json:"status,omitempty"`
	Assignee  string   `json:"assignee,omitempty"`
	Franchise string   `json:"franchise,omitempty"`
	Search    string   `json:"search,omitempty"`
	Sort      string   `json:"sort,omitempty"`
	Limit     int      `json:"limit,omitempty"`
	Offset    int      `json:"offset,omitempty"`
}

// ListClientsResponse is the response from ListClients.
type ListClientsResponse struct {
	Clients []*model.Client `json:"clients"`
	Total   int             `json:"total"`
}

// UpdateClientRequest holds optional parameters for updating a client.
// Nil pointer fields mean "don't change".
type UpdateClientRequest struct {
	Name      *string `json:"name,omitempty"`
	Email     *string `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Company   *string `json:"company,omitempty"`
	Franchise *string `json:"franchise,omitempty"`
	Assignee  *string `json:"assignee,omitempty"`
}

// MoveRequest asks the server to confirm one status move.
type MoveRequest struct {
	ClientID  string `json:"client_id"`
	ToStatus  string `json:"to_status"`
	RequestID string `json:"request_id"`
}

// MoveResponse is the server's verdict on a move request.
type MoveResponse struct {
	Success       bool   `json:"success"`
	ClientID      string `json:"client_id"`
	AppliedStatus string `json:"applied_status"`
	RequestID     string `json:"request_id"`
}

// BulkMoveRequest asks the server to move several clients to one status.
type BulkMoveRequest struct {
	ClientIDs []string `json:"client_ids"`
	ToStatus  string   `json:"to_status"`
	RequestID string   `json:"request_id"`
}

// BulkMoveItem is the per-client outcome of a bulk move.
type BulkMoveItem struct {
	ClientID string `json:"client_id"`
	Outcome  string `json:"outcome"`
	Error    string `json:"error,omitempty"`
}

// BulkMoveResponse is the response from BulkMove. Items are matched by
// client_id; order is not significant.
type BulkMoveResponse struct {
	Results []BulkMoveItem `json:"results"`
}
