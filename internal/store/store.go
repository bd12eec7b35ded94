package store

import (
	"context"
	"errors"

	"github.com/alfredjeanlab/pipeline/internal/model"
)

// ErrNotFound is returned when a client id does not exist.
var ErrNotFound = errors.New("store: client not found")

// ErrVersionConflict is returned by UpdateClientStatus when the expected
// version no longer matches the stored row.
var ErrVersionConflict = errors.New("store: version conflict")

// Store defines the persistence interface for the client book.
type Store interface {
	// Client CRUD
	CreateClient(ctx context.Context, client *model.Client) error
	GetClient(ctx context.Context, id string) (*model.Client, error)
	ListClients(ctx context.Context, filter model.ClientFilter) ([]*model.Client, int, error) // returns clients, total count, error
	UpdateClient(ctx context.Context, client *model.Client) error
	DeleteClient(ctx context.Context, id string) error

	// UpdateClientStatus moves a client through the pipeline with an
	// optimistic version guard and returns the updated row.
	UpdateClientStatus(ctx context.Context, id string, to model.Status, expectedVersion int64) (*model.Client, error)

	// CountByStatus reports how many clients sit in each pipeline column.
	CountByStatus(ctx context.Context) (map[model.Status]int, error)

	// Transaction support
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	// Lifecycle
	Close() error
}

// MoveLedger records processed move requests so retried requests are not
// applied twice. Implemented by the Postgres store; optional elsewhere.
type MoveLedger interface {
	RecordMoveRequest(ctx context.Context, clientID, requestID string, from, to model.Status, actor string) error
	MarkMoveApplied(ctx context.Context, clientID, requestID string) error
	WasMoveApplied(ctx context.Context, clientID, requestID string) (bool, error)
}
