// Package transition executes optimistic status moves against the board.
//
// A move mutates the board immediately, then asks the backend to confirm.
// Each issued move carries a strictly increasing request id; the engine
// keeps a per-client fence (client id → latest issued request id) so that
// late or out-of-order responses for superseded moves are discarded instead
// of clobbering newer state. Failed moves roll the client back to its prior
// status — unless a newer move owns the record by then, in which case the
// failure is recorded and nothing else happens (last writer wins).
package transition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alfredjeanlab/pipeline/internal/board"
	"github.com/alfredjeanlab/pipeline/internal/model"
	"github.com/alfredjeanlab/pipeline/internal/permission"
)

// ErrUnauthorized is returned when the role lacks the permission for a
// move. The board is never touched; there is nothing to roll back.
var ErrUnauthorized = errors.New("transition: unauthorized")

// ErrTransitionFailed is returned when the backend rejects or errors a
// move. The optimistic mutation has been rolled back unless a newer move
// superseded it first.
var ErrTransitionFailed = errors.New("transition: move rejected by server")

// Confirmer is the backend surface that acknowledges a status move.
type Confirmer interface {
	// ConfirmMove reports whether the server accepted moving the client to
	// the given status. The request id is echoed back by the server and
	// used only for correlation; the engine's own fence decides staleness.
	ConfirmMove(ctx context.Context, clientID string, to model.Status, requestID uint64) error
}

// ConfirmerFunc adapts a function to the Confirmer interface.
type ConfirmerFunc func(ctx context.Context, clientID string, to model.Status, requestID uint64) error

func (f ConfirmerFunc) ConfirmMove(ctx context.Context, clientID string, to model.Status, requestID uint64) error {
	return f(ctx, clientID, to, requestID)
}

// State tracks the lifecycle of an in-flight move.
type State string

const (
	StatePending    State = "pending"
	StateConfirmed  State = "confirmed"
	StateRolledBack State = "rolled_back"
)

// Pending is one in-flight optimistic move.
type Pending struct {
	ClientID  string
	From      model.Status
	To        model.Status
	RequestID uint64
	State     State
}

// Outcome summarizes how a move settled.
type Outcome string

const (
	OutcomeMoved        Outcome = "moved"
	OutcomeUnauthorized Outcome = "unauthorized"
	OutcomeFailed       Outcome = "failed"
	// OutcomeSuperseded marks a move whose response arrived after a newer
	// move took over the client. No rollback is performed; the newer move
	// owns the record.
	OutcomeSuperseded Outcome = "superseded"
)

// Result reports a settled single move.
type Result struct {
	ClientID  string
	From      model.Status
	To        model.Status
	RequestID uint64
	Outcome   Outcome
	// Noop is set when the client was already in the target status and no
	// request was issued.
	Noop bool
}

// BulkItem is the per-client outcome of a bulk move.
type BulkItem struct {
	ClientID string
	Outcome  Outcome
	Err      string `json:"err,omitempty"`
}

// BulkResult aggregates a bulk move. Bulk moves are not transactional:
// members succeed and fail independently, and successful members are never
// rolled back because others failed.
type BulkResult struct {
	Items []BulkItem
}

// Moved returns the number of members that settled as moved.
func (r BulkResult) Moved() int {
	n := 0
	for _, it := range r.Items {
		if it.Outcome == OutcomeMoved {
			n++
		}
	}
	return n
}

// Engine issues and settles optimistic status moves.
type Engine struct {
	gate      *permission.Gate
	board     *board.Store
	confirmer Confirmer
	timeout   time.Duration
	logger    *slog.Logger

	mu      sync.Mutex
	nextID  uint64
	latest  map[string]uint64   // client id → latest issued request id
	pending map[uint64]*Pending // request id → in-flight move
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout bounds how long a confirmation may stay in flight before the
// move is treated as failed and rolled back. Zero (the default) waits
// indefinitely; callers who want bounded pending set this explicitly.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithLogger sets the engine's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine returns an engine mutating b, gated by g, confirmed through c.
func NewEngine(g *permission.Gate, b *board.Store, c Confirmer, opts ...Option) *Engine {
	e := &Engine{
		gate:      g,
		board:     b,
		confirmer: c,
		logger:    slog.Default(),
		latest:    make(map[string]uint64),
		pending:   make(map[uint64]*Pending),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// InFlight returns the number of unsettled moves.
func (e *Engine) InFlight() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// RequestMove optimistically moves one client and blocks until the backend
// confirms or rejects it. The optimistic state is visible to every other
// goroutine the moment this returns control to the scheduler; callers that
// must not wait run RequestMove on its own goroutine.
func (e *Engine) RequestMove(ctx context.Context, clientID string, to model.Status, role permission.Role) (Result, error) {
	if !e.gate.CanPerform(role, permission.PermMoveClients) {
		return Result{ClientID: clientID, Outcome: OutcomeUnauthorized}, ErrUnauthorized
	}
	p, err := e.issue(clientID, to)
	if err != nil {
		return Result{ClientID: clientID, Outcome: OutcomeFailed}, err
	}
	if p == nil {
		// Already in the target status: success without a request.
		return Result{ClientID: clientID, From: to, To: to, Outcome: OutcomeMoved, Noop: true}, nil
	}
	return e.confirm(ctx, p)
}

// RequestBulkMove moves many clients at once. One bulk permission check up
// front fails the whole call; after that each member is an independent
// optimistic move with its own confirmation, settled concurrently. Every
// distinct input id appears exactly once in the result.
func (e *Engine) RequestBulkMove(ctx context.Context, clientIDs []string, to model.Status, role permission.Role) (BulkResult, error) {
	if !e.gate.CanPerform(role, permission.PermBulkMoveClients) {
		return BulkResult{}, ErrUnauthorized
	}

	ids := dedupe(clientIDs)
	items := make([]BulkItem, len(ids))
	issued := make([]*Pending, len(ids))

	// Phase one: all optimistic mutations inside a single board batch so
	// views get one coalesced notification instead of N.
	e.board.Batch(func() {
		for i, id := range ids {
			if !e.gate.CanPerform(role, permission.PermMoveClients) {
				items[i] = BulkItem{ClientID: id, Outcome: OutcomeUnauthorized, Err: ErrUnauthorized.Error()}
				continue
			}
			p, err := e.issue(id, to)
			if err != nil {
				items[i] = BulkItem{ClientID: id, Outcome: OutcomeFailed, Err: err.Error()}
				continue
			}
			if p == nil {
				items[i] = BulkItem{ClientID: id, Outcome: OutcomeMoved}
				continue
			}
			issued[i] = p
		}
	})

	// Phase two: confirm concurrently. No member blocks another; the join
	// exists only to assemble the report.
	var wg sync.WaitGroup
	for i, p := range issued {
		if p == nil {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := e.confirm(ctx, p)
			switch {
			case err != nil:
				items[i] = BulkItem{ClientID: p.ClientID, Outcome: OutcomeFailed, Err: err.Error()}
			default:
				items[i] = BulkItem{ClientID: p.ClientID, Outcome: res.Outcome}
			}
		}()
	}
	wg.Wait()

	return BulkResult{Items: items}, nil
}

// issue mints a request id, records the pending move, and applies the
// optimistic mutation. Returns (nil, nil) when the client already sits in
// the target status. Issuance is serialized so request ids are strictly
// increasing in board-mutation order.
func (e *Engine) issue(clientID string, to model.Status) (*Pending, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok := e.board.Get(clientID)
	if !ok {
		return nil, board.ErrNotFound
	}
	if rec.Status == to {
		return nil, nil
	}

	e.nextID++
	p := &Pending{
		ClientID:  clientID,
		From:      rec.Status,
		To:        to,
		RequestID: e.nextID,
		State:     StatePending,
	}

	if err := e.board.SetStatus(clientID, to, rec.Version); err != nil {
		// A concurrent writer (realtime event) got in between the read and
		// the write. The move never happened; surface the conflict.
		return nil, fmt.Errorf("optimistic apply: %w", err)
	}
	e.latest[clientID] = p.RequestID
	e.pending[p.RequestID] = p
	return p, nil
}

// confirm sends the confirmation request and settles the pending move.
func (e *Engine) confirm(ctx context.Context, p *Pending) (Result, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	err := e.confirmer.ConfirmMove(ctx, p.ClientID, p.To, p.RequestID)
	return e.settle(p, err)
}

// settle applies the server's verdict under the fence. A response for a
// superseded request id changes nothing regardless of verdict. The engine
// lock is held across the rollback so that a move issued concurrently can
// never be clobbered by it.
func (e *Engine) settle(p *Pending, confirmErr error) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.pending, p.RequestID)
	stillLatest := e.latest[p.ClientID] == p.RequestID
	if stillLatest {
		delete(e.latest, p.ClientID)
	}

	res := Result{
		ClientID:  p.ClientID,
		From:      p.From,
		To:        p.To,
		RequestID: p.RequestID,
	}

	if !stillLatest {
		// A newer move owns this client. Whatever the server said about
		// this request, acting on it now would clobber newer state.
		p.State = StateConfirmed
		res.Outcome = OutcomeSuperseded
		e.logger.Debug("stale move response discarded",
			"client_id", p.ClientID, "request_id", p.RequestID)
		return res, nil
	}

	if confirmErr == nil {
		p.State = StateConfirmed
		res.Outcome = OutcomeMoved
		return res, nil
	}

	// Confirmed failure on the latest request: revert to the prior status.
	p.State = StateRolledBack
	res.Outcome = OutcomeFailed
	if rec, ok := e.board.Get(p.ClientID); ok {
		if err := e.board.SetStatus(p.ClientID, p.From, rec.Version); err != nil {
			// Someone else moved the record while we were deciding; their
			// write wins and the rollback is abandoned.
			e.logger.Warn("rollback skipped",
				"client_id", p.ClientID, "request_id", p.RequestID, "err", err)
		}
	}
	e.logger.Warn("move rolled back",
		"client_id", p.ClientID, "from", p.From, "to", p.To,
		"request_id", p.RequestID, "err", confirmErr)
	return res, fmt.Errorf("%w: %v", ErrTransitionFailed, confirmErr)
}

// dedupe drops repeated ids, preserving first-seen order.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
