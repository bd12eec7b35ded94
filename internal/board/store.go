// Package board maintains the authoritative in-memory view of the client
// pipeline: every client record, grouped into ordered status columns.
//
// The Store is the single mutable shared resource of the pipeline core. All
// writes go through Upsert, Remove, and SetStatus; readers only ever receive
// copies, never live references into the store's state. Views (the list
// renderer, the search index) subscribe for change notification and
// re-derive from snapshots.
package board

import (
	"errors"
	"sync"
	"time"

	"github.com/alfredjeanlab/pipeline/internal/model"
)

// ErrVersionConflict is returned by SetStatus when the caller's expected
// version no longer matches the record. It means a newer mutation has
// already been applied; the stale write is discarded, not retried.
var ErrVersionConflict = errors.New("board: version conflict")

// ErrNotFound is returned when the referenced client is not in the store.
var ErrNotFound = errors.New("board: client not found")

// Op describes what a change did to a record.
type Op string

const (
	OpUpsert Op = "upsert"
	OpRemove Op = "remove"
	OpMove   Op = "move"
)

// Change is a single logical mutation delivered to subscribers.
type Change struct {
	Op       Op
	ClientID string
	Status   model.Status // status after the change (empty for removes)
}

// Store is the in-memory client cache. Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	clients map[string]*model.Client
	columns map[model.Status][]string // ordered membership per status

	subs    map[int]func([]Change)
	nextSub int

	// Batch support: while batching > 0, changes accumulate in pending and
	// are delivered once, deduplicated per client, when the batch ends.
	batching int
	pending  []Change
}

// New returns an empty store.
func New() *Store {
	return &Store{
		clients: make(map[string]*model.Client),
		columns: make(map[model.Status][]string),
		subs:    make(map[int]func([]Change)),
	}
}

// Upsert inserts or replaces a record. Column membership follows the
// record's status. When the incoming record carries no version, the store
// assigns the next version itself.
func (s *Store) Upsert(rec model.Client) {
	s.mu.Lock()
	existing, ok := s.clients[rec.ID]
	if ok {
		if rec.Version == 0 {
			rec.Version = existing.Version + 1
		}
		if existing.Status != rec.Status {
			s.removeFromColumn(existing.Status, rec.ID)
			s.columns[rec.Status] = append(s.columns[rec.Status], rec.ID)
		}
	} else {
		if rec.Version == 0 {
			rec.Version = 1
		}
		s.columns[rec.Status] = append(s.columns[rec.Status], rec.ID)
	}
	stored := rec
	s.clients[rec.ID] = &stored
	notify := s.noteLocked(Change{Op: OpUpsert, ClientID: rec.ID, Status: rec.Status})
	s.mu.Unlock()
	notify()
}

// Remove deletes a record and its column membership. No-op if absent.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	rec, ok := s.clients[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	s.removeFromColumn(rec.Status, id)
	delete(s.clients, id)
	notify := s.noteLocked(Change{Op: OpRemove, ClientID: id})
	s.mu.Unlock()
	notify()
}

// SetStatus moves a client to a new status column. The mutation applies
// only if expectedVersion matches the record's current version; otherwise
// ErrVersionConflict is returned and nothing changes. On success the
// record's version is bumped and UpdatedAt refreshed.
func (s *Store) SetStatus(id string, newStatus model.Status, expectedVersion int64) error {
	s.mu.Lock()
	rec, ok := s.clients[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	if rec.Version != expectedVersion {
		s.mu.Unlock()
		return ErrVersionConflict
	}
	if rec.Status != newStatus {
		s.removeFromColumn(rec.Status, id)
		s.columns[newStatus] = append(s.columns[newStatus], id)
		rec.Status = newStatus
	}
	rec.Version++
	rec.UpdatedAt = time.Now().UTC()
	notify := s.noteLocked(Change{Op: OpMove, ClientID: id, Status: newStatus})
	s.mu.Unlock()
	notify()
	return nil
}

// Get returns a copy of the record. The copy is the caller's to keep;
// mutating it does not touch the store.
func (s *Store) Get(id string) (model.Client, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.clients[id]
	if !ok {
		return model.Client{}, false
	}
	return *rec, true
}

// Snapshot returns the ordered ids of one status column. The slice is a
// copy; it never aliases live store state.
func (s *Store) Snapshot(status model.Status) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	col := s.columns[status]
	out := make([]string, len(col))
	copy(out, col)
	return out
}

// SnapshotAll returns the ordered ids of every column, keyed by status.
func (s *Store) SnapshotAll() map[model.Status][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[model.Status][]string, len(s.columns))
	for status, col := range s.columns {
		ids := make([]string, len(col))
		copy(ids, col)
		out[status] = ids
	}
	return out
}

// Len returns the number of records in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Count returns the number of records in one status column.
func (s *Store) Count(status model.Status) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.columns[status])
}

// Subscribe registers fn for change notification. Every successful mutation
// is delivered exactly once; mutations made inside Batch arrive coalesced
// into a single call. The returned cancel function unregisters fn.
func (s *Store) Subscribe(fn func([]Change)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Batch runs fn with change notification deferred. All mutations inside fn
// are delivered to subscribers as one batch when the outermost Batch
// returns, deduplicated so each client appears once with its final change.
// Bulk moves use this to avoid a notification storm.
func (s *Store) Batch(fn func()) {
	s.mu.Lock()
	s.batching++
	s.mu.Unlock()

	fn()

	s.mu.Lock()
	s.batching--
	if s.batching > 0 {
		s.mu.Unlock()
		return
	}
	changes := coalesce(s.pending)
	s.pending = nil
	subs := s.subscribersLocked()
	s.mu.Unlock()

	if len(changes) > 0 {
		for _, fn := range subs {
			fn(changes)
		}
	}
}

// noteLocked records a change under the store lock and returns the delivery
// function to run after unlock. Inside a batch the change is queued and the
// returned function is a no-op; batch end delivers the coalesced set.
func (s *Store) noteLocked(c Change) func() {
	if s.batching > 0 {
		s.pending = append(s.pending, c)
		return func() {}
	}
	subs := s.subscribersLocked()
	return func() {
		changes := []Change{c}
		for _, fn := range subs {
			fn(changes)
		}
	}
}

// subscribersLocked copies the subscriber list. Caller holds the lock.
func (s *Store) subscribersLocked() []func([]Change) {
	subs := make([]func([]Change), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	return subs
}

// coalesce keeps the last change per client, preserving first-seen order.
func coalesce(changes []Change) []Change {
	if len(changes) <= 1 {
		return changes
	}
	index := make(map[string]int, len(changes))
	out := changes[:0]
	for _, c := range changes {
		if i, ok := index[c.ClientID]; ok {
			out[i] = c
			continue
		}
		index[c.ClientID] = len(out)
		out = append(out, c)
	}
	return out
}

// removeFromColumn drops id from the status column, preserving order.
// Caller holds the write lock.
func (s *Store) removeFromColumn(status model.Status, id string) {
	col := s.columns[status]
	for i, v := range col {
		if v == id {
			s.columns[status] = append(col[:i], col[i+1:]...)
			return
		}
	}
}
