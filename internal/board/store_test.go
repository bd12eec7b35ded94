package board

import (
	"errors"
	"fmt"
	"testing"

	"github.com/alfredjeanlab/pipeline/internal/model"
)

func newClient(id string, status model.Status) model.Client {
	return model.Client{ID: id, Name: "Client " + id, Status: status}
}

func TestUpsert_InsertAndReplace(t *testing.T) {
	s := New()
	s.Upsert(newClient("cl-1", model.StatusLead))

	rec, ok := s.Get("cl-1")
	if !ok {
		t.Fatal("expected cl-1 to exist")
	}
	if rec.Version != 1 {
		t.Errorf("expected version 1 on insert, got %d", rec.Version)
	}

	// Replace with a new status moves column membership.
	rec.Status = model.StatusActive
	rec.Version = 0 // let the store assign
	s.Upsert(rec)

	if got := s.Snapshot(model.StatusLead); len(got) != 0 {
		t.Errorf("expected lead column empty, got %v", got)
	}
	if got := s.Snapshot(model.StatusActive); len(got) != 1 || got[0] != "cl-1" {
		t.Errorf("expected active column [cl-1], got %v", got)
	}
	rec, _ = s.Get("cl-1")
	if rec.Version != 2 {
		t.Errorf("expected version bump to 2, got %d", rec.Version)
	}
}

func TestUpsert_NoDuplicateIDs(t *testing.T) {
	s := New()
	s.Upsert(newClient("cl-1", model.StatusLead))
	s.Upsert(newClient("cl-1", model.StatusLead))

	if s.Len() != 1 {
		t.Errorf("expected 1 record after double upsert, got %d", s.Len())
	}
	if got := s.Snapshot(model.StatusLead); len(got) != 1 {
		t.Errorf("expected single column entry, got %v", got)
	}
}

func TestRemove(t *testing.T) {
	s := New()
	s.Upsert(newClient("cl-1", model.StatusLead))
	s.Remove("cl-1")
	s.Remove("cl-missing") // no-op

	if s.Len() != 0 {
		t.Errorf("expected empty store, got %d records", s.Len())
	}
	if got := s.Snapshot(model.StatusLead); len(got) != 0 {
		t.Errorf("expected empty column after remove, got %v", got)
	}
}

func TestSetStatus_VersionConflict(t *testing.T) {
	s := New()
	s.Upsert(newClient("cl-1", model.StatusLead))

	rec, _ := s.Get("cl-1")
	if err := s.SetStatus("cl-1", model.StatusActive, rec.Version); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	// A second write carrying the old version must be rejected untouched.
	err := s.SetStatus("cl-1", model.StatusCanceled, rec.Version)
	if !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
	got, _ := s.Get("cl-1")
	if got.Status != model.StatusActive {
		t.Errorf("stale write should not apply; status = %s", got.Status)
	}
}

func TestSetStatus_NotFound(t *testing.T) {
	s := New()
	if err := s.SetStatus("cl-ghost", model.StatusActive, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// Membership must always agree with each record's status field once no
// mutation is in flight.
func TestMembershipConsistency(t *testing.T) {
	s := New()
	for i := range 20 {
		s.Upsert(newClient(fmt.Sprintf("cl-%d", i), model.StatusLead))
	}
	for i := range 20 {
		id := fmt.Sprintf("cl-%d", i)
		rec, _ := s.Get(id)
		target := model.AllStatuses[i%len(model.AllStatuses)]
		if err := s.SetStatus(id, target, rec.Version); err != nil {
			t.Fatalf("SetStatus(%s): %v", id, err)
		}
	}

	seen := make(map[string]model.Status)
	for status, ids := range s.SnapshotAll() {
		for _, id := range ids {
			if prev, dup := seen[id]; dup {
				t.Fatalf("id %s in two columns: %s and %s", id, prev, status)
			}
			seen[id] = status
			rec, ok := s.Get(id)
			if !ok {
				t.Fatalf("column references missing record %s", id)
			}
			if rec.Status != status {
				t.Errorf("drift: %s has status %s but sits in column %s", id, rec.Status, status)
			}
		}
	}
	if len(seen) != 20 {
		t.Errorf("expected 20 ids across columns, got %d", len(seen))
	}
}

func TestSnapshot_IsACopy(t *testing.T) {
	s := New()
	s.Upsert(newClient("cl-1", model.StatusLead))
	s.Upsert(newClient("cl-2", model.StatusLead))

	snap := s.Snapshot(model.StatusLead)
	snap[0] = "mangled"

	if got := s.Snapshot(model.StatusLead); got[0] != "cl-1" {
		t.Errorf("snapshot mutation leaked into store: %v", got)
	}
}

func TestSubscribe_OneNotificationPerMutation(t *testing.T) {
	s := New()
	var calls [][]Change
	cancel := s.Subscribe(func(cs []Change) { calls = append(calls, cs) })
	defer cancel()

	s.Upsert(newClient("cl-1", model.StatusLead))
	rec, _ := s.Get("cl-1")
	if err := s.SetStatus("cl-1", model.StatusActive, rec.Version); err != nil {
		t.Fatal(err)
	}
	s.Remove("cl-1")

	if len(calls) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(calls))
	}
	if calls[1][0].Op != OpMove || calls[1][0].Status != model.StatusActive {
		t.Errorf("unexpected move change: %+v", calls[1][0])
	}
}

func TestBatch_CoalescesChanges(t *testing.T) {
	s := New()
	for i := range 3 {
		s.Upsert(newClient(fmt.Sprintf("cl-%d", i), model.StatusLead))
	}

	var calls [][]Change
	cancel := s.Subscribe(func(cs []Change) { calls = append(calls, cs) })
	defer cancel()

	s.Batch(func() {
		for i := range 3 {
			id := fmt.Sprintf("cl-%d", i)
			rec, _ := s.Get(id)
			if err := s.SetStatus(id, model.StatusActive, rec.Version); err != nil {
				t.Fatal(err)
			}
		}
		// Touch cl-0 twice: only its final change should be delivered.
		rec, _ := s.Get("cl-0")
		if err := s.SetStatus("cl-0", model.StatusOnPause, rec.Version); err != nil {
			t.Fatal(err)
		}
	})

	if len(calls) != 1 {
		t.Fatalf("expected 1 batched notification, got %d", len(calls))
	}
	if len(calls[0]) != 3 {
		t.Fatalf("expected 3 coalesced changes, got %d", len(calls[0]))
	}
	for _, c := range calls[0] {
		if c.ClientID == "cl-0" && c.Status != model.StatusOnPause {
			t.Errorf("coalescing should keep the final change, got %+v", c)
		}
	}
}

func TestSubscribe_CancelStopsDelivery(t *testing.T) {
	s := New()
	var n int
	cancel := s.Subscribe(func([]Change) { n++ })

	s.Upsert(newClient("cl-1", model.StatusLead))
	cancel()
	s.Upsert(newClient("cl-2", model.StatusLead))

	if n != 1 {
		t.Errorf("expected 1 delivery before cancel, got %d", n)
	}
}
