package search

import (
	"testing"

	"github.com/alfredjeanlab/pipeline/internal/board"
	"github.com/alfredjeanlab/pipeline/internal/model"
)

func seedBoard() *board.Store {
	b := board.New()
	b.Upsert(model.Client{ID: "cl-1", Name: "Anna Lee", Email: "anna@lee.example", Status: model.StatusLead})
	b.Upsert(model.Client{ID: "cl-2", Name: "Bob Stone", Company: "Hannigan Realty", Status: model.StatusActive})
	b.Upsert(model.Client{ID: "cl-3", Name: "Carla Diaz", Phone: "+1 555 0102", Status: model.StatusActive})
	b.Upsert(model.Client{ID: "cl-4", Name: "Dan Brief", Email: "dan@example.com", Status: model.StatusCanceled})
	return b
}

func ids(recs []model.Client) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

func TestSearch_ShortTermInactive(t *testing.T) {
	ix := New(seedBoard())
	if got := ix.Search("an", model.StatusLead, true); got != nil {
		t.Errorf("2-char term should return nothing, got %v", ids(got))
	}
	if got := ix.Search("", model.StatusLead, true); got != nil {
		t.Errorf("empty term should return nothing, got %v", ids(got))
	}
}

func TestSearch_CaseInsensitiveSubstring(t *testing.T) {
	ix := New(seedBoard())

	got := ix.Search("ann", model.StatusLead, true)
	want := map[string]bool{"cl-1": true, "cl-2": true} // Anna Lee, Hannigan Realty
	if len(got) != 2 {
		t.Fatalf("search(ann) returned %v, want 2 matches", ids(got))
	}
	for _, r := range got {
		if !want[r.ID] {
			t.Errorf("unexpected match %s", r.ID)
		}
	}

	if got := ix.Search("ANNA", model.StatusLead, true); len(got) != 1 || got[0].ID != "cl-1" {
		t.Errorf("search should be case-insensitive, got %v", ids(got))
	}
}

func TestSearch_PhoneAndEmailFields(t *testing.T) {
	ix := New(seedBoard())

	if got := ix.Search("555 0102", model.StatusLead, true); len(got) != 1 || got[0].ID != "cl-3" {
		t.Errorf("phone search returned %v", ids(got))
	}
	if got := ix.Search("dan@example", model.StatusLead, true); len(got) != 1 || got[0].ID != "cl-4" {
		t.Errorf("email search returned %v", ids(got))
	}
}

func TestSearch_RestrictedToActiveColumn(t *testing.T) {
	ix := New(seedBoard())

	// "ann" matches cl-1 (lead) and cl-2 (active); column-restricted search
	// from the active column must exclude the lead.
	got := ix.Search("ann", model.StatusActive, false)
	if len(got) != 1 || got[0].ID != "cl-2" {
		t.Errorf("column-restricted search returned %v, want [cl-2]", ids(got))
	}
}

func TestSearch_ReflectsCurrentBoardState(t *testing.T) {
	b := seedBoard()
	ix := New(b)

	rec, _ := b.Get("cl-1")
	if err := b.SetStatus("cl-1", model.StatusActive, rec.Version); err != nil {
		t.Fatal(err)
	}

	// No index maintenance needed: the move is visible immediately.
	got := ix.Search("anna", model.StatusActive, false)
	if len(got) != 1 || got[0].ID != "cl-1" {
		t.Errorf("search after move returned %v, want [cl-1]", ids(got))
	}
}
