package server

import (
	"net/http"
	"testing"

	"github.com/alfredjeanlab/pipeline/internal/events"
	"github.com/alfredjeanlab/pipeline/internal/model"
)

func TestMoveClient(t *testing.T) {
	env := newTestEnv(t)
	seedClient(t, env.store, "cl-mv", model.StatusLead)

	var out moveOutput
	code := env.do(t, "frank", http.MethodPost, "/v1/clients/cl-mv/move", map[string]any{
		"to_status":  "active",
		"request_id": "req-1",
	}, &out)
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if !out.Success || out.AppliedStatus != "active" || out.RequestID != "req-1" {
		t.Errorf("response = %+v", out)
	}

	c, err := env.store.GetClient(t.Context(), "cl-mv")
	if err != nil {
		t.Fatalf("get client: %v", err)
	}
	if c.Status != model.StatusActive {
		t.Errorf("status = %q, want %q", c.Status, model.StatusActive)
	}
	if c.Version != 2 {
		t.Errorf("version = %d, want 2", c.Version)
	}

	if got := env.pub.published(); len(got) != 1 || got[0] != events.TopicClientMoved {
		t.Errorf("published topics = %v", got)
	}
}

func TestMoveClientIdempotentReplay(t *testing.T) {
	env := newTestEnv(t)
	seedClient(t, env.store, "cl-idem", model.StatusLead)

	body := map[string]any{"to_status": "active", "request_id": "req-dup"}
	if code := env.do(t, "frank", http.MethodPost, "/v1/clients/cl-idem/move", body, nil); code != http.StatusOK {
		t.Fatalf("first move status = %d, want 200", code)
	}

	// Replay with the same request id: still success, no second apply.
	var out moveOutput
	if code := env.do(t, "frank", http.MethodPost, "/v1/clients/cl-idem/move", body, &out); code != http.StatusOK {
		t.Fatalf("replay status = %d, want 200", code)
	}
	if !out.Success || out.AppliedStatus != "active" {
		t.Errorf("replay response = %+v", out)
	}

	c, _ := env.store.GetClient(t.Context(), "cl-idem")
	if c.Version != 2 {
		t.Errorf("version = %d, want 2 (replay must not bump)", c.Version)
	}
	if got := env.pub.published(); len(got) != 1 {
		t.Errorf("published topics = %v, want exactly one move event", got)
	}
}

func TestMoveClientRetriesVersionConflict(t *testing.T) {
	env := newTestEnv(t)
	seedClient(t, env.store, "cl-race", model.StatusLead)
	env.store.failStatusUpdates = 1

	var out moveOutput
	code := env.do(t, "frank", http.MethodPost, "/v1/clients/cl-race/move", map[string]any{
		"to_status": "active",
	}, &out)
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200 after retry", code)
	}
	if out.AppliedStatus != "active" {
		t.Errorf("applied status = %q", out.AppliedStatus)
	}
}

func TestMoveClientConflictExhausted(t *testing.T) {
	env := newTestEnv(t)
	seedClient(t, env.store, "cl-hot", model.StatusLead)
	env.store.failStatusUpdates = moveAttempts

	code := env.do(t, "frank", http.MethodPost, "/v1/clients/cl-hot/move", map[string]any{
		"to_status": "active",
	}, nil)
	if code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", code)
	}
}

func TestMoveClientErrors(t *testing.T) {
	env := newTestEnv(t)
	seedClient(t, env.store, "cl-err", model.StatusLead)

	tests := []struct {
		name  string
		actor string
		path  string
		body  map[string]any
		want  int
	}{
		{"not found", "frank", "/v1/clients/cl-missing/move", map[string]any{"to_status": "active"}, http.StatusNotFound},
		{"invalid status", "frank", "/v1/clients/cl-err/move", map[string]any{"to_status": "bogus"}, http.StatusBadRequest},
		{"mismatched client_id", "frank", "/v1/clients/cl-err/move", map[string]any{"client_id": "cl-other", "to_status": "active"}, http.StatusBadRequest},
		{"user lacks move", "vera", "/v1/clients/cl-err/move", map[string]any{"to_status": "active"}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := env.do(t, tt.actor, http.MethodPost, tt.path, tt.body, nil); code != tt.want {
				t.Errorf("status = %d, want %d", code, tt.want)
			}
		})
	}
}

func TestBulkMove(t *testing.T) {
	env := newTestEnv(t)
	seedClient(t, env.store, "cl-b1", model.StatusLead)
	seedClient(t, env.store, "cl-b2", model.StatusLead)

	var out struct {
		Results []bulkMoveItem `json:"results"`
	}
	code := env.do(t, "frank", http.MethodPost, "/v1/clients/bulk-move", map[string]any{
		"client_ids": []string{"cl-b1", "cl-b2", "cl-b1", "cl-missing"},
		"to_status":  "active",
		"request_id": "bulk-1",
	}, &out)
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}

	// Duplicate cl-b1 is collapsed; three unique ids remain.
	if len(out.Results) != 3 {
		t.Fatalf("results = %d, want 3: %+v", len(out.Results), out.Results)
	}
	outcomes := make(map[string]string)
	for _, item := range out.Results {
		outcomes[item.ClientID] = item.Outcome
	}
	if outcomes["cl-b1"] != "moved" || outcomes["cl-b2"] != "moved" {
		t.Errorf("outcomes = %v", outcomes)
	}
	if outcomes["cl-missing"] != "failed" {
		t.Errorf("missing client outcome = %q, want failed", outcomes["cl-missing"])
	}

	for _, id := range []string{"cl-b1", "cl-b2"} {
		c, _ := env.store.GetClient(t.Context(), id)
		if c.Status != model.StatusActive {
			t.Errorf("%s status = %q, want active", id, c.Status)
		}
	}
}

func TestBulkMoveRequiresBulkPermission(t *testing.T) {
	env := newTestEnv(t)
	seedClient(t, env.store, "cl-bp", model.StatusLead)

	code := env.do(t, "vera", http.MethodPost, "/v1/clients/bulk-move", map[string]any{
		"client_ids": []string{"cl-bp"},
		"to_status":  "active",
	}, nil)
	if code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", code)
	}
}

func TestBulkMoveValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"empty ids", map[string]any{"client_ids": []string{}, "to_status": "active"}, http.StatusBadRequest},
		{"invalid status", map[string]any{"client_ids": []string{"cl-x"}, "to_status": "bogus"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := env.do(t, "frank", http.MethodPost, "/v1/clients/bulk-move", tt.body, nil); code != tt.want {
				t.Errorf("status = %d, want %d", code, tt.want)
			}
		})
	}
}
