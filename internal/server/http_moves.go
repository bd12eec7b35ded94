package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/alfredjeanlab/pipeline/internal/events"
	"github.com/alfredjeanlab/pipeline/internal/model"
	"github.com/alfredjeanlab/pipeline/internal/permission"
	"github.com/alfredjeanlab/pipeline/internal/store"
)

// moveAttempts bounds version-conflict retries when applying a move.
const moveAttempts = 3

type moveInput struct {
	ClientID  string `json:"client_id"`
	ToStatus  string `json:"to_status"`
	RequestID string `json:"request_id"`
}

type moveOutput struct {
	Success       bool   `json:"success"`
	ClientID      string `json:"client_id"`
	AppliedStatus string `json:"applied_status"`
	RequestID     string `json:"request_id"`
}

// handleMoveClient handles POST /v1/clients/{id}/move. The move is applied
// authoritatively with a version guard; concurrent writers are retried a
// bounded number of times before the request fails.
func (s *PipelineServer) handleMoveClient(w http.ResponseWriter, r *http.Request) {
	if err := s.authorize(r, permission.PermMoveClients); err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}

	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	var in moveInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if in.ClientID != "" && in.ClientID != id {
		writeError(w, http.StatusBadRequest, "client_id does not match path")
		return
	}

	to := model.Status(in.ToStatus)
	if !to.IsValid() {
		writeError(w, http.StatusBadRequest, "unknown status "+in.ToStatus)
		return
	}

	actor := r.Header.Get("X-Pipeline-Actor")
	applied, err := s.applyMove(r.Context(), id, to, in.RequestID, actor)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "client not found")
		case errors.Is(err, store.ErrVersionConflict):
			writeError(w, http.StatusConflict, "client was modified concurrently")
		default:
			writeError(w, http.StatusInternalServerError, "failed to move client")
		}
		return
	}

	writeJSON(w, http.StatusOK, moveOutput{
		Success:       true,
		ClientID:      id,
		AppliedStatus: string(applied.Status),
		RequestID:     in.RequestID,
	})
}

// applyMove performs one authoritative status move. When the store keeps a
// move ledger, already-applied request ids short-circuit to success so
// client retries stay idempotent.
func (s *PipelineServer) applyMove(ctx context.Context, id string, to model.Status, requestID, actor string) (*model.Client, error) {
	ledger, hasLedger := s.store.(store.MoveLedger)

	if hasLedger && requestID != "" {
		done, err := ledger.WasMoveApplied(ctx, id, requestID)
		if err != nil {
			return nil, err
		}
		if done {
			return s.store.GetClient(ctx, id)
		}
	}

	c, err := s.store.GetClient(ctx, id)
	if err != nil {
		return nil, err
	}
	from := c.Status

	if hasLedger && requestID != "" {
		if err := ledger.RecordMoveRequest(ctx, id, requestID, from, to, actor); err != nil {
			s.logger.Warn("failed to record move request", "client_id", id, "request_id", requestID, "error", err)
		}
	}

	var updated *model.Client
	for attempt := 0; ; attempt++ {
		updated, err = s.store.UpdateClientStatus(ctx, id, to, c.Version)
		if err == nil {
			break
		}
		if !errors.Is(err, store.ErrVersionConflict) || attempt+1 >= moveAttempts {
			return nil, err
		}
		if c, err = s.store.GetClient(ctx, id); err != nil {
			return nil, err
		}
	}

	if hasLedger && requestID != "" {
		if err := ledger.MarkMoveApplied(ctx, id, requestID); err != nil {
			s.logger.Warn("failed to mark move applied", "client_id", id, "request_id", requestID, "error", err)
		}
	}

	s.publish(ctx, events.TopicClientMoved, id, events.ClientMoved{
		ClientID:  id,
		From:      from,
		To:        to,
		RequestID: requestID,
		Actor:     actor,
	})

	return updated, nil
}

type bulkMoveInput struct {
	ClientIDs []string `json:"client_ids"`
	ToStatus  string   `json:"to_status"`
	RequestID string   `json:"request_id"`
}

type bulkMoveItem struct {
	ClientID string `json:"client_id"`
	Outcome  string `json:"outcome"`
	Error    string `json:"error,omitempty"`
}

// handleBulkMove handles POST /v1/clients/bulk-move. The bulk permission is
// checked once up front; each member still needs the single-move grant.
// Failures are per-client, never cross-client.
func (s *PipelineServer) handleBulkMove(w http.ResponseWriter, r *http.Request) {
	if err := s.authorize(r, permission.PermBulkMoveClients); err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}

	var in bulkMoveInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(in.ClientIDs) == 0 {
		writeError(w, http.StatusBadRequest, "client_ids is required")
		return
	}

	to := model.Status(in.ToStatus)
	if !to.IsValid() {
		writeError(w, http.StatusBadRequest, "unknown status "+in.ToStatus)
		return
	}

	canMove := s.authorize(r, permission.PermMoveClients) == nil
	actor := r.Header.Get("X-Pipeline-Actor")

	seen := make(map[string]struct{}, len(in.ClientIDs))
	results := make([]bulkMoveItem, 0, len(in.ClientIDs))
	for _, id := range in.ClientIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		if !canMove {
			results = append(results, bulkMoveItem{ClientID: id, Outcome: "unauthorized"})
			continue
		}

		requestID := in.RequestID
		if requestID != "" {
			requestID = requestID + ":" + id
		}
		if _, err := s.applyMove(r.Context(), id, to, requestID, actor); err != nil {
			results = append(results, bulkMoveItem{ClientID: id, Outcome: "failed", Error: err.Error()})
			continue
		}
		results = append(results, bulkMoveItem{ClientID: id, Outcome: "moved"})
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}
