package server

import (
	"encoding/json"
	"net/http"

	"github.com/alfredjeanlab/pipeline/internal/permission"
)

// NewHTTPHandler returns an http.Handler with all routes registered.
// When authToken is non-empty, requests (except GET /v1/health) must include
// a valid Authorization: Bearer <token> header.
func (s *PipelineServer) NewHTTPHandler(authToken string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/clients", s.handleCreateClient)
	mux.HandleFunc("GET /v1/clients", s.handleListClients)
	mux.HandleFunc("GET /v1/clients/{id}", s.handleGetClient)
	mux.HandleFunc("PATCH /v1/clients/{id}", s.handleUpdateClient)
	mux.HandleFunc("DELETE /v1/clients/{id}", s.handleDeleteClient)
	mux.HandleFunc("POST /v1/clients/{id}/move", s.handleMoveClient)
	mux.HandleFunc("POST /v1/clients/bulk-move", s.handleBulkMove)
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	mux.HandleFunc("GET /ws/clients", s.handleClientsWS)
	mux.HandleFunc("GET /ws/chat", s.handleChatWS)
	return AuthMiddleware(authToken, mux)
}

// handleHealth handles GET /v1/health.
func (s *PipelineServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// authorize resolves the request's actor to roles and checks the required
// permission. Enforcement is skipped when no resolver is configured.
// Unknown actors resolve to no roles and are denied.
func (s *PipelineServer) authorize(r *http.Request, perm permission.Permission) error {
	if s.resolver == nil {
		return nil
	}
	actor := r.Header.Get("X-Pipeline-Actor")
	roles := s.resolver.Resolve(actor)
	if !s.gate.CanPerformAny(roles, perm) {
		return permissionError{actor: actor, perm: perm}
	}
	return nil
}

// permissionError indicates the caller's roles do not grant the required
// permission. The transport maps it to 403.
type permissionError struct {
	actor string
	perm  permission.Permission
}

func (e permissionError) Error() string {
	return "actor " + e.actor + " may not " + string(e.perm)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
