package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alfredjeanlab/pipeline/internal/events"
	"github.com/alfredjeanlab/pipeline/internal/idgen"
	"github.com/alfredjeanlab/pipeline/internal/model"
	"github.com/alfredjeanlab/pipeline/internal/permission"
	"github.com/alfredjeanlab/pipeline/internal/store"
)

// createClientInput holds parameters for creating a client record.
type createClientInput struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Company   string `json:"company"`
	Franchise string `json:"franchise"`
	Status    string `json:"status"`
	Assignee  string `json:"assignee"`
	CreatedBy string `json:"created_by"`
}

// createClient validates input, persists a new client, and publishes a
// ClientCreated event. Returns inputError for validation failures.
func (s *PipelineServer) createClient(ctx context.Context, in createClientInput) (*model.Client, error) {
	if in.Name == "" {
		return nil, inputError("name is required")
	}

	clientStatus := model.StatusLead
	if in.Status != "" {
		clientStatus = model.Status(in.Status)
		if !clientStatus.IsValid() {
			return nil, inputError("unknown status " + in.Status)
		}
	}

	id, err := idgen.NewClientID()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	c := &model.Client{
		ID:        id,
		Name:      in.Name,
		Email:     in.Email,
		Phone:     in.Phone,
		Company:   in.Company,
		Franchise: in.Franchise,
		Status:    clientStatus,
		Assignee:  in.Assignee,
		Version:   1,
		CreatedAt: now,
		CreatedBy: in.CreatedBy,
		UpdatedAt: now,
	}

	if err := s.store.CreateClient(ctx, c); err != nil {
		return nil, err
	}

	s.publish(ctx, events.TopicClientCreated, c.ID, events.ClientCreated{Client: c})
	return c, nil
}

// handleCreateClient handles POST /v1/clients.
func (s *PipelineServer) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	if err := s.authorize(r, permission.PermEditClients); err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}

	var in createClientInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	c, err := s.createClient(r.Context(), in)
	if err != nil {
		var ie inputError
		if errors.As(err, &ie) {
			writeError(w, http.StatusBadRequest, ie.Error())
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusCreated, c)
}

// handleListClients handles GET /v1/clients.
func (s *PipelineServer) handleListClients(w http.ResponseWriter, r *http.Request) {
	if err := s.authorize(r, permission.PermViewClients); err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}

	q := r.URL.Query()
	filter := model.ClientFilter{
		Assignee:  q.Get("assignee"),
		Franchise: q.Get("franchise"),
		Search:    q.Get("search"),
		Sort:      q.Get("sort"),
	}

	if v := q.Get("status"); v != "" {
		for _, st := range strings.Split(v, ",") {
			filter.Status = append(filter.Status, model.Status(st))
		}
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	clients, total, err := s.store.ListClients(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list clients")
		return
	}

	// Ensure clients is never null in JSON output.
	if clients == nil {
		clients = []*model.Client{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"clients": clients,
		"total":   total,
	})
}

// handleGetClient handles GET /v1/clients/{id}.
func (s *PipelineServer) handleGetClient(w http.ResponseWriter, r *http.Request) {
	if err := s.authorize(r, permission.PermViewClients); err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}

	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	c, err := s.store.GetClient(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "client not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get client")
		return
	}

	writeJSON(w, http.StatusOK, c)
}

// updateClientInput holds optional fields for PATCH. Nil means "don't change".
type updateClientInput struct {
	Name      *string `json:"name"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
	Company   *string `json:"company"`
	Franchise *string `json:"franchise"`
	Assignee  *string `json:"assignee"`
}

// handleUpdateClient handles PATCH /v1/clients/{id}.
func (s *PipelineServer) handleUpdateClient(w http.ResponseWriter, r *http.Request) {
	if err := s.authorize(r, permission.PermEditClients); err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}

	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	var in updateClientInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	c, err := s.store.GetClient(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "client not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get client")
		return
	}

	changes := make(map[string]any)
	apply := func(field string, dst *string, src *string) {
		if src != nil && *src != *dst {
			*dst = *src
			changes[field] = *src
		}
	}
	apply("name", &c.Name, in.Name)
	apply("email", &c.Email, in.Email)
	apply("phone", &c.Phone, in.Phone)
	apply("company", &c.Company, in.Company)
	apply("franchise", &c.Franchise, in.Franchise)
	apply("assignee", &c.Assignee, in.Assignee)

	if in.Name != nil && *in.Name == "" {
		writeError(w, http.StatusBadRequest, "name cannot be empty")
		return
	}

	if len(changes) > 0 {
		if err := s.store.UpdateClient(r.Context(), c); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "client not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to update client")
			return
		}
		s.publish(r.Context(), events.TopicClientUpdated, c.ID, events.ClientUpdated{Client: c, Changes: changes})
	}

	writeJSON(w, http.StatusOK, c)
}

// handleDeleteClient handles DELETE /v1/clients/{id}.
func (s *PipelineServer) handleDeleteClient(w http.ResponseWriter, r *http.Request) {
	if err := s.authorize(r, permission.PermDeleteClients); err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}

	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := s.store.DeleteClient(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "client not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete client")
		return
	}

	s.publish(r.Context(), events.TopicClientRemoved, id, events.ClientRemoved{ClientID: id})

	w.WriteHeader(http.StatusNoContent)
}
