package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alfredjeanlab/pipeline/internal/model"
)

// testHandler captures the incoming request details and returns a canned response.
type testHandler struct {
	// captured from the request
	method      string
	path        string
	query       string
	body        string
	contentType string
	auth        string
	actor       string

	// canned response
	statusCode   int
	responseBody string
}

func (h *testHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.method = r.Method
	h.path = r.URL.Path
	h.query = r.URL.RawQuery
	h.contentType = r.Header.Get("Content-Type")
	h.auth = r.Header.Get("Authorization")
	h.actor = r.Header.Get("X-Pipeline-Actor")
	if r.Body != nil {
		data, _ := io.ReadAll(r.Body)
		h.body = string(data)
	}

	w.Header().Set("Content-Type", "application/json")
	if h.statusCode != 0 {
		w.WriteHeader(h.statusCode)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	if h.responseBody != "" {
		_, _ = w.Write([]byte(h.responseBody))
	}
}

// newTestClient creates an HTTPClient pointed at a test server with the given handler.
func newTestClient(h http.Handler) (*HTTPClient, *httptest.Server) {
	srv := httptest.NewServer(h)
	c := NewHTTPClient(srv.URL, "", "")
	return c, srv
}

func TestHTTPClient_CreateClient(t *testing.T) {
	h := &testHandler{
		responseBody: `{
			"id": "cl-abc",
			"name": "Anna Lee",
			"email": "anna@example.com",
			"company": "Lee Consulting",
			"status": "lead",
			"assignee": "alice",
			"version": 1,
			"created_by": "alice",
			"created_at": "2026-01-15T10:00:00Z",
			"updated_at": "2026-01-15T10:00:00Z"
		}`,
	}
	c, srv := newTestClient(h)
	defer srv.Close()

	req := &CreateClientRequest{
		Name:      "Anna Lee",
		Email:     "anna@example.com",
		Company:   "Lee Consulting",
		Assignee:  "alice",
		CreatedBy: "alice",
	}

	client, err := c.CreateClient(context.Background(), req)
	if err != nil {
		t.Fatalf("CreateClient() error = %v", err)
	}

	if h.method != http.MethodPost {
		t.Errorf("method = %q, want POST", h.method)
	}
	if h.path != "/v1/clients" {
		t.Errorf("path = %q, want /v1/clients", h.path)
	}
	if h.contentType != "application/json" {
		t.Errorf("content-type = %q, want application/json", h.contentType)
	}

	var reqBody map[string]interface{}
	if err := json.Unmarshal([]byte(h.body), &reqBody); err != nil {
		t.Fatalf("unmarshaling request body: %v", err)
	}
	if reqBody["name"] != "Anna Lee" {
		t.Errorf("request body name = %v, want 'Anna Lee'", reqBody["name"])
	}
	if reqBody["email"] != "anna@example.com" {
		t.Errorf("request body email = %v", reqBody["email"])
	}

	if client.ID != "cl-abc" || client.Status != model.StatusLead {
		t.Errorf("got id=%q status=%q", client.ID, client.Status)
	}
	if client.Version != 1 {
		t.Errorf("version = %d, want 1", client.Version)
	}
}

func TestHTTPClient_GetClient(t *testing.T) {
	h := &testHandler{
		responseBody: `{"id":"cl-abc","name":"Anna Lee","status":"active","version":4}`,
	}
	c, srv := newTestClient(h)
	defer srv.Close()

	client, err := c.GetClient(context.Background(), "cl-abc")
	if err != nil {
		t.Fatalf("GetClient() error = %v", err)
	}
	if h.method != http.MethodGet || h.path != "/v1/clients/cl-abc" {
		t.Errorf("got %s %s", h.method, h.path)
	}
	if client.Status != model.StatusActive || client.Version != 4 {
		t.Errorf("got status=%q version=%d", client.Status, client.Version)
	}
}

func TestHTTPClient_ListClients(t *testing.T) {
	h := &testHandler{
		responseBody: `{"clients":[{"id":"cl-1","name":"Anna Lee","status":"lead"},{"id":"cl-2","name":"Bob Ray","status":"lead"}],"total":12}`,
	}
	c, srv := newTestClient(h)
	defer srv.Close()

	resp, err := c.ListClients(context.Background(), &ListClientsRequest{
		Status:   []string{"lead", "active"},
		Assignee: "alice",
		Search:   "ann",
		Limit:    20,
		Offset:   40,
	})
	if err != nil {
		t.Fatalf("ListClients() error = %v", err)
	}
	if h.method != http.MethodGet || h.path != "/v1/clients" {
		t.Errorf("got %s %s", h.method, h.path)
	}
	for _, want := range []string{"status=lead%2Cactive", "assignee=alice", "search=ann", "limit=20", "offset=40"} {
		if !containsParam(h.query, want) {
			t.Errorf("query %q missing %q", h.query, want)
		}
	}
	if resp.Total != 12 || len(resp.Clients) != 2 {
		t.Errorf("got total=%d len=%d", resp.Total, len(resp.Clients))
	}
}

func containsParam(query, param string) bool {
	for _, part := range splitQuery(query) {
		if part == param {
			return true
		}
	}
	return false
}

func splitQuery(query string) []string {
	var parts []string
	start := 0
	for i := 0; i <= len(query); i++ {
		if i == len(query) || query[i] == '&' {
			parts = append(parts, query[start:i])
			start = i + 1
		}
	}
	return parts
}

func TestHTTPClient_UpdateClient(t *testing.T) {
	h := &testHandler{
		responseBody: `{"id":"cl-abc","name":"Anna B. Lee","status":"lead","version":2}`,
	}
	c, srv := newTestClient(h)
	defer srv.Close()

	name := "Anna B. Lee"
	client, err := c.UpdateClient(context.Background(), "cl-abc", &UpdateClientRequest{Name: &name})
	if err != nil {
		t.Fatalf("UpdateClient() error = %v", err)
	}
	if h.method != http.MethodPatch || h.path != "/v1/clients/cl-abc" {
		t.Errorf("got %s %s", h.method, h.path)
	}
	var reqBody map[string]interface{}
	if err := json.Unmarshal([]byte(h.body), &reqBody); err != nil {
		t.Fatalf("unmarshaling request body: %v", err)
	}
	if reqBody["name"] != "Anna B. Lee" {
		t.Errorf("request body name = %v", reqBody["name"])
	}
	if _, ok := reqBody["email"]; ok {
		t.Error("nil email pointer should be omitted from request body")
	}
	if client.Name != "Anna B. Lee" {
		t.Errorf("name = %q", client.Name)
	}
}

func TestHTTPClient_DeleteClient(t *testing.T) {
	h := &testHandler{statusCode: http.StatusNoContent}
	c, srv := newTestClient(h)
	defer srv.Close()

	if err := c.DeleteClient(context.Background(), "cl-abc"); err != nil {
		t.Fatalf("DeleteClient() error = %v", err)
	}
	if h.method != http.MethodDelete || h.path != "/v1/clients/cl-abc" {
		t.Errorf("got %s %s", h.method, h.path)
	}
}

func TestHTTPClient_MoveClient(t *testing.T) {
	h := &testHandler{
		responseBody: `{"success":true,"client_id":"cl-abc","applied_status":"appointment_set","request_id":"17"}`,
	}
	c, srv := newTestClient(h)
	defer srv.Close()

	resp, err := c.MoveClient(context.Background(), &MoveRequest{
		ClientID:  "cl-abc",
		ToStatus:  "appointment_set",
		RequestID: "17",
	})
	if err != nil {
		t.Fatalf("MoveClient() error = %v", err)
	}
	if h.method != http.MethodPost || h.path != "/v1/clients/cl-abc/move" {
		t.Errorf("got %s %s", h.method, h.path)
	}
	if !resp.Success || resp.AppliedStatus != "appointment_set" || resp.RequestID != "17" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestHTTPClient_BulkMove(t *testing.T) {
	h := &testHandler{
		responseBody: `{"results":[
			{"client_id":"cl-1","outcome":"moved"},
			{"client_id":"cl-2","outcome":"failed","error":"version conflict"}
		]}`,
	}
	c, srv := newTestClient(h)
	defer srv.Close()

	resp, err := c.BulkMove(context.Background(), &BulkMoveRequest{
		ClientIDs: []string{"cl-1", "cl-2"},
		ToStatus:  "active",
		RequestID: "9",
	})
	if err != nil {
		t.Fatalf("BulkMove() error = %v", err)
	}
	if h.path != "/v1/clients/bulk-move" {
		t.Errorf("path = %q", h.path)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(resp.Results))
	}
	if resp.Results[1].Outcome != "failed" || resp.Results[1].Error != "version conflict" {
		t.Errorf("results[1] = %+v", resp.Results[1])
	}
}

func TestHTTPClient_Health(t *testing.T) {
	h := &testHandler{responseBody: `{"status":"ok"}`}
	c, srv := newTestClient(h)
	defer srv.Close()

	status, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health() error = %v", err)
	}
	if status != "ok" {
		t.Errorf("status = %q, want ok", status)
	}
}

func TestHTTPClient_AuthAndActorHeaders(t *testing.T) {
	h := &testHandler{responseBody: `{"status":"ok"}`}
	srv := httptest.NewServer(h)
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "secret-token", "alice")
	if _, err := c.Health(context.Background()); err != nil {
		t.Fatalf("Health() error = %v", err)
	}
	if h.auth != "Bearer secret-token" {
		t.Errorf("Authorization = %q", h.auth)
	}
	if h.actor != "alice" {
		t.Errorf("X-Pipeline-Actor = %q", h.actor)
	}
}

func TestHTTPClient_APIError(t *testing.T) {
	h := &testHandler{
		statusCode:   http.StatusForbidden,
		responseBody: `{"error":"role referrer may not move clients"}`,
	}
	c, srv := newTestClient(h)
	defer srv.Close()

	_, err := c.MoveClient(context.Background(), &MoveRequest{ClientID: "cl-1", ToStatus: "active"})
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", apiErr.StatusCode)
	}
	if apiErr.Message != "role referrer may not move clients" {
		t.Errorf("message = %q", apiErr.Message)
	}
}

func TestHTTPClient_APIErrorNonJSONBody(t *testing.T) {
	h := &testHandler{
		statusCode:   http.StatusInternalServerError,
		responseBody: `upstream exploded`,
	}
	c, srv := newTestClient(h)
	defer srv.Close()

	_, err := c.GetClient(context.Background(), "cl-1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Message != "upstream exploded" {
		t.Errorf("message = %q", apiErr.Message)
	}
}

func TestConfirmer_ConfirmMove(t *testing.T) {
	h := &testHandler{
		responseBody: `{"success":true,"client_id":"cl-1","applied_status":"active","request_id":"7"}`,
	}
	c, srv := newTestClient(h)
	defer srv.Close()

	conf := &Confirmer{Client: c}
	if err := conf.ConfirmMove(context.Background(), "cl-1", model.StatusActive, 7); err != nil {
		t.Fatalf("ConfirmMove() error = %v", err)
	}

	var reqBody map[string]interface{}
	if err := json.Unmarshal([]byte(h.body), &reqBody); err != nil {
		t.Fatalf("unmarshaling request body: %v", err)
	}
	if reqBody["request_id"] != "7" {
		t.Errorf("request_id = %v, want \"7\"", reqBody["request_id"])
	}
	if reqBody["to_status"] != "active" {
		t.Errorf("to_status = %v", reqBody["to_status"])
	}
}

func TestConfirmer_RejectedMove(t *testing.T) {
	h := &testHandler{
		responseBody: `{"success":false,"client_id":"cl-1","applied_status":"lead","request_id":"8"}`,
	}
	c, srv := newTestClient(h)
	defer srv.Close()

	conf := &Confirmer{Client: c}
	if err := conf.ConfirmMove(context.Background(), "cl-1", model.StatusActive, 8); err == nil {
		t.Fatal("expected error for rejected move")
	}
}
