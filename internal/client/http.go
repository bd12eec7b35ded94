package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/alfredjeanlab/pipeline/internal/model"
)

// HTTPClient implements PipelineClient using the pipeline HTTP/JSON REST API.
type HTTPClient struct {
	baseURL    string
	token      string
	actor      string
	httpClient *http.Client
}

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:8080"). When token is non-empty, an Authorization
// header is set on every request; when actor is non-empty, an
// X-Pipeline-Actor header identifies the caller for role resolution.
func NewHTTPClient(baseURL, token, actor string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		actor:      actor,
		httpClient: &http.Client{},
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

// --- Client CRUD ---

func (c *HTTPClient) CreateClient(ctx context.Context, req *CreateClientRequest) (*model.Client, error) {
	var client model.Client
	if err := c.doJSON(ctx, http.MethodPost, "/v1/clients", req, &client); err != nil {
		return nil, err
	}
	return &client, nil
}

func (c *HTTPClient) GetClient(ctx context.Context, id string) (*model.Client, error) {
	var client model.Client
	if err := c.doJSON(ctx, http.MethodGet, "/v1/clients/"+url.PathEscape(id), nil, &client); err != nil {
		return nil, err
	}
	return &client, nil
}

func (c *HTTPClient) ListClients(ctx context.Context, req *ListClientsRequest) (*ListClientsResponse, error) {
	q := url.Values{}
	if len(req.Status) > 0 {
		q.Set("status", strings.Join(req.Status, ","))
	}
	if req.Assignee != "" {
		q.Set("assignee", req.Assignee)
	}
	if req.Franchise != "" {
		q.Set("franchise", req.Franchise)
	}
	if req.Search != "" {
		q.Set("search", req.Search)
	}
	if req.Sort != "" {
		q.Set("sort", req.Sort)
	}
	if req.Limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", req.Limit))
	}
	if req.Offset > 0 {
		q.Set("offset", fmt.Sprintf("%d", req.Offset))
	}

	path := "/v1/clients"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp ListClientsResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) UpdateClient(ctx context.Context, id string, req *UpdateClientRequest) (*model.Client, error) {
	var client model.Client
	if err := c.doJSON(ctx, http.MethodPatch, "/v1/clients/"+url.PathEscape(id), req, &client); err != nil {
		return nil, err
	}
	return &client, nil
}

func (c *HTTPClient) DeleteClient(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/v1/clients/"+url.PathEscape(id), nil, nil)
}

// --- Status moves ---

func (c *HTTPClient) MoveClient(ctx context.Context, req *MoveRequest) (*MoveResponse, error) {
	var resp MoveResponse
	path := "/v1/clients/" + url.PathEscape(req.ClientID) + "/move"
	if err := c.doJSON(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) BulkMove(ctx context.Context, req *BulkMoveRequest) (*BulkMoveResponse, error) {
	var resp BulkMoveResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/clients/bulk-move", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- Health ---

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/health", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// --- internal helpers ---

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// doJSON performs an HTTP request with optional JSON body and decodes the JSON response.
// If result is nil, the response body is discarded (for DELETE/204 responses).
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.actor != "" {
		req.Header.Set("X-Pipeline-Actor", c.actor)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	// 204 No Content — success with no body.
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
