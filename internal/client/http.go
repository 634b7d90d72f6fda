package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/alfredjeanlab/relay/internal/model"
)

// HTTPClient implements RelayClient using the relay's HTTP/JSON API.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

var _ RelayClient = (*HTTPClient)(nil)

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:5000").
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

func (c *HTTPClient) Report(ctx context.Context, req *model.ReportRequest) error {
	return c.doJSON(ctx, http.MethodPost, "/report", req, nil)
}

func (c *HTTPClient) GetCommand(ctx context.Context, agentID string) (*model.CommandEnvelope, error) {
	var resp model.CommandResponse
	if err := c.doJSON(ctx, http.MethodGet, "/command/"+url.PathEscape(agentID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Command, nil
}

func (c *HTTPClient) GetReports(ctx context.Context) ([]model.ReportEvent, error) {
	var reports []model.ReportEvent
	if err := c.doJSON(ctx, http.MethodGet, "/get_reports", nil, &reports); err != nil {
		return nil, err
	}
	return reports, nil
}

func (c *HTTPClient) SendCommand(ctx context.Context, agentID string, cmd *model.CommandEnvelope) error {
	return c.doJSON(ctx, http.MethodPost, "/send_command", &model.SendCommandRequest{AgentID: agentID, Command: cmd}, nil)
}

func (c *HTTPClient) SendCommandToAll(ctx context.Context, cmd *model.CommandEnvelope) (int, error) {
	var resp model.MessageResponse
	if err := c.doJSON(ctx, http.MethodPost, "/send_command_to_all", &model.BroadcastRequest{Command: cmd}, &resp); err != nil {
		return 0, err
	}
	return resp.Queued, nil
}

func (c *HTTPClient) ListClients(ctx context.Context) (map[string]model.AgentRecord, error) {
	clients := map[string]model.AgentRecord{}
	if err := c.doJSON(ctx, http.MethodGet, "/clients", nil, &clients); err != nil {
		return nil, err
	}
	return clients, nil
}

func (c *HTTPClient) RemoveClient(ctx context.Context, agentID string) (bool, error) {
	err := c.doJSON(ctx, http.MethodDelete, "/clients/"+url.PathEscape(agentID), nil, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *HTTPClient) Health(ctx context.Context) (*model.Stats, error) {
	var stats model.Stats
	if err := c.doJSON(ctx, http.MethodGet, "/health", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// EventQuery filters ListEvents.
type EventQuery struct {
	AgentID string
	Topic   string
	Limit   int
}

// ListEvents reads the relay's audit log. It is only served over HTTP and
// fails with a 503 APIError when the relay has no audit database.
func (c *HTTPClient) ListEvents(ctx context.Context, q EventQuery) ([]*model.Event, error) {
	v := url.Values{}
	if q.AgentID != "" {
		v.Set("agent_id", q.AgentID)
	}
	if q.Topic != "" {
		v.Set("topic", q.Topic)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	path := "/events"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}

	var evts []*model.Event
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &evts); err != nil {
		return nil, err
	}
	return evts, nil
}

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// doJSON performs an HTTP request with optional JSON body and decodes the JSON response.
// If result is nil, the response body is discarded.
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

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

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
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
