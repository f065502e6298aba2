// Package records is the client for the operational record service. It
// serves detail and list intents that bypass the metrics service, plus
// the project key to id lookup used for list filters.
package records

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nlquery/nlq-engine/pkg/apperrors"
	"github.com/nlquery/nlq-engine/pkg/config"
)

// Client talks to the record service REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a record service client.
func NewClient(cfg *config.RecordServiceConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		logger: logger.Named("records"),
	}
}

// listResponse is the envelope the record service wraps rows in.
type listResponse struct {
	Data  []map[string]any `json:"data"`
	Error string           `json:"error"`
}

// GetRecord fetches a single record by its key.
func (c *Client) GetRecord(ctx context.Context, key string) (map[string]any, error) {
	rows, err := c.get(ctx, "/jira/issues/"+url.PathEscape(key), map[string]string{"view": "wide"})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// GetComments fetches the comments of a record.
func (c *Client) GetComments(ctx context.Context, key string) ([]map[string]any, error) {
	return c.get(ctx, "/jira/issues/"+url.PathEscape(key)+"/comments", map[string]string{"view": "wide"})
}

// GetLinks fetches the links of a record.
func (c *Client) GetLinks(ctx context.Context, key string) ([]map[string]any, error) {
	return c.get(ctx, "/jira/issues/"+url.PathEscape(key)+"/links", map[string]string{"view": "wide"})
}

// ListRecords fetches records matching simple key/value filter params.
func (c *Client) ListRecords(ctx context.Context, params map[string]string) ([]map[string]any, error) {
	merged := map[string]string{"view": "wide", "limit": "50"}
	for k, v := range params {
		merged[k] = v
	}
	return c.get(ctx, "/jira/issues", merged)
}

// ListProjects fetches the project catalog.
func (c *Client) ListProjects(ctx context.Context) ([]map[string]any, error) {
	return c.get(ctx, "/jira/projects", map[string]string{"view": "wide"})
}

func (c *Client) get(ctx context.Context, path string, params map[string]string) ([]map[string]any, error) {
	query := url.Values{}
	for k, v := range params {
		query.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", apperrors.ErrServiceUnavailable, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: status %d", apperrors.ErrServiceUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("record service: status %d", resp.StatusCode)
	}

	var envelope listResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if envelope.Error != "" {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrServiceUnavailable, envelope.Error)
	}
	return envelope.Data, nil
}
