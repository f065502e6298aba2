// Package cube is the client for the metrics query service. It exposes
// the field catalog, query execution, and the compiled-SQL peek.
package cube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/nlquery/nlq-engine/pkg/apperrors"
	"github.com/nlquery/nlq-engine/pkg/config"
	"github.com/nlquery/nlq-engine/pkg/models"
)

// Client talks to a Cube-compatible metrics service REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a metrics service client.
func NewClient(cfg *config.MetricsServiceConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		logger: logger.Named("cube"),
	}
}

// metaResponse is the catalog shape returned by the /meta endpoint.
type metaResponse struct {
	Cubes []struct {
		Name        string       `json:"name"`
		Title       string       `json:"title"`
		Description string       `json:"description"`
		Measures    []metaMember `json:"measures"`
		Dimensions  []metaMember `json:"dimensions"`
	} `json:"cubes"`
}

type metaMember struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Type        string `json:"type"`
	Description string `json:"description"`
	AggType     string `json:"aggType"`
	IsVisible   *bool  `json:"isVisible"`
}

func (m metaMember) visible() bool {
	return m.IsVisible == nil || *m.IsVisible
}

// FetchCatalog retrieves the full current field catalog from /meta and
// flattens it into schema fields. Hidden members are skipped.
func (c *Client) FetchCatalog(ctx context.Context) ([]models.SchemaField, error) {
	var meta metaResponse
	if err := c.getJSON(ctx, "/meta", &meta); err != nil {
		return nil, err
	}

	var fields []models.SchemaField
	for _, cube := range meta.Cubes {
		for _, m := range cube.Measures {
			if !m.visible() {
				continue
			}
			fields = append(fields, models.SchemaField{
				Name:        m.Name,
				Group:       cube.Name,
				Kind:        models.FieldKindMeasure,
				ValueType:   valueType(m.Type, models.ValueTypeNumber),
				Title:       orDefault(m.Title, m.Name),
				Description: m.Description,
				Aggregation: m.AggType,
			})
		}
		for _, d := range cube.Dimensions {
			if !d.visible() {
				continue
			}
			fields = append(fields, models.SchemaField{
				Name:        d.Name,
				Group:       cube.Name,
				Kind:        models.FieldKindDimension,
				ValueType:   valueType(d.Type, models.ValueTypeString),
				Title:       orDefault(d.Title, d.Name),
				Description: d.Description,
			})
		}
	}

	c.logger.Info("catalog fetched",
		zap.Int("cubes", len(meta.Cubes)),
		zap.Int("fields", len(fields)))
	return fields, nil
}

// loadResponse is the row payload returned by the /load endpoint.
type loadResponse struct {
	Data  []map[string]any `json:"data"`
	Error string           `json:"error"`
}

// Load executes a structured query and returns the result rows.
func (c *Client) Load(ctx context.Context, query *models.StructuredQuery) ([]map[string]any, error) {
	var resp loadResponse
	if err := c.postJSON(ctx, "/load", map[string]any{"query": query}, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrServiceUnavailable, resp.Error)
	}
	return resp.Data, nil
}

// sqlResponse is the payload returned by the /sql endpoint.
type sqlResponse struct {
	SQL struct {
		SQL []json.RawMessage `json:"sql"`
	} `json:"sql"`
	Error string `json:"error"`
}

// SQL asks the metrics service for the SQL it would run for the query.
// This is a diagnostic peek; callers must treat failure as non-fatal.
func (c *Client) SQL(ctx context.Context, query *models.StructuredQuery) (string, error) {
	var resp sqlResponse
	if err := c.postJSON(ctx, "/sql", map[string]any{"query": query}, &resp); err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", fmt.Errorf("sql peek: %s", resp.Error)
	}
	if len(resp.SQL.SQL) == 0 {
		return "", fmt.Errorf("sql peek: empty response")
	}

	var stmt string
	if err := json.Unmarshal(resp.SQL.SQL[0], &stmt); err != nil {
		return "", fmt.Errorf("sql peek: %w", err)
	}
	return stmt, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", apperrors.ErrServiceUnavailable, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: status %d", apperrors.ErrServiceUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("metrics service: status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func valueType(t string, fallback models.ValueType) models.ValueType {
	switch t {
	case "number":
		return models.ValueTypeNumber
	case "string":
		return models.ValueTypeString
	case "time":
		return models.ValueTypeTime
	case "boolean":
		return models.ValueTypeBoolean
	default:
		return fallback
	}
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
