package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nlquery/nlq-engine/pkg/apperrors"
	"github.com/nlquery/nlq-engine/pkg/jsonutil"
	"github.com/nlquery/nlq-engine/pkg/llm"
	"github.com/nlquery/nlq-engine/pkg/logging"
	"github.com/nlquery/nlq-engine/pkg/models"
)

// GenerationResult carries the parsed query plus the raw exchange for
// the trace.
type GenerationResult struct {
	Query       *models.StructuredQuery
	RawResponse string
	RepairStage string
	Elapsed     time.Duration
}

// QueryGenerator turns a synthesized prompt into a structured query via
// one LLM exchange followed by deterministic repair. There is never a
// second model call for the same request.
type QueryGenerator struct {
	client      llm.LLMClient
	system      string
	temperature float64
	logger      *zap.Logger
}

// NewQueryGenerator creates a generator bound to one completion client.
func NewQueryGenerator(client llm.LLMClient, systemMessage string, temperature float64, logger *zap.Logger) *QueryGenerator {
	return &QueryGenerator{
		client:      client,
		system:      systemMessage,
		temperature: temperature,
		logger:      logger.Named("generator"),
	}
}

// Generate invokes the model and parses the response. A response that
// stays unparseable after all repair stages is reported as
// ErrUnparseableResponse.
func (g *QueryGenerator) Generate(ctx context.Context, prompt string) (*GenerationResult, error) {
	start := time.Now()
	resp, err := g.client.GenerateResponse(ctx, prompt, g.system, g.temperature)
	if err != nil {
		return nil, fmt.Errorf("generate query: %w", err)
	}

	result := &GenerationResult{
		RawResponse: resp.Content,
		Elapsed:     time.Since(start),
	}

	repaired, stage, err := jsonutil.RepairWithStage(resp.Content)
	result.RepairStage = stage
	if err != nil {
		g.logger.Warn("generator response unparseable",
			zap.String("raw", logging.SanitizeRawResponse(resp.Content)))
		return result, fmt.Errorf("%w: %v", apperrors.ErrUnparseableResponse, err)
	}

	query, err := parseQuery(repaired)
	if err != nil {
		g.logger.Warn("generator response did not decode",
			zap.String("raw", logging.SanitizeRawResponse(repaired)),
			zap.Error(err))
		return result, fmt.Errorf("%w: %v", apperrors.ErrUnparseableResponse, err)
	}

	result.Query = query
	return result, nil
}

// rawQuery tolerates the key synonyms and scalar-for-list shapes the
// generator is known to produce.
type rawQuery struct {
	Measures       json.RawMessage `json:"measures"`
	Dimensions     json.RawMessage `json:"dimensions"`
	Filters        []rawFilter     `json:"filters"`
	TimeDimensions []rawTimeDim    `json:"timeDimensions"`
	Order          json.RawMessage `json:"order"`
	OrderBy        json.RawMessage `json:"orderBy"`
	Limit          json.RawMessage `json:"limit"`
}

type rawFilter struct {
	Member    string          `json:"member"`
	Field     string          `json:"field"`
	Dimension string          `json:"dimension"`
	Operator  string          `json:"operator"`
	Values    json.RawMessage `json:"values"`
}

type rawTimeDim struct {
	Dimension   string          `json:"dimension"`
	Granularity string          `json:"granularity"`
	DateRange   json.RawMessage `json:"dateRange"`
}

// rawOrderItem is the alternate list-shaped ordering clause.
type rawOrderItem struct {
	Measure   string `json:"measure"`
	Dimension string `json:"dimension"`
	Member    string `json:"member"`
	Direction string `json:"direction"`
}

// parseQuery decodes repaired JSON into the canonical query shape,
// folding key synonyms: orderBy lists become the order map, filter
// field/dimension keys become member, scalar values become one-element
// lists.
func parseQuery(text string) (*models.StructuredQuery, error) {
	var raw rawQuery
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, err
	}

	query := &models.StructuredQuery{
		Measures:   jsonutil.FlexibleStrings(raw.Measures),
		Dimensions: jsonutil.FlexibleStrings(raw.Dimensions),
		Limit:      jsonutil.FlexibleInt(raw.Limit),
		Order:      parseOrder(raw.Order, raw.OrderBy),
	}

	for _, f := range raw.Filters {
		member := f.Member
		if member == "" {
			member = f.Field
		}
		if member == "" {
			member = f.Dimension
		}
		if member == "" {
			continue
		}
		query.Filters = append(query.Filters, models.Filter{
			Member:   member,
			Operator: f.Operator,
			Values:   jsonutil.FlexibleStrings(f.Values),
		})
	}

	for _, td := range raw.TimeDimensions {
		if td.Dimension == "" {
			continue
		}
		query.TimeDimensions = append(query.TimeDimensions, models.TimeDimension{
			Dimension:   td.Dimension,
			Granularity: td.Granularity,
			DateRange:   jsonutil.FlexibleString(td.DateRange),
		})
	}

	return query, nil
}

func parseOrder(order, orderBy json.RawMessage) map[string]string {
	if m := orderMap(order); m != nil {
		return m
	}
	if m := orderMap(orderBy); m != nil {
		return m
	}

	var items []rawOrderItem
	if err := json.Unmarshal(orderBy, &items); err != nil {
		return nil
	}

	result := map[string]string{}
	for _, item := range items {
		member := item.Measure
		if member == "" {
			member = item.Dimension
		}
		if member == "" {
			member = item.Member
		}
		if member == "" {
			continue
		}
		direction := item.Direction
		if direction == "" {
			direction = "asc"
		}
		result[member] = direction
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func orderMap(raw json.RawMessage) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(raw, &m); err != nil || len(m) == 0 {
		return nil
	}
	return m
}
