package services

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/nlquery/nlq-engine/pkg/apperrors"
	"github.com/nlquery/nlq-engine/pkg/config"
	"github.com/nlquery/nlq-engine/pkg/models"
)

// Validator enforces the grounding closure: a generated query may only
// reference fields from the candidate set the prompt was built from,
// not the full catalog. It also applies the limit policy.
type Validator struct {
	cfg    config.ValidatorConfig
	logger *zap.Logger
}

// NewValidator creates a validator with the configured limit policy.
func NewValidator(cfg config.ValidatorConfig, logger *zap.Logger) *Validator {
	return &Validator{cfg: cfg, logger: logger.Named("validator")}
}

// Validate checks the query against the candidates passed to the prompt
// synthesizer for the same request. On success it mutates the query to
// clamp or default the limit. Failures wrap ErrInvalidQuery and name
// the offending field.
func (v *Validator) Validate(query *models.StructuredQuery, candidates []models.CandidateField) error {
	known := map[string]bool{}
	for _, c := range candidates {
		known[c.Name] = true
	}

	if len(query.Measures) == 0 {
		return fmt.Errorf("%w: query must have at least one measure", apperrors.ErrInvalidQuery)
	}

	for _, m := range query.Measures {
		if !known[m] {
			return fmt.Errorf("%w: unknown measure %q", apperrors.ErrInvalidQuery, m)
		}
	}
	for _, d := range query.Dimensions {
		if !known[d] {
			return fmt.Errorf("%w: unknown dimension %q", apperrors.ErrInvalidQuery, d)
		}
	}
	for _, f := range query.Filters {
		if !known[f.Member] {
			return fmt.Errorf("%w: unknown filter member %q", apperrors.ErrInvalidQuery, f.Member)
		}
	}
	for _, td := range query.TimeDimensions {
		if !known[td.Dimension] {
			return fmt.Errorf("%w: unknown time dimension %q", apperrors.ErrInvalidQuery, td.Dimension)
		}
	}
	for member := range query.Order {
		if !known[member] {
			return fmt.Errorf("%w: unknown order member %q", apperrors.ErrInvalidQuery, member)
		}
	}

	if query.Limit <= 0 {
		query.Limit = v.cfg.DefaultLimit
	} else if query.Limit > v.cfg.MaxLimit {
		v.logger.Debug("limit clamped",
			zap.Int("requested", query.Limit),
			zap.Int("max", v.cfg.MaxLimit))
		query.Limit = v.cfg.MaxLimit
	}

	return nil
}
