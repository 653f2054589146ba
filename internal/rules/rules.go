// Package rules evaluates per-holding alert thresholds.
package rules

import (
	"context"
	"fmt"
	"math"

	"github.com/stockguardian/guardian-bot/internal/config"
	"github.com/stockguardian/guardian-bot/internal/models"
)

// Reasons reported by Evaluate, in priority order
const (
	ReasonRisk      = "risk threshold"
	ReasonSentiment = "sentiment threshold"
	ReasonHot       = "hot threshold"
	ReasonChange    = "change threshold"
)

// Metrics is what one agent cycle measured for a holding
type Metrics struct {
	Risk        float64
	Sentiment   float64
	Hot         float64
	ChangePct1D float64
}

// Evaluate checks the thresholds in fixed priority order and reports the
// first one that is crossed. A disabled rule never fires.
func Evaluate(rule models.TriggerRule, m Metrics) (bool, string) {
	if !rule.Enabled {
		return false, ""
	}

	switch {
	case m.Risk >= rule.RiskGE:
		return true, ReasonRisk
	case m.Sentiment <= rule.SentimentLE:
		return true, ReasonSentiment
	case m.Hot >= rule.HotGE:
		return true, ReasonHot
	case math.Abs(m.ChangePct1D) >= rule.ChangeAbsGE:
		return true, ReasonChange
	}
	return false, ""
}

// DefaultRule builds an enabled rule from configured thresholds
func DefaultRule(t config.Thresholds) models.TriggerRule {
	return models.TriggerRule{
		Enabled:     true,
		RiskGE:      t.RiskGE,
		SentimentLE: t.SentimentLE,
		HotGE:       t.HotGE,
		ChangeAbsGE: t.ChangeAbsGE,
	}
}

// Repository persists trigger rules
type Repository interface {
	GetOrCreateTriggerRule(ctx context.Context, holdingID int64, defaults models.TriggerRule) (*models.TriggerRule, error)
	UpdateTriggerRule(ctx context.Context, r *models.TriggerRule) error
}

// Service owns the one rule each holding has
type Service struct {
	repo     Repository
	defaults models.TriggerRule
}

// NewService creates a rule service that materializes rules from thresholds on first access
func NewService(repo Repository, t config.Thresholds) *Service {
	return &Service{repo: repo, defaults: DefaultRule(t)}
}

// GetRule returns the holding's rule, creating it with defaults if needed
func (s *Service) GetRule(ctx context.Context, holdingID int64) (*models.TriggerRule, error) {
	return s.repo.GetOrCreateTriggerRule(ctx, holdingID, s.defaults)
}

// UpdateRule applies a partial update and returns the saved rule
func (s *Service) UpdateRule(ctx context.Context, holdingID int64, patch models.TriggerRulePatch) (*models.TriggerRule, error) {
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	rule, err := s.GetRule(ctx, holdingID)
	if err != nil {
		return nil, err
	}
	patch.Apply(rule)

	if err := s.repo.UpdateTriggerRule(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// ErrInvalidThreshold is returned for thresholds outside their metric's range
type ErrInvalidThreshold struct {
	Field string
	Value float64
}

func (e *ErrInvalidThreshold) Error() string {
	return fmt.Sprintf("invalid %s threshold %g", e.Field, e.Value)
}

func validatePatch(p models.TriggerRulePatch) error {
	check := func(field string, v *float64, lo, hi float64) error {
		if v != nil && (math.IsNaN(*v) || *v < lo || *v > hi) {
			return &ErrInvalidThreshold{Field: field, Value: *v}
		}
		return nil
	}

	if err := check("risk_ge", p.RiskGE, 0, 10); err != nil {
		return err
	}
	if err := check("sentiment_le", p.SentimentLE, 0, 100); err != nil {
		return err
	}
	if err := check("hot_ge", p.HotGE, 0, math.MaxFloat64); err != nil {
		return err
	}
	return check("change_abs_ge", p.ChangeAbsGE, 0, math.MaxFloat64)
}
