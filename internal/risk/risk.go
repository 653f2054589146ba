// Package risk combines price volatility and sentiment into a bounded 0-10 score.
package risk

import (
	"math"

	"github.com/stockguardian/guardian-bot/internal/models"
)

const (
	MinScore = 0.0
	MaxScore = 10.0

	componentCap = 5.0
)

// Score computes the composite risk. Higher volatility and lower sentiment raise it;
// a conservative preference amplifies it and an aggressive one dampens it.
func Score(changePct1D, sentiment float64, pref models.RiskPreference) float64 {
	volatility := math.Min(componentCap, math.Abs(changePct1D)/2.0)
	mood := math.Min(componentCap, math.Max(0.0, (50.0-sentiment)/10.0))

	base := volatility + mood + preferenceAdjustment(pref)
	return math.Max(MinScore, math.Min(MaxScore, base))
}

func preferenceAdjustment(pref models.RiskPreference) float64 {
	switch pref {
	case models.RiskConservative:
		return 0.7
	case models.RiskAggressive:
		return -0.4
	default:
		return 0
	}
}
