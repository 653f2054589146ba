package risk

import (
	"testing"

	"github.com/stockguardian/guardian-bot/internal/models"
	"github.com/stretchr/testify/assert"
)

var prefs = []models.RiskPreference{models.RiskConservative, models.RiskNeutral, models.RiskAggressive}

func TestScore(t *testing.T) {
	tests := []struct {
		name      string
		change    float64
		sentiment float64
		pref      models.RiskPreference
		expected  float64
	}{
		{name: "Calm and neutral", change: 0, sentiment: 50, pref: models.RiskNeutral, expected: 0},
		{name: "Volatile with weak sentiment", change: 7.0, sentiment: 20, pref: models.RiskNeutral, expected: 6.5},
		{name: "Negative change counts by magnitude", change: -7.0, sentiment: 20, pref: models.RiskNeutral, expected: 6.5},
		{name: "Conservative amplifies", change: 2.0, sentiment: 40, pref: models.RiskConservative, expected: 2.7},
		{name: "Aggressive dampens", change: 2.0, sentiment: 40, pref: models.RiskAggressive, expected: 1.6},
		{name: "Aggressive floors at zero", change: 0, sentiment: 90, pref: models.RiskAggressive, expected: 0},
		{name: "Components cap at five each", change: 40, sentiment: 0, pref: models.RiskNeutral, expected: 10},
		{name: "Conservative clamps at ten", change: 40, sentiment: 0, pref: models.RiskConservative, expected: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Score(tt.change, tt.sentiment, tt.pref), 1e-9)
		})
	}
}

func TestScore_Bounds(t *testing.T) {
	for _, pref := range prefs {
		for change := -50.0; change <= 50.0; change += 2.5 {
			for sentiment := 0.0; sentiment <= 100.0; sentiment += 5 {
				s := Score(change, sentiment, pref)
				assert.GreaterOrEqual(t, s, MinScore)
				assert.LessOrEqual(t, s, MaxScore)
			}
		}
	}
}

func TestScore_Monotonic(t *testing.T) {
	for _, pref := range prefs {
		t.Run(string(pref)+" non-decreasing in volatility", func(t *testing.T) {
			for sentiment := 0.0; sentiment <= 100.0; sentiment += 10 {
				prev := Score(0, sentiment, pref)
				for change := 0.5; change <= 50; change += 0.5 {
					cur := Score(change, sentiment, pref)
					assert.GreaterOrEqual(t, cur, prev)
					prev = cur
				}
			}
		})

		t.Run(string(pref)+" non-increasing in sentiment", func(t *testing.T) {
			for change := -20.0; change <= 20.0; change += 4 {
				prev := Score(change, 0, pref)
				for sentiment := 1.0; sentiment <= 100; sentiment++ {
					cur := Score(change, sentiment, pref)
					assert.LessOrEqual(t, cur, prev)
					prev = cur
				}
			}
		})
	}
}
