// Package sentiment scores text snippets and aggregates them to a 0-100 value.
package sentiment

import (
	"math"
	"strings"

	"github.com/jonreiter/govader"
)

// Analyzer returns a compound polarity in [-1, 1] for one text
type Analyzer interface {
	Score(text string) float64
}

// VaderAnalyzer scores text with the VADER rule-based model
type VaderAnalyzer struct {
	vader *govader.SentimentIntensityAnalyzer
}

var _ Analyzer = (*VaderAnalyzer)(nil)

// NewVaderAnalyzer loads the VADER lexicon. The analyzer only reads its
// lexicon after construction, so one instance is shared by all holdings.
func NewVaderAnalyzer() *VaderAnalyzer {
	return &VaderAnalyzer{vader: govader.NewSentimentIntensityAnalyzer()}
}

// Score returns the compound polarity of text
func (a *VaderAnalyzer) Score(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	compound := a.vader.PolarityScores(text).Compound
	if math.IsNaN(compound) {
		return 0
	}
	return math.Max(-1, math.Min(1, compound))
}
