package sentiment

import "math"

// Neutral is the score of an empty batch
const Neutral = 50.0

// Aggregate averages the compound polarity of texts and maps it onto [0, 100]
func Aggregate(a Analyzer, texts []string) float64 {
	if len(texts) == 0 {
		return Neutral
	}

	sum := 0.0
	for _, t := range texts {
		sum += a.Score(t)
	}
	avg := sum / float64(len(texts))

	return math.Max(0.0, math.Min(100.0, (avg+1)*50))
}
