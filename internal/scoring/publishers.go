package scoring

// Publisher weight defaults
const (
	MissingPublisherWeight = 0.7
	UnknownPublisherWeight = 0.75
)

// PublisherWeights maps a publisher name to a reputation multiplier in (0,1]
type PublisherWeights struct {
	Tiers   map[string]float64
	Unknown float64
	Missing float64
}

// DefaultPublisherWeights returns the built-in tiers: major wire services at 1.0, others lower
func DefaultPublisherWeights() PublisherWeights {
	return PublisherWeights{
		Tiers: map[string]float64{
			"Bloomberg":               1.0,
			"Reuters":                 1.0,
			"The Wall Street Journal": 1.0,
			"CNBC":                    0.9,
			"MarketWatch":             0.8,
		},
		Unknown: UnknownPublisherWeight,
		Missing: MissingPublisherWeight,
	}
}

// Weight returns the multiplier for a publisher name
func (p PublisherWeights) Weight(name string) float64 {
	if name == "" {
		return clampWeight(p.Missing, MissingPublisherWeight)
	}
	if w, ok := p.Tiers[name]; ok {
		return clampWeight(w, UnknownPublisherWeight)
	}
	return clampWeight(p.Unknown, UnknownPublisherWeight)
}

func clampWeight(w, fallback float64) float64 {
	if w <= 0 {
		return fallback
	}
	if w > 1 {
		return 1
	}
	return w
}
