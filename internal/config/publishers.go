package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/stockguardian/guardian-bot/internal/scoring"
)

// publisherFile is the on-disk shape of a publisher weights override:
//
//	unknown: 0.75
//	missing: 0.7
//	tiers:
//	  Reuters: 1.0
//	  Seeking Alpha: 0.6
type publisherFile struct {
	Unknown *float64           `yaml:"unknown"`
	Missing *float64           `yaml:"missing"`
	Tiers   map[string]float64 `yaml:"tiers"`
}

// LoadPublisherWeights merges an optional YAML override over the built-in tiers.
// An empty path returns the defaults.
func LoadPublisherWeights(path string) (scoring.PublisherWeights, error) {
	weights := scoring.DefaultPublisherWeights()
	if path == "" {
		return weights, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return weights, fmt.Errorf("failed to read publisher weights: %w", err)
	}
	return parsePublisherWeights(weights, data)
}

func parsePublisherWeights(weights scoring.PublisherWeights, data []byte) (scoring.PublisherWeights, error) {
	var f publisherFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return weights, fmt.Errorf("failed to parse publisher weights: %w", err)
	}

	for name, w := range f.Tiers {
		if w <= 0 || w > 1 {
			return weights, fmt.Errorf("publisher weight for %q must be within (0, 1]", name)
		}
		weights.Tiers[name] = w
	}
	if f.Unknown != nil {
		weights.Unknown = *f.Unknown
	}
	if f.Missing != nil {
		weights.Missing = *f.Missing
	}
	return weights, nil
}
