package sources

import (
	"context"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stockguardian/guardian-bot/internal/models"
)

// MockQuoteSource produces random quotes for local development
type MockQuoteSource struct{}

// NewMockQuoteSource creates a mock quote source
func NewMockQuoteSource() *MockQuoteSource {
	return &MockQuoteSource{}
}

// FetchQuote returns a price in [50, 250), a change in [-3, 3) and a volume of one to three million
func (m *MockQuoteSource) FetchQuote(_ context.Context, symbol string) (*models.Quote, error) {
	price := decimal.NewFromFloat(50 + rand.Float64()*200).Round(2)
	change := decimal.NewFromFloat((rand.Float64() - 0.5) * 6).Round(2).InexactFloat64()
	volume := float64(int(1e6 + rand.Float64()*2e6))

	return &models.Quote{
		Symbol:      strings.ToUpper(symbol),
		Price:       price,
		ChangePct1D: change,
		Volume:      &volume,
		FetchedAt:   time.Now().UTC(),
	}, nil
}
