package sources

import (
	"context"

	"github.com/stockguardian/guardian-bot/internal/models"
)

// QuoteSource returns the latest market quote for a symbol
type QuoteSource interface {
	FetchQuote(ctx context.Context, symbol string) (*models.Quote, error)
}

// NewsSource returns recent news articles about a symbol
type NewsSource interface {
	GetName() string
	IsEnabled() bool
	FetchNews(ctx context.Context, symbol string, limit int) ([]models.NewsArticle, error)
}

// SocialSource returns recent social posts mentioning a symbol
type SocialSource interface {
	GetName() string
	IsEnabled() bool
	FetchPosts(ctx context.Context, symbol string, limit int) ([]models.SocialPost, error)
}

const userAgent = "StockGuardian/1.0"
