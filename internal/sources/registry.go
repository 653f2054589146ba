package sources

import (
	"github.com/redis/go-redis/v9"

	"github.com/stockguardian/guardian-bot/internal/config"
)

// NewQuoteSourceFromConfig picks the market data provider. With a Redis client
// the provider is wrapped in the quote cache.
func NewQuoteSourceFromConfig(cfg *config.Config, rdb *redis.Client) QuoteSource {
	var src QuoteSource
	switch cfg.MarketDataProvider {
	case "mock":
		src = NewMockQuoteSource()
	default:
		src = NewStooqQuoteSource()
	}

	if rdb != nil && cfg.QuoteCacheTTL > 0 {
		return NewCachedQuoteSource(src, rdb, cfg.QuoteCacheTTL)
	}
	return src
}

// NewNewsSourcesFromConfig combines every news provider. Providers without
// credentials stay in the list but report themselves disabled.
func NewNewsSourcesFromConfig(cfg *config.Config) *MultiNewsSource {
	return NewMultiNewsSource(
		NewPolygonNewsSource(cfg.PolygonAPIKey),
		NewYahooRSSNewsSource(cfg.YahooRSSEnabled),
	)
}

// NewSocialSourcesFromConfig combines every social provider
func NewSocialSourcesFromConfig(cfg *config.Config) *MultiSocialSource {
	return NewMultiSocialSource(
		NewRedditSource(cfg.RedditClientID, cfg.RedditClientSecret, cfg.RedditUserAgent, cfg.RedditSubreddits),
		NewHackerNewsSource(cfg.HackerNewsEnabled),
		NewTwitterSource(cfg.TwitterBearerToken),
	)
}

// Names lists the enabled sources of a combined source
func (m *MultiNewsSource) Names() []string {
	return enabledNames(m.sources)
}

// Names lists the enabled sources of a combined source
func (m *MultiSocialSource) Names() []string {
	return enabledNames(m.sources)
}

func enabledNames[S namedSource](sources []S) []string {
	var names []string
	for _, s := range sources {
		if s.IsEnabled() {
			names = append(names, s.GetName())
		}
	}
	return names
}
