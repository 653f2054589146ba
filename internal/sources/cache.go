package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/stockguardian/guardian-bot/internal/models"
)

// CachedQuoteSource serves quotes from Redis and falls back to the wrapped source on a miss.
// Redis failures are logged and never fail the fetch.
type CachedQuoteSource struct {
	next QuoteSource
	rdb  *redis.Client
	ttl  time.Duration
}

// NewCachedQuoteSource wraps next with a Redis cache
func NewCachedQuoteSource(next QuoteSource, rdb *redis.Client, ttl time.Duration) *CachedQuoteSource {
	return &CachedQuoteSource{next: next, rdb: rdb, ttl: ttl}
}

func quoteKey(symbol string) string {
	return "guardian:quote:" + strings.ToUpper(symbol)
}

// FetchQuote returns the cached quote if present
func (c *CachedQuoteSource) FetchQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	key := quoteKey(symbol)

	data, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var q models.Quote
		if jsonErr := json.Unmarshal(data, &q); jsonErr == nil {
			return &q, nil
		}
		logrus.Warnf("Discarding unreadable cached quote for %s", symbol)
	case errors.Is(err, redis.Nil):
	default:
		logrus.WithError(err).Warnf("Quote cache read failed for %s", symbol)
	}

	q, err := c.next.FetchQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(q); err == nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			logrus.WithError(err).Warnf("Quote cache write failed for %s", symbol)
		}
	}
	return q, nil
}

// Ping checks the Redis connection
func (c *CachedQuoteSource) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}
