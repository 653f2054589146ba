package sources

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/stockguardian/guardian-bot/internal/models"
)

// MultiNewsSource queries every enabled news source concurrently. A failing
// source contributes nothing; its error is returned alongside the other rows.
type MultiNewsSource struct {
	sources []NewsSource
}

// NewMultiNewsSource combines news sources
func NewMultiNewsSource(sources ...NewsSource) *MultiNewsSource {
	return &MultiNewsSource{sources: sources}
}

func (m *MultiNewsSource) GetName() string {
	return "news"
}

func (m *MultiNewsSource) IsEnabled() bool {
	for _, src := range m.sources {
		if src.IsEnabled() {
			return true
		}
	}
	return false
}

func (m *MultiNewsSource) FetchNews(ctx context.Context, symbol string, limit int) ([]models.NewsArticle, error) {
	return fanOut(m.sources, limit, func(src NewsSource) ([]models.NewsArticle, error) {
		return src.FetchNews(ctx, symbol, limit)
	})
}

// MultiSocialSource queries every enabled social source concurrently
type MultiSocialSource struct {
	sources []SocialSource
}

// NewMultiSocialSource combines social sources
func NewMultiSocialSource(sources ...SocialSource) *MultiSocialSource {
	return &MultiSocialSource{sources: sources}
}

func (m *MultiSocialSource) GetName() string {
	return "social"
}

func (m *MultiSocialSource) IsEnabled() bool {
	for _, src := range m.sources {
		if src.IsEnabled() {
			return true
		}
	}
	return false
}

func (m *MultiSocialSource) FetchPosts(ctx context.Context, symbol string, limit int) ([]models.SocialPost, error) {
	return fanOut(m.sources, limit, func(src SocialSource) ([]models.SocialPost, error) {
		return src.FetchPosts(ctx, symbol, limit)
	})
}

type namedSource interface {
	GetName() string
	IsEnabled() bool
}

// fanOut queries the enabled sources concurrently and concatenates their rows
// in source order, keeping at most limit rows overall when limit is positive.
func fanOut[S namedSource, T any](sources []S, limit int, fetch func(S) ([]T, error)) ([]T, error) {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make([][]T, len(sources))
		errs    []error
	)

	for i, src := range sources {
		if !src.IsEnabled() {
			continue
		}
		wg.Add(1)
		go func(i int, src S) {
			defer wg.Done()

			got, err := fetch(src)
			if err != nil {
				logrus.Errorf("Error fetching from %s: %v", src.GetName(), err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", src.GetName(), err))
				mu.Unlock()
				return
			}
			logrus.Debugf("Found %d items from %s", len(got), src.GetName())
			results[i] = got
		}(i, src)
	}
	wg.Wait()

	var rows []T
	for _, got := range results {
		rows = append(rows, got...)
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, errors.Join(errs...)
}
