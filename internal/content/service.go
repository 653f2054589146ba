// Package content deduplicates ingested news and social items per holding and
// ranks them into bullets.
package content

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stockguardian/guardian-bot/internal/models"
	"github.com/stockguardian/guardian-bot/internal/scoring"
	"github.com/stockguardian/guardian-bot/internal/sentiment"
	"github.com/stockguardian/guardian-bot/internal/storage"
)

// MaxTitleLen bounds the stored title
const MaxTitleLen = 400

// Default bullet selection
const (
	DefaultBulletWindow = 48 * time.Hour
	DefaultBulletLimit  = 30
)

// Repository is the persistence the dedup store needs
type Repository interface {
	GetContentByFingerprint(ctx context.Context, holdingID int64, fingerprint string) (*models.ContentItem, error)
	CreateContentItem(ctx context.Context, c *models.ContentItem) error
	UpdateContentItem(ctx context.Context, c *models.ContentItem) error
	ListRecentContent(ctx context.Context, holdingID int64, since time.Time, limit int) ([]*models.ContentItem, error)
}

// Service is the content deduplication store
type Service struct {
	repo     Repository
	analyzer sentiment.Analyzer
	weights  scoring.PublisherWeights
	now      func() time.Time
}

// NewService creates a dedup store
func NewService(repo Repository, analyzer sentiment.Analyzer, weights scoring.PublisherWeights) *Service {
	return &Service{
		repo:     repo,
		analyzer: analyzer,
		weights:  weights,
		now:      time.Now,
	}
}

// Upsert stores an item keyed by its fingerprint. An existing item is only
// replaced when the incoming one is hotter or strictly newer.
func (s *Service) Upsert(ctx context.Context, holdingID int64, source, title string, ts time.Time, url string, hotScore float64) (*models.ContentItem, error) {
	fp := scoring.Fingerprint(source, title, url)
	ts = scoring.EnsureUTC(ts)
	stored := scoring.Truncate(title, MaxTitleLen)

	existing, err := s.repo.GetContentByFingerprint(ctx, holdingID, fp)
	switch {
	case err == nil:
		if hotScore <= existing.HotScore && !ts.After(existing.Timestamp) {
			return existing, nil
		}
		existing.Timestamp = ts
		existing.HotScore = hotScore
		existing.SentimentScore = s.titleSentiment(title)
		existing.Title = stored
		existing.URL = url
		if err := s.repo.UpdateContentItem(ctx, existing); err != nil {
			return nil, err
		}
		return existing, nil

	case errors.Is(err, storage.ErrNotFound):
		item := &models.ContentItem{
			HoldingID:      holdingID,
			Source:         source,
			Title:          stored,
			URL:            url,
			Timestamp:      ts,
			Fingerprint:    fp,
			SentimentScore: s.titleSentiment(title),
			HotScore:       hotScore,
		}
		if err := s.repo.CreateContentItem(ctx, item); err != nil {
			return nil, err
		}
		return item, nil

	default:
		return nil, fmt.Errorf("failed to look up content: %w", err)
	}
}

func (s *Service) titleSentiment(title string) float64 {
	return sentiment.Aggregate(s.analyzer, []string{title})
}

// IngestNews scores news articles by publisher and recency and upserts them.
// It returns how many articles were stored.
func (s *Service) IngestNews(ctx context.Context, holding *models.Holding, articles []models.NewsArticle) int {
	now := s.now().UTC()
	n := 0
	for _, a := range articles {
		if strings.TrimSpace(a.Title) == "" {
			continue
		}
		ts := now
		if a.PublishedAt != nil {
			ts = a.PublishedAt.UTC()
		}
		hot := scoring.HotScoreNews(s.weights.Weight(a.Publisher), ts, now)

		if _, err := s.Upsert(ctx, holding.ID, models.SourceNews, a.Title, ts, a.URL, hot); err != nil {
			logrus.WithError(err).WithField("symbol", holding.Symbol).Warn("Failed to store news item")
			continue
		}
		n++
	}
	return n
}

// IngestSocial scores posts by engagement and recency and upserts them.
// Titles are prefixed with their group and engagement counts.
func (s *Service) IngestSocial(ctx context.Context, holding *models.Holding, posts []models.SocialPost) int {
	now := s.now().UTC()
	n := 0
	for _, p := range posts {
		if strings.TrimSpace(p.Title) == "" {
			continue
		}
		ts := now
		if !p.CreatedAt.IsZero() {
			ts = p.CreatedAt.UTC()
		}
		hot := scoring.HotScoreSocial(p.Score, p.CommentCount, ts, now)

		if _, err := s.Upsert(ctx, holding.ID, models.SourceSocial, DecorateSocialTitle(p), ts, p.URL, hot); err != nil {
			logrus.WithError(err).WithField("symbol", holding.Symbol).Warn("Failed to store social item")
			continue
		}
		n++
	}
	return n
}

// DecorateSocialTitle renders "[r/<group>] (<score>/<comments>) <title>" when a group is present
func DecorateSocialTitle(p models.SocialPost) string {
	if p.Group == "" {
		return p.Title
	}
	return fmt.Sprintf("[r/%s] (%d/%d) %s", p.Group, p.Score, p.CommentCount, p.Title)
}

// TopBullets returns the hottest items inside the trailing window
func (s *Service) TopBullets(ctx context.Context, holdingID int64, window time.Duration, limit int) ([]models.Bullet, error) {
	if window <= 0 {
		window = DefaultBulletWindow
	}
	if limit <= 0 {
		limit = DefaultBulletLimit
	}

	since := s.now().UTC().Add(-window)
	items, err := s.repo.ListRecentContent(ctx, holdingID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent content: %w", err)
	}

	bullets := make([]models.Bullet, 0, len(items))
	for _, item := range items {
		bullets = append(bullets, models.Bullet{
			Title:     item.Title,
			HotScore:  item.HotScore,
			Timestamp: item.Timestamp,
			Text:      RenderBullet(item.Title, item.HotScore),
		})
	}
	return bullets, nil
}

// RenderBullet formats "<title> (hot:<N>)"
func RenderBullet(title string, hot float64) string {
	return fmt.Sprintf("%s (hot:%.0f)", title, hot)
}

// LeadingHot is the hot value of the top bullet as it appears in its text, 0 without bullets
func LeadingHot(bullets []models.Bullet) float64 {
	if len(bullets) == 0 {
		return 0
	}
	return math.RoundToEven(bullets[0].HotScore)
}

// Texts returns the rendered text of each bullet
func Texts(bullets []models.Bullet) []string {
	out := make([]string, len(bullets))
	for i, b := range bullets {
		out[i] = b.Text
	}
	return out
}
