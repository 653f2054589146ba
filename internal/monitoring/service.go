// Package monitoring runs the agent cycle: for every holding it refreshes the
// quote and content, scores it, records a snapshot and fires alerts.
package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/stockguardian/guardian-bot/internal/config"
	"github.com/stockguardian/guardian-bot/internal/content"
	"github.com/stockguardian/guardian-bot/internal/llm"
	"github.com/stockguardian/guardian-bot/internal/models"
	"github.com/stockguardian/guardian-bot/internal/notifications"
	"github.com/stockguardian/guardian-bot/internal/risk"
	"github.com/stockguardian/guardian-bot/internal/rules"
	"github.com/stockguardian/guardian-bot/internal/sentiment"
	"github.com/stockguardian/guardian-bot/internal/sources"
	"github.com/stockguardian/guardian-bot/internal/tracing"
)

const cycleTimeout = 30 * time.Minute

// Store is the persistence the agent cycle writes to
type Store interface {
	ListHoldings(ctx context.Context) ([]*models.Holding, error)
	CreateSnapshot(ctx context.Context, s *models.StockSnapshot) error
	CreateAlert(ctx context.Context, a *models.AlertEvent) error
}

// ContentStore ingests and ranks content for a holding
type ContentStore interface {
	IngestNews(ctx context.Context, holding *models.Holding, articles []models.NewsArticle) int
	IngestSocial(ctx context.Context, holding *models.Holding, posts []models.SocialPost) int
	TopBullets(ctx context.Context, holdingID int64, window time.Duration, limit int) ([]models.Bullet, error)
}

// RuleSource returns the trigger rule of a holding
type RuleSource interface {
	GetRule(ctx context.Context, holdingID int64) (*models.TriggerRule, error)
}

// AlertPublisher receives fired alerts, e.g. the event stream
type AlertPublisher interface {
	PublishAlert(ctx context.Context, symbol string, alert *models.AlertEvent) error
}

// Dependencies are the collaborators of the agent cycle. Publisher may be nil.
type Dependencies struct {
	Store      Store
	Quotes     sources.QuoteSource
	News       sources.NewsSource
	Social     sources.SocialSource
	Content    ContentStore
	Analyzer   sentiment.Analyzer
	Rules      RuleSource
	Summarizer llm.Summarizer
	Notifier   notifications.Notifier
	Publisher  AlertPublisher
}

// Service runs agent cycles
type Service struct {
	config  *config.Config
	deps    Dependencies
	metrics *Metrics
	mu      sync.RWMutex
	now     func() time.Time
}

// Metrics holds agent cycle metrics
type Metrics struct {
	LastRun           time.Time      `json:"last_run"`
	LastRunDuration   string         `json:"last_run_duration"`
	HoldingsProcessed int            `json:"holdings_processed"`
	HoldingsFailed    int            `json:"holdings_failed"`
	AlertsFired       int            `json:"alerts_fired"`
	ItemsIngested     map[string]int `json:"items_ingested"`
	TotalAlerts       int            `json:"total_alerts"`
	Runs              int            `json:"runs"`
}

// NewService creates a new agent service
func NewService(cfg *config.Config, deps Dependencies) *Service {
	if deps.Summarizer == nil {
		deps.Summarizer = llm.NoopSummarizer{}
	}
	return &Service{
		config:  cfg,
		deps:    deps,
		metrics: &Metrics{ItemsIngested: make(map[string]int)},
		now:     time.Now,
	}
}

// cycleResult is what one holding's pass produced
type cycleResult struct {
	fired  bool
	news   int
	social int
}

// RunAgentCycle processes every holding once and returns the number of alerts
// fired. Holdings are independent: a failure in one is logged and the others
// carry on. Only listing the holdings can fail the whole cycle.
func (s *Service) RunAgentCycle(ctx context.Context) (int, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, cycleTimeout)
	defer cancel()

	ctx, span := tracing.StartSpan(ctx, "agent.cycle")
	defer span.End()

	holdings, err := s.deps.Store.ListHoldings(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list holdings: %w", err)
	}
	logrus.Infof("Starting agent cycle over %d holdings", len(holdings))

	var (
		alerts  atomic.Int64
		failed  atomic.Int64
		news    atomic.Int64
		social  atomic.Int64
		workers = s.config.Workers
	)
	if workers <= 0 {
		workers = 1
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for _, h := range holdings {
		g.Go(func() error {
			res, err := s.processHolding(ctx, h)
			if err != nil {
				failed.Add(1)
				logrus.WithError(err).WithField("symbol", h.Symbol).Error("Agent cycle failed for holding")
				return nil
			}
			news.Add(int64(res.news))
			social.Add(int64(res.social))
			if res.fired {
				alerts.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	fired := int(alerts.Load())
	s.updateMetrics(len(holdings), int(failed.Load()), fired, int(news.Load()), int(social.Load()), time.Since(start))

	span.SetAttributes(attribute.Int("alerts", fired), attribute.Int("holdings", len(holdings)))
	logrus.Infof("Agent cycle completed in %v: %d alerts fired", time.Since(start), fired)
	return fired, nil
}

// RunHolding runs the agent pass for a single holding and reports whether it alerted
func (s *Service) RunHolding(ctx context.Context, h *models.Holding) (bool, error) {
	res, err := s.processHolding(ctx, h)
	if err != nil {
		return false, err
	}
	return res.fired, nil
}

// processHolding runs the per-holding sequence. The snapshot is persisted
// before the rule is evaluated, and the alert before anyone is notified.
func (s *Service) processHolding(ctx context.Context, h *models.Holding) (cycleResult, error) {
	var res cycleResult
	log := logrus.WithFields(logrus.Fields{"symbol": h.Symbol, "holding_id": h.ID})

	ctx, span := tracing.StartSpan(ctx, "agent.holding", attribute.String("symbol", h.Symbol))
	defer span.End()

	quote, err := s.fetchQuote(ctx, h.Symbol)
	if err != nil {
		return res, err
	}

	res.news = s.ingestNews(ctx, h, log)
	res.social = s.ingestSocial(ctx, h, log)

	bullets, err := s.deps.Content.TopBullets(ctx, h.ID, s.config.BulletWindow, s.config.BulletLimit)
	if err != nil {
		return res, fmt.Errorf("failed to build bullets: %w", err)
	}
	texts := content.Texts(bullets)

	score := sentiment.Aggregate(s.deps.Analyzer, texts)
	riskScore := risk.Score(quote.ChangePct1D, score, h.RiskPref)
	summary := s.summarize(ctx, h.Symbol, texts, log)

	snap := &models.StockSnapshot{
		HoldingID:      h.ID,
		Timestamp:      s.now().UTC(),
		Price:          quote.Price,
		ChangePct1D:    quote.ChangePct1D,
		Volume:         quote.Volume,
		SentimentScore: score,
		RiskScore:      riskScore,
		Summary:        summary,
	}
	if err := s.deps.Store.CreateSnapshot(ctx, snap); err != nil {
		return res, fmt.Errorf("failed to save snapshot: %w", err)
	}

	rule, err := s.deps.Rules.GetRule(ctx, h.ID)
	if err != nil {
		return res, fmt.Errorf("failed to load trigger rule: %w", err)
	}

	metrics := rules.Metrics{
		Risk:        riskScore,
		Sentiment:   score,
		Hot:         content.LeadingHot(bullets),
		ChangePct1D: quote.ChangePct1D,
	}
	ok, reason := rules.Evaluate(*rule, metrics)
	if !ok {
		log.Debugf("No alert: risk=%.1f sentiment=%.0f hot=%.0f", metrics.Risk, metrics.Sentiment, metrics.Hot)
		return res, nil
	}

	alert := BuildAlert(h, metrics, reason, s.now().UTC())
	if err := s.deps.Store.CreateAlert(ctx, alert); err != nil {
		return res, fmt.Errorf("failed to save alert: %w", err)
	}
	res.fired = true
	log.WithField("reason", reason).Warn("Alert fired")

	if s.deps.Publisher != nil {
		if err := s.deps.Publisher.PublishAlert(ctx, h.Symbol, alert); err != nil {
			log.WithError(err).Warn("Failed to publish alert event")
		}
	}
	s.notify(ctx, AlertText(alert), log)

	return res, nil
}

func (s *Service) fetchQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	ctx, span := tracing.StartSpan(ctx, "agent.quote")
	defer span.End()

	quote, err := s.deps.Quotes.FetchQuote(ctx, symbol)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to fetch quote: %w", err)
	}
	return quote, nil
}

func (s *Service) ingestNews(ctx context.Context, h *models.Holding, log *logrus.Entry) int {
	if s.deps.News == nil || !s.deps.News.IsEnabled() {
		return 0
	}
	ctx, span := tracing.StartSpan(ctx, "agent.news")
	defer span.End()

	articles, err := s.deps.News.FetchNews(ctx, h.Symbol, s.config.NewsLimit)
	if err != nil {
		// Partial results from the remaining providers are still ingested.
		log.WithError(err).Warn("News fetch failed")
	}
	return s.deps.Content.IngestNews(ctx, h, articles)
}

func (s *Service) ingestSocial(ctx context.Context, h *models.Holding, log *logrus.Entry) int {
	if s.deps.Social == nil || !s.deps.Social.IsEnabled() {
		return 0
	}
	ctx, span := tracing.StartSpan(ctx, "agent.social")
	defer span.End()

	posts, err := s.deps.Social.FetchPosts(ctx, h.Symbol, s.config.SocialLimit)
	if err != nil {
		log.WithError(err).Warn("Social fetch failed")
	}
	return s.deps.Content.IngestSocial(ctx, h, posts)
}

func (s *Service) summarize(ctx context.Context, symbol string, bullets []string, log *logrus.Entry) string {
	ctx, span := tracing.StartSpan(ctx, "agent.summary")
	defer span.End()

	summary, err := s.deps.Summarizer.Summarize(ctx, symbol, bullets)
	if err != nil {
		log.WithError(err).Warn("Summary unavailable")
		return ""
	}
	return summary
}

func (s *Service) notify(ctx context.Context, text string, log *logrus.Entry) {
	if s.deps.Notifier == nil {
		return
	}
	ctx, span := tracing.StartSpan(ctx, "agent.notify")
	defer span.End()

	if err := s.deps.Notifier.Send(ctx, text); err != nil {
		log.WithError(err).Warn("Alert notification failed")
	}
}

// BuildAlert renders the critical alert for a fired rule
func BuildAlert(h *models.Holding, m rules.Metrics, reason string, ts time.Time) *models.AlertEvent {
	return &models.AlertEvent{
		HoldingID: h.ID,
		Timestamp: ts,
		Level:     models.LevelCritical,
		Title:     fmt.Sprintf("%s alert (%s)", h.Symbol, reason),
		Detail: fmt.Sprintf("Risk=%.1f/10, Sentiment=%.0f/100, Hot=%.0f, Change=%.2f%%",
			m.Risk, m.Sentiment, m.Hot, m.ChangePct1D),
	}
}

// AlertText is the outbound notification for an alert
func AlertText(a *models.AlertEvent) string {
	return fmt.Sprintf("[CRITICAL] %s %s", a.Title, a.Detail)
}

func (s *Service) updateMetrics(holdings, failed, fired, news, social int, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.LastRun = time.Now()
	s.metrics.LastRunDuration = duration.String()
	s.metrics.HoldingsProcessed = holdings - failed
	s.metrics.HoldingsFailed = failed
	s.metrics.AlertsFired = fired
	s.metrics.TotalAlerts += fired
	s.metrics.Runs++

	s.metrics.ItemsIngested = map[string]int{
		models.SourceNews:   news,
		models.SourceSocial: social,
	}
}

// GetMetrics returns current metrics as JSON
func (s *Service) GetMetrics() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, _ := json.MarshalIndent(s.metrics, "", "  ")
	return string(data)
}
