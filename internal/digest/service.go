// Package digest writes one daily report per user and UTC day.
package digest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/stockguardian/guardian-bot/internal/llm"
	"github.com/stockguardian/guardian-bot/internal/models"
	"github.com/stockguardian/guardian-bot/internal/notifications"
	"github.com/stockguardian/guardian-bot/internal/scoring"
	"github.com/stockguardian/guardian-bot/internal/storage"
	"github.com/stockguardian/guardian-bot/internal/tracing"
)

const (
	// DateLayout is the calendar day key of a report
	DateLayout = "2006-01-02"

	// NoSnapshotsContent is written when none of a user's holdings has a recent snapshot
	NoSnapshotsContent = "No snapshots today. Agent may not have run yet."

	summarySubject   = "PORTFOLIO"
	snapshotLookback = 24 * time.Hour
	maxNotifyLen     = 3500
)

// Store is the persistence the digest reads and writes
type Store interface {
	ListUsers(ctx context.Context) ([]*models.User, error)
	ListHoldingsByUser(ctx context.Context, userID int64) ([]*models.Holding, error)
	GetLatestSnapshotSince(ctx context.Context, holdingID int64, since time.Time) (*models.StockSnapshot, error)
	DailyReportExists(ctx context.Context, userID int64, date string) (bool, error)
	CreateDailyReport(ctx context.Context, r *models.DailyReport) error
}

// Archiver keeps a copy of each created report
type Archiver interface {
	ArchiveReport(ctx context.Context, r *models.DailyReport) error
}

// Publisher announces created reports
type Publisher interface {
	PublishDailyReport(ctx context.Context, email string, r *models.DailyReport) error
}

// Service runs the daily digest
type Service struct {
	store      Store
	summarizer llm.Summarizer
	notifier   notifications.Notifier
	archiver   Archiver
	publisher  Publisher
	workers    int
	now        func() time.Time
}

// NewService creates a digest service. Summarizer and notifier may be nil.
func NewService(store Store, summarizer llm.Summarizer, notifier notifications.Notifier, workers int) *Service {
	if summarizer == nil {
		summarizer = llm.NoopSummarizer{}
	}
	if workers <= 0 {
		workers = 1
	}
	return &Service{
		store:      store,
		summarizer: summarizer,
		notifier:   notifier,
		workers:    workers,
		now:        time.Now,
	}
}

// WithArchive keeps a blob copy of every created report
func (s *Service) WithArchive(a Archiver) *Service {
	s.archiver = a
	return s
}

// WithPublisher publishes every created report as an event
func (s *Service) WithPublisher(p Publisher) *Service {
	s.publisher = p
	return s
}

// RunDailyDigest creates today's report for every user that has none yet and
// returns how many were created. Running it twice on the same day creates
// nothing the second time.
func (s *Service) RunDailyDigest(ctx context.Context) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "digest.run")
	defer span.End()

	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list users: %w", err)
	}

	now := s.now().UTC()
	day := now.Format(DateLayout)
	logrus.Infof("Starting daily digest for %s over %d users", day, len(users))

	var created atomic.Int64
	var g errgroup.Group
	g.SetLimit(s.workers)
	for _, u := range users {
		g.Go(func() error {
			ok, err := s.runForUser(ctx, u, day, now)
			if err != nil {
				logrus.WithError(err).WithField("user_id", u.ID).Error("Daily digest failed for user")
				return nil
			}
			if ok {
				created.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	n := int(created.Load())
	span.SetAttributes(attribute.Int("reports", n))
	logrus.Infof("Daily digest completed: %d reports created", n)
	return n, nil
}

func (s *Service) runForUser(ctx context.Context, u *models.User, day string, now time.Time) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "digest.user", attribute.Int64("user_id", u.ID))
	defer span.End()

	exists, err := s.store.DailyReportExists(ctx, u.ID, day)
	if err != nil {
		return false, err
	}
	if exists {
		logrus.WithField("user_id", u.ID).Debugf("Report for %s already exists", day)
		return false, nil
	}

	lines, err := s.collectLines(ctx, u.ID, now.Add(-snapshotLookback))
	if err != nil {
		return false, err
	}

	report := &models.DailyReport{
		UserID:  u.ID,
		Date:    day,
		Content: s.compose(ctx, lines),
	}
	if err := s.store.CreateDailyReport(ctx, report); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			// another run won the race for this day
			return false, nil
		}
		return false, err
	}

	if s.archiver != nil {
		if err := s.archiver.ArchiveReport(ctx, report); err != nil {
			logrus.WithError(err).WithField("user_id", u.ID).Warn("Failed to archive report")
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishDailyReport(ctx, u.Email, report); err != nil {
			logrus.WithError(err).WithField("user_id", u.ID).Warn("Failed to publish report event")
		}
	}
	if s.notifier != nil {
		if err := s.notifier.Send(ctx, NotificationText(day, u.Email, report.Content)); err != nil {
			logrus.WithError(err).WithField("user_id", u.ID).Warn("Report notification failed")
		}
	}

	return true, nil
}

// collectLines renders one line per holding that has a snapshot since the cutoff
func (s *Service) collectLines(ctx context.Context, userID int64, since time.Time) ([]string, error) {
	holdings, err := s.store.ListHoldingsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var lines []string
	for _, h := range holdings {
		snap, err := s.store.GetLatestSnapshotSince(ctx, h.ID, since)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		lines = append(lines, Line(h.Symbol, snap))
	}
	return lines, nil
}

func (s *Service) compose(ctx context.Context, lines []string) string {
	if len(lines) == 0 {
		return NoSnapshotsContent
	}

	ctx, span := tracing.StartSpan(ctx, "digest.summary")
	defer span.End()

	summary, err := s.summarizer.Summarize(ctx, summarySubject, lines)
	if err != nil {
		logrus.WithError(err).Warn("Digest summary unavailable")
	}
	if strings.TrimSpace(summary) != "" {
		return summary
	}
	return FallbackContent(lines)
}

// Line renders "<SYM>: price $<p>, risk <r>/10, sentiment <s>/100"
func Line(symbol string, snap *models.StockSnapshot) string {
	return fmt.Sprintf("%s: price $%s, risk %.1f/10, sentiment %.0f/100",
		symbol, snap.Price.StringFixed(2), snap.RiskScore, snap.SentimentScore)
}

// FallbackContent joins lines as "Daily Brief: - a - b"
func FallbackContent(lines []string) string {
	items := make([]string, len(lines))
	for i, l := range lines {
		items[i] = "- " + l
	}
	return "Daily Brief: " + strings.Join(items, " ")
}

// NotificationText is the outbound message for a created report
func NotificationText(day, email, content string) string {
	return fmt.Sprintf("[Daily Report %s] %s %s", day, email, scoring.Truncate(content, maxNotifyLen))
}
