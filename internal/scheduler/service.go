package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/stockguardian/guardian-bot/internal/config"
)

// AgentRunner runs one agent cycle over all holdings
type AgentRunner interface {
	RunAgentCycle(ctx context.Context) (int, error)
}

// DigestRunner runs the daily digest over all users
type DigestRunner interface {
	RunDailyDigest(ctx context.Context) (int, error)
}

// Service handles scheduling of the agent cycle and the daily digest
type Service struct {
	config *config.Config
	agent  AgentRunner
	digest DigestRunner
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

// NewService creates a new scheduler service. Jobs run in UTC and a tick is
// skipped while the previous run of the same job is still going.
func NewService(cfg *config.Config, agent AgentRunner, digest DigestRunner) *Service {
	logger := cron.PrintfLogger(logrus.StandardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		config: cfg,
		agent:  agent,
		digest: digest,
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		ctx:    ctx,
		cancel: cancel,
	}
}

// AgentSpec is the cron spec of the agent cycle
func AgentSpec(interval time.Duration) string {
	return fmt.Sprintf("@every %s", interval)
}

// Start registers both jobs and begins scheduling
func (s *Service) Start() error {
	if s.config.AgentInterval <= 0 {
		return fmt.Errorf("agent interval must be positive, got %s", s.config.AgentInterval)
	}

	if _, err := s.cron.AddFunc(AgentSpec(s.config.AgentInterval), s.runAgent); err != nil {
		return fmt.Errorf("invalid agent schedule: %w", err)
	}

	if _, err := s.cron.AddFunc(s.config.DailyCron, s.runDigest); err != nil {
		return fmt.Errorf("invalid daily schedule %q: %w", s.config.DailyCron, err)
	}

	s.cron.Start()
	logrus.Infof("Scheduler started: agent every %s, daily digest at %q (UTC)", s.config.AgentInterval, s.config.DailyCron)
	return nil
}

func (s *Service) runAgent() {
	logrus.Info("Starting scheduled agent cycle")
	alerts, err := s.agent.RunAgentCycle(s.ctx)
	if err != nil {
		logrus.Errorf("Scheduled agent cycle failed: %v", err)
		return
	}
	logrus.Infof("Scheduled agent cycle fired %d alerts", alerts)
}

func (s *Service) runDigest() {
	logrus.Info("Starting scheduled daily digest")
	created, err := s.digest.RunDailyDigest(s.ctx)
	if err != nil {
		logrus.Errorf("Scheduled daily digest failed: %v", err)
		return
	}
	logrus.Infof("Scheduled daily digest created %d reports", created)
}

// NextRuns returns the next activation time of each job
func (s *Service) NextRuns() []time.Time {
	entries := s.cron.Entries()
	out := make([]time.Time, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Next)
	}
	return out
}

// Stop stops the scheduler and cancels running jobs. The returned context is
// done once running jobs have returned.
func (s *Service) Stop() context.Context {
	if s.cron == nil {
		return context.Background()
	}
	done := s.cron.Stop()
	s.cancel()
	logrus.Info("Scheduler stopped")
	return done
}
