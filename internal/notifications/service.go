package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/stockguardian/guardian-bot/internal/config"
)

// Service fans a message out to every configured channel
type Service struct {
	channels []Notifier
}

// Ensure Service implements Notifier
var _ Notifier = (*Service)(nil)

// NewService creates a notification service from the configuration. Channels
// without configuration are left out; extra channels (the event stream, for
// instance) are appended as given.
func NewService(cfg *config.Config, extra ...Notifier) *Service {
	var channels []Notifier

	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		channels = append(channels, NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
	}
	if cfg.TeamsWebhookURL != "" {
		channels = append(channels, NewTeamsNotifier(cfg.TeamsWebhookURL))
	}
	if cfg.NotificationEmail != "" && cfg.SMTPHost != "" {
		channels = append(channels, NewEmailNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.NotificationEmail))
	}

	for _, n := range extra {
		if n != nil {
			channels = append(channels, n)
		}
	}

	return &Service{channels: channels}
}

// NewServiceWithChannels builds a service over an explicit channel list
func NewServiceWithChannels(channels ...Notifier) *Service {
	return &Service{channels: channels}
}

// Name returns the service name
func (s *Service) Name() string {
	return "notifications"
}

// Channels lists the names of the active channels
func (s *Service) Channels() []string {
	names := make([]string, 0, len(s.channels))
	for _, c := range s.channels {
		names = append(names, c.Name())
	}
	return names
}

// Send delivers text to every channel. A channel failure does not stop the
// others; all failures are reported together. With no channels configured
// Send is a no-op.
func (s *Service) Send(ctx context.Context, text string) error {
	if len(s.channels) == 0 {
		logrus.Debug("No notification channels configured, skipping")
		return nil
	}

	var errors []string
	for _, c := range s.channels {
		if err := c.Send(ctx, text); err != nil {
			logrus.WithField("channel", c.Name()).Errorf("Failed to send notification: %v", err)
			errors = append(errors, fmt.Sprintf("%s: %v", c.Name(), err))
			continue
		}
		logrus.WithField("channel", c.Name()).Debug("Notification sent")
	}

	if len(errors) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// subjectLine is the first line of text, shortened for use as a title
func subjectLine(text string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	if len(line) > 120 {
		line = strings.TrimSpace(line[:117]) + "..."
	}
	return line
}
