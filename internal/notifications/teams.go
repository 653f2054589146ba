package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// TeamsMessage represents a Microsoft Teams message card
type TeamsMessage struct {
	Type       string         `json:"@type"`
	Context    string         `json:"@context"`
	ThemeColor string         `json:"themeColor,omitempty"`
	Title      string         `json:"title"`
	Text       string         `json:"text"`
	Sections   []TeamsSection `json:"sections,omitempty"`
}

type TeamsSection struct {
	ActivityTitle string      `json:"activityTitle,omitempty"`
	ActivityText  string      `json:"activityText,omitempty"`
	Facts         []TeamsFact `json:"facts,omitempty"`
	Markdown      bool        `json:"markdown,omitempty"`
}

type TeamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// TeamsNotifier posts message cards to an incoming webhook
type TeamsNotifier struct {
	webhookURL string
	client     *resty.Client
}

// NewTeamsNotifier creates a Teams channel
func NewTeamsNotifier(webhookURL string) *TeamsNotifier {
	return &TeamsNotifier{
		webhookURL: webhookURL,
		client:     resty.New().SetTimeout(30 * time.Second),
	}
}

// Name returns the channel name
func (t *TeamsNotifier) Name() string {
	return "teams"
}

// Send posts text as a message card
func (t *TeamsNotifier) Send(ctx context.Context, text string) error {
	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(buildTeamsMessage(text)).
		Post(t.webhookURL)

	if err != nil {
		return fmt.Errorf("failed to send Teams message: %w", err)
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("Teams webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	return nil
}

func buildTeamsMessage(text string) *TeamsMessage {
	msg := &TeamsMessage{
		Type:    "MessageCard",
		Context: "https://schema.org/extensions",
		Title:   subjectLine(text),
		Text:    text,
	}
	if strings.HasPrefix(text, "[CRITICAL]") {
		msg.ThemeColor = "D13438"
	} else {
		msg.ThemeColor = "0078D4"
	}
	msg.Sections = append(msg.Sections, TeamsSection{
		Facts: []TeamsFact{
			{Name: "Sent", Value: time.Now().UTC().Format("2006-01-02 15:04:05 UTC")},
		},
		Markdown: true,
	})
	return msg
}
