package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const telegramBaseURL = "https://api.telegram.org"

// TelegramNotifier posts messages through the Bot API
type TelegramNotifier struct {
	token   string
	chatID  string
	baseURL string
	client  *resty.Client
}

// NewTelegramNotifier creates a Telegram channel for one chat
func NewTelegramNotifier(token, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		token:   token,
		chatID:  chatID,
		baseURL: telegramBaseURL,
		client:  resty.New().SetTimeout(10 * time.Second),
	}
}

type telegramMessage struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// Name returns the channel name
func (t *TelegramNotifier) Name() string {
	return "telegram"
}

// Send posts text to the configured chat
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(telegramMessage{ChatID: t.chatID, Text: text}).
		Post(fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token))

	if err != nil {
		return fmt.Errorf("failed to send Telegram message: %w", err)
	}

	if resp.IsError() {
		return fmt.Errorf("Telegram API returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	return nil
}
