package notifications

import "context"

// Notifier delivers a plain-text message to one outbound channel
type Notifier interface {
	Name() string
	Send(ctx context.Context, text string) error
}
