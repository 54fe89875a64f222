package notify

import "context"

// Notifier relays emergency traffic to a messaging channel. An empty chatID means the default channel.
type Notifier interface {
	SendText(ctx context.Context, chatID, text string) error
	SendPhoto(ctx context.Context, chatID string, photo []byte, caption string) error
	SendLocation(ctx context.Context, chatID string, lat, lng float64) error
}
