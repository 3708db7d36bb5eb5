package port

import "context"

// Notifier is a fire-and-forget text sink. Delivery failures are logged by
// implementations and never escalate into the trading path.
type Notifier interface {
	Name() string
	Send(ctx context.Context, title, message string) error
}
