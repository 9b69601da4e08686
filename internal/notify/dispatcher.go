package notify

import (
	"context"
	"fmt"
)

// Dispatcher consumes router output. Implementations deliver over
// email, push, or webhooks; delivery success or failure never feeds
// back into check outcomes and there is no exactly-once guarantee.
type Dispatcher interface {
	Dispatch(ctx context.Context, n Notification)
}

// LogDispatcher prints notifications to stdout. It is the default when
// no delivery collaborator is wired in, and keeps one-shot CLI checks
// useful without any delivery configuration.
type LogDispatcher struct{}

// Dispatch implements Dispatcher
func (d *LogDispatcher) Dispatch(ctx context.Context, n Notification) {
	fmt.Printf("Notify [%s]: %s\n", n.MonitorID, n.Subject)
	if n.Message != "" {
		fmt.Printf("  %s\n", n.Message)
	}
}
