// Package analytics publishes purchase events to an external sink.
// Delivery is best-effort: the order path fires these without awaiting them.
package analytics

import "context"

// Tracker is the side-channel the coordinator emits purchase events to.
type Tracker interface {
	Track(ctx context.Context, event string, properties map[string]interface{}) error
}

// Noop discards every event. Used when no analytics backend is configured.
type Noop struct{}

func (Noop) Track(ctx context.Context, event string, properties map[string]interface{}) error {
	return nil
}
