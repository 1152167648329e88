package shared

import "context"

// EventBus is the notification sink boundary. Implementations publish
// serialized event payloads to a topic; the core never awaits more than the
// publish itself.
type EventBus interface {
	Publish(ctx context.Context, topic string, payload any) error
	Close() error
}

// NoOpEventBus discards everything. Used in tests and when no broker is
// configured.
type NoOpEventBus struct{}

func (NoOpEventBus) Publish(ctx context.Context, topic string, payload any) error { return nil }
func (NoOpEventBus) Close() error                                                 { return nil }
