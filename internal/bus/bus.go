// Package bus is the cross-process broadcast fabric. Delivery is
// at-least-once with no ordering guarantee across channels; the store
// remains the source of truth, so lost or duplicate deliveries only
// affect live UI updates.
package bus

import "context"

// Handler consumes one raw payload received on a channel. Handlers must
// not panic; the receive loop is long-lived process state.
type Handler func(payload []byte)

// Bus publishes and subscribes named channels.
type Bus interface {
	// Publish broadcasts payload on channel exactly once per call.
	Publish(ctx context.Context, channel string, payload []byte) error

	// Subscribe registers h for channel. Each process subscribes once
	// per channel at startup; the subscription lives until ctx is done.
	Subscribe(ctx context.Context, channel string, h Handler) error

	// Close releases underlying connections.
	Close() error
}
