package core

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/craftlink/chat-server/internal/bus"
)

// CategoryResolver names job-offer categories at delivery time. An
// unknown id resolves to nil, nil.
type CategoryResolver interface {
	CategoryDetails(ctx context.Context, id string) (*CategoryDetails, error)
}

// Bridge connects the process-wide bus to the local connection
// registry. Outbound domain events are published on named channels;
// every process subscribes to the same channels and routes each
// received event to whichever of the two addressed users is connected
// here. Publish happens only after persistence, so a duplicate or lost
// delivery never corrupts stored state.
type Bridge struct {
	bus        bus.Bus
	registry   *Registry
	categories CategoryResolver
	log        *zerolog.Logger
}

// NewBridge builds a bridge over the given bus and registry. categories
// may be nil to skip job-offer enrichment.
func NewBridge(b bus.Bus, registry *Registry, categories CategoryResolver, logger *zerolog.Logger) *Bridge {
	return &Bridge{
		bus:        b,
		registry:   registry,
		categories: categories,
		log:        logger,
	}
}

// Start subscribes the three event channels. Call once at process
// startup; subscriptions live until ctx is cancelled.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.bus.Subscribe(ctx, ChannelChat, b.handleChat(ctx)); err != nil {
		return err
	}
	if err := b.bus.Subscribe(ctx, ChannelChatUpdate, b.handleChatUpdate()); err != nil {
		return err
	}
	return b.bus.Subscribe(ctx, ChannelJobStatus, b.handleJobStatus())
}

// PublishMessage broadcasts a new-message event.
func (b *Bridge) PublishMessage(ctx context.Context, ev MessageEvent) error {
	return b.publish(ctx, ChannelChat, ev)
}

// PublishChatUpdate broadcasts a status change to an existing message.
func (b *Bridge) PublishChatUpdate(ctx context.Context, ev ChatUpdateEvent) error {
	return b.publish(ctx, ChannelChatUpdate, ev)
}

// PublishJobStatus broadcasts an aggregate job-status change.
func (b *Bridge) PublishJobStatus(ctx context.Context, ev JobStatusEvent) error {
	return b.publish(ctx, ChannelJobStatus, ev)
}

func (b *Bridge) publish(ctx context.Context, channel string, ev any) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.bus.Publish(ctx, channel, payload)
}

func (b *Bridge) handleChat(ctx context.Context) bus.Handler {
	return func(payload []byte) {
		var ev MessageEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			b.log.Warn().Err(err).Str("channel", ChannelChat).Msg("drop malformed bus payload")
			return
		}

		if ev.Kind == "job_offer" && ev.CategoryID != "" && b.categories != nil {
			details, err := b.categories.CategoryDetails(ctx, ev.CategoryID)
			if err != nil {
				b.log.Warn().Err(err).Str("category_id", ev.CategoryID).Msg("category lookup failed")
			} else if details != nil {
				ev.CategoryDetails = details
			}
		}

		b.deliver(ev.Sender, ev.Recipient, &Event{Name: EventReceiveMessage, Data: ev})
	}
}

func (b *Bridge) handleChatUpdate() bus.Handler {
	return func(payload []byte) {
		var ev ChatUpdateEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			b.log.Warn().Err(err).Str("channel", ChannelChatUpdate).Msg("drop malformed bus payload")
			return
		}
		b.deliver(ev.Sender, ev.Recipient, &Event{Name: EventChatUpdate, Data: ev})
	}
}

func (b *Bridge) handleJobStatus() bus.Handler {
	return func(payload []byte) {
		var ev JobStatusEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			b.log.Warn().Err(err).Str("channel", ChannelJobStatus).Msg("drop malformed bus payload")
			return
		}
		b.deliver(ev.Sender, ev.Recipient, &Event{Name: EventJobStatusUpdate, Data: ev})
	}
}

// deliver routes an event to the local connections of the two addressed
// users: zero, one, or both may be connected to this process.
func (b *Bridge) deliver(sender, recipient string, ev *Event) {
	if c, ok := b.registry.Lookup(recipient); ok {
		if !c.Send(ev) {
			b.log.Warn().Str("user_id", recipient).Str("conn_id", c.ID).Msg("drop event for slow consumer")
		}
	}
	if sender == recipient {
		return
	}
	if c, ok := b.registry.Lookup(sender); ok {
		if !c.Send(ev) {
			b.log.Warn().Str("user_id", sender).Str("conn_id", c.ID).Msg("drop event for slow consumer")
		}
	}
}
