package http

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"

	"github.com/craftlink/chat-server/internal/core"
	"github.com/craftlink/chat-server/internal/proto"
	"github.com/craftlink/chat-server/internal/service/chat"
	"github.com/craftlink/chat-server/internal/service/jobs"
	"github.com/craftlink/chat-server/internal/store"
)

// Dispatcher routes inbound commands to the chat and jobs services.
// The acting identity is always the one the gateway attached to the
// connection; a payload asserting a different user id is rejected
// outright.
type Dispatcher struct {
	chat *chat.Service
	jobs *jobs.Service
	log  *zerolog.Logger
}

// NewDispatcher creates a command dispatcher.
func NewDispatcher(chatSvc *chat.Service, jobsSvc *jobs.Service, logger *zerolog.Logger) *Dispatcher {
	return &Dispatcher{chat: chatSvc, jobs: jobsSvc, log: logger}
}

// Dispatch handles one inbound command. The returned event, if any, is
// the direct reply for the connection's write loop; broadcast effects
// travel through the bus instead.
func (d *Dispatcher) Dispatch(ctx context.Context, client *core.Client, inbound proto.Inbound) *core.Event {
	switch inbound.Type {
	case proto.InboundTypeSendMessage:
		return d.sendMessage(ctx, client, inbound.Data)
	case proto.InboundTypeGetConversations:
		return d.getConversations(ctx, client, inbound.Data)
	case proto.InboundTypeGetRecentMessages:
		return d.getRecentMessages(ctx, client, inbound.Data)
	case proto.InboundTypeAcceptJobOffer:
		return d.acceptJobOffer(ctx, client, inbound.Data)
	case proto.InboundTypeMarkJobCompleted:
		return d.markJobCompleted(ctx, client, inbound.Data)
	case proto.InboundTypeLeaveReview:
		return d.leaveReview(ctx, client, inbound.Data)
	case proto.InboundTypeProviderStats:
		return d.providerStats(ctx, client, inbound.Data)
	default:
		return core.ErrorEvent(core.InvalidInput("unknown command type"))
	}
}

func (d *Dispatcher) sendMessage(ctx context.Context, client *core.Client, data json.RawMessage) *core.Event {
	var payload proto.SendMessageData
	if err := json.Unmarshal(data, &payload); err != nil {
		return core.ErrorEvent(core.InvalidInput("invalid send_message payload"))
	}
	if ev := requireIdentity(client, payload.Sender); ev != nil {
		return ev
	}

	_, err := d.chat.Send(ctx, client.UserID, chat.SendInput{
		Recipient:       payload.Recipient,
		Content:         payload.Content,
		Kind:            store.MessageKind(payload.Kind),
		CategoryID:      payload.CategoryID,
		NewConversation: payload.NewConversation,
	})
	if err != nil {
		return d.errorEvent(err, "send_message")
	}
	// Delivery to both parties, the sender included, arrives via the
	// chat channel broadcast.
	return nil
}

func (d *Dispatcher) getConversations(ctx context.Context, client *core.Client, data json.RawMessage) *core.Event {
	var payload proto.GetConversationsData
	if err := json.Unmarshal(data, &payload); err != nil {
		return core.ErrorEvent(core.InvalidInput("invalid get_conversations payload"))
	}
	if payload.UserID == "" {
		return core.ErrorEvent(core.InvalidInput("user id is required"))
	}
	if ev := requireIdentity(client, payload.UserID); ev != nil {
		return ev
	}

	page, err := d.chat.Conversations(ctx, client.UserID, payload.Page, payload.Limit)
	if err != nil {
		return d.errorEvent(err, "get_conversations")
	}
	return &core.Event{Name: proto.EventConversations, Data: conversationsData(page)}
}

func (d *Dispatcher) getRecentMessages(ctx context.Context, client *core.Client, data json.RawMessage) *core.Event {
	var payload proto.GetRecentMessagesData
	if err := json.Unmarshal(data, &payload); err != nil {
		return core.ErrorEvent(core.InvalidInput("invalid get_recent_messages payload"))
	}

	page, err := d.chat.RecentMessages(ctx, client.UserID, payload.ConversationID, payload.Page)
	if err != nil {
		return d.errorEvent(err, "get_recent_messages")
	}
	return &core.Event{Name: proto.EventRecentMessages, Data: recentMessagesData(page, client.UserID)}
}

func (d *Dispatcher) acceptJobOffer(ctx context.Context, client *core.Client, data json.RawMessage) *core.Event {
	var payload proto.JobActionData
	if err := json.Unmarshal(data, &payload); err != nil {
		return core.ErrorEvent(core.InvalidInput("invalid accept_job_offer payload"))
	}
	if ev := requireIdentity(client, payload.UserID); ev != nil {
		return ev
	}

	if _, err := d.jobs.Accept(ctx, payload.MessageID, client.UserID); err != nil {
		return d.errorEvent(err, "accept_job_offer")
	}
	return nil
}

func (d *Dispatcher) markJobCompleted(ctx context.Context, client *core.Client, data json.RawMessage) *core.Event {
	var payload proto.JobActionData
	if err := json.Unmarshal(data, &payload); err != nil {
		return core.ErrorEvent(core.InvalidInput("invalid mark_job_completed payload"))
	}
	if ev := requireIdentity(client, payload.UserID); ev != nil {
		return ev
	}

	if _, err := d.jobs.Complete(ctx, payload.MessageID, client.UserID); err != nil {
		return d.errorEvent(err, "mark_job_completed")
	}
	return nil
}

func (d *Dispatcher) leaveReview(ctx context.Context, client *core.Client, data json.RawMessage) *core.Event {
	var payload proto.LeaveReviewData
	if err := json.Unmarshal(data, &payload); err != nil {
		return core.ErrorEvent(core.InvalidInput("invalid leave_review payload"))
	}
	if ev := requireIdentity(client, payload.UserID); ev != nil {
		return ev
	}

	if _, err := d.jobs.Review(ctx, payload.MessageID, client.UserID, payload.Stars, payload.Comment); err != nil {
		return d.errorEvent(err, "leave_review")
	}
	return nil
}

func (d *Dispatcher) providerStats(ctx context.Context, client *core.Client, data json.RawMessage) *core.Event {
	var payload proto.ProviderStatsData
	if err := json.Unmarshal(data, &payload); err != nil {
		return core.ErrorEvent(core.InvalidInput("invalid get_service_provider_stats payload"))
	}
	if payload.UserID == "" {
		return core.ErrorEvent(core.InvalidInput("user id is required"))
	}
	if ev := requireIdentity(client, payload.UserID); ev != nil {
		return ev
	}

	stats, err := d.jobs.Stats(ctx, client.UserID)
	if err != nil {
		return d.errorEvent(err, "get_service_provider_stats")
	}
	return &core.Event{Name: proto.EventProviderStats, Data: providerStatsReply(stats)}
}

// requireIdentity rejects payloads asserting an acting user other than
// the gateway-assigned identity. Strict equality; an empty payload id
// means the command acts as the connection's identity.
func requireIdentity(client *core.Client, payloadUserID string) *core.Event {
	if payloadUserID != "" && payloadUserID != client.UserID {
		return core.ErrorEvent(core.Unauthorized("payload user id does not match the authenticated user"))
	}
	return nil
}

func (d *Dispatcher) errorEvent(err error, command string) *core.Event {
	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		return core.ErrorEvent(coreErr)
	}
	// Infrastructure failure: reported as a generic store error, never
	// retried here since the transition may be partially applied.
	d.log.Error().Err(err).Str("command", command).Msg("command failed")
	return core.ErrorEvent(&core.Error{Code: core.ErrCodeStore, Message: "failed to " + command})
}
