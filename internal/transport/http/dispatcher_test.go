package http

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/craftlink/chat-server/internal/bus"
	"github.com/craftlink/chat-server/internal/core"
	"github.com/craftlink/chat-server/internal/log"
	"github.com/craftlink/chat-server/internal/proto"
	"github.com/craftlink/chat-server/internal/service/chat"
	"github.com/craftlink/chat-server/internal/service/jobs"
	"github.com/craftlink/chat-server/internal/store"
	"github.com/craftlink/chat-server/internal/store/sqlite"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *core.Registry, store.Store) {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logger := log.New("error")
	registry := core.NewRegistry()
	bridge := core.NewBridge(bus.NewMemory(), registry, nil, logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := bridge.Start(ctx); err != nil {
		t.Fatalf("start bridge: %v", err)
	}

	chatSvc := chat.NewService(st, bridge, logger)
	jobsSvc := jobs.NewService(st, bridge, logger)
	return NewDispatcher(chatSvc, jobsSvc, logger), registry, st
}

func inbound(t *testing.T, cmdType string, data any) proto.Inbound {
	t.Helper()

	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return proto.Inbound{Type: cmdType, Data: raw}
}

func TestDispatchUnknownCommand(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	client := core.NewClient("conn-1", "alice")

	ev := d.Dispatch(context.Background(), client, proto.Inbound{Type: "reticulate_splines"})
	if ev == nil || ev.Err == nil || ev.Err.Code != core.ErrCodeInvalidInput {
		t.Fatalf("expected invalid_input for unknown command, got %+v", ev)
	}
}

func TestDispatchMalformedPayload(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	client := core.NewClient("conn-1", "alice")

	ev := d.Dispatch(context.Background(), client, proto.Inbound{
		Type: proto.InboundTypeSendMessage,
		Data: json.RawMessage("not json"),
	})
	if ev == nil || ev.Err == nil || ev.Err.Code != core.ErrCodeInvalidInput {
		t.Fatalf("expected invalid_input for malformed payload, got %+v", ev)
	}
}

func TestDispatchRejectsIdentityMismatch(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	client := core.NewClient("conn-1", "alice")
	ctx := context.Background()

	cases := []struct {
		name string
		in   proto.Inbound
	}{
		{"send_message", inbound(t, proto.InboundTypeSendMessage, proto.SendMessageData{
			Sender: "mallory", Recipient: "bob", Content: "hi",
		})},
		{"get_conversations", inbound(t, proto.InboundTypeGetConversations, proto.GetConversationsData{
			UserID: "mallory",
		})},
		{"accept_job_offer", inbound(t, proto.InboundTypeAcceptJobOffer, proto.JobActionData{
			MessageID: "m1", UserID: "mallory",
		})},
		{"mark_job_completed", inbound(t, proto.InboundTypeMarkJobCompleted, proto.JobActionData{
			MessageID: "m1", UserID: "mallory",
		})},
		{"leave_review", inbound(t, proto.InboundTypeLeaveReview, proto.LeaveReviewData{
			MessageID: "m1", UserID: "mallory", Stars: 5, Comment: "ok",
		})},
		{"get_service_provider_stats", inbound(t, proto.InboundTypeProviderStats, proto.ProviderStatsData{
			UserID: "mallory",
		})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev := d.Dispatch(ctx, client, tc.in)
			if ev == nil || ev.Err == nil || ev.Err.Code != core.ErrCodeUnauthorized {
				t.Fatalf("expected unauthorized, got %+v", ev)
			}
		})
	}
}

func TestDispatchSendMessageRepliesViaBroadcast(t *testing.T) {
	d, registry, _ := newTestDispatcher(t)

	client := core.NewClient("conn-1", "alice")
	registry.Register("alice", client)

	ev := d.Dispatch(context.Background(), client, inbound(t, proto.InboundTypeSendMessage, proto.SendMessageData{
		Sender:    "alice", // matching identity is accepted
		Recipient: "bob",
		Content:   "hello",
	}))
	if ev != nil {
		t.Fatalf("send_message must not reply directly, got %+v", ev)
	}

	// The broadcast path delivered it back to the sender.
	select {
	case broadcast := <-client.Events:
		if broadcast.Name != core.EventReceiveMessage {
			t.Fatalf("expected receive_message, got %s", broadcast.Name)
		}
	default:
		t.Fatal("expected the message broadcast")
	}
}

func TestDispatchGetConversations(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	client := core.NewClient("conn-1", "alice")
	ctx := context.Background()

	if ev := d.Dispatch(ctx, client, inbound(t, proto.InboundTypeSendMessage, proto.SendMessageData{
		Recipient: "bob", Content: "hello",
	})); ev != nil {
		t.Fatalf("send failed: %+v", ev)
	}

	ev := d.Dispatch(ctx, client, inbound(t, proto.InboundTypeGetConversations, proto.GetConversationsData{
		UserID: "alice",
	}))
	if ev == nil || ev.Err != nil {
		t.Fatalf("expected a reply, got %+v", ev)
	}
	if ev.Name != proto.EventConversations {
		t.Fatalf("expected %s, got %s", proto.EventConversations, ev.Name)
	}
	data := ev.Data.(proto.ConversationsData)
	if len(data.Conversations) != 1 || data.Conversations[0].OtherParticipant != "bob" {
		t.Fatalf("unexpected conversations: %+v", data)
	}
	if data.Message != "" {
		t.Fatalf("expected no placeholder message, got %q", data.Message)
	}
}

func TestDispatchGetConversationsEmpty(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	client := core.NewClient("conn-1", "alice")

	ev := d.Dispatch(context.Background(), client, inbound(t, proto.InboundTypeGetConversations, proto.GetConversationsData{
		UserID: "alice",
	}))
	if ev == nil || ev.Err != nil {
		t.Fatalf("expected a reply, got %+v", ev)
	}
	data := ev.Data.(proto.ConversationsData)
	if len(data.Conversations) != 0 || data.Message != "No conversations found" {
		t.Fatalf("unexpected empty reply: %+v", data)
	}
}

func TestDispatchGetConversationsRequiresUserID(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	client := core.NewClient("conn-1", "alice")

	ev := d.Dispatch(context.Background(), client, inbound(t, proto.InboundTypeGetConversations, proto.GetConversationsData{}))
	if ev == nil || ev.Err == nil || ev.Err.Code != core.ErrCodeInvalidInput {
		t.Fatalf("expected invalid_input, got %+v", ev)
	}
}

func TestDispatchGetRecentMessages(t *testing.T) {
	d, _, st := newTestDispatcher(t)
	client := core.NewClient("conn-1", "alice")
	ctx := context.Background()

	if ev := d.Dispatch(ctx, client, inbound(t, proto.InboundTypeSendMessage, proto.SendMessageData{
		Recipient: "bob", Content: "hello",
	})); ev != nil {
		t.Fatalf("send failed: %+v", ev)
	}
	convo, err := st.FindConversationByParticipants(ctx, "alice", "bob")
	if err != nil || convo == nil {
		t.Fatalf("find conversation: %v", err)
	}

	ev := d.Dispatch(ctx, client, inbound(t, proto.InboundTypeGetRecentMessages, proto.GetRecentMessagesData{
		ConversationID: convo.ID,
	}))
	if ev == nil || ev.Err != nil || ev.Name != proto.EventRecentMessages {
		t.Fatalf("unexpected reply: %+v", ev)
	}
	data := ev.Data.(proto.RecentMessagesData)
	if len(data.Messages) != 1 || data.Messages[0].Content != "hello" {
		t.Fatalf("unexpected messages: %+v", data)
	}
	if data.Conversation == nil || data.Conversation.OtherParticipant != "bob" {
		t.Fatalf("expected the conversation item, got %+v", data.Conversation)
	}
}

func TestDispatchJobWorkflow(t *testing.T) {
	d, _, st := newTestDispatcher(t)
	ctx := context.Background()

	alice := core.NewClient("conn-a", "alice")
	bob := core.NewClient("conn-b", "bob")

	if ev := d.Dispatch(ctx, alice, inbound(t, proto.InboundTypeSendMessage, proto.SendMessageData{
		Recipient: "bob", Content: "fix my sink", Kind: "job_offer", CategoryID: "cat-1",
	})); ev != nil {
		t.Fatalf("send offer failed: %+v", ev)
	}
	convo, err := st.FindConversationByParticipants(ctx, "alice", "bob")
	if err != nil || convo == nil {
		t.Fatalf("find conversation: %v", err)
	}
	msgs, err := st.ListMessages(ctx, convo.ID, 10, 0)
	if err != nil || len(msgs) != 1 {
		t.Fatalf("expected the offer, got %v err=%v", msgs, err)
	}
	offerID := msgs[0].ID

	if ev := d.Dispatch(ctx, bob, inbound(t, proto.InboundTypeAcceptJobOffer, proto.JobActionData{
		MessageID: offerID,
	})); ev != nil {
		t.Fatalf("accept failed: %+v", ev)
	}
	if ev := d.Dispatch(ctx, bob, inbound(t, proto.InboundTypeMarkJobCompleted, proto.JobActionData{
		MessageID: offerID,
	})); ev != nil {
		t.Fatalf("complete failed: %+v", ev)
	}
	if ev := d.Dispatch(ctx, alice, inbound(t, proto.InboundTypeLeaveReview, proto.LeaveReviewData{
		MessageID: offerID, Stars: 5, Comment: "great work",
	})); ev != nil {
		t.Fatalf("review failed: %+v", ev)
	}

	ev := d.Dispatch(ctx, bob, inbound(t, proto.InboundTypeProviderStats, proto.ProviderStatsData{
		UserID: "bob",
	}))
	if ev == nil || ev.Err != nil || ev.Name != proto.EventProviderStats {
		t.Fatalf("unexpected stats reply: %+v", ev)
	}
	stats := ev.Data.(proto.ProviderStatsReply)
	if stats.CompletedJobs != 1 || stats.TotalJobs != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(stats.RecentCompleted) != 1 || stats.RecentCompleted[0].ReviewDetails == nil {
		t.Fatalf("expected the reviewed job in the recent list: %+v", stats.RecentCompleted)
	}
}

func TestDispatchDomainErrorsPassThrough(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	client := core.NewClient("conn-b", "bob")

	ev := d.Dispatch(context.Background(), client, inbound(t, proto.InboundTypeAcceptJobOffer, proto.JobActionData{
		MessageID: "does-not-exist",
	}))
	if ev == nil || ev.Err == nil || ev.Err.Code != core.ErrCodeNotFound {
		t.Fatalf("expected not_found, got %+v", ev)
	}
}

func TestOutboundFromEvent(t *testing.T) {
	out := outboundFromEvent(&core.Event{Name: "conversations", Data: "payload"})
	if out.Type != proto.OutboundTypeEvent || out.Event != "conversations" || out.Error != nil {
		t.Fatalf("unexpected outbound: %+v", out)
	}

	out = outboundFromEvent(core.ErrorEvent(core.Unauthorized("nope")))
	if out.Type != proto.OutboundTypeError || out.Error == nil || out.Error.Code != core.ErrCodeUnauthorized {
		t.Fatalf("unexpected error outbound: %+v", out)
	}
	if out.Error.Message != "nope" {
		t.Fatalf("unexpected error message: %q", out.Error.Message)
	}
}
