package core

import (
	"context"
	"testing"
	"time"

	"github.com/craftlink/chat-server/internal/bus"
	"github.com/craftlink/chat-server/internal/log"
)

type staticCategories map[string]string

func (c staticCategories) CategoryDetails(_ context.Context, id string) (*CategoryDetails, error) {
	name, ok := c[id]
	if !ok {
		return nil, nil
	}
	return &CategoryDetails{ID: id, Name: name}, nil
}

func newTestBridge(t *testing.T) (*Bridge, *Registry) {
	t.Helper()

	registry := NewRegistry()
	bridge := NewBridge(bus.NewMemory(), registry, staticCategories{"cat-1": "Plumbing"}, log.New("error"))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := bridge.Start(ctx); err != nil {
		t.Fatalf("start bridge: %v", err)
	}
	return bridge, registry
}

func recvEvent(t *testing.T, c *Client) *Event {
	t.Helper()

	select {
	case ev := <-c.Events:
		return ev
	default:
		t.Fatal("expected a delivered event")
		return nil
	}
}

func assertNoEvent(t *testing.T, c *Client) {
	t.Helper()

	select {
	case ev := <-c.Events:
		t.Fatalf("unexpected event: %+v", ev)
	default:
	}
}

func TestBridgeDeliversToBothParties(t *testing.T) {
	bridge, registry := newTestBridge(t)

	alice := NewClient("conn-a", "alice")
	bob := NewClient("conn-b", "bob")
	registry.Register("alice", alice)
	registry.Register("bob", bob)

	err := bridge.PublishMessage(context.Background(), MessageEvent{
		ID:        "m1",
		Sender:    "alice",
		Recipient: "bob",
		Content:   "hello",
		Kind:      "text",
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	for _, c := range []*Client{alice, bob} {
		ev := recvEvent(t, c)
		if ev.Name != EventReceiveMessage {
			t.Fatalf("expected %s, got %s", EventReceiveMessage, ev.Name)
		}
		msg, ok := ev.Data.(MessageEvent)
		if !ok {
			t.Fatalf("unexpected payload type %T", ev.Data)
		}
		if msg.ID != "m1" || msg.Content != "hello" {
			t.Fatalf("unexpected payload: %+v", msg)
		}
	}
}

func TestBridgeSkipsOfflineUsers(t *testing.T) {
	bridge, registry := newTestBridge(t)

	alice := NewClient("conn-a", "alice")
	registry.Register("alice", alice)

	err := bridge.PublishMessage(context.Background(), MessageEvent{
		Sender:    "alice",
		Recipient: "bob", // offline
		Content:   "anyone there?",
		Kind:      "text",
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	if ev := recvEvent(t, alice); ev.Name != EventReceiveMessage {
		t.Fatalf("sender should still get the event, got %s", ev.Name)
	}
}

func TestBridgeEnrichesJobOfferCategory(t *testing.T) {
	bridge, registry := newTestBridge(t)

	bob := NewClient("conn-b", "bob")
	registry.Register("bob", bob)

	err := bridge.PublishMessage(context.Background(), MessageEvent{
		ID:         "m2",
		Sender:     "alice",
		Recipient:  "bob",
		Content:    "fix my sink",
		Kind:       "job_offer",
		CategoryID: "cat-1",
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	ev := recvEvent(t, bob)
	msg := ev.Data.(MessageEvent)
	if msg.CategoryDetails == nil || msg.CategoryDetails.Name != "Plumbing" {
		t.Fatalf("expected category enrichment, got %+v", msg.CategoryDetails)
	}
}

func TestBridgeDropsMalformedPayloads(t *testing.T) {
	registry := NewRegistry()
	b := bus.NewMemory()
	bridge := NewBridge(b, registry, nil, log.New("error"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := bridge.Start(ctx); err != nil {
		t.Fatalf("start bridge: %v", err)
	}

	alice := NewClient("conn-a", "alice")
	registry.Register("alice", alice)

	for _, channel := range []string{ChannelChat, ChannelChatUpdate, ChannelJobStatus} {
		if err := b.Publish(ctx, channel, []byte("not json")); err != nil {
			t.Fatalf("publish garbage on %s: %v", channel, err)
		}
	}

	assertNoEvent(t, alice)
}

func TestBridgeChatUpdateAndJobStatus(t *testing.T) {
	bridge, registry := newTestBridge(t)

	alice := NewClient("conn-a", "alice")
	registry.Register("alice", alice)

	err := bridge.PublishChatUpdate(context.Background(), ChatUpdateEvent{
		ID:          "m3",
		Sender:      "alice",
		Recipient:   "bob",
		OfferStatus: "accepted",
	})
	if err != nil {
		t.Fatalf("publish update: %v", err)
	}
	if ev := recvEvent(t, alice); ev.Name != EventChatUpdate {
		t.Fatalf("expected %s, got %s", EventChatUpdate, ev.Name)
	}

	err = bridge.PublishJobStatus(context.Background(), JobStatusEvent{
		Sender:    "alice",
		Recipient: "bob",
	})
	if err != nil {
		t.Fatalf("publish job status: %v", err)
	}
	ev := recvEvent(t, alice)
	if ev.Name != EventJobStatusUpdate {
		t.Fatalf("expected %s, got %s", EventJobStatusUpdate, ev.Name)
	}
	status := ev.Data.(JobStatusEvent)
	if status.Sender != "alice" || status.Recipient != "bob" {
		t.Fatalf("unexpected job status payload: %+v", status)
	}
}
