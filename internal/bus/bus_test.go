package bus

import (
	"context"
	"testing"
)

func TestMemoryPublishSubscribe(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	var got []string
	err := m.Subscribe(ctx, "chat", func(payload []byte) {
		got = append(got, string(payload))
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := m.Publish(ctx, "chat", []byte("one")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := m.Publish(ctx, "chat", []byte("two")); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(got) != 2 || got[0] != "one" || got[1] != "two" {
		t.Fatalf("unexpected deliveries: %v", got)
	}
}

func TestMemoryChannelsAreIsolated(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	var chat, update int
	m.Subscribe(ctx, "chat", func([]byte) { chat++ })
	m.Subscribe(ctx, "chat_update", func([]byte) { update++ })

	m.Publish(ctx, "chat", []byte("{}"))

	if chat != 1 || update != 0 {
		t.Fatalf("expected chat=1 update=0, got chat=%d update=%d", chat, update)
	}
}

func TestMemoryFansOutToAllSubscribers(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	var first, second int
	m.Subscribe(ctx, "chat", func([]byte) { first++ })
	m.Subscribe(ctx, "chat", func([]byte) { second++ })

	m.Publish(ctx, "chat", []byte("{}"))

	if first != 1 || second != 1 {
		t.Fatalf("expected both subscribers to receive, got %d and %d", first, second)
	}
}

func TestMemoryPublishWithoutSubscribers(t *testing.T) {
	m := NewMemory()
	if err := m.Publish(context.Background(), "nobody", []byte("{}")); err != nil {
		t.Fatalf("publish to empty channel: %v", err)
	}
}

func TestMemoryCloseDropsSubscriptions(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	var delivered int
	m.Subscribe(ctx, "chat", func([]byte) { delivered++ })

	if err := m.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	m.Publish(ctx, "chat", []byte("{}"))

	if delivered != 0 {
		t.Fatalf("expected no delivery after close, got %d", delivered)
	}
}
