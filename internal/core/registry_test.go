package core

import (
	"fmt"
	"sync"
	"testing"
)

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()

	c := NewClient("conn-1", "alice")
	r.Register("alice", c)

	got, ok := r.Lookup("alice")
	if !ok || got != c {
		t.Fatalf("expected to find conn-1, got %v ok=%v", got, ok)
	}
	if _, ok := r.Lookup("bob"); ok {
		t.Fatal("expected bob to be offline")
	}

	userID, ok := r.IdentityOf(c)
	if !ok || userID != "alice" {
		t.Fatalf("expected identity alice, got %q ok=%v", userID, ok)
	}
}

func TestRegistryLastRegistrationWins(t *testing.T) {
	r := NewRegistry()

	old := NewClient("conn-1", "alice")
	r.Register("alice", old)

	replacement := NewClient("conn-2", "alice")
	r.Register("alice", replacement)

	got, ok := r.Lookup("alice")
	if !ok || got != replacement {
		t.Fatalf("expected conn-2 to be current, got %+v", got)
	}

	// The superseded connection is no longer registered.
	if _, ok := r.IdentityOf(old); ok {
		t.Fatal("superseded connection should not resolve to an identity")
	}
}

func TestRegistryStaleUnregisterKeepsNewConnection(t *testing.T) {
	r := NewRegistry()

	old := NewClient("conn-1", "alice")
	r.Register("alice", old)

	// Reconnect before the old connection's disconnect is processed.
	replacement := NewClient("conn-2", "alice")
	r.Register("alice", replacement)

	// Delayed disconnect for the old connection must not evict conn-2.
	if removed := r.Unregister(old); removed {
		t.Fatal("stale unregister should be a no-op")
	}
	got, ok := r.Lookup("alice")
	if !ok || got != replacement {
		t.Fatal("stale unregister evicted the newer connection")
	}

	// And processing the same disconnect twice stays harmless.
	if removed := r.Unregister(old); removed {
		t.Fatal("duplicate stale unregister should be a no-op")
	}

	if removed := r.Unregister(replacement); !removed {
		t.Fatal("unregistering the current connection should remove it")
	}
	if _, ok := r.Lookup("alice"); ok {
		t.Fatal("alice should be offline after unregister")
	}
}

func TestRegistryUnregisterIsIdempotent(t *testing.T) {
	r := NewRegistry()

	c := NewClient("conn-1", "alice")
	r.Register("alice", c)

	if !r.Unregister(c) {
		t.Fatal("first unregister should remove the connection")
	}
	if r.Unregister(c) {
		t.Fatal("second unregister should be a no-op")
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()

	const users = 16
	const rounds = 100

	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		userID := fmt.Sprintf("user-%d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < rounds; j++ {
				c := NewClient(fmt.Sprintf("%s-conn-%d", userID, j), userID)
				r.Register(userID, c)
				if _, ok := r.Lookup(userID); !ok {
					t.Errorf("lookup after register failed for %s", userID)
					return
				}
				r.Unregister(c)
			}
		}()
	}
	wg.Wait()
}
