package notification

import (
	"context"
	"testing"
	"time"
)

func TestHubDeliversToOwnSubscribersOnly(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	alice := hub.Subscribe(ctx, "alice")
	bob := hub.Subscribe(ctx, "bob")

	hub.Publish(Notification{UserID: "alice", Type: TypeInfo, Message: "hello"})

	select {
	case n := <-alice:
		if n.Message != "hello" {
			t.Fatalf("message = %q", n.Message)
		}
	case <-time.After(time.Second):
		t.Fatal("alice never received the notification")
	}

	select {
	case n := <-bob:
		t.Fatalf("bob received someone else's notification: %+v", n)
	default:
	}
}

func TestHubFansOutToEverySubscriptionOfAUser(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := hub.Subscribe(ctx, "alice")
	second := hub.Subscribe(ctx, "alice")
	if got := hub.Subscribers("alice"); got != 2 {
		t.Fatalf("Subscribers = %d, want 2", got)
	}

	hub.Publish(Notification{UserID: "alice", Type: TypeWarning, Message: "low stock"})

	for i, ch := range []<-chan Notification{first, second} {
		select {
		case n := <-ch:
			if n.Type != TypeWarning {
				t.Fatalf("subscription %d type = %q", i, n.Type)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscription %d never received the notification", i)
		}
	}
}

func TestHubDropsWhenSubscriberIsSlow(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := hub.Subscribe(ctx, "alice")

	// Buffer is 16; everything past that is dropped without blocking.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			hub.Publish(Notification{UserID: "alice", Type: TypeInfo})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	received := 0
	for {
		select {
		case <-ch:
			received++
		default:
			if received == 0 || received > 16 {
				t.Fatalf("received = %d, want between 1 and 16", received)
			}
			return
		}
	}
}

func TestHubClosesChannelOnContextCancel(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())

	ch := hub.Subscribe(ctx, "alice")
	cancel()

	select {
	case _, open := <-ch:
		if open {
			t.Fatal("expected a closed channel after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel never closed after cancel")
	}

	deadline := time.Now().Add(time.Second)
	for hub.Subscribers("alice") != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("Subscribers = %d, want 0 after cancel", hub.Subscribers("alice"))
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Publishing after the subscriber is gone must be a no-op.
	hub.Publish(Notification{UserID: "alice", Type: TypeInfo})
}
