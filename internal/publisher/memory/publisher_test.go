package memory

import (
	"context"
	"testing"
)

func TestPublisherStoresMessages(t *testing.T) {
	t.Parallel()

	pub := New(0)
	id1, err := pub.Publish(context.Background(), "topic-a", map[string]string{"k": "v"})
	if err != nil || id1 != "memory-1" {
		t.Fatalf("unexpected publish result id=%s err=%v", id1, err)
	}
	id2, err := pub.Publish(context.Background(), "topic-b", "payload")
	if err != nil || id2 != "memory-2" {
		t.Fatalf("unexpected publish result id=%s err=%v", id2, err)
	}

	msgs := pub.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Topic != "topic-a" || msgs[1].Topic != "topic-b" {
		t.Fatalf("topics not recorded correctly: %+v", msgs)
	}

	msgs[0].Topic = "modified"
	if pub.Messages()[0].Topic == "modified" {
		t.Fatal("expected Messages() to return a copy")
	}
}

func TestPublisherKeepsMostRecent(t *testing.T) {
	t.Parallel()

	pub := New(2)
	for i := 0; i < 5; i++ {
		if _, err := pub.Publish(context.Background(), "sessions", i); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}

	msgs := pub.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 retained messages, got %d", len(msgs))
	}
	if msgs[0].Payload != 3 || msgs[1].Payload != 4 || msgs[1].ID != "memory-5" {
		t.Fatalf("expected the last two messages, got %+v", msgs)
	}
}

func TestPublisherCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(0).Publish(ctx, "sessions", "x"); err == nil {
		t.Fatal("expected error for canceled context")
	}
}
