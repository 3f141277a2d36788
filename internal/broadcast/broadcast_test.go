package broadcast

import (
	"context"
	"testing"
)

func TestPublishReachesSubscribers(t *testing.T) {
	b := New(nil)
	defer b.Close()

	var got []Event
	unsubscribe := b.Subscribe(func(event Event) {
		got = append(got, event)
	})
	defer unsubscribe()

	b.Publish(context.Background(), "userProfile", `{"completed":true}`)

	if len(got) != 1 {
		t.Fatalf("expected one event, got %d", len(got))
	}
	if got[0].Key != "userProfile" || got[0].Value != `{"completed":true}` {
		t.Fatalf("unexpected event %+v", got[0])
	}
	if got[0].ID == "" || got[0].Origin == "" {
		t.Fatalf("expected event identity to be populated, got %+v", got[0])
	}
}

func TestLateSubscriberMissesEarlierEvents(t *testing.T) {
	b := New(nil)
	defer b.Close()

	b.Publish(context.Background(), "userProfile", "early")

	var got []Event
	unsubscribe := b.Subscribe(func(event Event) { got = append(got, event) })
	defer unsubscribe()

	b.Publish(context.Background(), "userProfile", "late")

	if len(got) != 1 || got[0].Value != "late" {
		t.Fatalf("expected only the later event, got %+v", got)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New(nil)
	defer b.Close()

	count := 0
	unsubscribe := b.Subscribe(func(Event) { count++ })
	b.Publish(context.Background(), "k", "v")
	unsubscribe()
	b.Publish(context.Background(), "k", "v")

	if count != 1 {
		t.Fatalf("expected one delivery, got %d", count)
	}
}
