package eventbus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	t.Parallel()

	b := New()
	ch, unsub := b.Subscribe(4)
	defer unsub()

	b.Publish(Event{Type: "x", Data: 42})
	select {
	case ev := <-ch:
		if ev.Type != "x" || ev.Data != 42 {
			t.Fatalf("got %+v", ev)
		}
		if ev.Time.IsZero() {
			t.Fatalf("publish should stamp the event time")
		}
	case <-time.After(time.Second):
		t.Fatalf("event not delivered")
	}
}

func TestPublishNeverBlocks(t *testing.T) {
	t.Parallel()

	b := New()
	ch, unsub := b.Subscribe(1)
	defer unsub()

	// A full subscriber must not stall the publisher; the overflow is
	// dropped instead.
	for i := 0; i < 10; i++ {
		b.Publish(Event{Type: "x", Data: i})
	}
	ev := <-ch
	if ev.Data != 0 {
		t.Fatalf("first buffered event = %+v, want Data 0", ev)
	}
	select {
	case ev, ok := <-ch:
		if ok {
			t.Fatalf("unexpected extra event %+v", ev)
		}
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	t.Parallel()

	b := New()
	ch, unsub := b.Subscribe(1)
	unsub()
	unsub() // idempotent

	if _, ok := <-ch; ok {
		t.Fatalf("channel should be closed after unsubscribe")
	}
	// Publishing after unsubscribe must not panic.
	b.Publish(Event{Type: "x"})
}

func TestSubscribeBufferFloor(t *testing.T) {
	t.Parallel()

	b := New()
	ch, unsub := b.Subscribe(0)
	defer unsub()

	// A zero buffer request still yields a usable buffered channel.
	b.Publish(Event{Type: "x"})
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatalf("event not delivered on defaulted buffer")
	}
}
