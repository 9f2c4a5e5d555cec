package serve

import (
	"testing"

	krrs "github.com/sapienskid/KRRS"
)

func TestBrokerFanOut(t *testing.T) {
	b := NewEventBroker()
	ch1 := b.Subscribe()
	ch2 := b.Subscribe()

	b.Publish(krrs.Event{InvocationID: "inv-1", Type: krrs.EventPhase, Phase: "classifying"})

	for i, ch := range []chan krrs.Event{ch1, ch2} {
		select {
		case e := <-ch:
			if e.InvocationID != "inv-1" {
				t.Errorf("subscriber %d got %+v", i, e)
			}
		default:
			t.Errorf("subscriber %d got nothing", i)
		}
	}

	b.Unsubscribe(ch1)
	if _, open := <-ch1; open {
		t.Error("unsubscribed channel not closed")
	}

	// Publishing after an unsubscribe still reaches the rest.
	b.Publish(krrs.Event{InvocationID: "inv-2"})
	select {
	case e := <-ch2:
		if e.InvocationID != "inv-2" {
			t.Errorf("got %+v", e)
		}
	default:
		t.Error("remaining subscriber got nothing")
	}

	b.Close()
	if _, open := <-ch2; open {
		t.Error("Close left a channel open")
	}
}

func TestBrokerSubscriberCap(t *testing.T) {
	b := NewEventBroker()
	defer b.Close()

	for i := 0; i < maxSubscribers; i++ {
		if b.Subscribe() == nil {
			t.Fatalf("subscriber %d rejected below the cap", i)
		}
	}
	if b.Subscribe() != nil {
		t.Error("subscriber above the cap accepted")
	}
}

func TestBrokerSlowSubscriberDoesNotBlock(t *testing.T) {
	b := NewEventBroker()
	defer b.Close()

	ch := b.Subscribe()
	// Fill the buffer past capacity; Publish must not block.
	for i := 0; i < 100; i++ {
		b.Publish(krrs.Event{InvocationID: "flood"})
	}
	if len(ch) != cap(ch) {
		t.Errorf("buffer = %d, want full at %d", len(ch), cap(ch))
	}
}
