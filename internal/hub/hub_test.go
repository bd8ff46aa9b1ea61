// ABOUTME: Tests for the event hub
// ABOUTME: Checks ordered delivery, drop accounting and unsubscribe
package hub

import (
	"testing"

	"github.com/lisa-project/lisa-odas/pkg/odas"
	"github.com/lisa-project/lisa-odas/pkg/tracking"
)

func TestPublishDeliversInOrder(t *testing.T) {
	h := New()
	a := h.Subscribe(8)
	b := h.Subscribe(8)

	h.HandleFrame(odas.Frame{Index: 1})
	h.HandleSSL(tracking.SSL{Timestamp: 2})
	h.HandleSST(tracking.SST{Timestamp: 3})

	for _, s := range []*Subscription{a, b} {
		if ev := <-s.C; ev.Kind != KindFrame || ev.Frame.Index != 1 {
			t.Errorf("first event = %v %d", ev.Kind, ev.Frame.Index)
		}
		if ev := <-s.C; ev.Kind != KindSSL || ev.SSL.Timestamp != 2 {
			t.Errorf("second event = %v", ev.Kind)
		}
		if ev := <-s.C; ev.Kind != KindSST || ev.SST.Timestamp != 3 {
			t.Errorf("third event = %v", ev.Kind)
		}
	}
	if h.Published() != 3 {
		t.Errorf("Published() = %d, want 3", h.Published())
	}
}

func TestSlowSubscriberDrops(t *testing.T) {
	h := New()
	slow := h.Subscribe(1)
	fast := h.Subscribe(10)

	for i := 0; i < 5; i++ {
		h.HandleFrame(odas.Frame{Index: uint64(i)})
	}

	if slow.Dropped() != 4 {
		t.Errorf("slow.Dropped() = %d, want 4", slow.Dropped())
	}
	if fast.Dropped() != 0 {
		t.Errorf("fast.Dropped() = %d, want 0", fast.Dropped())
	}
	if h.Dropped() != 4 {
		t.Errorf("hub Dropped() = %d, want 4", h.Dropped())
	}
	if ev := <-slow.C; ev.Frame.Index != 0 {
		t.Errorf("slow subscriber kept frame %d, want 0", ev.Frame.Index)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	h := New()
	s := h.Subscribe(1)
	if h.Subscribers() != 1 {
		t.Fatalf("Subscribers() = %d", h.Subscribers())
	}
	h.Unsubscribe(s)
	h.Unsubscribe(s)
	if _, ok := <-s.C; ok {
		t.Error("channel still open after Unsubscribe")
	}
	if h.Subscribers() != 0 {
		t.Errorf("Subscribers() = %d after Unsubscribe", h.Subscribers())
	}
	h.HandleFrame(odas.Frame{})
}

func TestKindString(t *testing.T) {
	if KindFrame.String() != "frame" || KindSSL.String() != "ssl" || KindSST.String() != "sst" || Kind(9).String() != "unknown" {
		t.Error("unexpected Kind strings")
	}
}
