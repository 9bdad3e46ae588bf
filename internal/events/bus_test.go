package events

import (
	"errors"
	"testing"
	"time"
)

func waitEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestSubscribeReceivesOnlyItsType(t *testing.T) {
	bus := NewEventBus()
	got := make(chan Event, 4)
	bus.Subscribe(EventAnalysisFailed, func(e Event) { got <- e })

	bus.PublishSignalGenerated("u1", "BTC/USD", "BUY", 55)
	bus.Publish(Event{
		Type:   EventAnalysisFailed,
		UserID: "u1",
		Data:   map[string]interface{}{"symbol": "BTC/USD", "reason": "no market data available"},
	})

	e := waitEvent(t, got)
	if e.Type != EventAnalysisFailed {
		t.Fatalf("expected %s, got %s", EventAnalysisFailed, e.Type)
	}
	if e.UserID != "u1" {
		t.Errorf("expected user u1, got %q", e.UserID)
	}

	select {
	case extra := <-got:
		t.Fatalf("subscriber received an event of another type: %s", extra.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribeAllReceivesEverything(t *testing.T) {
	bus := NewEventBus()
	got := make(chan Event, 4)
	bus.SubscribeAll(func(e Event) { got <- e })

	bus.PublishPriceUpdate("BTC/USD", 65000, 250)
	bus.PublishError("scheduler", errors.New("boom"))

	seen := map[EventType]bool{}
	for i := 0; i < 2; i++ {
		seen[waitEvent(t, got).Type] = true
	}
	if !seen[EventPriceUpdate] || !seen[EventError] {
		t.Errorf("expected both event types delivered, saw %v", seen)
	}
}

func TestPublishErrorPayload(t *testing.T) {
	bus := NewEventBus()
	got := make(chan Event, 1)
	bus.Subscribe(EventError, func(e Event) { got <- e })

	bus.PublishError("scheduler", errors.New("history write failed"))

	e := waitEvent(t, got)
	if e.Data["source"] != "scheduler" {
		t.Errorf("expected source scheduler, got %v", e.Data["source"])
	}
	if e.Data["error"] != "history write failed" {
		t.Errorf("expected error message in payload, got %v", e.Data["error"])
	}
	if e.Timestamp.IsZero() {
		t.Error("expected the publish timestamp to be set")
	}
}
