package event

import (
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// startBus runs a bus for the duration of the test.
func startBus(t *testing.T, size int) *Bus {
	t.Helper()
	bus := NewBus(testLogger(), size)
	go bus.Start()
	t.Cleanup(bus.Stop)
	return bus
}

// recv waits for one event on ch.
func recv(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestPublishDeliversWithTimestamp(t *testing.T) {
	bus := startBus(t, 16)
	got := make(chan Event, 1)
	bus.Subscribe(TrackResolved, func(e Event) { got <- e })

	bus.Publish(Event{Type: TrackResolved, Data: map[string]any{"entities": 42}})

	e := recv(t, got)
	if e.Data["entities"] != 42 {
		t.Errorf("data[entities] = %v, want 42", e.Data["entities"])
	}
	if e.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
}

func TestPublishKeepsExplicitTimestamp(t *testing.T) {
	bus := startBus(t, 16)
	got := make(chan Event, 1)
	bus.Subscribe(CacheCleared, func(e Event) { got <- e })

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	bus.Publish(Event{Type: CacheCleared, Timestamp: at})

	if e := recv(t, got); !e.Timestamp.Equal(at) {
		t.Errorf("timestamp = %v, want %v", e.Timestamp, at)
	}
}

func TestDeliveryRouting(t *testing.T) {
	bus := startBus(t, 16)
	typed := make(chan Event, 8)
	all := make(chan Event, 8)
	for range 2 {
		bus.Subscribe(ExpandCompleted, func(e Event) { typed <- e })
	}
	bus.SubscribeAll(func(e Event) { all <- e })

	bus.Publish(Event{Type: TrackResolved})
	bus.Publish(Event{Type: ExpandCompleted})

	if e := recv(t, all); e.Type != TrackResolved {
		t.Errorf("first wildcard event = %s", e.Type)
	}
	if e := recv(t, all); e.Type != ExpandCompleted {
		t.Errorf("second wildcard event = %s", e.Type)
	}
	for range 2 {
		if e := recv(t, typed); e.Type != ExpandCompleted {
			t.Errorf("typed subscriber got %s", e.Type)
		}
	}
	bus.Stop()
	if len(typed) != 0 {
		t.Errorf("typed subscribers received %d extra events", len(typed))
	}
}

func TestPanickingHandlerDoesNotStopDelivery(t *testing.T) {
	bus := startBus(t, 16)
	got := make(chan Event, 1)
	bus.Subscribe(RoleUnmapped, func(Event) { panic("boom") })
	bus.Subscribe(RoleUnmapped, func(e Event) { got <- e })

	bus.Publish(Event{Type: RoleUnmapped})
	recv(t, got)
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus(testLogger(), 16)
	var mu sync.Mutex
	var calls []string
	record := func(name string) Handler {
		return func(Event) {
			mu.Lock()
			defer mu.Unlock()
			calls = append(calls, name)
		}
	}
	bus.Subscribe(TrackResolved, record("a"))
	stopB := bus.Subscribe(TrackResolved, record("b"))
	stopAll := bus.SubscribeAll(record("all"))
	stopB()
	stopAll()
	stopAll()

	bus.Publish(Event{Type: TrackResolved})
	bus.Stop()
	bus.Start()

	mu.Lock()
	defer mu.Unlock()
	if len(calls) != 1 || calls[0] != "a" {
		t.Errorf("calls = %v, want [a]", calls)
	}
}

func TestStopDrainsBuffer(t *testing.T) {
	bus := NewBus(testLogger(), 16)
	var mu sync.Mutex
	count := 0
	bus.Subscribe(TrackResolved, func(Event) {
		mu.Lock()
		defer mu.Unlock()
		count++
	})

	for range 5 {
		bus.Publish(Event{Type: TrackResolved})
	}
	done := make(chan struct{})
	go func() {
		bus.Start()
		close(done)
	}()
	bus.Stop()
	<-done

	mu.Lock()
	defer mu.Unlock()
	if count != 5 {
		t.Errorf("delivered %d events, want 5", count)
	}
}

func TestFullBufferDrops(t *testing.T) {
	bus := NewBus(testLogger(), 2)
	for range 3 {
		bus.Publish(Event{Type: TrackResolved})
	}
	if got := bus.Dropped(); got != 1 {
		t.Errorf("Dropped() = %d, want 1", got)
	}
}

func TestStopWithoutStart(t *testing.T) {
	bus := NewBus(testLogger(), 0)
	bus.Stop()
	bus.Stop()
}

func TestNilBusPublish(t *testing.T) {
	var bus *Bus
	bus.Publish(Event{Type: TrackResolved})
}
