// Package event carries in-process notifications between the assembler,
// the track cache and the long-running commands.
package event

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sydlexius/creditgraph/internal/metrics"
)

// Type identifies a category of event.
type Type string

// Known event types.
const (
	TrackResolved       Type = "track.resolved"
	DiscographyResolved Type = "discography.resolved"
	ExpandCompleted     Type = "expand.completed"
	CacheEvicted        Type = "cache.evicted"
	CacheCleared        Type = "cache.cleared"
	RoleUnmapped        Type = "role.unmapped"
	NowPlayingChanged   Type = "nowplaying.changed"
	ConfigReloaded      Type = "config.reloaded"
)

// anyType is the subscription key for handlers that receive every event.
const anyType Type = ""

// Event is one notification. Data values must be safe to share between
// handlers.
type Event struct {
	Type      Type           `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// Handler processes an event on the dispatch goroutine.
type Handler func(Event)

type subscriber struct {
	id uint64
	fn Handler
}

// Bus fans events out to subscribers from a single goroutine. Publishing
// never blocks; events beyond the buffer are counted and dropped.
type Bus struct {
	queue  chan Event
	logger *slog.Logger

	mu       sync.RWMutex
	handlers map[Type][]subscriber
	seq      uint64

	stopOnce sync.Once
	quit     chan struct{}
	finished chan struct{}
	running  atomic.Bool
	dropped  atomic.Int64
}

// NewBus returns a bus holding up to bufSize undelivered events. A
// non-positive size means 256.
func NewBus(logger *slog.Logger, bufSize int) *Bus {
	if bufSize <= 0 {
		bufSize = 256
	}
	return &Bus{
		queue:    make(chan Event, bufSize),
		logger:   logger,
		handlers: make(map[Type][]subscriber),
		quit:     make(chan struct{}),
		finished: make(chan struct{}),
	}
}

// Subscribe registers h for events of type t and returns a function that
// removes it.
func (b *Bus) Subscribe(t Type, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	id := b.seq
	b.handlers[t] = append(b.handlers[t], subscriber{id: id, fn: h})
	return func() { b.unsubscribe(t, id) }
}

// SubscribeAll registers h for every event type.
func (b *Bus) SubscribeAll(h Handler) (unsubscribe func()) {
	return b.Subscribe(anyType, h)
}

func (b *Bus) unsubscribe(t Type, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.handlers[t]
	for i, s := range subs {
		if s.id == id {
			b.handlers[t] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Publish queues e for delivery, stamping it with the current time when
// Timestamp is zero. A nil Bus discards the event.
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	select {
	case b.queue <- e:
	default:
		b.dropped.Add(1)
		metrics.EventsDropped.Inc()
		b.logger.Warn("event bus full, dropping event", slog.String("type", string(e.Type)))
	}
}

// Dropped reports how many events were discarded on a full buffer.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

// Start delivers queued events until Stop is called, then delivers whatever
// is still buffered and returns. Run it on its own goroutine.
func (b *Bus) Start() {
	b.running.Store(true)
	defer close(b.finished)
	for {
		select {
		case e := <-b.queue:
			b.deliver(e)
		case <-b.quit:
			for len(b.queue) > 0 {
				b.deliver(<-b.queue)
			}
			return
		}
	}
}

// Stop ends delivery. When Start is running, Stop waits for the buffer to
// drain. Calling Stop more than once is safe.
func (b *Bus) Stop() {
	b.stopOnce.Do(func() { close(b.quit) })
	if b.running.Load() {
		<-b.finished
	}
}

func (b *Bus) deliver(e Event) {
	b.mu.RLock()
	targets := make([]subscriber, 0, len(b.handlers[e.Type])+len(b.handlers[anyType]))
	targets = append(targets, b.handlers[e.Type]...)
	if e.Type != anyType {
		targets = append(targets, b.handlers[anyType]...)
	}
	b.mu.RUnlock()

	for _, s := range targets {
		b.call(s.fn, e)
	}
}

func (b *Bus) call(h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				slog.String("type", string(e.Type)),
				slog.Any("panic", r),
			)
		}
	}()
	h(e)
}
