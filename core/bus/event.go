package bus

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"sync"
	"sync/atomic"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/codewandler/rigcore-go/core/reflector"
)

type eventHandlerFunc func(ctx context.Context, msg any) error

// EventRegistrar accepts event subscriptions. Both [EventBus] and [Bus]
// implement it.
type EventRegistrar interface {
	subscribe(reg Registration, h eventHandlerFunc) *Subscription
}

// Subscription is the handle of a registered event subscriber.
type Subscription struct {
	Registration
	bus    *EventBus
	handle eventHandlerFunc
	active atomic.Bool
}

// Unsubscribe removes the subscriber. It reports whether the subscription
// was still registered. A publish already in progress skips it from here on.
func (s *Subscription) Unsubscribe() bool {
	if s == nil || !s.active.CompareAndSwap(true, false) {
		return false
	}
	s.bus.remove(s)
	return true
}

// Active reports whether the subscription still receives events.
func (s *Subscription) Active() bool { return s != nil && s.active.Load() }

// EventBus delivers events to every subscriber of the event's type, in
// registration order, on the publishing goroutine.
type EventBus struct {
	log     *slog.Logger
	metrics Metrics

	mu   sync.RWMutex
	subs map[string][]*Subscription
}

// NewEventBus creates an event bus.
func NewEventBus(opts Options) *EventBus {
	opts = opts.withDefaults()
	return &EventBus{
		log:     opts.Log.With(slog.String("bus", "event")),
		metrics: opts.Metrics,
		subs:    make(map[string][]*Subscription),
	}
}

// Subscribe registers action for events of type E under id. If id is already
// subscribed to E the call keeps the existing subscriber and returns its handle.
func Subscribe[E any](
	r EventRegistrar,
	id string,
	description string,
	level slog.Level,
	action func(ctx context.Context, e E) error,
) *Subscription {
	if id == "" {
		id = "anon-" + gonanoid.Must()
	}
	reg := Registration{
		ID:          id,
		MessageType: reflector.NameFor[E](),
		Description: description,
		Level:       level,
	}
	return r.subscribe(reg, func(ctx context.Context, msg any) error {
		e, ok := convert[E](msg)
		if !ok {
			return fmt.Errorf("%w: %T for %s", ErrInvalidMessage, msg, reg.MessageType)
		}
		return action(ctx, e)
	})
}

// SubscribeScoped registers a transient subscriber under a generated id.
// Callers must Unsubscribe when the owning component goes away.
func SubscribeScoped[E any](
	r EventRegistrar,
	description string,
	level slog.Level,
	action func(ctx context.Context, e E) error,
) *Subscription {
	return Subscribe(r, "scoped-"+gonanoid.Must(), description, level, action)
}

func (b *EventBus) subscribe(reg Registration, h eventHandlerFunc) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, s := range b.subs[reg.MessageType] {
		if s.ID == reg.ID {
			b.log.Debug("subscription already registered, keeping existing", reg.logAttrs())
			return s
		}
	}

	s := &Subscription{Registration: reg, bus: b, handle: h}
	s.active.Store(true)
	b.subs[reg.MessageType] = append(b.subs[reg.MessageType], s)
	b.log.Debug("subscribed", reg.logAttrs())
	return s
}

func (b *EventBus) remove(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[s.MessageType]
	i := slices.Index(subs, s)
	if i < 0 {
		return
	}
	subs = slices.Delete(slices.Clone(subs), i, i+1)
	if len(subs) == 0 {
		delete(b.subs, s.MessageType)
	} else {
		b.subs[s.MessageType] = subs
	}
	b.log.Debug("unsubscribed", s.logAttrs())
}

// Publish delivers event to its subscribers and returns how many of them
// faulted. Faults are logged and never propagate to the caller.
func (b *EventBus) Publish(ctx context.Context, event any) (faults int) {
	mt := reflector.NameOf(event)

	b.mu.RLock()
	subs := b.subs[mt]
	b.mu.RUnlock()

	b.metrics.EventPublished(mt, len(subs))

	for _, s := range subs {
		if !s.active.Load() {
			continue
		}
		if err := b.deliver(ctx, s, event); err != nil {
			faults++
			b.metrics.SubscriberFault(mt)
			b.log.Error("event subscriber failed", s.logAttrs(), slog.Any("error", err))
		}
	}
	return faults
}

func (b *EventBus) deliver(ctx context.Context, s *Subscription, event any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v\n%s", ErrHandlerFault, r, debug.Stack())
		}
	}()
	b.log.Log(ctx, s.Level, s.Description, s.logAttrs())
	return s.handle(ctx, event)
}

// Subscribers lists the registrations for an event type in delivery order.
func (b *EventBus) Subscribers(eventType string) []Registration {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Registration, 0, len(b.subs[eventType]))
	for _, s := range b.subs[eventType] {
		out = append(out, s.Registration)
	}
	return out
}
