// Package hooks implements an internal, synchronous fan-out bus the
// executor uses to publish run lifecycle notifications to observability
// subscribers (structured logging today). It is never a source of truth
// for client-visible run state — that remains the Store's persisted
// RunData (see SPEC_FULL.md §4.2/§9).
package hooks

import (
	"context"
	"sync"

	"github.com/acp-project/acp-go/acpmodel"
)

type (
	// Event is published to the bus once per event the executor emits:
	// run state transitions as well as message.* and generic events.
	Event struct {
		RunID   string
		AgentID string
		Type    acpmodel.EventType
		Run     acpmodel.Run
	}

	// Subscriber reacts to published events. HandleEvent should return an
	// error only when the failure must halt publication to later
	// subscribers; the bus stops iterating at the first error.
	Subscriber interface {
		HandleEvent(ctx context.Context, event Event) error
	}

	// SubscriberFunc adapts a plain function to Subscriber.
	SubscriberFunc func(ctx context.Context, event Event) error

	// Subscription is returned by Register; closing it unregisters the
	// subscriber. Close is idempotent and safe to call concurrently.
	Subscription interface {
		Close() error
	}

	// Bus publishes events to every registered subscriber in registration
	// order, synchronously, on the publisher's goroutine.
	Bus interface {
		Publish(ctx context.Context, event Event) error
		Register(sub Subscriber) (Subscription, error)
	}

	bus struct {
		mu          sync.RWMutex
		subscribers []*subscription
	}

	subscription struct {
		bus  *bus
		sub  Subscriber
		once sync.Once
	}
)

// HandleEvent implements Subscriber by invoking the function.
func (fn SubscriberFunc) HandleEvent(ctx context.Context, event Event) error { return fn(ctx, event) }

// NewBus constructs an empty, ready-to-use Bus.
func NewBus() Bus {
	return &bus{}
}

func (b *bus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	subs := make([]Subscriber, 0, len(b.subscribers))
	for _, s := range b.subscribers {
		subs = append(subs, s.sub)
	}
	b.mu.RUnlock()
	for _, sub := range subs {
		if err := sub.HandleEvent(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func (b *bus) Register(sub Subscriber) (Subscription, error) {
	s := &subscription{bus: b, sub: sub}
	b.mu.Lock()
	b.subscribers = append(b.subscribers, s)
	b.mu.Unlock()
	return s, nil
}

func (s *subscription) Close() error {
	s.once.Do(func() {
		s.bus.mu.Lock()
		for i, other := range s.bus.subscribers {
			if other == s {
				s.bus.subscribers = append(s.bus.subscribers[:i], s.bus.subscribers[i+1:]...)
				break
			}
		}
		s.bus.mu.Unlock()
	})
	return nil
}
