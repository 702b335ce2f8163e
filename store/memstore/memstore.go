// Package memstore implements store.Store in memory with no durability,
// for tests and local development. All operations are thread-safe via
// sync.RWMutex; values are defensively copied on read and write so a
// caller can never observe or cause a partial write, following the
// clone-on-read/write discipline of runtime/agent/run/inmem and
// runtime/agent/session/inmem.
package memstore

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/acp-project/acp-go/store"
)

// entry is one stored value plus its expiry bookkeeping.
type entry struct {
	value   json.RawMessage
	expires time.Time // zero means no TTL
}

// Store is an in-memory store.Store with optional per-key TTL and a
// max-size eviction sweep, run on a background ticker.
type Store struct {
	mu   sync.RWMutex
	data map[string]entry
	subs map[string]map[*subscriber]struct{}

	ttl     time.Duration
	maxSize int

	stop   chan struct{}
	closed sync.Once
}

// Option configures a Store.
type Option func(*Store)

// WithTTL expires entries ttl after their last write. Zero disables TTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithMaxSize bounds the store to n entries; when exceeded, the sweep
// evicts the entries closest to expiry first, then arbitrary entries
// until the bound is met. Zero disables the bound.
func WithMaxSize(n int) Option {
	return func(s *Store) { s.maxSize = n }
}

// New constructs an empty Store, immediately ready for use, and starts its
// background eviction sweep.
func New(opts ...Option) *Store {
	s := &Store{
		data: make(map[string]entry),
		subs: make(map[string]map[*subscriber]struct{}),
		stop: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.ttl > 0 || s.maxSize > 0 {
		go s.sweepLoop()
	}
	return s
}

// Close stops the background eviction sweep. Safe to call more than once.
func (s *Store) Close() {
	s.closed.Do(func() { close(s.stop) })
}

func (s *Store) sweepLoop() {
	interval := s.ttl
	if interval <= 0 || interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Store) sweep() {
	now := time.Now()
	s.mu.Lock()
	if s.ttl > 0 {
		for k, e := range s.data {
			if !e.expires.IsZero() && now.After(e.expires) {
				delete(s.data, k)
			}
		}
	}
	if s.maxSize > 0 && len(s.data) > s.maxSize {
		keys := make([]string, 0, len(s.data))
		for k := range s.data {
			keys = append(keys, k)
		}
		// Entries with a TTL go first, soonest expiry first; entries
		// without one follow in no particular order.
		sort.Slice(keys, func(i, j int) bool {
			ei, ej := s.data[keys[i]].expires, s.data[keys[j]].expires
			if ei.IsZero() != ej.IsZero() {
				return !ei.IsZero()
			}
			return ei.Before(ej)
		})
		for _, k := range keys[:len(s.data)-s.maxSize] {
			delete(s.data, k)
		}
	}
	s.mu.Unlock()
}

// Get implements store.Store.
func (s *Store) Get(_ context.Context, key string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[key]
	if !ok {
		return nil, nil
	}
	return append(json.RawMessage(nil), e.value...), nil
}

// Set implements store.Store, fanning the new value out to every active
// Watch subscriber for key. A nil value deletes the key and notifies
// subscribers with Present=false.
func (s *Store) Set(_ context.Context, key string, value json.RawMessage) error {
	s.mu.Lock()
	if value == nil {
		delete(s.data, key)
	} else {
		e := entry{value: append(json.RawMessage(nil), value...)}
		if s.ttl > 0 {
			e.expires = time.Now().Add(s.ttl)
		}
		s.data[key] = e
	}
	subs := make([]*subscriber, 0, len(s.subs[key]))
	for sub := range s.subs[key] {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	update := store.Update{Value: value, Present: value != nil}
	for _, sub := range subs {
		sub.send(update)
	}
	return nil
}

type subscriber struct {
	ch   chan store.Update
	done chan struct{}
}

// send delivers update without dropping it, per store.Store's contract;
// it blocks on a full channel until the subscriber's goroutine drains it
// or the subscription is torn down and done is closed.
func (sub *subscriber) send(u store.Update) {
	select {
	case sub.ch <- u:
	case <-sub.done:
	}
}

// Watch implements store.Store. The returned channel receives the current
// value (if any) first, then every subsequent write, until ctx is done.
func (s *Store) Watch(ctx context.Context, key string, ready chan<- struct{}) (<-chan store.Update, error) {
	sub := &subscriber{ch: make(chan store.Update, 16), done: make(chan struct{})}

	s.mu.Lock()
	if s.subs[key] == nil {
		s.subs[key] = make(map[*subscriber]struct{})
	}
	s.subs[key][sub] = struct{}{}
	current, ok := s.data[key]
	s.mu.Unlock()

	out := make(chan store.Update, 16)
	go func() {
		defer close(out)
		defer func() {
			s.mu.Lock()
			delete(s.subs[key], sub)
			if len(s.subs[key]) == 0 {
				delete(s.subs, key)
			}
			s.mu.Unlock()
			close(sub.done)
		}()

		if ok {
			select {
			case out <- store.Update{Value: append(json.RawMessage(nil), current.value...), Present: true}:
			case <-ctx.Done():
				return
			}
		}
		if ready != nil {
			close(ready)
		}
		for {
			select {
			case <-ctx.Done():
				return
			case u, open := <-sub.ch:
				if !open {
					return
				}
				select {
				case out <- u:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
