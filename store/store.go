// Package store defines the keyed value abstraction the run engine uses as
// its only shared mutable state (spec.md §4.3). Three backends implement
// it: store/memstore, store/redisstore, store/sqlstore.
package store

import (
	"context"
	"encoding/json"
)

// Store is a keyed, JSON-valued container with a watch primitive. Get/Set
// behave like a map; Watch yields the current value (or none) followed by
// every subsequent value written to key, until ctx is cancelled.
//
// Contracts (spec.md §4.3):
//   - Set is atomic per key; the executor is the sole writer for any given
//     run key, so cross-writer ordering is not a concern in practice.
//   - Watch must not drop values; a coalescing implementation must still
//     deliver the terminal value.
//   - Get after Set on the same connection observes the write.
type Store interface {
	// Get returns the raw JSON bytes stored at key, or nil if unset.
	Get(ctx context.Context, key string) (json.RawMessage, error)
	// Set stores value at key, or deletes it when value is nil.
	Set(ctx context.Context, key string, value json.RawMessage) error
	// Watch streams every value (or none) written to key from the moment
	// ready is closed (if non-nil) onward, starting with the current value.
	// The returned channel is closed when ctx is done or the watch ends.
	Watch(ctx context.Context, key string, ready chan<- struct{}) (<-chan Update, error)
}

// Update is one value observed by a Watch subscription. Present is false
// when the key was deleted (Set(..., nil)).
type Update struct {
	Value   json.RawMessage
	Present bool
	Err     error
}

// View narrows a Store to one key prefix and one typed value model, the
// way python/src/acp_sdk/server/store/store.py's StoreView layers a model
// and prefix over a raw Store.
type View[T any] struct {
	store  Store
	prefix string
}

// NewView constructs a View allocating keys under prefix.
func NewView[T any](s Store, prefix string) *View[T] {
	return &View[T]{store: s, prefix: prefix}
}

func (v *View[T]) key(id string) string { return v.prefix + id }

// Get loads and decodes the value at id. ok is false if no value is stored.
func (v *View[T]) Get(ctx context.Context, id string) (T, bool, error) {
	var zero T
	raw, err := v.store.Get(ctx, v.key(id))
	if err != nil {
		return zero, false, err
	}
	if raw == nil {
		return zero, false, nil
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, false, err
	}
	return out, true, nil
}

// Set encodes and stores value at id.
func (v *View[T]) Set(ctx context.Context, id string, value T) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return v.store.Set(ctx, v.key(id), raw)
}

// Delete removes the value at id.
func (v *View[T]) Delete(ctx context.Context, id string) error {
	return v.store.Set(ctx, v.key(id), nil)
}

// Watch streams decoded updates for id. A failure to decode a single update
// is reported via TypedUpdate.Err without closing the channel.
func (v *View[T]) Watch(ctx context.Context, id string, ready chan<- struct{}) (<-chan TypedUpdate[T], error) {
	raw, err := v.store.Watch(ctx, v.key(id), ready)
	if err != nil {
		return nil, err
	}
	out := make(chan TypedUpdate[T])
	go func() {
		defer close(out)
		for u := range raw {
			if u.Err != nil {
				out <- TypedUpdate[T]{Err: u.Err}
				continue
			}
			if !u.Present {
				out <- TypedUpdate[T]{Present: false}
				continue
			}
			var val T
			if err := json.Unmarshal(u.Value, &val); err != nil {
				out <- TypedUpdate[T]{Err: err}
				continue
			}
			out <- TypedUpdate[T]{Value: val, Present: true}
		}
	}()
	return out, nil
}

// TypedUpdate is the decoded counterpart of Update.
type TypedUpdate[T any] struct {
	Value   T
	Present bool
	Err     error
}
