// Package redisstore implements store.Store on Redis: values live as plain
// Redis keys (Get/Set), and Watch rides a goa.design/pulse stream per
// watched key, following the client/stream/sink layering of
// features/stream/pulse/clients/pulse. Pulse gives the watch side
// at-least-once delivery and consumer-group bookkeeping for free instead
// of hand-rolled Redis keyspace notifications.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"goa.design/pulse/streaming"
	streamopts "goa.design/pulse/streaming/options"

	"github.com/acp-project/acp-go/store"
)

// streamEvent is the only event name published on a key's Pulse stream;
// the payload is the JSON-encoded wire value, or the literal tombstone
// below when the key is deleted.
const streamEvent = "update"

var tombstone = []byte("null")

// Store is a store.Store backed by Redis, keyed by a namespace prefix so
// multiple Stores can safely share one Redis database.
type Store struct {
	redis     *redis.Client
	prefix    string
	streamFn  func(name string) []streamopts.Stream
	sinkGroup string
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix namespaces every Redis key and Pulse stream name under prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// WithStreamMaxLen bounds each key's Pulse stream length.
func WithStreamMaxLen(n int) Option {
	return func(s *Store) {
		s.streamFn = func(string) []streamopts.Stream {
			return []streamopts.Stream{streamopts.WithStreamMaxLen(n)}
		}
	}
}

// New constructs a Store backed by client.
func New(client *redis.Client, opts ...Option) *Store {
	s := &Store{redis: client, sinkGroup: "acp"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) redisKey(key string) string  { return s.prefix + key }
func (s *Store) streamName(key string) string { return s.prefix + "stream:" + key }

// Get implements store.Store.
func (s *Store) Get(ctx context.Context, key string) (json.RawMessage, error) {
	raw, err := s.redis.Get(ctx, s.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redisstore: get %s: %w", key, err)
	}
	return json.RawMessage(raw), nil
}

// Set implements store.Store: it writes (or deletes) the Redis key and
// publishes the new value on the key's Pulse stream so active watchers
// observe it.
func (s *Store) Set(ctx context.Context, key string, value json.RawMessage) error {
	strm, err := s.openStream(key)
	if err != nil {
		return err
	}
	if value == nil {
		if err := s.redis.Del(ctx, s.redisKey(key)).Err(); err != nil {
			return fmt.Errorf("redisstore: del %s: %w", key, err)
		}
		_, err := strm.Add(ctx, streamEvent, tombstone)
		return err
	}
	if err := s.redis.Set(ctx, s.redisKey(key), []byte(value), 0).Err(); err != nil {
		return fmt.Errorf("redisstore: set %s: %w", key, err)
	}
	_, err = strm.Add(ctx, streamEvent, []byte(value))
	return err
}

func (s *Store) openStream(key string) (*streaming.Stream, error) {
	var opts []streamopts.Stream
	if s.streamFn != nil {
		opts = s.streamFn(key)
	}
	strm, err := streaming.NewStream(s.streamName(key), s.redis, opts...)
	if err != nil {
		return nil, fmt.Errorf("redisstore: open stream for %s: %w", key, err)
	}
	return strm, nil
}

// Watch implements store.Store by reading the current Redis value, then
// subscribing a fresh Pulse consumer group on the key's stream so every
// subsequent Set is delivered, even ones made from another process.
func (s *Store) Watch(ctx context.Context, key string, ready chan<- struct{}) (<-chan store.Update, error) {
	current, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	strm, err := s.openStream(key)
	if err != nil {
		return nil, err
	}
	sink, err := strm.NewSink(ctx, fmt.Sprintf("%s-%d", s.sinkGroup, time.Now().UnixNano()))
	if err != nil {
		return nil, fmt.Errorf("redisstore: sink for %s: %w", key, err)
	}

	out := make(chan store.Update, 16)
	go func() {
		defer close(out)
		defer sink.Close(context.Background())

		if current != nil {
			select {
			case out <- store.Update{Value: current, Present: true}:
			case <-ctx.Done():
				return
			}
		}
		if ready != nil {
			close(ready)
		}

		events := sink.Subscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case evt, open := <-events:
				if !open {
					return
				}
				update := decodeUpdate(evt.Payload)
				select {
				case out <- update:
				case <-ctx.Done():
					return
				}
				_ = sink.Ack(ctx, evt)
			}
		}
	}()
	return out, nil
}

func decodeUpdate(payload []byte) store.Update {
	if string(payload) == string(tombstone) {
		return store.Update{Present: false}
	}
	return store.Update{Value: json.RawMessage(payload), Present: true}
}
