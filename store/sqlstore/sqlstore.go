// Package sqlstore implements store.Store on a single-table Postgres
// schema (key TEXT primary key, value JSONB) using jackc/pgx/v5, with
// Watch served by a dedicated LISTEN connection and pg_notify, the way
// codeready-toolchain-tarsy's pkg/events.NotifyListener dedicates one
// connection to WaitForNotification so it never races application
// queries for the same socket.
package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/acp-project/acp-go/store"
)

const (
	notifyChannel = "acp_store_updates"
	defaultTable  = "acp_store"
)

// notification is the JSON payload carried on NOTIFY acp_store_updates.
// It carries only the key and whether a value is present, never the value
// itself (Postgres caps NOTIFY payloads at 8000 bytes); dispatch re-reads
// the current value with Get before handing it to Watch subscribers.
type notification struct {
	Key     string `json:"key"`
	Present bool   `json:"present"`
}

// Store is a store.Store backed by Postgres.
type Store struct {
	pool  *pgxpool.Pool
	table string

	mu   sync.RWMutex
	subs map[string]map[*subscriber]struct{}

	listenConn *pgx.Conn
	cancel     context.CancelFunc
	done       chan struct{}
}

type subscriber struct {
	ch chan store.Update
}

// Option configures a Store.
type Option func(*Store)

// WithTable overrides the default table name (acp_store).
func WithTable(name string) Option {
	return func(s *Store) { s.table = name }
}

// New creates the backing table if needed and starts the LISTEN receive
// loop on a dedicated connection acquired from connString.
func New(ctx context.Context, pool *pgxpool.Pool, connString string, opts ...Option) (*Store, error) {
	s := &Store{
		pool:  pool,
		table: defaultTable,
		subs:  make(map[string]map[*subscriber]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		key   TEXT PRIMARY KEY,
		value JSONB
	)`, pgx.Identifier{s.table}.Sanitize())
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return nil, fmt.Errorf("sqlstore: create table: %w", err)
	}

	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listen connection: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("sqlstore: listen %s: %w", notifyChannel, err)
	}
	s.listenConn = conn

	loopCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.receiveLoop(loopCtx)

	return s, nil
}

// Close stops the receive loop and closes the dedicated LISTEN connection.
func (s *Store) Close(ctx context.Context) error {
	s.cancel()
	<-s.done
	return s.listenConn.Close(ctx)
}

func (s *Store) receiveLoop(ctx context.Context) {
	defer close(s.done)
	for {
		if ctx.Err() != nil {
			return
		}
		notif, err := s.listenConn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("sqlstore: notify receive error", "error", err)
			time.Sleep(time.Second)
			continue
		}
		var n notification
		if err := json.Unmarshal([]byte(notif.Payload), &n); err != nil {
			slog.Error("sqlstore: malformed notification payload", "error", err)
			continue
		}
		s.dispatch(ctx, n)
	}
}

func (s *Store) dispatch(ctx context.Context, n notification) {
	s.mu.RLock()
	subs := make([]*subscriber, 0, len(s.subs[n.Key]))
	for sub := range s.subs[n.Key] {
		subs = append(subs, sub)
	}
	s.mu.RUnlock()
	if len(subs) == 0 {
		return
	}

	update := store.Update{Present: n.Present}
	if n.Present {
		raw, err := s.Get(ctx, n.Key)
		if err != nil {
			update = store.Update{Err: err}
		} else {
			update.Value = raw
		}
	}
	for _, sub := range subs {
		func() {
			defer func() { recover() }()
			sub.ch <- update
		}()
	}
}

// Get implements store.Store.
func (s *Store) Get(ctx context.Context, key string) (json.RawMessage, error) {
	query := fmt.Sprintf("SELECT value FROM %s WHERE key = $1", pgx.Identifier{s.table}.Sanitize())
	var raw []byte
	err := s.pool.QueryRow(ctx, query, key).Scan(&raw)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore: get %s: %w", key, err)
	}
	return json.RawMessage(raw), nil
}

// Set implements store.Store, upserting or deleting the row and notifying
// watchers via pg_notify in the same statement's transaction.
func (s *Store) Set(ctx context.Context, key string, value json.RawMessage) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("sqlstore: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	table := pgx.Identifier{s.table}.Sanitize()
	n := notification{Key: key}
	if value == nil {
		if _, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE key = $1", table), key); err != nil {
			return fmt.Errorf("sqlstore: delete %s: %w", key, err)
		}
	} else {
		upsert := fmt.Sprintf(`INSERT INTO %s (key, value) VALUES ($1, $2)
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, table)
		if _, err := tx.Exec(ctx, upsert, key, []byte(value)); err != nil {
			return fmt.Errorf("sqlstore: upsert %s: %w", key, err)
		}
		n.Present = true
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("sqlstore: marshal notification: %w", err)
	}
	if _, err := tx.Exec(ctx, "SELECT pg_notify($1, $2)", notifyChannel, string(payload)); err != nil {
		return fmt.Errorf("sqlstore: notify: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("sqlstore: commit: %w", err)
	}
	return nil
}

// Watch implements store.Store by registering a local subscriber fed from
// the store's single shared LISTEN connection (dispatch fans out by key).
func (s *Store) Watch(ctx context.Context, key string, ready chan<- struct{}) (<-chan store.Update, error) {
	current, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	sub := &subscriber{ch: make(chan store.Update, 16)}
	s.mu.Lock()
	if s.subs[key] == nil {
		s.subs[key] = make(map[*subscriber]struct{})
	}
	s.subs[key][sub] = struct{}{}
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
		}()

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
