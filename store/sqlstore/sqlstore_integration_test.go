package sqlstore

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/acp-project/acp-go/store"
)

var (
	testPool     *pgxpool.Pool
	testConnStr  string
	skipSQLTests bool
)

func setupTestPostgres(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			skipSQLTests = true
		}
	}()
	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("acp_test"),
		postgres.WithUsername("acp"),
		postgres.WithPassword("acp"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		skipSQLTests = true
		return
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		skipSQLTests = true
		return
	}
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		skipSQLTests = true
		return
	}
	if err := pool.Ping(ctx); err != nil {
		skipSQLTests = true
		return
	}
	testPool = pool
	testConnStr = connStr
}

func getSQLStore(t *testing.T) *Store {
	t.Helper()
	if testPool == nil && !skipSQLTests {
		setupTestPostgres(t)
	}
	if skipSQLTests {
		t.Skip("Docker not available, skipping sqlstore integration test")
	}
	ctx := context.Background()
	s, err := New(ctx, testPool, testConnStr, WithTable("acp_store_"+t.Name()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func TestSQLStoreGetSetRoundTrip(t *testing.T) {
	s := getSQLStore(t)
	ctx := context.Background()

	raw, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, raw)

	require.NoError(t, s.Set(ctx, "k", json.RawMessage(`{"a":1}`)))
	raw, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(raw))
}

func TestSQLStoreSetNilDeletesKey(t *testing.T) {
	s := getSQLStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", json.RawMessage(`{"a":1}`)))
	require.NoError(t, s.Set(ctx, "k", nil))

	raw, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestSQLStoreWatchObservesNotifications(t *testing.T) {
	s := getSQLStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ready := make(chan struct{})
	updates, err := s.Watch(ctx, "k", ready)
	require.NoError(t, err)

	select {
	case <-ready:
	case <-time.After(5 * time.Second):
		t.Fatal("watch never became ready")
	}

	require.NoError(t, s.Set(ctx, "k", json.RawMessage(`{"n":1}`)))

	select {
	case u := <-updates:
		require.True(t, u.Present)
		assert.JSONEq(t, `{"n":1}`, string(u.Value))
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
}

func TestSQLStoreImplementsStoreInterface(t *testing.T) {
	var _ store.Store = (*Store)(nil)
}
