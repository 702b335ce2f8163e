package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/acp-project/acp-go/store"
)

var (
	testRedisClient *goredis.Client
	skipRedisTests  bool
)

func getRedisStore(t *testing.T) *Store {
	t.Helper()
	if testRedisClient == nil && !skipRedisTests {
		setupTestRedis(t)
	}
	if skipRedisTests {
		t.Skip("Docker not available, skipping redisstore integration test")
	}
	return New(testRedisClient, WithPrefix(t.Name()+":"))
}

func setupTestRedis(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			skipRedisTests = true
		}
	}()
	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		skipRedisTests = true
		return
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	addr, err := container.ConnectionString(ctx)
	if err != nil {
		skipRedisTests = true
		return
	}
	opts, err := goredis.ParseURL(addr)
	if err != nil {
		skipRedisTests = true
		return
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		skipRedisTests = true
		return
	}
	testRedisClient = client
}

func TestRedisStoreGetSetRoundTrip(t *testing.T) {
	s := getRedisStore(t)
	ctx := context.Background()

	raw, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, raw)

	require.NoError(t, s.Set(ctx, "k", json.RawMessage(`{"a":1}`)))
	raw, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(raw))
}

func TestRedisStoreSetNilDeletesKey(t *testing.T) {
	s := getRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", json.RawMessage(`{"a":1}`)))
	require.NoError(t, s.Set(ctx, "k", nil))

	raw, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestRedisStoreWatchObservesSubsequentSets(t *testing.T) {
	s := getRedisStore(t)
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

	require.NoError(t, s.Set(ctx, "k", json.RawMessage(fmt.Sprintf(`{"n":%d}`, 1))))

	select {
	case u := <-updates:
		require.True(t, u.Present)
		assert.JSONEq(t, `{"n":1}`, string(u.Value))
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for update")
	}

	require.NoError(t, s.Set(ctx, "k", nil))
	select {
	case u := <-updates:
		assert.False(t, u.Present)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for delete update")
	}
}

func TestRedisStoreImplementsStoreInterface(t *testing.T) {
	var _ store.Store = (*Store)(nil)
}
