package redisstore

import (
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acp-project/acp-go/store"
)

func TestDecodeUpdatePresentValue(t *testing.T) {
	u := decodeUpdate([]byte(`{"hello":"world"}`))
	assert.True(t, u.Present)
	assert.JSONEq(t, `{"hello":"world"}`, string(u.Value))
}

func TestDecodeUpdateTombstoneIsAbsent(t *testing.T) {
	u := decodeUpdate(tombstone)
	assert.Equal(t, store.Update{Present: false}, u)
}

func TestKeyAndStreamNamesAreNamespacedByPrefix(t *testing.T) {
	s := New(redis.NewClient(&redis.Options{}), WithPrefix("acp:"))
	assert.Equal(t, "acp:run:1", s.redisKey("run:1"))
	assert.Equal(t, "acp:stream:run:1", s.streamName("run:1"))
}

func TestWithStreamMaxLenConfiguresStreamOptions(t *testing.T) {
	s := New(redis.NewClient(&redis.Options{}), WithStreamMaxLen(100))
	require.NotNil(t, s.streamFn)
	opts := s.streamFn("k")
	assert.Len(t, opts, 1)
}
