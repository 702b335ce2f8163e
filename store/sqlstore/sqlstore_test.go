package sqlstore

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acp-project/acp-go/store"
)

func TestNotificationRoundTrip(t *testing.T) {
	n := notification{Key: "run:1", Present: true}
	raw, err := json.Marshal(n)
	require.NoError(t, err)

	var got notification
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, n, got)
}

func TestWithTableOverridesDefault(t *testing.T) {
	s := &Store{table: defaultTable}
	WithTable("custom_table")(s)
	assert.Equal(t, "custom_table", s.table)
}

func TestDispatchFansOutToRegisteredSubscribers(t *testing.T) {
	s := &Store{subs: make(map[string]map[*subscriber]struct{})}
	sub := &subscriber{ch: make(chan store.Update, 1)}
	s.subs["run:1"] = map[*subscriber]struct{}{sub: {}}

	s.dispatch(context.Background(), notification{Key: "run:1", Present: false})

	select {
	case u := <-sub.ch:
		assert.False(t, u.Present)
	default:
		t.Fatal("expected dispatch to deliver an update")
	}
}

func TestDispatchSkipsKeysWithNoSubscribers(t *testing.T) {
	s := &Store{subs: make(map[string]map[*subscriber]struct{})}
	// Must not panic even though "run:1" has no registered subscriber.
	s.dispatch(context.Background(), notification{Key: "run:1", Present: true})
}

func TestDispatchRecoversFromClosedSubscriberChannel(t *testing.T) {
	s := &Store{subs: make(map[string]map[*subscriber]struct{})}
	sub := &subscriber{ch: make(chan store.Update, 1)}
	close(sub.ch)
	s.subs["run:1"] = map[*subscriber]struct{}{sub: {}}

	assert.NotPanics(t, func() {
		s.dispatch(context.Background(), notification{Key: "run:1", Present: false})
	})
}
