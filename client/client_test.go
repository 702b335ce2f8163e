package client_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acp-project/acp-go/acplog"
	"github.com/acp-project/acp-go/acpmodel"
	"github.com/acp-project/acp-go/agent"
	"github.com/acp-project/acp-go/client"
	"github.com/acp-project/acp-go/hooks"
	"github.com/acp-project/acp-go/session"
	"github.com/acp-project/acp-go/store"
	"github.com/acp-project/acp-go/store/memstore"
	"github.com/acp-project/acp-go/transport/httpapi"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	backend := memstore.New()
	t.Cleanup(backend.Close)

	echo := agent.FromAsyncFunction(func(ctx context.Context, input agent.RunInput) ([]agent.Message, error) {
		return input.Input, nil
	})
	awaiter := agent.FromAsyncGenerator(func(ctx context.Context, input agent.RunInput, y agent.Yielder) error {
		resume, err := y.Await(ctx, agent.AwaitRequest{Kind: acpmodel.KindMessage})
		if err != nil {
			return err
		}
		return y.Yield(ctx, agent.MessageYield(*resume.Message))
	})

	srv, err := httpapi.New(httpapi.Config{
		Agents: map[string]httpapi.AgentEntry{
			"echo":    {Descriptor: httpapi.AgentDescriptor{Name: "echo"}, Adapter: echo},
			"awaiter": {Descriptor: httpapi.AgentDescriptor{Name: "awaiter"}, Adapter: awaiter},
		},
		RunStore:     store.NewView[acpmodel.RunData](backend, "run:"),
		CancelStore:  backend,
		ResumeStore:  store.NewView[acpmodel.AwaitResume](backend, "resume:"),
		SessionStore: session.NewStore(backend, "session:"),
		Bus:          hooks.NewBus(),
	})
	require.NoError(t, err)

	ctx := acplog.NewContext(context.Background(), acplog.Config{})
	ts := httptest.NewServer(srv.Handler(ctx))
	t.Cleanup(ts.Close)
	return ts
}

func userMessage(text string) acpmodel.Message {
	return acpmodel.Message{Role: "user", Parts: []acpmodel.MessagePart{acpmodel.TextPart(text)}}
}

func TestClientAgentsListsRegisteredAgents(t *testing.T) {
	ts := newTestServer(t)
	c := client.New(ts.URL)

	agents, err := c.Agents(context.Background())
	require.NoError(t, err)
	assert.Len(t, agents, 2)
}

func TestClientRunSyncReturnsCompletedRun(t *testing.T) {
	ts := newTestServer(t)
	c := client.New(ts.URL)

	run, err := c.RunSync(context.Background(), "echo", []acpmodel.Message{userMessage("hi")})
	require.NoError(t, err)
	assert.Equal(t, acpmodel.StatusCompleted, run.Status)
	require.Len(t, run.Output, 1)
	assert.Equal(t, "hi", run.Output[0].Parts[0].Content)
	assert.NotEmpty(t, run.SessionID)
	assert.Equal(t, run.SessionID, c.SessionID)
}

func TestClientRunStatusFetchesSnapshot(t *testing.T) {
	ts := newTestServer(t)
	c := client.New(ts.URL)

	run, err := c.RunSync(context.Background(), "echo", []acpmodel.Message{userMessage("hi")})
	require.NoError(t, err)

	got, err := c.RunStatus(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, acpmodel.StatusCompleted, got.Status)
}

func TestClientRunResumeSyncCompletesAwaitingRun(t *testing.T) {
	ts := newTestServer(t)
	c := client.New(ts.URL)

	run, err := c.RunAsync(context.Background(), "awaiter", nil)
	require.NoError(t, err)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && run.Status != acpmodel.StatusAwaiting {
		run, err = c.RunStatus(context.Background(), run.ID)
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, acpmodel.StatusAwaiting, run.Status)

	resumed, err := c.RunResumeSync(context.Background(), run.ID, acpmodel.AwaitResume{
		Kind:    acpmodel.KindMessage,
		Message: &acpmodel.Message{Role: "user", Parts: []acpmodel.MessagePart{acpmodel.TextPart("42")}},
	})
	require.NoError(t, err)
	assert.Equal(t, acpmodel.StatusCompleted, resumed.Status)
	require.Len(t, resumed.Output, 1)
	assert.Equal(t, "42", resumed.Output[0].Parts[0].Content)
}

func TestClientRunCancelReturnsCancellingOverlay(t *testing.T) {
	ts := newTestServer(t)
	c := client.New(ts.URL)

	run, err := c.RunAsync(context.Background(), "awaiter", nil)
	require.NoError(t, err)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && run.Status != acpmodel.StatusAwaiting {
		run, err = c.RunStatus(context.Background(), run.ID)
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, acpmodel.StatusAwaiting, run.Status)

	overlay, err := c.RunCancel(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, acpmodel.StatusCancelling, overlay.Status)
}

func TestClientRunStreamEmitsEventsUntilClosed(t *testing.T) {
	ts := newTestServer(t)
	c := client.New(ts.URL)

	events, err := c.RunStream(context.Background(), "echo", []acpmodel.Message{userMessage("hi")})
	require.NoError(t, err)

	var sawCompleted bool
	deadline := time.After(3 * time.Second)
	for {
		select {
		case evt, open := <-events:
			if !open {
				assert.True(t, sawCompleted)
				return
			}
			if evt.Type == acpmodel.EventRunCompleted {
				sawCompleted = true
			}
		case <-deadline:
			t.Fatal("timed out waiting for stream to close")
		}
	}
}

func TestClientAgentUnknownReturnsError(t *testing.T) {
	ts := newTestServer(t)
	c := client.New(ts.URL)

	_, err := c.RunSync(context.Background(), "does-not-exist", []acpmodel.Message{userMessage("hi")})
	assert.Error(t, err)
}
