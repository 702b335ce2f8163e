package acpmodel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStatusTerminal(t *testing.T) {
	terminal := []RunStatus{StatusCompleted, StatusCancelled, StatusFailed}
	for _, s := range terminal {
		assert.True(t, s.Terminal(), "%s should be terminal", s)
	}

	nonTerminal := []RunStatus{StatusCreated, StatusInProgress, StatusAwaiting, StatusCancelling}
	for _, s := range nonTerminal {
		assert.False(t, s.Terminal(), "%s should not be terminal", s)
	}
}

func TestRunDataCloneIsDeep(t *testing.T) {
	finishedAt := time.Now()
	orig := RunData{
		Run: Run{
			ID:           "echo-1",
			Status:       StatusAwaiting,
			AwaitRequest: &AwaitRequest{Kind: KindMessage, Message: &Message{Role: "agent/echo"}},
			Output:       []Message{{Role: "user", Parts: []MessagePart{TextPart("hi")}}},
			Error:        &Error{Code: "server_error", Message: "boom"},
			FinishedAt:   &finishedAt,
			Labels:       map[string]string{"env": "test"},
			Metadata:     map[string]any{"k": "v"},
		},
		Events: []Event{{Type: EventRunCreated, Timestamp: finishedAt}},
	}

	clone := orig.Clone()

	// Mutate every pointer/slice/map field on the clone and confirm the
	// original is untouched.
	clone.Run.AwaitRequest.Kind = "mutated"
	clone.Run.Output[0].Parts[0].Content = "mutated"
	clone.Run.Error.Message = "mutated"
	*clone.Run.FinishedAt = finishedAt.Add(time.Hour)
	clone.Run.Labels["env"] = "mutated"
	clone.Run.Metadata["k"] = "mutated"
	clone.Events[0].Type = "mutated"

	require.NotNil(t, orig.Run.AwaitRequest)
	assert.Equal(t, KindMessage, orig.Run.AwaitRequest.Kind)
	assert.Equal(t, "hi", orig.Run.Output[0].Parts[0].Content)
	assert.Equal(t, "boom", orig.Run.Error.Message)
	assert.Equal(t, finishedAt, *orig.Run.FinishedAt)
	assert.Equal(t, "test", orig.Run.Labels["env"])
	assert.Equal(t, "v", orig.Run.Metadata["k"])
	assert.Equal(t, EventRunCreated, orig.Events[0].Type)
}

func TestRunDataCloneHandlesNilOptionalFields(t *testing.T) {
	orig := RunData{Run: Run{ID: "echo-1", Status: StatusCreated}}
	clone := orig.Clone()
	assert.Equal(t, orig, clone)
	assert.Nil(t, clone.Run.AwaitRequest)
	assert.Nil(t, clone.Run.Error)
	assert.Nil(t, clone.Events)
}
