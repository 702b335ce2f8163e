package agentlib

import (
	"context"

	"github.com/acp-project/acp-go/agent"
)

// Historian echoes back every message in its input, the shape of
// historian.py's "echo full session history" behavior. Unlike the
// original, which keeps its own package-global history map keyed by
// session id, this agent needs no memory of its own: the run-creation
// handler in transport/httpapi already prepends a session's prior
// completed runs' input and output (session.Store.History) to the input it
// hands the executor, so input.Input already is the full history by the
// time this agent sees it.
func Historian() agent.Adapter {
	return agent.FromAsyncGenerator(func(ctx context.Context, input agent.RunInput, y agent.Yielder) error {
		for _, msg := range input.Input {
			if err := y.Yield(ctx, agent.MessageYield(msg)); err != nil {
				return err
			}
		}
		return nil
	})
}
