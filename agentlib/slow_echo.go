package agentlib

import (
	"context"
	"time"

	"github.com/acp-project/acp-go/agent"
	"github.com/acp-project/acp-go/agent/workerpool"
)

// SlowEcho is the blocking, generator-shaped analogue of Echo: it yields a
// thought then the echoed messages, but runs on pool since the function
// blocks its calling goroutine for the run's duration, the shape of
// multi-echo.py's gen_echo/sync_echo pair.
func SlowEcho(pool *workerpool.Pool) agent.Adapter {
	return agent.FromSyncGenerator(func(ctx context.Context, input agent.RunInput, y agent.Yielder) error {
		if err := y.Yield(ctx, agent.GenericYield(map[string]string{"thought": "I should echo everything, slowly"})); err != nil {
			return err
		}
		for _, msg := range input.Input {
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
			if err := y.Yield(ctx, agent.MessageYield(msg)); err != nil {
				return err
			}
		}
		return nil
	}, pool)
}
