// Package agentlib is a small catalog of example agents exercising each
// of the four adapter shapes, grounded on
// original_source/examples/python/basic/servers/{echo,awaiting,llm}.py
// and original_source/python/examples/servers/{historian,sync_echo}.py.
package agentlib

import (
	"context"
	"time"

	"github.com/acp-project/acp-go/agent"
)

// Echo yields a "thought" generic event before echoing each input message
// back verbatim, the async-generator shape of echo.py.
func Echo() agent.Adapter {
	return agent.FromAsyncGenerator(func(ctx context.Context, input agent.RunInput, y agent.Yielder) error {
		for _, msg := range input.Input {
			if err := sleepCtx(ctx, 500*time.Millisecond); err != nil {
				return err
			}
			if err := y.Yield(ctx, agent.GenericYield(map[string]string{"thought": "I should echo everything"})); err != nil {
				return err
			}
			if err := sleepCtx(ctx, 500*time.Millisecond); err != nil {
				return err
			}
			if err := y.Yield(ctx, agent.MessageYield(msg)); err != nil {
				return err
			}
		}
		return nil
	})
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
