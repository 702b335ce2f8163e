package agentlib

import (
	"context"
	"fmt"

	"github.com/acp-project/acp-go/acpmodel"
	"github.com/acp-project/acp-go/agent"
)

// Awaiter greets the caller, suspends on a message AwaitRequest asking for
// additional configuration, and echoes back what it received, the shape
// of awaiting.py.
func Awaiter() agent.Adapter {
	return agent.FromAsyncGenerator(func(ctx context.Context, input agent.RunInput, y agent.Yielder) error {
		if err := y.Yield(ctx, agent.TextYield("Hello!")); err != nil {
			return err
		}
		resume, err := y.Await(ctx, agent.AwaitRequest{
			Kind: acpmodel.KindMessage,
			Message: &agent.Message{
				Parts: []agent.MessagePart{agent.TextPart("Can you provide me with additional configuration?")},
			},
		})
		if err != nil {
			return err
		}
		var received string
		if resume.Message != nil {
			for _, part := range resume.Message.Parts {
				received += part.Content
			}
		}
		return y.Yield(ctx, agent.TextYield(fmt.Sprintf("Thanks for config: %s", received)))
	})
}
