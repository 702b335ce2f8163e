package agentlib

import (
	"context"
	"errors"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/acp-project/acp-go/agent"
)

// MessagesClient is the subset of the Anthropic SDK client this agent
// needs, mirroring features/model/anthropic/client.go's MessagesClient
// interface so a test double can stand in for the real service.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// LLM builds an AsyncFunctionFunc-shaped agent that forwards its input as
// a single Anthropic Messages request and returns the completion as one
// output message, the shape of llm.py minus the beeai_framework ReAct
// loop (no tools are wired; spec.md's example catalog only needs to
// exercise the external-LLM-collaborator boundary, not a full agent
// framework).
func LLM(client MessagesClient, model string, maxTokens int) agent.Adapter {
	return agent.FromAsyncFunction(func(ctx context.Context, input agent.RunInput) ([]agent.Message, error) {
		if len(input.Input) == 0 {
			return nil, errors.New("agentlib: llm agent requires at least one input message")
		}
		msgs := make([]sdk.MessageParam, 0, len(input.Input))
		for _, m := range input.Input {
			msgs = append(msgs, sdk.NewUserMessage(sdk.NewTextBlock(flatten(m))))
		}
		resp, err := client.New(ctx, sdk.MessageNewParams{
			Model:     sdk.Model(model),
			MaxTokens: int64(maxTokens),
			Messages:  msgs,
		})
		if err != nil {
			return nil, fmt.Errorf("agentlib: anthropic messages.new: %w", err)
		}
		var text string
		for _, block := range resp.Content {
			if block.Type == "text" {
				text += block.Text
			}
		}
		return []agent.Message{{Parts: []agent.MessagePart{agent.TextPart(text)}}}, nil
	})
}

func flatten(m agent.Message) string {
	var out string
	for _, part := range m.Parts {
		out += part.Content
	}
	return out
}
