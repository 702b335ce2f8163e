package agentlib

import (
	"github.com/acp-project/acp-go/agent"
	"github.com/acp-project/acp-go/agent/workerpool"
)

// Descriptor names one catalog agent alongside its adapter.
type Descriptor struct {
	Name        string
	Description string
	Adapter     agent.Adapter
}

// Catalog returns the built-in example agents: echo, slow_echo, awaiter,
// and historian. pool bounds the synchronous-shaped agents (slow_echo).
// The LLM example agent is registered separately by cmd/acp-server, since
// it needs a configured Anthropic client.
func Catalog(pool *workerpool.Pool) []Descriptor {
	return []Descriptor{
		{Name: "echo", Description: "Echoes everything", Adapter: Echo()},
		{Name: "slow_echo", Description: "Echoes everything, slowly, from a worker pool", Adapter: SlowEcho(pool)},
		{Name: "awaiter", Description: "Greets and awaits for more data", Adapter: Awaiter()},
		{Name: "historian", Description: "Echoes full session history", Adapter: Historian()},
	}
}
