// Package agent normalizes the four shapes an agent function can take
// (async generator, async function, sync generator, sync function) into a
// single Adapter that yields a uniform stream of RunYield values, the way
// runtime/agent/engine.Engine normalizes multiple workflow backends behind
// one interface. The executor package only ever talks to an Adapter.
package agent

import (
	"context"

	"github.com/acp-project/acp-go/acpmodel"
)

type (
	// Message, MessagePart, AwaitRequest, and AwaitResume are the wire
	// types agents and adapters exchange; aliased here so adapter code
	// reads without an acpmodel. qualifier on every use.
	Message      = acpmodel.Message
	MessagePart  = acpmodel.MessagePart
	AwaitRequest = acpmodel.AwaitRequest
	AwaitResume  = acpmodel.AwaitResume
)

// TextPart builds a plain text/plain MessagePart from a string.
func TextPart(text string) MessagePart { return acpmodel.TextPart(text) }

type (
	// Adapter runs an agent against RunInput and streams back RunYield
	// values until the agent finishes, is cancelled, or fails. resumes
	// delivers the AwaitResume answering each YieldAwait the agent
	// produces, one value per await, in order; the executor is the sole
	// writer to this channel.
	Adapter interface {
		// Run starts the agent and returns a channel of yields. The channel
		// is closed when the agent finishes producing output; a final
		// RunYield with a non-nil Err, if any, precedes the close.
		// Implementations must stop producing yields promptly once ctx is
		// done.
		Run(ctx context.Context, input RunInput, resumes <-chan AwaitResume) <-chan RunYield
	}

	// RunInput is what the executor hands to an Adapter to start a run.
	RunInput struct {
		// RunID identifies the run the adapter executes on behalf of.
		RunID string
		// Input is the caller-supplied message list that started the run,
		// with any prior session history already prepended by the caller.
		Input []Message
	}

	// RunYield is one value produced by a running agent. Exactly one of
	// the typed fields is meaningful, selected by Kind.
	RunYield struct {
		Kind    YieldKind
		Message *Message
		Part    *MessagePart
		Await   *AwaitRequest
		Payload any
		Err     error
	}

	// YieldKind discriminates the RunYield tagged union.
	YieldKind string
)

const (
	// YieldMessage carries a complete Message.
	YieldMessage YieldKind = "message"
	// YieldPart carries a single MessagePart appended to the run's
	// currently open implicit output message.
	YieldPart YieldKind = "part"
	// YieldAwait carries an AwaitRequest that suspends the run.
	YieldAwait YieldKind = "await"
	// YieldGeneric carries an arbitrary object surfaced for observability
	// only (spec.md §4.1's "generic" yield).
	YieldGeneric YieldKind = "generic"
	// YieldError carries a terminal error; no further yields follow.
	YieldError YieldKind = "error"
)

// MessageYield builds a YieldMessage RunYield.
func MessageYield(m Message) RunYield { return RunYield{Kind: YieldMessage, Message: &m} }

// PartYield builds a YieldPart RunYield.
func PartYield(p MessagePart) RunYield { return RunYield{Kind: YieldPart, Part: &p} }

// TextYield builds a YieldPart RunYield from a raw string, the shape
// implied when an agent yields a bare string instead of a MessagePart.
func TextYield(text string) RunYield { return PartYield(TextPart(text)) }

// AwaitYield builds a YieldAwait RunYield.
func AwaitYield(req AwaitRequest) RunYield { return RunYield{Kind: YieldAwait, Await: &req} }

// GenericYield builds a YieldGeneric RunYield.
func GenericYield(payload any) RunYield { return RunYield{Kind: YieldGeneric, Payload: payload} }

// ErrorYield builds a YieldError RunYield.
func ErrorYield(err error) RunYield { return RunYield{Kind: YieldError, Err: err} }
