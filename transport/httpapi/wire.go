package httpapi

import (
	"encoding/json"

	"github.com/acp-project/acp-go/acpmodel"
)

// Mode selects how POST /runs (and resume) projects the executor's event
// stream to the caller (spec.md §4.5).
type Mode string

const (
	ModeSync   Mode = "sync"
	ModeAsync  Mode = "async"
	ModeStream Mode = "stream"
)

// CreateRunRequest is the POST /runs body.
type CreateRunRequest struct {
	AgentName string             `json:"agent_name"`
	SessionID string             `json:"session_id,omitempty"`
	Session   *WireSession       `json:"session,omitempty"`
	Input     []acpmodel.Message `json:"input"`
	Mode      Mode               `json:"mode"`
}

// WireSession is the client-forwarded Session value accepted for the
// distributed-session adoption mechanism of spec.md §4.4.
type WireSession struct {
	ID     string   `json:"session_id"`
	RunIDs []string `json:"run_ids"`
}

// ResumeRequest is the POST /runs/{id} body.
type ResumeRequest struct {
	AwaitResume acpmodel.AwaitResume `json:"await_resume"`
	Mode        Mode                 `json:"mode"`
}

// AgentDescriptor describes one registered agent for GET /agents and
// GET /agents/{name}.
type AgentDescriptor struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	// InputSchema, when set, is a JSON Schema that every "application/json"
	// input part of a run created against this agent must validate against.
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
}

// ErrorBody is the wire error shape of spec.md §7.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
