// Package httpapi exposes the run engine over HTTP: agent discovery,
// run creation in its three projections (sync/async/stream), run and
// session lookup, and resume/cancel, the way example/cmd/assistant/main.go
// wires generated Goa endpoints onto net/http — except here the routes
// are hand-mounted on a standard library ServeMux, since there is no Goa
// design to generate a transport from.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/time/rate"

	"github.com/acp-project/acp-go/acplog"
	"github.com/acp-project/acp-go/acpmodel"
	"github.com/acp-project/acp-go/agent"
	"github.com/acp-project/acp-go/hooks"
	"github.com/acp-project/acp-go/session"
	"github.com/acp-project/acp-go/store"
)

// AgentEntry is one agent registered with the server: its adapter plus the
// descriptor surfaced on GET /agents.
type AgentEntry struct {
	Descriptor AgentDescriptor
	Adapter    agent.Adapter
}

// Server wires agents, stores, and ancillary middleware into an
// http.Handler implementing spec.md §6's HTTP surface.
type Server struct {
	agents       map[string]AgentEntry
	runStore     *store.View[acpmodel.RunData]
	cancelStore  store.Store
	resumeStore  *store.View[acpmodel.AwaitResume]
	sessionStore *session.Store
	bus          hooks.Bus
	schemas      *schemas
	inputSchemas map[string]*jsonschema.Schema
	rateLimit    rate.Limit
	rateBurst    int
	now          func() time.Time
}

// Config collects the dependencies New assembles into a Server.
type Config struct {
	Agents       map[string]AgentEntry
	RunStore     *store.View[acpmodel.RunData]
	CancelStore  store.Store
	ResumeStore  *store.View[acpmodel.AwaitResume]
	SessionStore *session.Store
	Bus          hooks.Bus

	// RateLimit and RateBurst configure per-client-IP throttling; RateLimit
	// <= 0 disables it.
	RateLimit rate.Limit
	RateBurst int
}

// New compiles the request schemas and returns a Server ready to be
// wrapped in a Handler.
func New(cfg Config) (*Server, error) {
	sch, err := compileSchemas()
	if err != nil {
		return nil, err
	}
	inputSchemas := make(map[string]*jsonschema.Schema, len(cfg.Agents))
	for name, entry := range cfg.Agents {
		if len(entry.Descriptor.InputSchema) == 0 {
			continue
		}
		schema, err := compileAgentInputSchema(name, entry.Descriptor.InputSchema)
		if err != nil {
			return nil, err
		}
		inputSchemas[name] = schema
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}
	return &Server{
		agents:       cfg.Agents,
		runStore:     cfg.RunStore,
		cancelStore:  cfg.CancelStore,
		resumeStore:  cfg.ResumeStore,
		sessionStore: cfg.SessionStore,
		bus:          cfg.Bus,
		schemas:      sch,
		inputSchemas: inputSchemas,
		rateLimit:    cfg.RateLimit,
		rateBurst:    burst,
		now:          time.Now,
	}, nil
}

// Handler returns the fully-mounted, middleware-wrapped HTTP handler.
func (s *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", s.handlePing)
	mux.HandleFunc("GET /agents", s.handleListAgents)
	mux.HandleFunc("GET /agents/{name}", s.handleGetAgent)
	mux.HandleFunc("POST /runs", s.handleCreateRun)
	mux.HandleFunc("GET /runs/{id}", s.handleGetRun)
	mux.HandleFunc("GET /runs/{id}/events", s.handleRunEvents)
	mux.HandleFunc("POST /runs/{id}", s.handleResumeRun)
	mux.HandleFunc("POST /runs/{id}/cancel", s.handleCancelRun)
	mux.HandleFunc("GET /sessions/{id}", s.handleGetSession)

	var h http.Handler = mux
	h = RateLimit(ctx, s.rateLimit, s.rateBurst)(h)
	h = acplog.Middleware(ctx)(h)
	return h
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func newRunID(agentName string) string {
	return fmt.Sprintf("%s-%s", agentName, uuid.NewString())
}
