package httpapi

import (
	"net/http"

	"github.com/acp-project/acp-go/acperr"
)

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	out := make([]AgentDescriptor, 0, len(s.agents))
	for _, entry := range s.agents {
		out = append(out, entry.Descriptor)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	entry, ok := s.agents[name]
	if !ok {
		writeError(w, acperr.NotFoundf("agent %q not found", name))
		return
	}
	writeJSON(w, http.StatusOK, entry.Descriptor)
}
