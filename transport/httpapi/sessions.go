package httpapi

import (
	"net/http"

	"github.com/acp-project/acp-go/acperr"
)

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess, err := s.sessionStore.Get(r.Context(), id)
	if err != nil {
		writeError(w, acperr.Wrap(acperr.ServerError, err))
		return
	}
	if len(sess.RunIDs) == 0 {
		writeError(w, acperr.NotFoundf("session %q not found", id))
		return
	}
	writeJSON(w, http.StatusOK, WireSession{ID: sess.ID, RunIDs: sess.RunIDs})
}
