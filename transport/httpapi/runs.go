package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/acp-project/acp-go/acperr"
	"github.com/acp-project/acp-go/acplog"
	"github.com/acp-project/acp-go/acpmodel"
	"github.com/acp-project/acp-go/executor"
	"github.com/acp-project/acp-go/session"
	"github.com/acp-project/acp-go/store"
)

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeParseError(w, err)
		return
	}
	if err := validateBody(s.schemas.createRun, body); err != nil {
		writeError(w, acperr.InvalidInputf("%v", err))
		return
	}
	var req CreateRunRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeParseError(w, err)
		return
	}

	entry, ok := s.agents[req.AgentName]
	if !ok {
		writeError(w, acperr.InvalidInputf("agent %q not found", req.AgentName))
		return
	}
	if schema, ok := s.inputSchemas[req.AgentName]; ok {
		if err := validateInputAgainstSchema(schema, req.Input); err != nil {
			writeError(w, acperr.InvalidInputf("%v", err))
			return
		}
	}

	ctx := r.Context()
	sessionID := req.SessionID
	if req.Session != nil {
		if err := s.sessionStore.Adopt(ctx, session.Session{ID: req.Session.ID, RunIDs: req.Session.RunIDs}); err != nil {
			writeError(w, acperr.Wrap(acperr.ServerError, err))
			return
		}
		sessionID = req.Session.ID
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	var history []acpmodel.Message
	if sessionID != "" {
		history, err = s.sessionStore.History(ctx, sessionID, s.runStore)
		if err != nil {
			writeError(w, acperr.Wrap(acperr.ServerError, err))
			return
		}
	}

	runID := newRunID(req.AgentName)
	if sessionID != "" {
		if err := s.sessionStore.AppendRun(ctx, sessionID, runID, req.Input); err != nil {
			writeError(w, acperr.Wrap(acperr.ServerError, err))
			return
		}
	}

	effectiveInput := make([]acpmodel.Message, 0, len(history)+len(req.Input))
	effectiveInput = append(effectiveInput, history...)
	effectiveInput = append(effectiveInput, req.Input...)

	run := acpmodel.Run{
		ID:        runID,
		AgentName: req.AgentName,
		SessionID: sessionID,
		Status:    acpmodel.StatusCreated,
		CreatedAt: s.now(),
	}

	// Subscribe before the executor emits run.created, so no event is ever
	// lost to a race between subscription and the run's first mutation.
	watchReady := make(chan struct{})
	updates, err := s.runStore.Watch(ctx, runID, watchReady)
	if err != nil {
		writeError(w, acperr.Wrap(acperr.ServerError, err))
		return
	}
	execReady := make(chan struct{})
	go func() {
		select {
		case <-watchReady:
		case <-ctx.Done():
		}
		close(execReady)
	}()

	ex := executor.New(req.AgentName, entry.Adapter, s.runStore, s.cancelStore, s.resumeStore, executor.WithBus(s.bus))
	// The run outlives the request for async/stream callers; it is only
	// ever torn down by reaching a terminal status or by cancellation.
	runCtx := context.Background()
	go func() {
		if err := ex.Run(runCtx, run, effectiveInput, execReady); err != nil {
			acplog.Error(runCtx, err, "run terminated abnormally", acplog.KV{K: "run_id", V: runID})
		}
	}()

	switch req.Mode {
	case ModeStream:
		s.streamMode(w, runID, updates, 0)
	case ModeSync:
		data, err := s.syncWait(updates)
		if err != nil {
			writeError(w, acperr.Wrap(acperr.ServerError, err))
			return
		}
		writeRunJSON(w, http.StatusOK, runID, data.Run)
	default:
		u, ok := <-updates
		if !ok || u.Err != nil || !u.Present {
			writeRunJSON(w, http.StatusAccepted, runID, run)
			return
		}
		writeRunJSON(w, http.StatusAccepted, runID, u.Value.Run)
	}
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	data, ok, err := s.runStore.Get(r.Context(), id)
	if err != nil {
		writeError(w, acperr.Wrap(acperr.ServerError, err))
		return
	}
	if !ok {
		writeError(w, acperr.NotFoundf("run %q not found", id))
		return
	}
	writeRunJSON(w, http.StatusOK, id, data.Run)
}

// handleRunEvents replays a run's full event log, then keeps the
// connection open and streams every subsequent event until the run
// reaches a terminal status, sharing the exact same watch source as
// the stream projection of POST /runs.
func (s *Server) handleRunEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	data, ok, err := s.runStore.Get(r.Context(), id)
	if err != nil {
		writeError(w, acperr.Wrap(acperr.ServerError, err))
		return
	}
	if !ok {
		writeError(w, acperr.NotFoundf("run %q not found", id))
		return
	}
	if data.Run.Status.Terminal() {
		sw, ok := newSSEWriter(w, id)
		if !ok {
			writeError(w, acperr.ServerErrorf("streaming not supported by response writer"))
			return
		}
		for _, evt := range data.Events {
			if sw.WriteEvent(evt) != nil {
				return
			}
		}
		return
	}
	updates, err := s.runStore.Watch(r.Context(), id, nil)
	if err != nil {
		writeError(w, acperr.Wrap(acperr.ServerError, err))
		return
	}
	s.streamMode(w, id, updates, 0)
}

func (s *Server) handleResumeRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeParseError(w, err)
		return
	}
	if err := validateBody(s.schemas.resume, body); err != nil {
		writeError(w, acperr.InvalidInputf("%v", err))
		return
	}
	var req ResumeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeParseError(w, err)
		return
	}

	ctx := r.Context()
	data, ok, err := s.runStore.Get(ctx, id)
	if err != nil {
		writeError(w, acperr.Wrap(acperr.ServerError, err))
		return
	}
	if !ok {
		writeError(w, acperr.NotFoundf("run %q not found", id))
		return
	}
	if data.Run.Status != acpmodel.StatusAwaiting || data.Run.AwaitRequest == nil {
		writeError(w, acperr.InvalidInputf("run %q is not awaiting input", id))
		return
	}
	if req.AwaitResume.Kind != data.Run.AwaitRequest.Kind {
		writeRunJSON(w, http.StatusForbidden, id, ErrorBody{
			Code:    string(acperr.InvalidInput),
			Message: fmt.Sprintf("resume type %q does not match pending await type %q", req.AwaitResume.Kind, data.Run.AwaitRequest.Kind),
		})
		return
	}

	fromIndex := len(data.Events)
	var updates <-chan store.TypedUpdate[acpmodel.RunData]
	if req.Mode == ModeStream || req.Mode == ModeSync {
		watchReady := make(chan struct{})
		updates, err = s.runStore.Watch(ctx, id, watchReady)
		if err != nil {
			writeError(w, acperr.Wrap(acperr.ServerError, err))
			return
		}
		select {
		case <-watchReady:
		case <-ctx.Done():
			return
		}
	}

	if err := s.resumeStore.Set(ctx, id, req.AwaitResume); err != nil {
		writeError(w, acperr.Wrap(acperr.ServerError, err))
		return
	}

	switch req.Mode {
	case ModeStream:
		s.streamMode(w, id, updates, fromIndex)
	case ModeSync:
		result, err := s.syncWait(updates)
		if err != nil {
			writeError(w, acperr.Wrap(acperr.ServerError, err))
			return
		}
		writeRunJSON(w, http.StatusOK, id, result.Run)
	default:
		writeRunJSON(w, http.StatusAccepted, id, data.Run)
	}
}

// handleCancelRun only ever writes to the cancel store: the executor
// remains the sole writer of a run's stored RunData, so the CANCELLING
// status returned here is a synthetic overlay, never persisted.
func (s *Server) handleCancelRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ctx := r.Context()
	data, ok, err := s.runStore.Get(ctx, id)
	if err != nil {
		writeError(w, acperr.Wrap(acperr.ServerError, err))
		return
	}
	if !ok {
		writeError(w, acperr.NotFoundf("run %q not found", id))
		return
	}
	if data.Run.Status.Terminal() {
		writeError(w, acperr.InvalidInputf("run %q is already %s", id, data.Run.Status))
		return
	}
	if err := executor.RequestCancel(ctx, s.cancelStore, id); err != nil {
		writeError(w, acperr.Wrap(acperr.ServerError, err))
		return
	}
	overlay := data.Run
	overlay.Status = acpmodel.StatusCancelling
	writeRunJSON(w, http.StatusAccepted, id, overlay)
}

// streamMode re-emits every event at index >= from from updates as SSE
// frames until the run reaches a terminal status or the client goes away.
func (s *Server) streamMode(w http.ResponseWriter, runID string, updates <-chan store.TypedUpdate[acpmodel.RunData], from int) {
	sw, ok := newSSEWriter(w, runID)
	if !ok {
		writeError(w, acperr.ServerErrorf("streaming not supported by response writer"))
		return
	}
	sent := from
	for u := range updates {
		if u.Err != nil {
			return
		}
		if !u.Present {
			continue
		}
		for _, evt := range u.Value.Events[sent:] {
			if sw.WriteEvent(evt) != nil {
				return
			}
		}
		sent = len(u.Value.Events)
		if u.Value.Run.Status.Terminal() {
			return
		}
	}
}

// syncWait blocks until the run reaches a terminal status or suspends on
// an AwaitRequest, then returns that snapshot.
func (s *Server) syncWait(updates <-chan store.TypedUpdate[acpmodel.RunData]) (acpmodel.RunData, error) {
	for u := range updates {
		if u.Err != nil {
			return acpmodel.RunData{}, u.Err
		}
		if !u.Present {
			continue
		}
		if u.Value.Run.Status.Terminal() || u.Value.Run.Status == acpmodel.StatusAwaiting {
			return u.Value, nil
		}
	}
	return acpmodel.RunData{}, fmt.Errorf("httpapi: run watch closed before reaching a stopping point")
}
