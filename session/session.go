// Package session implements the ordered run-id list a conversation's
// runs share, and the history replay rule of spec.md §4.4: only COMPLETED
// runs contribute their input and output to history, read at the moment
// history is requested (no retroactive appearance).
package session

import (
	"context"
	"fmt"

	"github.com/acp-project/acp-go/acpmodel"
	"github.com/acp-project/acp-go/store"
)

// Session is the ordered list of run ids belonging to one conversation.
type Session struct {
	ID      string   `json:"session_id"`
	RunIDs  []string `json:"run_ids"`
	Inputs  map[string][]acpmodel.Message `json:"inputs"`
}

// Store persists Sessions keyed by id.
type Store struct {
	view *store.View[Session]
}

// NewStore layers a Session view over s under prefix.
func NewStore(s store.Store, prefix string) *Store {
	return &Store{view: store.NewView[Session](s, prefix)}
}

// Get loads a session, returning an empty Session with id set if none
// exists yet (so the first run against a new session can adopt it).
func (st *Store) Get(ctx context.Context, id string) (Session, error) {
	sess, ok, err := st.view.Get(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if !ok {
		return Session{ID: id}, nil
	}
	return sess, nil
}

// AppendRun records that runID (with its input) was submitted against
// session id, creating the session if it does not yet exist. Appending is
// the session's only mutation, per spec.md §4.4.
func (st *Store) AppendRun(ctx context.Context, id, runID string, input []acpmodel.Message) error {
	sess, err := st.Get(ctx, id)
	if err != nil {
		return err
	}
	sess.ID = id
	sess.RunIDs = append(sess.RunIDs, runID)
	if sess.Inputs == nil {
		sess.Inputs = make(map[string][]acpmodel.Message)
	}
	sess.Inputs[runID] = input
	return st.view.Set(ctx, id, sess)
}

// Adopt persists a client-forwarded Session value as-is, the mechanism
// spec.md §4.4 requires for distributed-session support: a client may
// forward a whole Session to a new server instance, which adopts it.
func (st *Store) Adopt(ctx context.Context, sess Session) error {
	return st.view.Set(ctx, sess.ID, sess)
}

// History concatenates, in order, every contributing run's input followed
// by its output, for each run that is COMPLETED at read time. runStore
// reads each run's current RunData to check its status.
func (st *Store) History(ctx context.Context, id string, runStore *store.View[acpmodel.RunData]) ([]acpmodel.Message, error) {
	sess, err := st.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	var out []acpmodel.Message
	for _, runID := range sess.RunIDs {
		data, ok, err := runStore.Get(ctx, runID)
		if err != nil {
			return nil, fmt.Errorf("session: load run %s: %w", runID, err)
		}
		if !ok || data.Run.Status != acpmodel.StatusCompleted {
			continue
		}
		out = append(out, sess.Inputs[runID]...)
		out = append(out, data.Run.Output...)
	}
	return out, nil
}
