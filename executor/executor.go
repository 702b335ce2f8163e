// Package executor drives a single run from CREATED to a terminal status,
// the way runtime/agent/runtime drives one Temporal workflow execution,
// but cooperatively in-process: it feeds the effective input to an
// agent.Adapter, classifies each yield, maintains the run's state machine,
// emits events, and persists the full RunData to the store on every
// mutation (spec.md §4.2).
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/acp-project/acp-go/acpmodel"
	"github.com/acp-project/acp-go/agent"
	"github.com/acp-project/acp-go/acperr"
	"github.com/acp-project/acp-go/hooks"
	"github.com/acp-project/acp-go/store"
)

// cancelMarker is the sole value ever written to the cancel store; its
// mere presence at a run's key means "cancel requested".
var cancelMarker = json.RawMessage("true")

// Executor drives one run. A new Executor is constructed per run.
type Executor struct {
	agentName   string
	adapter     agent.Adapter
	runStore    *store.View[acpmodel.RunData]
	cancelStore store.Store
	resumeStore *store.View[acpmodel.AwaitResume]
	bus         hooks.Bus
	now         func() time.Time
}

// Option configures an Executor.
type Option func(*Executor)

// WithBus publishes every emitted event to bus for observability.
func WithBus(bus hooks.Bus) Option {
	return func(e *Executor) { e.bus = bus }
}

// New constructs an Executor for one run of agentName.
func New(agentName string, adapter agent.Adapter, runStore *store.View[acpmodel.RunData], cancelStore store.Store, resumeStore *store.View[acpmodel.AwaitResume], opts ...Option) *Executor {
	e := &Executor{
		agentName:   agentName,
		adapter:     adapter,
		runStore:    runStore,
		cancelStore: cancelStore,
		resumeStore: resumeStore,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes run from CREATED to a terminal status. input is the
// effective input (session history prepended by the caller, if
// applicable). If ready is non-nil, Run blocks until it is closed before
// emitting run.created, giving the HTTP layer a chance to enroll a stream
// subscriber first (spec.md §4.2 step 1). Run returns only on a fatal,
// non-run-scoped failure (e.g. the store becoming unreachable); ordinary
// agent errors are captured into the run's FAILED status instead.
func (e *Executor) Run(ctx context.Context, run acpmodel.Run, input []acpmodel.Message, ready <-chan struct{}) error {
	if ready != nil {
		select {
		case <-ready:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	data := acpmodel.RunData{Run: run}
	e.emit(&data, acpmodel.Event{Type: acpmodel.EventRunCreated})
	if err := e.persist(ctx, &data); err != nil {
		return err
	}

	agentCtx, cancelAgent := context.WithCancel(ctx)
	defer cancelAgent()

	cancelled := make(chan struct{})
	go e.watchCancellation(ctx, run.ID, cancelAgent, cancelled)

	data.Run.Status = acpmodel.StatusInProgress
	e.emit(&data, acpmodel.Event{Type: acpmodel.EventRunInProgress, Run: snapshot(&data.Run)})
	if err := e.persist(ctx, &data); err != nil {
		return err
	}

	resumes := make(chan acpmodel.AwaitResume)
	yields := e.adapter.Run(agentCtx, agent.RunInput{RunID: run.ID, Input: input}, resumes)

	var openMessage *acpmodel.Message
	for {
		select {
		case <-cancelled:
			e.closeOpenMessage(&data, &openMessage)
			return e.finalize(ctx, &data, acpmodel.StatusCancelled, acpmodel.EventRunCancelled, nil)

		case y, ok := <-yields:
			if agentCtx.Err() != nil && (!ok || y.Kind == agent.YieldError) {
				// The agent stopped because its context was cancelled: this
				// is a cancellation, not a completion or a failure.
				e.closeOpenMessage(&data, &openMessage)
				return e.finalize(ctx, &data, acpmodel.StatusCancelled, acpmodel.EventRunCancelled, nil)
			}
			if !ok {
				e.closeOpenMessage(&data, &openMessage)
				return e.finalize(ctx, &data, acpmodel.StatusCompleted, acpmodel.EventRunCompleted, nil)
			}
			if err := e.applyYield(ctx, &data, &openMessage, y, resumes, cancelled); err != nil {
				if err == errTerminated {
					return nil
				}
				if err == errCancelledDuringAwait {
					e.closeOpenMessage(&data, &openMessage)
					return e.finalize(ctx, &data, acpmodel.StatusCancelled, acpmodel.EventRunCancelled, nil)
				}
				return err
			}
		}
	}
}

// errTerminated signals that applyYield already drove the run to a
// terminal state (FAILED, on a YieldError) and Run should stop looping.
var errTerminated = fmt.Errorf("executor: run terminated")

// errCancelledDuringAwait signals that a cancellation arrived while the run
// was blocked in AWAITING. The outer select loop cannot observe cancelled
// itself while await holds it here, so await watches it directly and
// reports back through this sentinel.
var errCancelledDuringAwait = fmt.Errorf("executor: cancelled while awaiting")

func (e *Executor) applyYield(ctx context.Context, data *acpmodel.RunData, open **acpmodel.Message, y agent.RunYield, resumes chan<- acpmodel.AwaitResume, cancelled <-chan struct{}) error {
	switch y.Kind {
	case agent.YieldMessage:
		e.closeOpenMessage(data, open)
		msg := e.stampRole(*y.Message)
		e.openMessage(data, open, msg.Role)
		for _, part := range msg.Parts {
			e.appendPart(data, *open, part)
		}
		e.closeOpenMessage(data, open)
		return e.persist(ctx, data)

	case agent.YieldPart:
		if *open == nil {
			e.openMessage(data, open, e.stampRole(acpmodel.Message{}).Role)
		}
		e.appendPart(data, *open, *y.Part)
		return e.persist(ctx, data)

	case agent.YieldAwait:
		e.closeOpenMessage(data, open)
		return e.await(ctx, data, *y.Await, resumes, cancelled)

	case agent.YieldGeneric:
		e.emit(data, acpmodel.Event{Type: acpmodel.EventGeneric, Payload: y.Payload})
		return e.persist(ctx, data)

	case agent.YieldError:
		e.closeOpenMessage(data, open)
		acpErr := acperr.Classify(y.Err)
		if err := e.finalize(ctx, data, acpmodel.StatusFailed, acpmodel.EventRunFailed, acpErr); err != nil {
			return err
		}
		return errTerminated

	default:
		return nil
	}
}

// await stamps the pending AwaitRequest, transitions to AWAITING, and
// blocks on the resume store until a value is posted, per spec.md §4.2
// step 5, or until cancelled fires.
func (e *Executor) await(ctx context.Context, data *acpmodel.RunData, req acpmodel.AwaitRequest, resumes chan<- acpmodel.AwaitResume, cancelled <-chan struct{}) error {
	data.Run.AwaitRequest = &req
	data.Run.Status = acpmodel.StatusAwaiting
	e.emit(data, acpmodel.Event{Type: acpmodel.EventRunAwaiting, Run: snapshot(&data.Run)})
	if err := e.persist(ctx, data); err != nil {
		return err
	}

	ready := make(chan struct{})
	updates, err := e.resumeStore.Watch(ctx, data.Run.ID, ready)
	if err != nil {
		return fmt.Errorf("executor: watch resume: %w", err)
	}
	select {
	case <-ready:
	case <-ctx.Done():
		return ctx.Err()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-cancelled:
			return errCancelledDuringAwait
		case u, open := <-updates:
			if !open {
				return fmt.Errorf("executor: resume watch closed for run %s", data.Run.ID)
			}
			if u.Err != nil {
				return u.Err
			}
			if !u.Present {
				continue
			}
			if err := e.resumeStore.Delete(ctx, data.Run.ID); err != nil {
				return fmt.Errorf("executor: clear resume: %w", err)
			}

			data.Run.AwaitRequest = nil
			data.Run.Status = acpmodel.StatusInProgress
			e.emit(data, acpmodel.Event{Type: acpmodel.EventRunInProgress, Run: snapshot(&data.Run)})
			if err := e.persist(ctx, data); err != nil {
				return err
			}

			select {
			case resumes <- u.Value:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (e *Executor) openMessage(data *acpmodel.RunData, open **acpmodel.Message, role string) {
	m := &acpmodel.Message{Role: role}
	*open = m
	e.emit(data, acpmodel.Event{Type: acpmodel.EventMessageCreated, Message: &acpmodel.Message{Role: role}})
}

func (e *Executor) appendPart(data *acpmodel.RunData, open *acpmodel.Message, part acpmodel.MessagePart) {
	open.Parts = append(open.Parts, part)
	e.emit(data, acpmodel.Event{Type: acpmodel.EventMessagePart, MessagePart: &part})
}

func (e *Executor) closeOpenMessage(data *acpmodel.RunData, open **acpmodel.Message) {
	if *open == nil {
		return
	}
	final := (*open).Compress()
	data.Run.Output = append(data.Run.Output, final)
	e.emit(data, acpmodel.Event{Type: acpmodel.EventMessageCompleted, Message: &final})
	*open = nil
}

// stampRole applies the policy documented in spec.md §9's open question:
// the server stamps role = "agent/<name>" unless the agent already set one.
func (e *Executor) stampRole(m acpmodel.Message) acpmodel.Message {
	if m.Role == "" {
		m.Role = "agent/" + e.agentName
	}
	return m
}

func (e *Executor) finalize(ctx context.Context, data *acpmodel.RunData, status acpmodel.RunStatus, eventType acpmodel.EventType, runErr *acperr.Error) error {
	now := e.now()
	data.Run.Status = status
	data.Run.FinishedAt = &now
	if runErr != nil {
		data.Run.Error = &acpmodel.Error{Code: string(runErr.Code), Message: runErr.Message}
	}
	e.emit(data, acpmodel.Event{Type: eventType, Run: snapshot(&data.Run)})
	return e.persist(ctx, data)
}

func (e *Executor) watchCancellation(ctx context.Context, runID string, cancel context.CancelFunc, done chan<- struct{}) {
	defer close(done)
	ready := make(chan struct{})
	updates, err := e.cancelStore.Watch(ctx, runID, ready)
	if err != nil {
		return
	}
	select {
	case <-ready:
	case <-ctx.Done():
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case u, open := <-updates:
			if !open {
				return
			}
			if u.Present {
				cancel()
				return
			}
		}
	}
}

func (e *Executor) emit(data *acpmodel.RunData, evt acpmodel.Event) {
	evt.Timestamp = e.now()
	data.Events = append(data.Events, evt)
	if e.bus != nil {
		_ = e.bus.Publish(context.Background(), hooks.Event{
			RunID:   data.Run.ID,
			AgentID: e.agentName,
			Type:    evt.Type,
			Run:     data.Run,
		})
	}
}

func (e *Executor) persist(ctx context.Context, data *acpmodel.RunData) error {
	if err := e.runStore.Set(ctx, data.Run.ID, *data); err != nil {
		return fmt.Errorf("executor: persist run %s: %w", data.Run.ID, err)
	}
	return nil
}

// RequestCancel writes the cancel token observed by a run's cancellation
// watcher. The caller (transport/httpapi) is responsible for rejecting
// cancellation of an already-terminal run before calling this.
func RequestCancel(ctx context.Context, cancelStore store.Store, runID string) error {
	return cancelStore.Set(ctx, runID, cancelMarker)
}

func snapshot(r *acpmodel.Run) *acpmodel.Run {
	cp := *r
	return &cp
}
