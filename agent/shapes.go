package agent

import (
	"context"

	"github.com/acp-project/acp-go/agent/workerpool"
)

type (
	// AsyncGeneratorFunc is the richest agent shape: it receives the run
	// input and a Yielder and pushes values to it until done, returning an
	// error only for failures the caller didn't already report via
	// yielder.Yield(ErrorYield(...)).
	AsyncGeneratorFunc func(ctx context.Context, input RunInput, yielder Yielder) error

	// AsyncFunctionFunc runs to completion and returns the run's full
	// output in one shot; it cannot await or stream partial output.
	AsyncFunctionFunc func(ctx context.Context, input RunInput) ([]Message, error)

	// SyncGeneratorFunc is the blocking analogue of AsyncGeneratorFunc. It
	// is executed on the worker pool because it may block the calling
	// goroutine for the run's full duration.
	SyncGeneratorFunc func(ctx context.Context, input RunInput, yielder Yielder) error

	// SyncFunctionFunc is the blocking analogue of AsyncFunctionFunc.
	SyncFunctionFunc func(ctx context.Context, input RunInput) ([]Message, error)

	// Yielder is how a generator-shaped agent pushes RunYield values to its
	// caller and, for YieldAwait, blocks for the matching resume. It is the
	// in-process analogue of the outbound/inbound queue pair design note
	// 9 describes for the agent↔executor pipe.
	Yielder interface {
		// Yield delivers v to the executor, blocking until consumed or ctx
		// is done. Once ctx or the run's context is done it returns that
		// context's error without delivering v.
		Yield(ctx context.Context, y RunYield) error
		// Await yields req as a YieldAwait and blocks until the executor
		// delivers the matching AwaitResume.
		Await(ctx context.Context, req AwaitRequest) (AwaitResume, error)
	}
)

// yielderFunc adapts a channel pair to the Yielder interface.
type yielderFunc struct {
	runCtx  context.Context
	out     chan<- RunYield
	resumes <-chan AwaitResume
}

func (y yielderFunc) Yield(ctx context.Context, v RunYield) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := y.runCtx.Err(); err != nil {
		return err
	}
	select {
	case y.out <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-y.runCtx.Done():
		return y.runCtx.Err()
	}
}

func (y yielderFunc) Await(ctx context.Context, req AwaitRequest) (AwaitResume, error) {
	if err := y.Yield(ctx, AwaitYield(req)); err != nil {
		return AwaitResume{}, err
	}
	select {
	case resume, ok := <-y.resumes:
		if !ok {
			return AwaitResume{}, context.Canceled
		}
		return resume, nil
	case <-ctx.Done():
		return AwaitResume{}, ctx.Err()
	case <-y.runCtx.Done():
		return AwaitResume{}, y.runCtx.Err()
	}
}

// FromAsyncGenerator adapts an AsyncGeneratorFunc to an Adapter. The
// function runs on its own goroutine for the life of the run; callers
// must ensure fn respects ctx cancellation.
func FromAsyncGenerator(fn AsyncGeneratorFunc) Adapter {
	return adapterFunc(func(ctx context.Context, input RunInput, resumes <-chan AwaitResume) <-chan RunYield {
		out := make(chan RunYield)
		go func() {
			defer close(out)
			y := yielderFunc{runCtx: ctx, out: out, resumes: resumes}
			if err := fn(ctx, input, y); err != nil {
				_ = y.Yield(ctx, ErrorYield(err))
			}
		}()
		return out
	})
}

// FromAsyncFunction adapts an AsyncFunctionFunc to an Adapter, surfacing
// its return value as a sequence of YieldMessage (or one YieldError)
// yields. It never awaits.
func FromAsyncFunction(fn AsyncFunctionFunc) Adapter {
	return adapterFunc(func(ctx context.Context, input RunInput, _ <-chan AwaitResume) <-chan RunYield {
		out := make(chan RunYield, 1)
		go func() {
			defer close(out)
			msgs, err := fn(ctx, input)
			if err != nil {
				out <- ErrorYield(err)
				return
			}
			for _, m := range msgs {
				out <- MessageYield(m)
			}
		}()
		return out
	})
}

// FromSyncGenerator adapts a SyncGeneratorFunc to an Adapter by running it
// on pool, the same pattern FromAsyncGenerator uses but bounded by the
// pool's concurrency limit since blocking synchronous agents cannot be
// cheaply multiplexed onto goroutines the way async ones can.
func FromSyncGenerator(fn SyncGeneratorFunc, pool *workerpool.Pool) Adapter {
	return adapterFunc(func(ctx context.Context, input RunInput, resumes <-chan AwaitResume) <-chan RunYield {
		out := make(chan RunYield)
		go func() {
			defer close(out)
			y := yielderFunc{runCtx: ctx, out: out, resumes: resumes}
			err := pool.Do(ctx, func() error { return fn(ctx, input, y) })
			if err != nil {
				_ = y.Yield(ctx, ErrorYield(err))
			}
		}()
		return out
	})
}

// FromSyncFunction adapts a SyncFunctionFunc to an Adapter by running it
// on pool. It never awaits.
func FromSyncFunction(fn SyncFunctionFunc, pool *workerpool.Pool) Adapter {
	return adapterFunc(func(ctx context.Context, input RunInput, _ <-chan AwaitResume) <-chan RunYield {
		out := make(chan RunYield, 1)
		go func() {
			defer close(out)
			var msgs []Message
			err := pool.Do(ctx, func() error {
				var fnErr error
				msgs, fnErr = fn(ctx, input)
				return fnErr
			})
			if err != nil {
				out <- ErrorYield(err)
				return
			}
			for _, m := range msgs {
				out <- MessageYield(m)
			}
		}()
		return out
	})
}

type adapterFunc func(ctx context.Context, input RunInput, resumes <-chan AwaitResume) <-chan RunYield

func (f adapterFunc) Run(ctx context.Context, input RunInput, resumes <-chan AwaitResume) <-chan RunYield {
	return f(ctx, input, resumes)
}
