// Package workerpool bounds the number of synchronous agent shapes
// (SyncGeneratorFunc, SyncFunctionFunc) that may block a goroutine
// concurrently, so a slow or misbehaving sync agent cannot exhaust the
// server's goroutine budget.
package workerpool

import "context"

// Pool limits concurrent Do calls to its configured size via a buffered
// channel semaphore.
type Pool struct {
	sem chan struct{}
}

// New constructs a Pool allowing up to size concurrent Do calls. size must
// be positive.
func New(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{sem: make(chan struct{}, size)}
}

// Do runs fn once a slot is free, blocking until one is available or ctx
// is done. If ctx is done before a slot frees, Do returns ctx.Err() without
// running fn.
func (p *Pool) Do(ctx context.Context, fn func() error) error {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-p.sem }()
	return fn()
}
