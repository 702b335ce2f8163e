package workerpool

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoRunsFn(t *testing.T) {
	p := New(1)
	var ran bool
	err := p.Do(context.Background(), func() error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestDoBoundsConcurrency(t *testing.T) {
	p := New(2)
	var current, max int32
	done := make(chan struct{})

	for i := 0; i < 5; i++ {
		go func() {
			_ = p.Do(context.Background(), func() error {
				n := atomic.AddInt32(&current, 1)
				for {
					old := atomic.LoadInt32(&max)
					if n <= old || atomic.CompareAndSwapInt32(&max, old, n) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				atomic.AddInt32(&current, -1)
				return nil
			})
			done <- struct{}{}
		}()
	}
	for i := 0; i < 5; i++ {
		<-done
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&max), int32(2))
}

func TestDoReturnsCtxErrWhenNoSlotFrees(t *testing.T) {
	p := New(1)
	block := make(chan struct{})
	go func() {
		_ = p.Do(context.Background(), func() error {
			<-block
			return nil
		})
	}()
	time.Sleep(10 * time.Millisecond) // let the first Do take the only slot

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := p.Do(ctx, func() error {
		t.Fatal("fn must not run when no slot frees before ctx is done")
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(block)
}
