// internal/analysis/dispatcher.go
package analysis

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Dispatcher runs background work detached from the request that scheduled
// it. Scheduled work cannot be cancelled; Wait lets the server drain it on
// shutdown.
type Dispatcher struct {
	wg sync.WaitGroup
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Schedule runs fn on its own goroutine after delay. A panic in fn is logged
// and does not take the process down.
func (d *Dispatcher) Schedule(delay time.Duration, fn func()) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("background task panicked")
			}
		}()

		if delay > 0 {
			time.Sleep(delay)
		}
		fn()
	}()
}

// Wait blocks until every scheduled task has returned
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// WaitContext is Wait bounded by ctx
func (d *Dispatcher) WaitContext(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
