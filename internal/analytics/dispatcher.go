package analytics

import (
	"context"
	"sync"
	"time"

	"github.com/kart-io/logger"
)

// Dispatcher records events asynchronously. Failures and panics in the sink are logged and dropped.
type Dispatcher struct {
	sink    Sink
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewDispatcher(sink Sink, timeout time.Duration) *Dispatcher {
	if sink == nil {
		sink = NopSink{}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{sink: sink, timeout: timeout}
}

// Dispatch returns immediately.
func (d *Dispatcher) Dispatch(ev TurnEvent) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logger.Errorw("analytics sink panicked", "session_id", ev.SessionID, "panic", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.sink.Record(ctx, ev); err != nil {
			logger.Warnw("analytics export failed", "session_id", ev.SessionID, "error", err)
		}
	}()
}

// Wait blocks until in-flight events finish or ctx ends.
func (d *Dispatcher) Wait(ctx context.Context) error {
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
