// Package shutdown broadcasts a single process-wide stop signal to crawl
// sessions and tracks them until they have drained.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"

	"go.uber.org/zap"
)

// ErrShuttingDown is returned by Go once Trigger has been called.
var ErrShuttingDown = errors.New("shutdown in progress")

// Coordinator owns the shutdown context handed to every session.
type Coordinator struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger

	mu       sync.Mutex
	stopped  bool
	draining bool
	wg       sync.WaitGroup
}

// New returns a Coordinator whose context derives from parent.
func New(parent context.Context, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Coordinator{ctx: ctx, cancel: cancel, logger: logger.Named("shutdown")}
}

// Context is cancelled when shutdown is triggered.
func (c *Coordinator) Context() context.Context {
	return c.ctx
}

// Done is closed when shutdown is triggered.
func (c *Coordinator) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Trigger broadcasts shutdown. Only the first call has an effect.
func (c *Coordinator) Trigger() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.stopped = true
	c.logger.Info("shutdown triggered")
	c.cancel()
}

// Go runs fn on its own goroutine with the shutdown context and tracks it
// until fn returns. It refuses new work after Trigger.
func (c *Coordinator) Go(fn func(ctx context.Context)) error {
	c.mu.Lock()
	if c.stopped || c.draining || c.ctx.Err() != nil {
		c.mu.Unlock()
		return ErrShuttingDown
	}
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		fn(c.ctx)
	}()
	return nil
}

// Wait blocks until every function started with Go has returned or ctx is
// done. Go refuses new work once Wait has been called.
func (c *Coordinator) Wait(ctx context.Context) error {
	c.mu.Lock()
	c.draining = true
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		c.logger.Info("all sessions drained")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for sessions to drain: %w", ctx.Err())
	}
}

// TriggerOnSignal calls Trigger when any of sigs arrives or ctx ends. The
// returned func stops listening without triggering.
func (c *Coordinator) TriggerOnSignal(ctx context.Context, sigs ...os.Signal) (stop func()) {
	sigCtx, cancel := signal.NotifyContext(ctx, sigs...)
	stopped := make(chan struct{})
	go func() {
		select {
		case <-sigCtx.Done():
			select {
			case <-stopped:
				return
			default:
			}
			c.logger.Info("termination requested", zap.Error(context.Cause(sigCtx)))
			c.Trigger()
		case <-stopped:
		case <-c.Done():
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stopped)
			cancel()
		})
	}
}
