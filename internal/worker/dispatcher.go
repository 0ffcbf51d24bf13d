// Package worker runs best-effort side effects outside the request that triggered them.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/seniku-go-api/internal/observability"
)

// ErrDispatcherClosed is returned when a task is submitted after Shutdown.
var ErrDispatcherClosed = errors.New("dispatcher is shut down")

// Task is a unit of background work.
type Task func(ctx context.Context) error

// Runner schedules background tasks. Services depend on this interface so tests can run tasks inline.
type Runner interface {
	Go(ctx context.Context, name string, task Task)
}

// Dispatcher runs each task on its own goroutine, detached from the caller's cancellation.
type Dispatcher struct {
	logger  zerolog.Logger
	timeout time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher builds a dispatcher whose tasks are bounded by timeout.
func NewDispatcher(timeout time.Duration, logger zerolog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{
		logger:  logger.With().Str("component", "dispatcher").Logger(),
		timeout: timeout,
	}
}

// Go starts task in the background. Values on ctx (correlation id, trace span) are kept,
// its deadline and cancellation are not.
func (d *Dispatcher) Go(ctx context.Context, name string, task Task) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.Warn().Str("task", name).Err(ErrDispatcherClosed).Msg("background task dropped")
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}
	detached := context.WithoutCancel(ctx)

	go func() {
		defer d.wg.Done()
		d.run(detached, name, task)
	}()
}

func (d *Dispatcher) run(ctx context.Context, name string, task Task) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	err := safeRun(ctx, task)
	observability.BackgroundTaskDuration().WithLabelValues(name).Observe(time.Since(start).Seconds())

	if err != nil {
		observability.BackgroundTaskFailures().WithLabelValues(name).Inc()
		d.logger.Error().Err(err).Str("task", name).Msg("background task failed")
		return
	}
	d.logger.Debug().Str("task", name).Dur("elapsed", time.Since(start)).Msg("background task finished")
}

func safeRun(ctx context.Context, task Task) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("panic: %v", recovered)
		}
	}()
	return task(ctx)
}

// Shutdown stops accepting tasks and waits for in-flight ones until ctx expires.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("background tasks still running: %w", ctx.Err())
	}
}

// Inline runs tasks synchronously on the caller's goroutine, logging failures the same way.
// It is used by tests and one-shot tools.
type Inline struct {
	Logger zerolog.Logger
}

// Go runs task immediately.
func (i Inline) Go(ctx context.Context, name string, task Task) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := safeRun(context.WithoutCancel(ctx), task); err != nil {
		i.Logger.Error().Err(err).Str("task", name).Msg("background task failed")
	}
}
