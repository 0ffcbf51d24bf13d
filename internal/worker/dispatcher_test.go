package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestDispatcherRunsTasksDetachedFromCaller(t *testing.T) {
	d := NewDispatcher(time.Second, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	var sawCancel atomic.Bool
	done := make(chan struct{})

	d.Go(ctx, "detached", func(taskCtx context.Context) error {
		defer close(done)
		time.Sleep(20 * time.Millisecond)
		sawCancel.Store(taskCtx.Err() != nil)
		return nil
	})
	cancel()

	<-done
	require.False(t, sawCancel.Load())
	require.NoError(t, d.Shutdown(context.Background()))
}

func TestDispatcherIsolatesFailuresAndPanics(t *testing.T) {
	d := NewDispatcher(time.Second, zerolog.Nop())
	var completed atomic.Int32

	d.Go(context.Background(), "fails", func(context.Context) error {
		return errors.New("boom")
	})
	d.Go(context.Background(), "panics", func(context.Context) error {
		panic("unexpected")
	})
	d.Go(context.Background(), "succeeds", func(context.Context) error {
		completed.Add(1)
		return nil
	})

	require.NoError(t, d.Shutdown(context.Background()))
	require.Equal(t, int32(1), completed.Load())
}

func TestDispatcherDropsTasksAfterShutdown(t *testing.T) {
	d := NewDispatcher(time.Second, zerolog.Nop())
	require.NoError(t, d.Shutdown(context.Background()))

	var ran atomic.Bool
	d.Go(context.Background(), "late", func(context.Context) error {
		ran.Store(true)
		return nil
	})
	time.Sleep(10 * time.Millisecond)
	require.False(t, ran.Load())
}

func TestDispatcherShutdownTimesOut(t *testing.T) {
	d := NewDispatcher(time.Second, zerolog.Nop())
	release := make(chan struct{})
	d.Go(context.Background(), "slow", func(context.Context) error {
		<-release
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.Error(t, d.Shutdown(ctx))
	close(release)
}

func TestInlineRecoversPanics(t *testing.T) {
	runner := Inline{Logger: zerolog.Nop()}
	require.NotPanics(t, func() {
		runner.Go(context.Background(), "panics", func(context.Context) error {
			panic("inline")
		})
	})
}
