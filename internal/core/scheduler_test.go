// AngelaMos | 2026
// scheduler_test.go

package core

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_AfterRunsWithLiveContext(t *testing.T) {
	s, err := NewScheduler(slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	s.Start()
	t.Cleanup(func() { _ = s.Shutdown() })

	done := make(chan error, 1)
	require.NoError(t, s.After(10*time.Millisecond, "test-job", func(ctx context.Context) {
		done <- ctx.Err()
	}))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("deferred task did not run")
	}
}

func TestScheduler_RecoversPanics(t *testing.T) {
	s, err := NewScheduler(slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	ran := make(chan struct{})
	task := s.wrap("boom", func(ctx context.Context) {
		close(ran)
		panic("boom")
	})

	assert.NotPanics(t, task)
	<-ran
	require.NoError(t, s.Shutdown())
}

func TestScheduler_AfterRemovesFinishedJobs(t *testing.T) {
	s, err := NewScheduler(slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	s.Start()
	t.Cleanup(func() { _ = s.Shutdown() })

	ran := make(chan struct{}, 3)
	for range 3 {
		require.NoError(t, s.After(20*time.Millisecond, "poll", func(ctx context.Context) {
			ran <- struct{}{}
		}))
	}

	for range 3 {
		select {
		case <-ran:
		case <-time.After(2 * time.Second):
			t.Fatal("deferred task did not run")
		}
	}

	assert.Eventually(t, func() bool {
		return len(s.sched.Jobs()) == 0 && s.deferred.Load() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestScheduler_ShutdownDrainsRunningTasks(t *testing.T) {
	s, err := NewScheduler(slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	s.Start()

	started := make(chan struct{})
	finished := make(chan error, 1)
	require.NoError(t, s.After(0, "verdict", func(ctx context.Context) {
		close(started)
		time.Sleep(100 * time.Millisecond)
		finished <- ctx.Err()
	}))

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("deferred task did not start")
	}

	require.NoError(t, s.Shutdown())

	select {
	case err := <-finished:
		assert.NoError(t, err)
	default:
		t.Fatal("shutdown returned before the running task finished")
	}
	assert.Error(t, s.ctx.Err())
}
