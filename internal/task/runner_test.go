package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount:            1,
		QueueSize:              10,
		StuckTaskAge:           time.Minute,
		StuckTaskCheckInterval: time.Hour,
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestTaskRunnerProcessesSubmittedTask(t *testing.T) {
	store := newMemoryTaskStore()
	runner := NewTaskRunner(store, testRunnerConfig(), testLogger())

	done := make(chan struct{})
	task := newFuncTask(func(ctx context.Context) error {
		close(done)
		return nil
	})

	require.NoError(t, runner.Start())
	defer runner.Stop()

	require.NoError(t, runner.Submit(context.Background(), task))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task was not executed")
	}

	waitFor(t, func() bool { return store.statusOf(task.ID()) == TaskStatusCompleted })
}

func TestTaskRunnerRecordsFailure(t *testing.T) {
	store := newMemoryTaskStore()
	runner := NewTaskRunner(store, testRunnerConfig(), testLogger())

	var handled Task
	handlerDone := make(chan struct{})
	runner.SetErrorHandler(func(task Task, err error) {
		handled = task
		close(handlerDone)
	})

	task := newFuncTask(func(ctx context.Context) error {
		return errors.New("boom")
	})

	require.NoError(t, runner.Start())
	defer runner.Stop()

	require.NoError(t, runner.Submit(context.Background(), task))

	select {
	case <-handlerDone:
	case <-time.After(2 * time.Second):
		t.Fatal("error handler was not called")
	}

	assert.Equal(t, task.ID(), handled.ID())
	waitFor(t, func() bool { return store.statusOf(task.ID()) == TaskStatusFailed })
}

func TestTaskRunnerRecoversPendingTasks(t *testing.T) {
	store := newMemoryTaskStore()

	done := make(chan struct{})
	task := newFuncTask(func(ctx context.Context) error {
		close(done)
		return nil
	})
	require.NoError(t, store.SaveTask(context.Background(), task))

	runner := NewTaskRunner(store, testRunnerConfig(), testLogger())
	require.NoError(t, runner.Start())
	defer runner.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("recovered task was not executed")
	}
}

func TestTaskRunnerSubmitQueueFull(t *testing.T) {
	store := newMemoryTaskStore()
	cfg := testRunnerConfig()
	cfg.QueueSize = 0

	// The runner is never started, so nothing drains the queue.
	runner := NewTaskRunner(store, cfg, testLogger())

	task := newFuncTask(func(ctx context.Context) error { return nil })
	err := runner.Submit(context.Background(), task)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue is full")
}

func TestDefaultTaskRunnerConfig(t *testing.T) {
	cfg := DefaultTaskRunnerConfig()
	assert.Equal(t, 2, cfg.WorkerCount)
	assert.Equal(t, 100, cfg.QueueSize)
	assert.Equal(t, 30*time.Minute, cfg.StuckTaskAge)
	assert.Equal(t, 5*time.Minute, cfg.StuckTaskCheckInterval)
}
