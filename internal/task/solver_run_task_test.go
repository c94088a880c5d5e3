package task

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvalden/numlab-api/internal/domain"
	"github.com/nvalden/numlab-api/internal/solver"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRun(t *testing.T, algorithm string, params string) *domain.Run {
	t.Helper()
	run, err := domain.NewRun(uuid.New(), algorithm, json.RawMessage(params))
	require.NoError(t, err)
	return run
}

func TestNewSolverRunTaskValidation(t *testing.T) {
	runs := newFakeRunStore()
	runner := &fakeRunner{}
	logger := testLogger()

	_, err := NewSolverRunTask(uuid.New(), nil, runner, 0, logger)
	assert.ErrorIs(t, err, ErrNilRunStore)

	_, err = NewSolverRunTask(uuid.New(), runs, nil, 0, logger)
	assert.ErrorIs(t, err, ErrNilSolver)

	_, err = NewSolverRunTask(uuid.New(), runs, runner, 0, nil)
	assert.ErrorIs(t, err, ErrNilLogger)

	_, err = NewSolverRunTask(uuid.Nil, runs, runner, 0, logger)
	assert.ErrorIs(t, err, ErrEmptyRunID)
}

func TestSolverRunTaskExecuteSuccess(t *testing.T) {
	run := newTestRun(t, "gradient_descent", `{"problem":"quadratic"}`)
	runs := newFakeRunStore(run)
	runner := &fakeRunner{outcome: &solver.Outcome{
		Result: json.RawMessage(`{"converged":true}`),
	}}

	task, err := NewSolverRunTask(run.ID, runs, runner, time.Minute, testLogger())
	require.NoError(t, err)
	assert.Equal(t, TaskTypeSolverRun, task.Type())
	assert.Equal(t, TaskStatusPending, task.Status())

	require.NoError(t, task.Execute(context.Background()))
	assert.Equal(t, TaskStatusCompleted, task.Status())

	stored := runs.get(run.ID)
	assert.Equal(t, domain.RunStatusCompleted, stored.Status)
	assert.JSONEq(t, `{"converged":true}`, string(stored.Result))
	assert.Empty(t, stored.Error)
}

func TestSolverRunTaskExecuteWithRealRegistry(t *testing.T) {
	run := newTestRun(t, "newton", `{"problem":"quadratic"}`)
	runs := newFakeRunStore(run)

	task, err := NewSolverRunTask(run.ID, runs, solver.NewRegistry(), time.Minute, testLogger())
	require.NoError(t, err)
	require.NoError(t, task.Execute(context.Background()))

	stored := runs.get(run.ID)
	require.Equal(t, domain.RunStatusCompleted, stored.Status)

	var result struct {
		X         []float64 `json:"x"`
		Converged bool      `json:"converged"`
	}
	require.NoError(t, json.Unmarshal(stored.Result, &result))
	assert.True(t, result.Converged)
	require.Len(t, result.X, 2)
	assert.InDelta(t, 3.0, result.X[0], 1e-6)
	assert.InDelta(t, -1.0, result.X[1], 1e-6)
}

func TestSolverRunTaskExecuteSolverFailure(t *testing.T) {
	run := newTestRun(t, "gradient_descent", `{"problem":"quadratic"}`)
	runs := newFakeRunStore(run)
	runner := &fakeRunner{err: errors.New("line search failed")}

	task, err := NewSolverRunTask(run.ID, runs, runner, 0, testLogger())
	require.NoError(t, err)

	err = task.Execute(context.Background())
	require.Error(t, err)
	assert.Equal(t, TaskStatusFailed, task.Status())

	stored := runs.get(run.ID)
	assert.Equal(t, domain.RunStatusFailed, stored.Status)
	assert.Contains(t, stored.Error, "line search failed")
}

func TestSolverRunTaskExecuteMissingRun(t *testing.T) {
	task, err := NewSolverRunTask(uuid.New(), newFakeRunStore(), &fakeRunner{}, 0, testLogger())
	require.NoError(t, err)

	err = task.Execute(context.Background())
	require.Error(t, err)
	assert.Equal(t, TaskStatusFailed, task.Status())
}

func TestSolverRunTaskExecuteCancelledContext(t *testing.T) {
	run := newTestRun(t, "gradient_descent", `{"problem":"quadratic"}`)
	task, err := NewSolverRunTask(run.ID, newFakeRunStore(run), &fakeRunner{}, 0, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = task.Execute(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSolverRunTaskPayload(t *testing.T) {
	run := newTestRun(t, "fft", `{"real":[1,0,0,0]}`)
	task, err := NewSolverRunTask(run.ID, newFakeRunStore(run), &fakeRunner{}, 0, testLogger())
	require.NoError(t, err)

	var payload solverRunPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, run.ID, payload.RunID)
}

func TestSolverRunTaskFactoryRebuild(t *testing.T) {
	run := newTestRun(t, "gradient_descent", `{"problem":"quadratic"}`)
	runs := newFakeRunStore(run)
	factory := NewSolverRunTaskFactory(runs, &fakeRunner{outcome: &solver.Outcome{
		Result: json.RawMessage(`{}`),
	}}, time.Minute, testLogger())

	original, err := factory.CreateTask(run.ID)
	require.NoError(t, err)

	rebuilt, err := factory.Rebuild(
		original.ID(),
		TaskTypeSolverRun,
		original.Payload(),
		TaskStatusPending,
	)
	require.NoError(t, err)
	assert.Equal(t, original.ID(), rebuilt.ID())
	assert.Equal(t, TaskStatusPending, rebuilt.Status())

	// The rebuilt task must be executable.
	require.NoError(t, rebuilt.Execute(context.Background()))
	assert.Equal(t, domain.RunStatusCompleted, runs.get(run.ID).Status)
}

func TestSolverRunTaskFactoryRebuildUnknownType(t *testing.T) {
	factory := NewSolverRunTaskFactory(newFakeRunStore(), &fakeRunner{}, 0, testLogger())

	_, err := factory.Rebuild(uuid.New(), "unknown_type", []byte("{}"), TaskStatusPending)
	assert.Error(t, err)

	_, err = factory.Rebuild(uuid.New(), TaskTypeSolverRun, []byte("not json"), TaskStatusPending)
	assert.Error(t, err)
}
