package task

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nvalden/numlab-api/internal/domain"
	"github.com/nvalden/numlab-api/internal/solver"
)

// memoryTaskStore is an in-memory TaskStore for tests.
type memoryTaskStore struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*storedTaskRecord
}

type storedTaskRecord struct {
	task     Task
	status   TaskStatus
	errorMsg string
}

func newMemoryTaskStore() *memoryTaskStore {
	return &memoryTaskStore{tasks: make(map[uuid.UUID]*storedTaskRecord)}
}

func (s *memoryTaskStore) SaveTask(ctx context.Context, t Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID()] = &storedTaskRecord{task: t, status: t.Status()}
	return nil
}

func (s *memoryTaskStore) UpdateTaskStatus(
	ctx context.Context,
	taskID uuid.UUID,
	status TaskStatus,
	errorMsg string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.tasks[taskID]
	if !ok {
		return nil
	}
	rec.status = status
	rec.errorMsg = errorMsg
	return nil
}

func (s *memoryTaskStore) GetPendingTasks(ctx context.Context) ([]Task, error) {
	return s.byStatus(TaskStatusPending), nil
}

func (s *memoryTaskStore) GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]Task, error) {
	return s.byStatus(TaskStatusProcessing), nil
}

func (s *memoryTaskStore) byStatus(status TaskStatus) []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Task
	for _, rec := range s.tasks {
		if rec.status == status {
			out = append(out, rec.task)
		}
	}
	return out
}

func (s *memoryTaskStore) WithTx(tx *sql.Tx) TaskStore {
	return s
}

func (s *memoryTaskStore) statusOf(taskID uuid.UUID) TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.tasks[taskID]
	if !ok {
		return ""
	}
	return rec.status
}

// fakeRunStore is an in-memory RunUpdater for tests.
type fakeRunStore struct {
	mu   sync.Mutex
	runs map[uuid.UUID]*domain.Run
}

func newFakeRunStore(runs ...*domain.Run) *fakeRunStore {
	s := &fakeRunStore{runs: make(map[uuid.UUID]*domain.Run)}
	for _, r := range runs {
		s.runs[r.ID] = r
	}
	return s
}

func (s *fakeRunStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %s not found", id)
	}
	clone := *run
	return &clone, nil
}

func (s *fakeRunStore) Update(ctx context.Context, run *domain.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[run.ID]; !ok {
		return fmt.Errorf("run %s not found", run.ID)
	}
	clone := *run
	s.runs[run.ID] = &clone
	return nil
}

func (s *fakeRunStore) get(id uuid.UUID) *domain.Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs[id]
}

// fakeRunner is an AlgorithmRunner returning canned outcomes.
type fakeRunner struct {
	outcome *solver.Outcome
	err     error
}

func (r *fakeRunner) Run(
	ctx context.Context,
	algorithm string,
	params json.RawMessage,
) (*solver.Outcome, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.outcome, nil
}

// funcTask is a minimal Task whose Execute runs the given function.
type funcTask struct {
	id      uuid.UUID
	execute func(ctx context.Context) error
}

func newFuncTask(execute func(ctx context.Context) error) *funcTask {
	return &funcTask{id: uuid.New(), execute: execute}
}

func (t *funcTask) ID() uuid.UUID      { return t.id }
func (t *funcTask) Type() string       { return "test_task" }
func (t *funcTask) Payload() []byte    { return []byte("{}") }
func (t *funcTask) Status() TaskStatus { return TaskStatusPending }

func (t *funcTask) Execute(ctx context.Context) error {
	return t.execute(ctx)
}
