package task_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/klausbr/readium-api/internal/task"
)

// fakeTask records executions through a callback.
type fakeTask struct {
	id      uuid.UUID
	execute func(ctx context.Context) error
}

func newFakeTask(execute func(ctx context.Context) error) *fakeTask {
	return &fakeTask{id: uuid.New(), execute: execute}
}

func (t *fakeTask) ID() uuid.UUID { return t.id }

func (t *fakeTask) Type() string { return "fake" }

func (t *fakeTask) Execute(ctx context.Context) error { return t.execute(ctx) }

var _ task.Task = (*fakeTask)(nil)

func TestRunnerProcessesSubmittedTasks(t *testing.T) {
	t.Parallel()

	runner := task.NewRunner("test", task.RunnerConfig{WorkerCount: 2, QueueSize: 10}, nil)
	runner.Start()

	const taskCount = 5

	var (
		executed atomic.Int32
		wg       sync.WaitGroup
	)
	wg.Add(taskCount)

	for i := 0; i < taskCount; i++ {
		err := runner.Submit(context.Background(), newFakeTask(func(ctx context.Context) error {
			executed.Add(1)
			wg.Done()
			return nil
		}))
		assert.NoError(t, err)
	}

	wg.Wait()
	runner.Stop()

	assert.Equal(t, int32(taskCount), executed.Load())
}

func TestRunnerRunsOnSubmitterWhenSaturated(t *testing.T) {
	t.Parallel()

	// No workers started: the single queue slot fills and stays full.
	runner := task.NewRunner("test", task.RunnerConfig{WorkerCount: 1, QueueSize: 1}, nil)

	var queuedRan atomic.Bool
	err := runner.Submit(context.Background(), newFakeTask(func(ctx context.Context) error {
		queuedRan.Store(true)
		return nil
	}))
	assert.NoError(t, err)
	assert.False(t, queuedRan.Load(), "queued task must wait for a worker")

	var overflowRan atomic.Bool
	wantErr := errors.New("inline failure")
	err = runner.Submit(context.Background(), newFakeTask(func(ctx context.Context) error {
		overflowRan.Store(true)
		return wantErr
	}))

	assert.True(t, overflowRan.Load(), "overflow task must run on the submitter")
	assert.ErrorIs(t, err, wantErr)
}
