package task

import (
	"context"
	"log/slog"
	"sync"
)

// RunnerConfig holds configuration for a task runner pool.
type RunnerConfig struct {
	// WorkerCount determines how many concurrent workers process tasks
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory task queue
	QueueSize int
}

// DefaultRunnerConfig returns a RunnerConfig with reasonable defaults.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		WorkerCount: 2,
		QueueSize:   100,
	}
}

// Runner manages background task processing through a bounded queue and a
// fixed pool of workers. When the queue is saturated, Submit falls back to
// running the task on the submitting goroutine instead of dropping it, so
// saturation applies backpressure rather than losing work.
type Runner struct {
	name       string
	taskChan   chan Task
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	config     RunnerConfig
	logger     *slog.Logger
}

// NewRunner creates a new Runner for the named pool.
func NewRunner(name string, config RunnerConfig, logger *slog.Logger) *Runner {
	if config.WorkerCount <= 0 {
		config.WorkerCount = DefaultRunnerConfig().WorkerCount
	}
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultRunnerConfig().QueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Runner{
		name:       name,
		taskChan:   make(chan Task, config.QueueSize),
		ctx:        ctx,
		cancelFunc: cancel,
		config:     config,
		logger:     logger.With(slog.String("component", "task_runner"), slog.String("pool", name)),
	}
}

// Start launches the worker goroutines.
func (r *Runner) Start() {
	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
	r.logger.Info("task runner started",
		slog.Int("worker_count", r.config.WorkerCount),
		slog.Int("queue_size", r.config.QueueSize))
}

// Submit hands a task to the pool. If the queue has room the task is
// processed by a worker; otherwise it runs synchronously on the calling
// goroutine and Submit returns that execution's error. Already queued work
// is never displaced.
func (r *Runner) Submit(ctx context.Context, task Task) error {
	select {
	case r.taskChan <- task:
		return nil
	default:
		r.logger.Warn("queue saturated, running task on submitter",
			slog.String("task_id", task.ID().String()),
			slog.String("task_type", task.Type()))
		return r.runTask(ctx, task, -1)
	}
}

// Stop shuts the runner down. Queued tasks that no worker has picked up
// yet are abandoned; in-flight tasks run to completion.
func (r *Runner) Stop() {
	r.cancelFunc()
	r.wg.Wait()
	close(r.taskChan)
}

// worker processes tasks from the queue.
func (r *Runner) worker(id int) {
	defer r.wg.Done()

	r.logger.Debug("starting worker", slog.Int("worker_id", id))

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Debug("stopping worker", slog.Int("worker_id", id))
			return

		case task, ok := <-r.taskChan:
			if !ok {
				return
			}
			_ = r.runTask(r.ctx, task, id)
		}
	}
}

// runTask executes a single task and logs its outcome.
func (r *Runner) runTask(ctx context.Context, task Task, workerID int) error {
	log := r.logger.With(
		slog.String("task_id", task.ID().String()),
		slog.String("task_type", task.Type()),
		slog.Int("worker_id", workerID),
	)

	log.Debug("processing task")

	if err := task.Execute(ctx); err != nil {
		log.Error("task execution failed", slog.String("error", err.Error()))
		return err
	}

	log.Debug("task completed")
	return nil
}
