// Package broker implements the dispatch backend for local development:
// jobs are enqueued onto Redis via asynq and executed by an in-cluster
// asynq worker. The broker assigns the external handle (the asynq task
// id), so the job record is created after enqueue.
package broker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	sudoai "github.com/Sukudo1234/sudoai-mvp"
	"github.com/Sukudo1234/sudoai-mvp/backend"
	"github.com/Sukudo1234/sudoai-mvp/id"
	"github.com/Sukudo1234/sudoai-mvp/job"
)

// Queue names. Split runs on the GPU lane; everything else is CPU work.
const (
	QueueDefault = "default"
	QueueGPU     = "gpu"
)

// TaskName returns the asynq task type string for a job type.
func TaskName(t job.Type) string {
	return "task:" + string(t)
}

// QueueFor returns the queue a job type is dispatched onto.
func QueueFor(t job.Type) string {
	if t == job.TypeSplit {
		return QueueGPU
	}
	return QueueDefault
}

var _ backend.Backend = (*Backend)(nil)

// Backend dispatches jobs onto Redis via asynq.
type Backend struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	rdb       *redis.Client
	jobs      job.Store
	logger    *slog.Logger

	maxRetries int
	timeout    time.Duration
}

// Option configures the Backend.
type Option func(*Backend)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Backend) {
		b.logger = logger
	}
}

// WithTimeout sets the per-task processing timeout recorded on enqueue.
func WithTimeout(d time.Duration) Option {
	return func(b *Backend) {
		b.timeout = d
	}
}

// New connects to the Redis broker and returns a ready Backend. The
// connection is verified with a ping; an unreachable broker is a fatal
// configuration error, not a per-request one.
func New(ctx context.Context, redisURL string, jobs job.Store, maxRetries int, opts ...Option) (*Backend, error) {
	redisOpt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%w: parse redis url: %v", sudoai.ErrInvalidConfig, err)
	}

	rdb := redis.NewClient(redisOpt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%w: redis unreachable at %s: %v", sudoai.ErrInvalidConfig, redisOpt.Addr, err)
	}

	connOpt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%w: parse redis uri: %v", sudoai.ErrInvalidConfig, err)
	}

	b := &Backend{
		client:     asynq.NewClient(connOpt),
		inspector:  asynq.NewInspector(connOpt),
		rdb:        rdb,
		jobs:       jobs,
		logger:     slog.Default(),
		maxRetries: maxRetries,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Submit enqueues the job and persists the record under the broker-assigned
// task id. The record is written in Queued state; if persistence fails the
// enqueued task is deleted best-effort and the submission reported failed.
func (b *Backend) Submit(ctx context.Context, t job.Type, params []byte, dedupeKey string) (string, error) {
	queue := QueueFor(t)

	taskOpts := []asynq.Option{
		asynq.Queue(queue),
		asynq.MaxRetry(b.maxRetries),
	}
	if b.timeout > 0 {
		taskOpts = append(taskOpts, asynq.Timeout(b.timeout))
	}
	if dedupeKey != "" {
		taskOpts = append(taskOpts, asynq.TaskID(dedupeKey))
	}

	info, err := b.client.EnqueueContext(ctx, asynq.NewTask(TaskName(t), params), taskOpts...)
	if err != nil {
		return "", fmt.Errorf("%w: enqueue %s: %v", sudoai.ErrDispatchFailed, t, err)
	}

	hash, err := job.InputHash(t, params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", sudoai.ErrDispatchFailed, err)
	}

	rec := &job.Job{
		ID:          id.NewJobID(),
		TaskID:      info.ID,
		Type:        t,
		Status:      job.StatusPending,
		InputParams: params,
		InputHash:   hash,
		MaxRetries:  b.maxRetries,
	}
	if err := b.jobs.CreateJob(ctx, rec); err != nil {
		if delErr := b.inspector.DeleteTask(queue, info.ID); delErr != nil {
			b.logger.Warn("orphaned broker task after persist failure",
				"task_id", info.ID, "error", delErr)
		}
		return "", fmt.Errorf("%w: persist job record: %v", sudoai.ErrDispatchFailed, err)
	}
	if _, err := b.jobs.UpdateStatus(ctx, info.ID, job.StatusQueued, job.Update{}); err != nil {
		b.logger.Warn("job enqueued but not marked queued", "task_id", info.ID, "error", err)
	}

	b.logger.Info("job enqueued", "task_id", info.ID, "type", t, "queue", queue)
	return info.ID, nil
}

// QueryUpstream reads broker-native task state and maps it onto the shared
// vocabulary. The task id alone does not identify the queue, so both lanes
// are checked.
func (b *Backend) QueryUpstream(_ context.Context, handle string) (backend.UpstreamStatus, bool, error) {
	for _, queue := range []string{QueueDefault, QueueGPU} {
		info, err := b.inspector.GetTaskInfo(queue, handle)
		if err != nil {
			continue
		}
		return mapTaskState(info.State), true, nil
	}
	// Completed tasks are pruned from the broker quickly; absence is not
	// an error.
	return "", false, nil
}

func mapTaskState(s asynq.TaskState) backend.UpstreamStatus {
	switch s {
	case asynq.TaskStateActive:
		return backend.UpstreamStarted
	case asynq.TaskStateCompleted:
		return backend.UpstreamSuccess
	case asynq.TaskStateArchived:
		return backend.UpstreamFailure
	default:
		// Pending, scheduled, retry, aggregating.
		return backend.UpstreamPending
	}
}

// Cancel deletes a task that is still waiting in a queue. Active tasks are
// left alone; a running job executes to completion.
func (b *Backend) Cancel(_ context.Context, handle string) error {
	var lastErr error
	for _, queue := range []string{QueueDefault, QueueGPU} {
		err := b.inspector.DeleteTask(queue, handle)
		if err == nil {
			b.logger.Info("broker task deleted", "task_id", handle, "queue", queue)
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("%w: delete task %s: %v", sudoai.ErrNotCancellable, handle, lastErr)
}

// Close releases the broker connections.
func (b *Backend) Close() error {
	if err := b.client.Close(); err != nil {
		return err
	}
	if err := b.inspector.Close(); err != nil {
		return err
	}
	return b.rdb.Close()
}
