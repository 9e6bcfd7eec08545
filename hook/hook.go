// Package hook defines the lifecycle hook system. Hooks are notified of
// job lifecycle events (submitted, started, completed, failed, ...) and
// can react to them, for example with logging or notifications.
//
// Each lifecycle event is a separate interface so hooks opt in only to
// the events they care about.
package hook

import (
	"context"
	"time"

	"github.com/Sukudo1234/sudoai-mvp/job"
)

// Hook is the base interface all hooks must implement.
type Hook interface {
	// Name returns a unique human-readable name for the hook.
	Name() string
}

// JobSubmitted is called after a job is accepted and dispatched.
type JobSubmitted interface {
	OnJobSubmitted(ctx context.Context, j *job.Job) error
}

// JobDeduplicated is called when a submission is answered with an
// existing job's handle instead of a new dispatch.
type JobDeduplicated interface {
	OnJobDeduplicated(ctx context.Context, existing *job.Job) error
}

// JobStarted is called when a worker begins executing a job.
type JobStarted interface {
	OnJobStarted(ctx context.Context, j *job.Job) error
}

// JobCompleted is called after a job finishes successfully.
type JobCompleted interface {
	OnJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) error
}

// JobFailed is called when a job fails terminally.
type JobFailed interface {
	OnJobFailed(ctx context.Context, j *job.Job, err error) error
}

// JobCancelled is called after an administrative cancellation.
type JobCancelled interface {
	OnJobCancelled(ctx context.Context, j *job.Job) error
}

// JobRequeued is called when a terminal job's params are resubmitted as a
// new job.
type JobRequeued interface {
	OnJobRequeued(ctx context.Context, old *job.Job, newTaskID string) error
}

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
