package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/Sukudo1234/sudoai-mvp/job"
)

// Timeout returns middleware that enforces a per-job execution deadline.
// With a non-zero limit, a context.WithTimeout wraps the handler call.
// When the deadline is exceeded the context is cancelled and the handler
// returns context.DeadlineExceeded, which the runner treats as a hard
// failure.
func Timeout(logger *slog.Logger, limit time.Duration) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) error {
		if limit > 0 {
			logger.Debug("job timeout set",
				slog.String("task_id", j.TaskID),
				slog.Duration("timeout", limit),
			)
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, limit)
			defer cancel()
		}
		return next(ctx)
	}
}
