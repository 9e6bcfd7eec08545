package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/Sukudo1234/sudoai-mvp/job"
)

// Logging returns middleware that logs job execution start, completion,
// and failure with structured fields.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) error {
		start := time.Now()
		logger.Info("job execution started",
			slog.String("task_id", j.TaskID),
			slog.String("job_type", string(j.Type)),
			slog.Int("retry_count", j.RetryCount),
		)

		err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("job execution failed",
				slog.String("task_id", j.TaskID),
				slog.String("job_type", string(j.Type)),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
			return err
		}

		logger.Info("job execution completed",
			slog.String("task_id", j.TaskID),
			slog.String("job_type", string(j.Type)),
			slog.Duration("elapsed", elapsed),
		)
		return nil
	}
}
