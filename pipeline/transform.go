package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Runner executes one bounded external transform. A non-zero exit or a
// timeout is a hard failure for that invocation.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct {
	timeout time.Duration
	logger  *slog.Logger
}

// NewExecRunner returns a Runner that shells out with a wall-clock
// timeout per invocation and captures combined output.
func NewExecRunner(timeout time.Duration, logger *slog.Logger) Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &execRunner{timeout: timeout, logger: logger}
}

func (r *execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	r.logger.Info("running transform",
		slog.String("cmd", name),
		slog.String("args", strings.Join(args, " ")),
	)

	start := time.Now()
	out, err := exec.CommandContext(runCtx, name, args...).CombinedOutput()
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return out, fmt.Errorf("pipeline: %s timed out after %s", name, r.timeout)
		}
		return out, fmt.Errorf("pipeline: %s failed: %v: %s", name, err, truncateOutput(out, 400))
	}

	r.logger.Info("transform completed",
		slog.String("cmd", name),
		slog.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}

func truncateOutput(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
