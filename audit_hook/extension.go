package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Sukudo1234/sudoai-mvp/hook"
	"github.com/Sukudo1234/sudoai-mvp/job"
)

// Compile-time interface checks.
var (
	_ hook.Hook            = (*Hook)(nil)
	_ hook.JobSubmitted    = (*Hook)(nil)
	_ hook.JobDeduplicated = (*Hook)(nil)
	_ hook.JobStarted      = (*Hook)(nil)
	_ hook.JobCompleted    = (*Hook)(nil)
	_ hook.JobFailed       = (*Hook)(nil)
	_ hook.JobCancelled    = (*Hook)(nil)
	_ hook.JobRequeued     = (*Hook)(nil)
)

// Recorder is the interface audit backends must implement. It is
// defined locally so callers inject their concrete trail at wiring time.
type Recorder interface {
	// Record persists a fully-formed audit event.
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is the structured record of one lifecycle event.
type AuditEvent struct {
	Action   string `json:"action"`
	Resource string `json:"resource"`
	Category string `json:"category"`

	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Severity constants.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Outcome constants.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Hook bridges job lifecycle events to an audit trail backend.
type Hook struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates a Hook that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Hook {
	h := &Hook{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Name implements hook.Hook.
func (h *Hook) Name() string { return "audit-hook" }

// ── Job lifecycle hooks ─────────────────────────────

// OnJobSubmitted implements hook.JobSubmitted.
func (h *Hook) OnJobSubmitted(ctx context.Context, j *job.Job) error {
	return h.record(ctx, ActionJobSubmitted, SeverityInfo, OutcomeSuccess, j.TaskID, nil,
		"job_type", string(j.Type),
	)
}

// OnJobDeduplicated implements hook.JobDeduplicated.
func (h *Hook) OnJobDeduplicated(ctx context.Context, existing *job.Job) error {
	return h.record(ctx, ActionJobDeduplicated, SeverityInfo, OutcomeSuccess, existing.TaskID, nil,
		"job_type", string(existing.Type),
		"input_hash", existing.InputHash,
	)
}

// OnJobStarted implements hook.JobStarted.
func (h *Hook) OnJobStarted(ctx context.Context, j *job.Job) error {
	return h.record(ctx, ActionJobStarted, SeverityInfo, OutcomeSuccess, j.TaskID, nil,
		"job_type", string(j.Type),
		"retry_count", j.RetryCount,
	)
}

// OnJobCompleted implements hook.JobCompleted.
func (h *Hook) OnJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) error {
	return h.record(ctx, ActionJobCompleted, SeverityInfo, OutcomeSuccess, j.TaskID, nil,
		"job_type", string(j.Type),
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// OnJobFailed implements hook.JobFailed.
func (h *Hook) OnJobFailed(ctx context.Context, j *job.Job, jobErr error) error {
	return h.record(ctx, ActionJobFailed, SeverityCritical, OutcomeFailure, j.TaskID, jobErr,
		"job_type", string(j.Type),
		"retry_count", j.RetryCount,
		"max_retries", j.MaxRetries,
	)
}

// OnJobCancelled implements hook.JobCancelled.
func (h *Hook) OnJobCancelled(ctx context.Context, j *job.Job) error {
	return h.record(ctx, ActionJobCancelled, SeverityWarning, OutcomeSuccess, j.TaskID, nil,
		"job_type", string(j.Type),
	)
}

// OnJobRequeued implements hook.JobRequeued.
func (h *Hook) OnJobRequeued(ctx context.Context, old *job.Job, newTaskID string) error {
	return h.record(ctx, ActionJobRequeued, SeverityInfo, OutcomeSuccess, old.TaskID, nil,
		"job_type", string(old.Type),
		"new_task_id", newTaskID,
	)
}

// ── Internal helpers ────────────────────────────────

// record builds and sends an audit event if the action is enabled.
// The kvPairs argument is a list of key-value pairs added to Metadata.
func (h *Hook) record(
	ctx context.Context,
	action, severity, outcome, resourceID string,
	err error,
	kvPairs ...any,
) error {
	if h.enabled != nil && !h.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   ResourceJob,
		Category:   CategoryJob,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := h.recorder.Record(ctx, evt); recErr != nil {
		h.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
