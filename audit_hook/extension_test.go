package audithook_test

import (
	"context"
	"errors"
	"testing"
	"time"

	audithook "github.com/Sukudo1234/sudoai-mvp/audit_hook"
	"github.com/Sukudo1234/sudoai-mvp/id"
	"github.com/Sukudo1234/sudoai-mvp/job"
)

type capturingRecorder struct {
	events []*audithook.AuditEvent
	err    error
}

func (r *capturingRecorder) Record(_ context.Context, event *audithook.AuditEvent) error {
	r.events = append(r.events, event)
	return r.err
}

func testJob() *job.Job {
	return &job.Job{
		ID:         id.NewJobID(),
		TaskID:     "task-audit-1",
		Type:       job.TypeSplit,
		Status:     job.StatusRunning,
		MaxRetries: 3,
	}
}

func TestAuditHook_RecordsLifecycleEvents(t *testing.T) {
	rec := &capturingRecorder{}
	h := audithook.New(rec)
	ctx := context.Background()
	j := testJob()

	if err := h.OnJobSubmitted(ctx, j); err != nil {
		t.Fatalf("OnJobSubmitted: %v", err)
	}
	if err := h.OnJobCompleted(ctx, j, 1500*time.Millisecond); err != nil {
		t.Fatalf("OnJobCompleted: %v", err)
	}

	if len(rec.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(rec.events))
	}

	submitted := rec.events[0]
	if submitted.Action != audithook.ActionJobSubmitted {
		t.Errorf("action = %q, want %q", submitted.Action, audithook.ActionJobSubmitted)
	}
	if submitted.ResourceID != "task-audit-1" {
		t.Errorf("resource_id = %q, want task-audit-1", submitted.ResourceID)
	}
	if submitted.Category != audithook.CategoryJob {
		t.Errorf("category = %q, want %q", submitted.Category, audithook.CategoryJob)
	}
	if submitted.Metadata["job_type"] != "split" {
		t.Errorf("metadata job_type = %v, want split", submitted.Metadata["job_type"])
	}

	completed := rec.events[1]
	if completed.Action != audithook.ActionJobCompleted {
		t.Errorf("action = %q, want %q", completed.Action, audithook.ActionJobCompleted)
	}
	if completed.Metadata["elapsed_ms"] != int64(1500) {
		t.Errorf("metadata elapsed_ms = %v, want 1500", completed.Metadata["elapsed_ms"])
	}
}

func TestAuditHook_FailedJobSeverity(t *testing.T) {
	rec := &capturingRecorder{}
	h := audithook.New(rec)

	jobErr := errors.New("ffmpeg exited 1")
	if err := h.OnJobFailed(context.Background(), testJob(), jobErr); err != nil {
		t.Fatalf("OnJobFailed: %v", err)
	}

	if len(rec.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(rec.events))
	}
	evt := rec.events[0]
	if evt.Severity != audithook.SeverityCritical {
		t.Errorf("severity = %q, want %q", evt.Severity, audithook.SeverityCritical)
	}
	if evt.Outcome != audithook.OutcomeFailure {
		t.Errorf("outcome = %q, want %q", evt.Outcome, audithook.OutcomeFailure)
	}
	if evt.Reason != "ffmpeg exited 1" {
		t.Errorf("reason = %q, want the job error", evt.Reason)
	}
}

func TestAuditHook_ActionFilter(t *testing.T) {
	rec := &capturingRecorder{}
	h := audithook.New(rec, audithook.WithActions(audithook.ActionJobFailed))
	ctx := context.Background()
	j := testJob()

	if err := h.OnJobSubmitted(ctx, j); err != nil {
		t.Fatalf("OnJobSubmitted: %v", err)
	}
	if err := h.OnJobStarted(ctx, j); err != nil {
		t.Fatalf("OnJobStarted: %v", err)
	}
	if err := h.OnJobFailed(ctx, j, errors.New("boom")); err != nil {
		t.Fatalf("OnJobFailed: %v", err)
	}

	if len(rec.events) != 1 {
		t.Fatalf("expected only the failed event, got %d events", len(rec.events))
	}
	if rec.events[0].Action != audithook.ActionJobFailed {
		t.Errorf("action = %q, want %q", rec.events[0].Action, audithook.ActionJobFailed)
	}
}

func TestAuditHook_RecorderErrorNotPropagated(t *testing.T) {
	rec := &capturingRecorder{err: errors.New("trail unavailable")}
	h := audithook.New(rec)

	if err := h.OnJobCancelled(context.Background(), testJob()); err != nil {
		t.Fatalf("recorder failure must not propagate, got %v", err)
	}
}

func TestAuditHook_RequeueCarriesNewTaskID(t *testing.T) {
	rec := &capturingRecorder{}
	h := audithook.New(rec)

	old := testJob()
	if err := h.OnJobRequeued(context.Background(), old, "task-audit-2"); err != nil {
		t.Fatalf("OnJobRequeued: %v", err)
	}

	if len(rec.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(rec.events))
	}
	evt := rec.events[0]
	if evt.ResourceID != old.TaskID {
		t.Errorf("resource_id = %q, want the original task id", evt.ResourceID)
	}
	if evt.Metadata["new_task_id"] != "task-audit-2" {
		t.Errorf("metadata new_task_id = %v, want task-audit-2", evt.Metadata["new_task_id"])
	}
}
