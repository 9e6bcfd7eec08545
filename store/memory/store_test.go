package memory

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	sudoai "github.com/Sukudo1234/sudoai-mvp"
	"github.com/Sukudo1234/sudoai-mvp/id"
	"github.com/Sukudo1234/sudoai-mvp/job"
)

func newJob(taskID string, t job.Type, hash string) *job.Job {
	return &job.Job{
		ID:          id.NewJobID(),
		TaskID:      taskID,
		Type:        t,
		Status:      job.StatusPending,
		InputParams: json.RawMessage(`{"sourceUrl":"s3://raw/a.wav"}`),
		InputHash:   hash,
		MaxRetries:  2,
	}
}

func TestCreateAndGet(t *testing.T) {
	s := New()
	ctx := context.Background()

	j := newJob("task-1", job.TypeSplit, "h1")
	if err := s.CreateJob(ctx, j); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if j.CreatedAt.IsZero() {
		t.Fatal("CreatedAt not stamped")
	}

	got, err := s.GetJobByTaskID(ctx, "task-1")
	if err != nil {
		t.Fatalf("GetJobByTaskID: %v", err)
	}
	if got.Type != job.TypeSplit || got.Status != job.StatusPending {
		t.Fatalf("unexpected record: %+v", got)
	}

	byID, err := s.GetJob(ctx, j.ID.String())
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if byID.TaskID != "task-1" {
		t.Fatalf("unexpected task id %q", byID.TaskID)
	}
}

func TestCreate_DuplicateTaskID(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.CreateJob(ctx, newJob("task-1", job.TypeSplit, "h1")); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	err := s.CreateJob(ctx, newJob("task-1", job.TypeSplit, "h2"))
	if !errors.Is(err, sudoai.ErrJobAlreadyExists) {
		t.Fatalf("expected ErrJobAlreadyExists, got %v", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	s := New()
	if _, err := s.GetJobByTaskID(context.Background(), "missing"); !errors.Is(err, sudoai.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestFindDuplicate(t *testing.T) {
	s := New()
	ctx := context.Background()

	j := newJob("task-1", job.TypeSplit, "h1")
	if err := s.CreateJob(ctx, j); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	// Pending is not a dedupe-relevant status.
	if _, err := s.FindDuplicate(ctx, job.TypeSplit, "h1"); !errors.Is(err, sudoai.ErrJobNotFound) {
		t.Fatalf("expected no duplicate while pending, got %v", err)
	}

	if _, err := s.UpdateStatus(ctx, "task-1", job.StatusQueued, job.Update{}); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	dup, err := s.FindDuplicate(ctx, job.TypeSplit, "h1")
	if err != nil {
		t.Fatalf("FindDuplicate: %v", err)
	}
	if dup.TaskID != "task-1" {
		t.Fatalf("unexpected duplicate %q", dup.TaskID)
	}

	// Same hash, different type is not a duplicate.
	if _, err := s.FindDuplicate(ctx, job.TypeTranscribe, "h1"); !errors.Is(err, sudoai.ErrJobNotFound) {
		t.Fatalf("expected no cross-type duplicate, got %v", err)
	}
}

func TestUpdateStatus_Lifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.CreateJob(ctx, newJob("task-1", job.TypeMerge, "h1")); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	running, err := s.UpdateStatus(ctx, "task-1", job.StatusRunning, job.Update{})
	if err != nil {
		t.Fatalf("UpdateStatus(running): %v", err)
	}
	if running.StartedAt == nil {
		t.Fatal("StartedAt not stamped on running transition")
	}

	done, err := s.UpdateStatus(ctx, "task-1", job.StatusCompleted, job.Update{
		Result: json.RawMessage(`{"outputUrl":"s3://out/x.mp4"}`),
	})
	if err != nil {
		t.Fatalf("UpdateStatus(completed): %v", err)
	}
	if done.CompletedAt == nil {
		t.Fatal("CompletedAt not stamped on terminal transition")
	}
	if len(done.Result) == 0 {
		t.Fatal("Result not written")
	}
}

func TestUpdateStatus_TerminalGuard(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.CreateJob(ctx, newJob("task-1", job.TypeSplit, "h1")); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if _, err := s.UpdateStatus(ctx, "task-1", job.StatusFailed, job.Update{ErrorMessage: "boom"}); err != nil {
		t.Fatalf("UpdateStatus(failed): %v", err)
	}

	_, err := s.UpdateStatus(ctx, "task-1", job.StatusCompleted, job.Update{})
	if !errors.Is(err, sudoai.ErrJobTerminal) {
		t.Fatalf("expected ErrJobTerminal, got %v", err)
	}

	got, err := s.GetJobByTaskID(ctx, "task-1")
	if err != nil {
		t.Fatalf("GetJobByTaskID: %v", err)
	}
	if got.Status != job.StatusFailed || got.ErrorMessage != "boom" {
		t.Fatalf("terminal record mutated: %+v", got)
	}
}

func TestUpdateStatus_NoBackwardsTransition(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.CreateJob(ctx, newJob("task-1", job.TypeSplit, "h1")); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if _, err := s.UpdateStatus(ctx, "task-1", job.StatusRunning, job.Update{}); err != nil {
		t.Fatalf("UpdateStatus(running): %v", err)
	}

	// A slow dispatcher marking Queued after the worker started must not
	// rewind the record.
	_, err := s.UpdateStatus(ctx, "task-1", job.StatusQueued, job.Update{})
	if !errors.Is(err, sudoai.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	got, err := s.GetJobByTaskID(ctx, "task-1")
	if err != nil {
		t.Fatalf("GetJobByTaskID: %v", err)
	}
	if got.Status != job.StatusRunning {
		t.Fatalf("record rewound to %s", got.Status)
	}
}

func TestIncrementRetry(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.CreateJob(ctx, newJob("task-1", job.TypeSplit, "h1")); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if err := s.IncrementRetry(ctx, "task-1"); err != nil {
		t.Fatalf("IncrementRetry: %v", err)
	}
	got, _ := s.GetJobByTaskID(ctx, "task-1")
	if got.RetryCount != 1 {
		t.Fatalf("expected retry count 1, got %d", got.RetryCount)
	}
}

func TestListJobs_FilterAndPage(t *testing.T) {
	s := New()
	ctx := context.Background()

	for _, tc := range []struct {
		task string
		typ  job.Type
	}{
		{"t1", job.TypeSplit},
		{"t2", job.TypeSplit},
		{"t3", job.TypeMerge},
	} {
		j := newJob(tc.task, tc.typ, "h-"+tc.task)
		if err := s.CreateJob(ctx, j); err != nil {
			t.Fatalf("CreateJob: %v", err)
		}
	}

	splits, err := s.ListJobs(ctx, job.ListOpts{Type: job.TypeSplit})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(splits) != 2 {
		t.Fatalf("expected 2 split jobs, got %d", len(splits))
	}

	limited, err := s.ListJobs(ctx, job.ListOpts{Limit: 1})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected 1 job with limit, got %d", len(limited))
	}

	none, err := s.ListJobs(ctx, job.ListOpts{Offset: 10})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected empty page, got %d", len(none))
	}
}

func TestCountByStatus(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.CreateJob(ctx, newJob("t1", job.TypeSplit, "h1")); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if err := s.CreateJob(ctx, newJob("t2", job.TypeSplit, "h2")); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if _, err := s.UpdateStatus(ctx, "t2", job.StatusQueued, job.Update{}); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	counts, err := s.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if counts[job.StatusPending] != 1 || counts[job.StatusQueued] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}

func TestPurgeTerminal(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.CreateJob(ctx, newJob("t1", job.TypeSplit, "h1")); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if err := s.CreateJob(ctx, newJob("t2", job.TypeSplit, "h2")); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if _, err := s.UpdateStatus(ctx, "t1", job.StatusFailed, job.Update{ErrorMessage: "x"}); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	n, err := s.PurgeTerminal(ctx, time.Now().UTC().Add(time.Minute))
	if err != nil {
		t.Fatalf("PurgeTerminal: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 purged, got %d", n)
	}

	// The non-terminal record survives.
	if _, err := s.GetJobByTaskID(ctx, "t2"); err != nil {
		t.Fatalf("pending record purged: %v", err)
	}
	if _, err := s.GetJobByTaskID(ctx, "t1"); !errors.Is(err, sudoai.ErrJobNotFound) {
		t.Fatalf("terminal record not purged: %v", err)
	}
}
