package hook

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/Sukudo1234/sudoai-mvp/job"
)

// recordingHook implements every event and records what fired.
type recordingHook struct {
	events []string
}

func (h *recordingHook) Name() string { return "recording" }

func (h *recordingHook) OnJobSubmitted(_ context.Context, _ *job.Job) error {
	h.events = append(h.events, "submitted")
	return nil
}

func (h *recordingHook) OnJobDeduplicated(_ context.Context, _ *job.Job) error {
	h.events = append(h.events, "deduplicated")
	return nil
}

func (h *recordingHook) OnJobStarted(_ context.Context, _ *job.Job) error {
	h.events = append(h.events, "started")
	return nil
}

func (h *recordingHook) OnJobCompleted(_ context.Context, _ *job.Job, _ time.Duration) error {
	h.events = append(h.events, "completed")
	return nil
}

func (h *recordingHook) OnJobFailed(_ context.Context, _ *job.Job, _ error) error {
	h.events = append(h.events, "failed")
	return nil
}

func (h *recordingHook) OnJobCancelled(_ context.Context, _ *job.Job) error {
	h.events = append(h.events, "cancelled")
	return nil
}

func (h *recordingHook) OnJobRequeued(_ context.Context, _ *job.Job, _ string) error {
	h.events = append(h.events, "requeued")
	return nil
}

func (h *recordingHook) OnShutdown(_ context.Context) error {
	h.events = append(h.events, "shutdown")
	return nil
}

// startedOnlyHook opts into a single event.
type startedOnlyHook struct {
	fired int
}

func (h *startedOnlyHook) Name() string { return "started-only" }

func (h *startedOnlyHook) OnJobStarted(_ context.Context, _ *job.Job) error {
	h.fired++
	return nil
}

// failingHook always errors; errors must be swallowed.
type failingHook struct{}

func (failingHook) Name() string { return "failing" }

func (failingHook) OnJobSubmitted(_ context.Context, _ *job.Job) error {
	return errors.New("hook exploded")
}

func TestRegistry_EmitsAllEvents(t *testing.T) {
	r := NewRegistry(slog.Default())
	h := &recordingHook{}
	r.Register(h)

	ctx := context.Background()
	j := &job.Job{TaskID: "t1", Type: job.TypeSplit}

	r.EmitJobSubmitted(ctx, j)
	r.EmitJobDeduplicated(ctx, j)
	r.EmitJobStarted(ctx, j)
	r.EmitJobCompleted(ctx, j, time.Second)
	r.EmitJobFailed(ctx, j, errors.New("boom"))
	r.EmitJobCancelled(ctx, j)
	r.EmitJobRequeued(ctx, j, "t2")
	r.EmitShutdown(ctx)

	want := []string{"submitted", "deduplicated", "started", "completed", "failed", "cancelled", "requeued", "shutdown"}
	if len(h.events) != len(want) {
		t.Fatalf("expected %d events, got %v", len(want), h.events)
	}
	for i, e := range want {
		if h.events[i] != e {
			t.Fatalf("event %d: got %q, want %q", i, h.events[i], e)
		}
	}
}

func TestRegistry_OptIn(t *testing.T) {
	r := NewRegistry(slog.Default())
	h := &startedOnlyHook{}
	r.Register(h)

	ctx := context.Background()
	j := &job.Job{TaskID: "t1"}

	r.EmitJobSubmitted(ctx, j)
	r.EmitJobStarted(ctx, j)
	r.EmitJobCompleted(ctx, j, 0)

	if h.fired != 1 {
		t.Fatalf("expected exactly 1 started event, got %d", h.fired)
	}
}

func TestRegistry_HookErrorsSwallowed(t *testing.T) {
	r := NewRegistry(slog.Default())
	r.Register(failingHook{})

	// Must not panic or propagate.
	r.EmitJobSubmitted(context.Background(), &job.Job{TaskID: "t1"})
}

func TestRegistry_Hooks(t *testing.T) {
	r := NewRegistry(slog.Default())
	r.Register(&recordingHook{})
	r.Register(&startedOnlyHook{})

	if len(r.Hooks()) != 2 {
		t.Fatalf("expected 2 hooks, got %d", len(r.Hooks()))
	}
}
