package relayhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Sukudo1234/sudoai-mvp/backoff"
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

const defaultMaxAttempts = 3

// Hook posts job lifecycle events to a webhook endpoint.
type Hook struct {
	url         string
	client      *http.Client
	backoff     backoff.Strategy
	maxAttempts int
	enabled     map[string]bool // nil = all enabled
	logger      *slog.Logger
}

// New creates a webhook hook delivering to the given URL.
func New(url string, opts ...Option) *Hook {
	h := &Hook{
		url:         url,
		client:      &http.Client{Timeout: 10 * time.Second},
		backoff:     backoff.NewExponentialWithJitter(200*time.Millisecond, 5*time.Second),
		maxAttempts: defaultMaxAttempts,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Name implements hook.Hook.
func (h *Hook) Name() string { return "relay-hook" }

// ── Job lifecycle hooks ─────────────────────────────

// OnJobSubmitted implements hook.JobSubmitted.
func (h *Hook) OnJobSubmitted(ctx context.Context, j *job.Job) error {
	return h.deliver(ctx, EventJobSubmitted, payloadFor(j))
}

// OnJobDeduplicated implements hook.JobDeduplicated.
func (h *Hook) OnJobDeduplicated(ctx context.Context, existing *job.Job) error {
	return h.deliver(ctx, EventJobDeduplicated, deduplicatedPayload{
		jobPayload: payloadFor(existing),
		InputHash:  existing.InputHash,
	})
}

// OnJobStarted implements hook.JobStarted.
func (h *Hook) OnJobStarted(ctx context.Context, j *job.Job) error {
	return h.deliver(ctx, EventJobStarted, payloadFor(j))
}

// OnJobCompleted implements hook.JobCompleted.
func (h *Hook) OnJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) error {
	return h.deliver(ctx, EventJobCompleted, completedPayload{
		jobPayload: payloadFor(j),
		ElapsedMS:  elapsed.Milliseconds(),
	})
}

// OnJobFailed implements hook.JobFailed.
func (h *Hook) OnJobFailed(ctx context.Context, j *job.Job, jobErr error) error {
	p := failedPayload{jobPayload: payloadFor(j)}
	if jobErr != nil {
		p.Error = jobErr.Error()
	}
	return h.deliver(ctx, EventJobFailed, p)
}

// OnJobCancelled implements hook.JobCancelled.
func (h *Hook) OnJobCancelled(ctx context.Context, j *job.Job) error {
	return h.deliver(ctx, EventJobCancelled, payloadFor(j))
}

// OnJobRequeued implements hook.JobRequeued.
func (h *Hook) OnJobRequeued(ctx context.Context, old *job.Job, newTaskID string) error {
	return h.deliver(ctx, EventJobRequeued, requeuedPayload{
		jobPayload: payloadFor(old),
		NewTaskID:  newTaskID,
	})
}

// ── Internal helpers ────────────────────────────────

func payloadFor(j *job.Job) jobPayload {
	return jobPayload{
		TaskID:  j.TaskID,
		JobType: string(j.Type),
		Status:  string(j.Status),
	}
}

// deliver posts one envelope, retrying transient failures. The last
// error is returned after all attempts so the registry can log it.
func (h *Hook) deliver(ctx context.Context, event string, payload any) error {
	if h.enabled != nil && !h.enabled[event] {
		return nil
	}

	body, err := json.Marshal(Envelope{Type: event, Payload: payload})
	if err != nil {
		return fmt.Errorf("relay_hook: encode %s: %w", event, err)
	}

	var lastErr error
	for attempt := 1; attempt <= h.maxAttempts; attempt++ {
		lastErr = h.post(ctx, body)
		if lastErr == nil {
			return nil
		}

		if attempt == h.maxAttempts {
			break
		}
		h.logger.Warn("relay_hook: delivery failed, retrying",
			"event", event,
			"attempt", attempt,
			"error", lastErr,
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(h.backoff.Delay(attempt)):
		}
	}
	return fmt.Errorf("relay_hook: deliver %s after %d attempts: %w", event, h.maxAttempts, lastErr)
}

func (h *Hook) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("endpoint returned %s", resp.Status)
	}
	return nil
}
