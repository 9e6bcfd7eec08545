// Package engine is the orchestration core: it validates and hashes
// submissions, runs the dedupe check, delegates dispatch to the active
// backend, and serves the merged status, cancel, and requeue operations.
//
// The engine never talks to a broker or compute service directly; the
// backend owns dispatch, and the job store owns persistence.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sudoai "github.com/Sukudo1234/sudoai-mvp"
	"github.com/Sukudo1234/sudoai-mvp/backend"
	"github.com/Sukudo1234/sudoai-mvp/hook"
	"github.com/Sukudo1234/sudoai-mvp/job"
)

// Engine coordinates submissions between the record store and the
// dispatch backend.
type Engine struct {
	backend backend.Backend
	jobs    job.Store
	hooks   *hook.Registry
	logger  *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithHook registers a lifecycle hook.
func WithHook(h hook.Hook) Option {
	return func(e *Engine) {
		e.hooks.Register(h)
	}
}

// New creates an Engine over the given backend and store.
func New(b backend.Backend, jobs job.Store, opts ...Option) *Engine {
	e := &Engine{
		backend: b,
		jobs:    jobs,
		logger:  slog.Default(),
	}
	e.hooks = hook.NewRegistry(e.logger)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Hooks returns the engine's hook registry.
func (e *Engine) Hooks() *hook.Registry { return e.hooks }

// SubmitResult is the outcome of a submission.
type SubmitResult struct {
	// TaskID is the external handle for all later queries.
	TaskID string `json:"task_id"`
	// Deduplicated is true when an earlier equivalent job answered the
	// submission and no new dispatch happened.
	Deduplicated bool `json:"deduplicated"`
}

// Submit validates the parameters, applies per-type defaults, computes
// the canonical input hash, runs the advisory dedupe check, and hands the
// job to the backend. The dedupe check is best-effort: concurrent
// identical submissions may both dispatch, which is acceptable because
// the transforms are repeatable and outputs use distinct keys.
func (e *Engine) Submit(ctx context.Context, t job.Type, rawParams json.RawMessage, dedupeKey string) (*SubmitResult, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %q", sudoai.ErrUnknownJobType, t)
	}

	_, canonical, err := job.ParseParams(t, rawParams)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sudoai.ErrInvalidParams, err)
	}

	hash, err := job.InputHash(t, canonical)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sudoai.ErrInvalidParams, err)
	}

	existing, err := e.jobs.FindDuplicate(ctx, t, hash)
	switch {
	case err == nil:
		e.logger.Info("submission deduplicated",
			"type", t, "task_id", existing.TaskID, "status", existing.Status)
		e.hooks.EmitJobDeduplicated(ctx, existing)
		return &SubmitResult{TaskID: existing.TaskID, Deduplicated: true}, nil
	case errors.Is(err, sudoai.ErrJobNotFound):
		// No live duplicate; dispatch.
	default:
		// The dedupe check is advisory; a store error here must not block
		// the submission.
		e.logger.Warn("dedupe check failed", "type", t, "error", err)
	}

	handle, err := e.backend.Submit(ctx, t, canonical, dedupeKey)
	if err != nil {
		return nil, err
	}

	if rec, getErr := e.jobs.GetJobByTaskID(ctx, handle); getErr == nil {
		e.hooks.EmitJobSubmitted(ctx, rec)
	}

	return &SubmitResult{TaskID: handle}, nil
}

// StatusView is the merged record-plus-upstream view of a job.
type StatusView struct {
	Job *job.Job `json:"job"`
	// Upstream is the live backend state, present only when the backend
	// had information for this handle.
	Upstream backend.UpstreamStatus `json:"upstream,omitempty"`
}

// Status returns the merged view for a task id. The persisted record is
// authoritative; live backend state is merged in for non-terminal
// records, and an upstream terminal failure or revocation is folded into
// the record so later reads agree.
func (e *Engine) Status(ctx context.Context, taskID string) (*StatusView, error) {
	rec, err := e.jobs.GetJobByTaskID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	view := &StatusView{Job: rec}
	if rec.Status.Terminal() {
		view.Upstream = backend.FromRecordStatus(rec.Status)
		return view, nil
	}

	upstream, ok, err := e.backend.QueryUpstream(ctx, taskID)
	if err != nil || !ok {
		if err != nil {
			// Reconciliation is best-effort; fall back to the record.
			e.logger.Warn("upstream status query failed", "task_id", taskID, "error", err)
		}
		view.Upstream = backend.FromRecordStatus(rec.Status)
		return view, nil
	}
	view.Upstream = upstream

	// Fold upstream terminal outcomes into the record. Success is left to
	// the worker, which owns result persistence.
	switch upstream {
	case backend.UpstreamFailure:
		if updated, uErr := e.jobs.UpdateStatus(ctx, taskID, job.StatusFailed, job.Update{
			ErrorMessage: "job failed upstream",
		}); uErr == nil {
			view.Job = updated
			e.hooks.EmitJobFailed(ctx, updated, errors.New("job failed upstream"))
		} else {
			e.refreshView(ctx, taskID, view)
		}
	case backend.UpstreamRevoked:
		if updated, uErr := e.jobs.UpdateStatus(ctx, taskID, job.StatusCancelled, job.Update{}); uErr == nil {
			view.Job = updated
			e.hooks.EmitJobCancelled(ctx, updated)
		} else {
			e.refreshView(ctx, taskID, view)
		}
	}

	return view, nil
}

// refreshView re-reads the record into the view after a lost fold. The
// backend may have folded the upstream outcome itself during its poll;
// the response must reflect whatever is persisted now.
func (e *Engine) refreshView(ctx context.Context, taskID string, view *StatusView) {
	if refreshed, err := e.jobs.GetJobByTaskID(ctx, taskID); err == nil {
		view.Job = refreshed
	}
}

// Cancel stops a job that has not been picked up. Only Pending and Queued
// records are cancellable; Running jobs execute to completion.
func (e *Engine) Cancel(ctx context.Context, taskID string) (*job.Job, error) {
	rec, err := e.jobs.GetJobByTaskID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if rec.Status != job.StatusPending && rec.Status != job.StatusQueued {
		return nil, fmt.Errorf("%w: status %s", sudoai.ErrNotCancellable, rec.Status)
	}

	if err := e.backend.Cancel(ctx, taskID); err != nil {
		// The backend may have already handed the job to a worker; the
		// record decides, so log and continue.
		e.logger.Warn("backend cancel failed", "task_id", taskID, "error", err)
	}

	updated, err := e.jobs.UpdateStatus(ctx, taskID, job.StatusCancelled, job.Update{})
	if err != nil {
		return nil, err
	}

	e.hooks.EmitJobCancelled(ctx, updated)
	e.logger.Info("job cancelled", "task_id", taskID)
	return updated, nil
}

// RequeueResult pairs the old terminal handle with the newly dispatched
// one.
type RequeueResult struct {
	OldTaskID string `json:"old_task_id"`
	NewTaskID string `json:"new_task_id"`
}

// Requeue reads a failed or cancelled job's parameters and submits them
// as a brand-new job. The terminal record is never mutated; the new
// record's retry counter is bumped to mark it as a resubmission.
func (e *Engine) Requeue(ctx context.Context, taskID string) (*RequeueResult, error) {
	rec, err := e.jobs.GetJobByTaskID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if rec.Status != job.StatusFailed && rec.Status != job.StatusCancelled {
		return nil, fmt.Errorf("%w: status %s", sudoai.ErrNotRequeueable, rec.Status)
	}

	handle, err := e.backend.Submit(ctx, rec.Type, rec.InputParams, "")
	if err != nil {
		return nil, err
	}

	if err := e.jobs.IncrementRetry(ctx, handle); err != nil {
		e.logger.Warn("resubmission counter not set", "task_id", handle, "error", err)
	}

	e.hooks.EmitJobRequeued(ctx, rec, handle)
	e.logger.Info("job requeued", "old_task_id", taskID, "new_task_id", handle)
	return &RequeueResult{OldTaskID: taskID, NewTaskID: handle}, nil
}

// List returns job records matching the filter, newest first.
func (e *Engine) List(ctx context.Context, opts job.ListOpts) ([]*job.Job, error) {
	return e.jobs.ListJobs(ctx, opts)
}

// Stats returns the number of records per status.
func (e *Engine) Stats(ctx context.Context) (map[job.Status]int, error) {
	return e.jobs.CountByStatus(ctx)
}

// Sweep deletes terminal records older than the retention window and
// returns how many were removed.
func (e *Engine) Sweep(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-retention)
	n, err := e.jobs.PurgeTerminal(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		e.logger.Info("terminal records swept", "count", n, "older_than", cutoff)
	}
	return n, nil
}

// Close shuts the engine down, notifying shutdown hooks and closing the
// backend.
func (e *Engine) Close(ctx context.Context) error {
	e.hooks.EmitShutdown(ctx)
	return e.backend.Close()
}
