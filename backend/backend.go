// Package backend defines the dispatch backend contract and the shared
// upstream status vocabulary. Two implementations exist: broker (Redis via
// asynq, local development) and batch (SQS plus AWS Batch, production).
package backend

import (
	"context"

	"github.com/Sukudo1234/sudoai-mvp/job"
)

// UpstreamStatus is the shared vocabulary both backends map their native
// state onto when queried for live state.
type UpstreamStatus string

const (
	// UpstreamPending means the backend knows the handle but nothing has
	// started yet, or it has no information at all.
	UpstreamPending UpstreamStatus = "PENDING"
	// UpstreamStarted means execution has begun.
	UpstreamStarted UpstreamStatus = "STARTED"
	// UpstreamSuccess means execution finished successfully.
	UpstreamSuccess UpstreamStatus = "SUCCESS"
	// UpstreamFailure means execution failed.
	UpstreamFailure UpstreamStatus = "FAILURE"
	// UpstreamRevoked means the work was cancelled upstream.
	UpstreamRevoked UpstreamStatus = "REVOKED"
)

// Terminal reports whether s is a terminal upstream state.
func (s UpstreamStatus) Terminal() bool {
	switch s {
	case UpstreamSuccess, UpstreamFailure, UpstreamRevoked:
		return true
	}
	return false
}

// FromRecordStatus maps a persisted record status onto the upstream
// vocabulary, for the merged status view.
func FromRecordStatus(s job.Status) UpstreamStatus {
	switch s {
	case job.StatusPending, job.StatusQueued:
		return UpstreamPending
	case job.StatusRunning:
		return UpstreamStarted
	case job.StatusCompleted:
		return UpstreamSuccess
	case job.StatusFailed:
		return UpstreamFailure
	case job.StatusCancelled:
		return UpstreamRevoked
	}
	return UpstreamPending
}

// Backend dispatches validated jobs and answers best-effort live state
// queries. Construction fails fatally when required endpoints or
// credentials are absent; per-submission failures surface as
// ErrDispatchFailed wrapped errors.
type Backend interface {
	// Submit hands a validated job off for execution and returns the
	// external handle callers use for all later queries. Implementations
	// own the persistence sequencing around dispatch (see each backend's
	// doc for the exact order).
	Submit(ctx context.Context, t job.Type, params []byte, dedupeKey string) (string, error)

	// QueryUpstream returns the backend's live view of the handle, or
	// false when no live state is available. Absence is not an error;
	// callers fall back to the persisted record.
	QueryUpstream(ctx context.Context, handle string) (UpstreamStatus, bool, error)

	// Cancel stops a job that has not been picked up yet. Jobs already
	// running are not interrupted.
	Cancel(ctx context.Context, handle string) error

	// Close releases backend connections.
	Close() error
}
