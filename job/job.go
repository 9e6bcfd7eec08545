// Package job defines the Job model, its lifecycle state machine, the
// typed per-type input parameters, the canonical input hash used for
// deduplication, and the record store contract.
package job

import (
	"encoding/json"
	"time"

	"github.com/Sukudo1234/sudoai-mvp/id"
)

// Type identifies the kind of media processing a job performs.
type Type string

const (
	// TypeSplit separates an audio track into stems (GPU lane).
	TypeSplit Type = "split"
	// TypeMerge muxes a video stream with a replacement audio stream.
	TypeMerge Type = "merge"
	// TypeTranscribe produces subtitles for an audio/video input.
	TypeTranscribe Type = "transcribe"
	// TypeRename batch-renames object store keys by pattern.
	TypeRename Type = "rename"
)

// Types lists every known job type.
func Types() []Type {
	return []Type{TypeSplit, TypeMerge, TypeTranscribe, TypeRename}
}

// Valid reports whether t is a known job type.
func (t Type) Valid() bool {
	switch t {
	case TypeSplit, TypeMerge, TypeTranscribe, TypeRename:
		return true
	}
	return false
}

// Status represents the lifecycle state of a job record.
type Status string

const (
	// StatusPending means the record exists but dispatch has not been
	// acknowledged yet.
	StatusPending Status = "pending"
	// StatusQueued means the dispatch backend accepted the job.
	StatusQueued Status = "queued"
	// StatusRunning means a worker is executing the pipeline.
	StatusRunning Status = "running"
	// StatusCompleted means the pipeline finished and Result is set.
	StatusCompleted Status = "completed"
	// StatusFailed means the pipeline or dispatch failed and
	// ErrorMessage is set.
	StatusFailed Status = "failed"
	// StatusCancelled means the job was cancelled before pickup.
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether s is a terminal state. Terminal records never
// transition again; requeue creates a new record instead.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether the state machine permits moving from s
// to next. Transitions are monotonic forward; there is no path out of a
// terminal state.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusQueued || next == StatusRunning ||
			next == StatusFailed || next == StatusCancelled
	case StatusQueued:
		return next == StatusRunning || next == StatusFailed || next == StatusCancelled
	case StatusRunning:
		return next == StatusCompleted || next == StatusFailed
	}
	return false
}

// dedupeStatuses are the states under which an earlier job with the same
// input hash suppresses a new submission.
var dedupeStatuses = []Status{StatusQueued, StatusRunning, StatusCompleted}

// DedupeStatuses returns the states considered by the duplicate check at
// submission time.
func DedupeStatuses() []Status {
	out := make([]Status, len(dedupeStatuses))
	copy(out, dedupeStatuses)
	return out
}

// Job is a single media-processing job record. The record is the single
// source of truth for what happened; live broker/compute state is merged
// into status reads but never replaces it.
type Job struct {
	// ID is the internal row identifier, assigned at persistence time.
	ID id.JobID `json:"id"`

	// TaskID is the caller-facing external handle used for all status
	// queries. Broker-assigned in Direct-Broker mode, generated in
	// Managed mode. Immutable once assigned.
	TaskID string `json:"task_id"`

	Type   Type   `json:"job_type"`
	Status Status `json:"status"`

	// InputParams is the validated, defaults-applied parameter payload.
	InputParams json.RawMessage `json:"input_params"`

	// InputHash is the canonical digest of (type, params) used for
	// deduplication.
	InputHash string `json:"input_hash"`

	// Result is set exactly once, on the Completed transition.
	Result json.RawMessage `json:"result,omitempty"`
	// ErrorMessage is set exactly once, on the Failed transition.
	ErrorMessage string `json:"error_message,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// BatchJobID is the compute service's native job id, set only by the
	// Managed-Queue+Compute backend.
	BatchJobID string `json:"batch_job_id,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`
}
