package job

import (
	"context"
	"encoding/json"
	"time"
)

// Update carries the optional fields written alongside a status transition.
// Nil/empty fields are left untouched.
type Update struct {
	Result       json.RawMessage
	ErrorMessage string
	BatchJobID   string
}

// ListOpts filters and pages ListJobs.
type ListOpts struct {
	Type   Type
	Status Status
	Limit  int
	Offset int
}

// Store is the persistence contract for job records. Implementations must
// be safe for concurrent use; individual field updates are last-writer-wins
// and no cross-field transaction is required.
type Store interface {
	// CreateJob persists a new record. The record's TaskID must be set and
	// unique; ErrJobAlreadyExists is returned on a task id collision.
	CreateJob(ctx context.Context, j *Job) error

	// GetJob fetches by internal id.
	GetJob(ctx context.Context, jobID string) (*Job, error)

	// GetJobByTaskID fetches by the caller-facing external handle.
	GetJobByTaskID(ctx context.Context, taskID string) (*Job, error)

	// FindDuplicate returns the most recent job with the given type and
	// input hash whose status is in DedupeStatuses, or ErrJobNotFound.
	FindDuplicate(ctx context.Context, t Type, inputHash string) (*Job, error)

	// UpdateStatus transitions the record identified by task id. Writes
	// onto a terminal record return ErrJobTerminal; illegal transitions
	// return ErrJobTerminal as well for terminal sources and are otherwise
	// applied last-writer-wins. StartedAt is stamped on the first move to
	// Running, CompletedAt on any terminal move.
	UpdateStatus(ctx context.Context, taskID string, status Status, upd Update) (*Job, error)

	// IncrementRetry bumps the retry counter.
	IncrementRetry(ctx context.Context, taskID string) error

	// ListJobs returns records matching opts, newest first.
	ListJobs(ctx context.Context, opts ListOpts) ([]*Job, error)

	// CountByStatus returns the number of records per status.
	CountByStatus(ctx context.Context) (map[Status]int, error)

	// PurgeTerminal deletes terminal records older than the cutoff and
	// returns how many were removed.
	PurgeTerminal(ctx context.Context, olderThan time.Time) (int, error)
}
