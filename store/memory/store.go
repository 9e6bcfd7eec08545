// Package memory provides a fully in-memory job.Store. Safe for
// concurrent access. Intended for local development and unit testing.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	sudoai "github.com/Sukudo1234/sudoai-mvp"
	"github.com/Sukudo1234/sudoai-mvp/job"
)

var _ job.Store = (*Store)(nil)

// Store keeps every job record in a map keyed by task id.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*job.Job // key: TaskID
}

// New returns a new empty Store.
func New() *Store {
	return &Store{jobs: make(map[string]*job.Job)}
}

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (m *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// job.Store
// ──────────────────────────────────────────────────

// CreateJob persists a new record keyed by its task id.
func (m *Store) CreateJob(_ context.Context, j *job.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.jobs[j.TaskID]; exists {
		return sudoai.ErrJobAlreadyExists
	}

	cp := *j
	now := time.Now().UTC()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	m.jobs[j.TaskID] = &cp

	*j = cp
	return nil
}

// GetJob retrieves a record by internal id.
func (m *Store) GetJob(_ context.Context, jobID string) (*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, j := range m.jobs {
		if j.ID.String() == jobID {
			cp := *j
			return &cp, nil
		}
	}
	return nil, sudoai.ErrJobNotFound
}

// GetJobByTaskID retrieves a record by its external handle.
func (m *Store) GetJobByTaskID(_ context.Context, taskID string) (*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	j, ok := m.jobs[taskID]
	if !ok {
		return nil, sudoai.ErrJobNotFound
	}
	cp := *j
	return &cp, nil
}

// FindDuplicate returns the most recent record with the given type and
// input hash in a dedupe-relevant status.
func (m *Store) FindDuplicate(_ context.Context, t job.Type, inputHash string) (*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var newest *job.Job
	for _, j := range m.jobs {
		if j.Type != t || j.InputHash != inputHash {
			continue
		}
		if !dedupeStatus(j.Status) {
			continue
		}
		if newest == nil || j.CreatedAt.After(newest.CreatedAt) {
			newest = j
		}
	}
	if newest == nil {
		return nil, sudoai.ErrJobNotFound
	}
	cp := *newest
	return &cp, nil
}

func dedupeStatus(s job.Status) bool {
	for _, d := range job.DedupeStatuses() {
		if s == d {
			return true
		}
	}
	return false
}

// UpdateStatus transitions a record and writes the optional fields.
// Writes onto a terminal record are rejected, as is any transition the
// state machine forbids, so a slow writer can never rewind a record.
func (m *Store) UpdateStatus(_ context.Context, taskID string, status job.Status, upd job.Update) (*job.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[taskID]
	if !ok {
		return nil, sudoai.ErrJobNotFound
	}
	if j.Status.Terminal() {
		return nil, sudoai.ErrJobTerminal
	}
	if !j.Status.CanTransition(status) {
		return nil, fmt.Errorf("%w: %s to %s", sudoai.ErrInvalidTransition, j.Status, status)
	}

	now := time.Now().UTC()
	j.Status = status
	j.UpdatedAt = now

	if status == job.StatusRunning && j.StartedAt == nil {
		n := now
		j.StartedAt = &n
	}
	if status.Terminal() {
		n := now
		j.CompletedAt = &n
	}

	if upd.Result != nil {
		j.Result = upd.Result
	}
	if upd.ErrorMessage != "" {
		j.ErrorMessage = upd.ErrorMessage
	}
	if upd.BatchJobID != "" {
		j.BatchJobID = upd.BatchJobID
	}

	cp := *j
	return &cp, nil
}

// IncrementRetry bumps the retry counter.
func (m *Store) IncrementRetry(_ context.Context, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[taskID]
	if !ok {
		return sudoai.ErrJobNotFound
	}
	j.RetryCount++
	j.UpdatedAt = time.Now().UTC()
	return nil
}

// ListJobs returns records matching opts, newest first.
func (m *Store) ListJobs(_ context.Context, opts job.ListOpts) ([]*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*job.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		if opts.Type != "" && j.Type != opts.Type {
			continue
		}
		if opts.Status != "" && j.Status != opts.Status {
			continue
		}
		cp := *j
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, k int) bool {
		return result[i].CreatedAt.After(result[k].CreatedAt)
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(result) {
			return nil, nil
		}
		result = result[opts.Offset:]
	}
	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}

	return result, nil
}

// CountByStatus returns the number of records per status.
func (m *Store) CountByStatus(_ context.Context) (map[job.Status]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[job.Status]int)
	for _, j := range m.jobs {
		counts[j.Status]++
	}
	return counts, nil
}

// PurgeTerminal deletes terminal records older than the cutoff.
func (m *Store) PurgeTerminal(_ context.Context, olderThan time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int
	for key, j := range m.jobs {
		if !j.Status.Terminal() {
			continue
		}
		if j.CreatedAt.Before(olderThan) {
			delete(m.jobs, key)
			count++
		}
	}
	return count, nil
}
