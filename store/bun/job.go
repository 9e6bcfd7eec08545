package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	sudoai "github.com/Sukudo1234/sudoai-mvp"
	"github.com/Sukudo1234/sudoai-mvp/job"
)

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// isDuplicateKey matches the Postgres unique_violation code. Only the
// task_id and primary key columns carry unique constraints.
func isDuplicateKey(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == "23505"
	}
	return false
}

// CreateJob persists a new record.
func (s *Store) CreateJob(ctx context.Context, j *job.Job) error {
	now := time.Now().UTC()
	if j.CreatedAt.IsZero() {
		j.CreatedAt = now
	}
	j.UpdatedAt = now

	m := toJobModel(j)
	_, err := s.db.NewInsert().Model(m).Exec(ctx)
	if err != nil {
		if isDuplicateKey(err) {
			return sudoai.ErrJobAlreadyExists
		}
		return fmt.Errorf("sudoai/bun: create job: %w", err)
	}
	return nil
}

// GetJob retrieves a record by internal id.
func (s *Store) GetJob(ctx context.Context, jobID string) (*job.Job, error) {
	m := new(jobModel)
	err := s.db.NewSelect().Model(m).
		Where("id = ?", jobID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, sudoai.ErrJobNotFound
		}
		return nil, fmt.Errorf("sudoai/bun: get job: %w", err)
	}
	return fromJobModel(m)
}

// GetJobByTaskID retrieves a record by its external handle.
func (s *Store) GetJobByTaskID(ctx context.Context, taskID string) (*job.Job, error) {
	m := new(jobModel)
	err := s.db.NewSelect().Model(m).
		Where("task_id = ?", taskID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, sudoai.ErrJobNotFound
		}
		return nil, fmt.Errorf("sudoai/bun: get job by task id: %w", err)
	}
	return fromJobModel(m)
}

// FindDuplicate returns the most recent record with the given type and
// input hash whose status is dedupe-relevant.
func (s *Store) FindDuplicate(ctx context.Context, t job.Type, inputHash string) (*job.Job, error) {
	statuses := make([]string, 0, 3)
	for _, st := range job.DedupeStatuses() {
		statuses = append(statuses, string(st))
	}

	m := new(jobModel)
	err := s.db.NewSelect().Model(m).
		Where("job_type = ?", string(t)).
		Where("input_hash = ?", inputHash).
		Where("status IN (?)", bun.In(statuses)).
		Order("created_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, sudoai.ErrJobNotFound
		}
		return nil, fmt.Errorf("sudoai/bun: find duplicate: %w", err)
	}
	return fromJobModel(m)
}

// UpdateStatus transitions a record and writes the optional fields. The
// state machine guard lives in the WHERE clause so concurrent writers
// can neither overwrite a terminal row nor rewind a record to an
// earlier state.
func (s *Store) UpdateStatus(ctx context.Context, taskID string, status job.Status, upd job.Update) (*job.Job, error) {
	from := transitionSources(status)
	if len(from) == 0 {
		return nil, fmt.Errorf("%w: no state may move to %s", sudoai.ErrInvalidTransition, status)
	}

	q := s.db.NewUpdate().
		TableExpr("sudoai_jobs").
		Set("status = ?", string(status)).
		Set("updated_at = NOW()").
		Where("task_id = ?", taskID).
		Where("status IN (?)", bun.In(from))

	if status == job.StatusRunning {
		q = q.Set("started_at = COALESCE(started_at, NOW())")
	}
	if status.Terminal() {
		q = q.Set("completed_at = NOW()")
	}
	if upd.Result != nil {
		q = q.Set("result = ?", []byte(upd.Result))
	}
	if upd.ErrorMessage != "" {
		q = q.Set("error_message = ?", upd.ErrorMessage)
	}
	if upd.BatchJobID != "" {
		q = q.Set("batch_job_id = ?", upd.BatchJobID)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("sudoai/bun: update status: %w", err)
	}
	rows, _ := res.RowsAffected() //nolint:errcheck // driver always returns nil
	if rows == 0 {
		// Distinguish a missing row from a terminal or rewound one.
		existing, getErr := s.GetJobByTaskID(ctx, taskID)
		if getErr != nil {
			return nil, getErr
		}
		if existing.Status.Terminal() {
			return nil, sudoai.ErrJobTerminal
		}
		return nil, fmt.Errorf("%w: %s to %s", sudoai.ErrInvalidTransition, existing.Status, status)
	}

	return s.GetJobByTaskID(ctx, taskID)
}

// transitionSources returns the statuses from which the state machine
// permits moving to next.
func transitionSources(next job.Status) []string {
	sources := make([]string, 0, 3)
	for _, s := range []job.Status{job.StatusPending, job.StatusQueued, job.StatusRunning} {
		if s.CanTransition(next) {
			sources = append(sources, string(s))
		}
	}
	return sources
}

// IncrementRetry bumps the retry counter.
func (s *Store) IncrementRetry(ctx context.Context, taskID string) error {
	res, err := s.db.NewUpdate().
		TableExpr("sudoai_jobs").
		Set("retry_count = retry_count + 1").
		Set("updated_at = NOW()").
		Where("task_id = ?", taskID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("sudoai/bun: increment retry: %w", err)
	}
	rows, _ := res.RowsAffected() //nolint:errcheck // driver always returns nil
	if rows == 0 {
		return sudoai.ErrJobNotFound
	}
	return nil
}

// ListJobs returns records matching opts, newest first.
func (s *Store) ListJobs(ctx context.Context, opts job.ListOpts) ([]*job.Job, error) {
	var models []jobModel
	q := s.db.NewSelect().Model(&models)

	if opts.Type != "" {
		q = q.Where("job_type = ?", string(opts.Type))
	}
	if opts.Status != "" {
		q = q.Where("status = ?", string(opts.Status))
	}

	q = q.Order("created_at DESC")

	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("sudoai/bun: list jobs: %w", err)
	}

	jobs := make([]*job.Job, 0, len(models))
	for i := range models {
		j, convErr := fromJobModel(&models[i])
		if convErr != nil {
			return nil, fmt.Errorf("sudoai/bun: list jobs convert: %w", convErr)
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

// CountByStatus returns the number of records per status.
func (s *Store) CountByStatus(ctx context.Context) (map[job.Status]int, error) {
	var rows []struct {
		Status string `bun:"status"`
		Count  int    `bun:"count"`
	}

	err := s.db.NewSelect().
		TableExpr("sudoai_jobs").
		ColumnExpr("status, COUNT(*) AS count").
		GroupExpr("status").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("sudoai/bun: count by status: %w", err)
	}

	counts := make(map[job.Status]int, len(rows))
	for _, r := range rows {
		counts[job.Status(r.Status)] = r.Count
	}
	return counts, nil
}

// PurgeTerminal deletes terminal records older than the cutoff.
func (s *Store) PurgeTerminal(ctx context.Context, olderThan time.Time) (int, error) {
	res, err := s.db.NewDelete().
		TableExpr("sudoai_jobs").
		Where("status IN ('completed', 'failed', 'cancelled')").
		Where("created_at < ?", olderThan).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("sudoai/bun: purge terminal: %w", err)
	}
	rows, _ := res.RowsAffected() //nolint:errcheck // driver always returns nil
	return int(rows), nil
}
