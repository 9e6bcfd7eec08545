package bunstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/Sukudo1234/sudoai-mvp/id"
	"github.com/Sukudo1234/sudoai-mvp/job"
)

type jobModel struct {
	bun.BaseModel `bun:"table:sudoai_jobs"`

	ID           string     `bun:"id,pk"`
	TaskID       string     `bun:"task_id,notnull,unique"`
	JobType      string     `bun:"job_type,notnull"`
	Status       string     `bun:"status,notnull,default:'pending'"`
	InputParams  []byte     `bun:"input_params,notnull,type:jsonb"`
	InputHash    string     `bun:"input_hash,notnull"`
	Result       []byte     `bun:"result,type:jsonb"`
	ErrorMessage string     `bun:"error_message"`
	BatchJobID   string     `bun:"batch_job_id"`
	RetryCount   int        `bun:"retry_count,notnull,default:0"`
	MaxRetries   int        `bun:"max_retries,notnull,default:2"`
	StartedAt    *time.Time `bun:"started_at"`
	CompletedAt  *time.Time `bun:"completed_at"`
	CreatedAt    time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt    time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
}

func toJobModel(j *job.Job) *jobModel {
	return &jobModel{
		ID:           j.ID.String(),
		TaskID:       j.TaskID,
		JobType:      string(j.Type),
		Status:       string(j.Status),
		InputParams:  j.InputParams,
		InputHash:    j.InputHash,
		Result:       j.Result,
		ErrorMessage: j.ErrorMessage,
		BatchJobID:   j.BatchJobID,
		RetryCount:   j.RetryCount,
		MaxRetries:   j.MaxRetries,
		StartedAt:    j.StartedAt,
		CompletedAt:  j.CompletedAt,
		CreatedAt:    j.CreatedAt,
		UpdatedAt:    j.UpdatedAt,
	}
}

func fromJobModel(m *jobModel) (*job.Job, error) {
	parsedID, err := id.ParseJobID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("sudoai/bun: parse job id %q: %w", m.ID, err)
	}

	return &job.Job{
		ID:           parsedID,
		TaskID:       m.TaskID,
		Type:         job.Type(m.JobType),
		Status:       job.Status(m.Status),
		InputParams:  json.RawMessage(m.InputParams),
		InputHash:    m.InputHash,
		Result:       json.RawMessage(m.Result),
		ErrorMessage: m.ErrorMessage,
		BatchJobID:   m.BatchJobID,
		RetryCount:   m.RetryCount,
		MaxRetries:   m.MaxRetries,
		StartedAt:    m.StartedAt,
		CompletedAt:  m.CompletedAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}, nil
}
