// Package batch implements the production dispatch backend: the external
// handle is generated locally, the job is enqueued onto SQS, and a compute
// job is submitted to AWS Batch on a CPU or GPU lane selected by job type.
package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsbatch "github.com/aws/aws-sdk-go-v2/service/batch"
	batchtypes "github.com/aws/aws-sdk-go-v2/service/batch/types"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"

	sudoai "github.com/Sukudo1234/sudoai-mvp"
	"github.com/Sukudo1234/sudoai-mvp/backend"
	"github.com/Sukudo1234/sudoai-mvp/id"
	"github.com/Sukudo1234/sudoai-mvp/job"
)

// Message is the structured payload placed on the managed queue. Workers
// decode it to know what to run; the Batch container receives the same
// fields through its environment.
type Message struct {
	TaskID      string          `json:"task_id"`
	JobType     job.Type        `json:"job_type"`
	InputParams json.RawMessage `json:"input_params"`
}

var _ backend.Backend = (*Backend)(nil)

// Backend dispatches jobs through SQS and AWS Batch.
type Backend struct {
	sqsClient   *sqs.Client
	batchClient *awsbatch.Client
	jobs        job.Store
	logger      *slog.Logger

	queueURL   string
	lanes      sudoai.BatchConfig
	maxRetries int
}

// Option configures the Backend.
type Option func(*Backend)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Backend) {
		b.logger = logger
	}
}

// New validates the lane configuration and returns a ready Backend.
// Missing queue URL or lane names are fatal configuration errors.
func New(awsCfg aws.Config, queueURL string, lanes sudoai.BatchConfig, jobs job.Store, maxRetries int, opts ...Option) (*Backend, error) {
	if queueURL == "" {
		return nil, fmt.Errorf("%w: SQS queue URL not set", sudoai.ErrInvalidConfig)
	}
	if lanes.CPUQueue == "" || lanes.GPUQueue == "" ||
		lanes.CPUJobDefinition == "" || lanes.GPUJobDefinition == "" {
		return nil, fmt.Errorf("%w: Batch lanes not fully configured", sudoai.ErrInvalidConfig)
	}

	b := &Backend{
		sqsClient:   sqs.NewFromConfig(awsCfg),
		batchClient: awsbatch.NewFromConfig(awsCfg),
		jobs:        jobs,
		logger:      slog.Default(),
		queueURL:    queueURL,
		lanes:       lanes,
		maxRetries:  maxRetries,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// laneFor returns the Batch queue and job definition for a job type.
// Split runs on the GPU lane; everything else is CPU work.
func (b *Backend) laneFor(t job.Type) (queue, definition string) {
	if t == job.TypeSplit {
		return b.lanes.GPUQueue, b.lanes.GPUJobDefinition
	}
	return b.lanes.CPUQueue, b.lanes.CPUJobDefinition
}

// Submit persists the record first so the handle exists deterministically,
// then enqueues the message and submits the compute job. The three steps
// are not transactional: any failure after persistence marks the record
// Failed rather than leaving a Pending orphan.
func (b *Backend) Submit(ctx context.Context, t job.Type, params []byte, dedupeKey string) (string, error) {
	hash, err := job.InputHash(t, params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", sudoai.ErrDispatchFailed, err)
	}

	taskID := uuid.NewString()
	rec := &job.Job{
		ID:          id.NewJobID(),
		TaskID:      taskID,
		Type:        t,
		Status:      job.StatusPending,
		InputParams: params,
		InputHash:   hash,
		MaxRetries:  b.maxRetries,
	}
	if err := b.jobs.CreateJob(ctx, rec); err != nil {
		return "", fmt.Errorf("%w: persist job record: %v", sudoai.ErrDispatchFailed, err)
	}

	if err := b.enqueue(ctx, taskID, t, params, dedupeKey); err != nil {
		return "", b.failAfterPersist(ctx, taskID, err)
	}

	batchJobID, err := b.submitCompute(ctx, taskID, t, params)
	if err != nil {
		return "", b.failAfterPersist(ctx, taskID, err)
	}

	if _, err := b.jobs.UpdateStatus(ctx, taskID, job.StatusQueued, job.Update{BatchJobID: batchJobID}); err != nil {
		return "", b.failAfterPersist(ctx, taskID, fmt.Errorf("mark queued: %w", err))
	}

	b.logger.Info("job dispatched", "task_id", taskID, "type", t, "batch_job_id", batchJobID)
	return taskID, nil
}

// failAfterPersist marks a partially-created record Failed and returns the
// dispatch error. The record must never stay silently Pending.
func (b *Backend) failAfterPersist(ctx context.Context, taskID string, cause error) error {
	if _, err := b.jobs.UpdateStatus(ctx, taskID, job.StatusFailed, job.Update{
		ErrorMessage: cause.Error(),
	}); err != nil {
		b.logger.Error("failed to mark orphaned job failed", "task_id", taskID, "error", err)
	}
	return fmt.Errorf("%w: %v", sudoai.ErrDispatchFailed, cause)
}

func (b *Backend) enqueue(ctx context.Context, taskID string, t job.Type, params []byte, dedupeKey string) error {
	msg := Message{TaskID: taskID, JobType: t, InputParams: params}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal queue message: %w", err)
	}

	in := &sqs.SendMessageInput{
		QueueUrl:    aws.String(b.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"job_type": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(t)),
			},
		},
	}
	if dedupeKey != "" {
		in.MessageDeduplicationId = aws.String(dedupeKey)
		in.MessageGroupId = aws.String(string(t))
	}

	if _, err := b.sqsClient.SendMessage(ctx, in); err != nil {
		return fmt.Errorf("sqs send: %w", err)
	}
	return nil
}

func (b *Backend) submitCompute(ctx context.Context, taskID string, t job.Type, params []byte) (string, error) {
	queue, definition := b.laneFor(t)

	out, err := b.batchClient.SubmitJob(ctx, &awsbatch.SubmitJobInput{
		JobName:       aws.String(fmt.Sprintf("%s-%s", t, taskID)),
		JobQueue:      aws.String(queue),
		JobDefinition: aws.String(definition),
		ContainerOverrides: &batchtypes.ContainerOverrides{
			Environment: []batchtypes.KeyValuePair{
				{Name: aws.String("TASK_ID"), Value: aws.String(taskID)},
				{Name: aws.String("JOB_TYPE"), Value: aws.String(string(t))},
				{Name: aws.String("INPUT_PARAMS"), Value: aws.String(string(params))},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("batch submit: %w", err)
	}
	return aws.ToString(out.JobId), nil
}

// QueryUpstream polls the compute service by its native id. A terminal
// failure observed upstream is folded into the record, guarded against
// double-writing a terminal state.
func (b *Backend) QueryUpstream(ctx context.Context, handle string) (backend.UpstreamStatus, bool, error) {
	rec, err := b.jobs.GetJobByTaskID(ctx, handle)
	if err != nil {
		return "", false, err
	}
	if rec.BatchJobID == "" {
		return "", false, nil
	}

	out, err := b.batchClient.DescribeJobs(ctx, &awsbatch.DescribeJobsInput{
		Jobs: []string{rec.BatchJobID},
	})
	if err != nil {
		// Reconciliation is best-effort: callers fall back to the record.
		b.logger.Warn("compute status poll failed", "task_id", handle, "error", err)
		return "", false, nil
	}
	if len(out.Jobs) == 0 {
		return "", false, nil
	}

	detail := out.Jobs[0]
	status := mapBatchStatus(detail.Status)

	if status == backend.UpstreamFailure && !rec.Status.Terminal() {
		reason := aws.ToString(detail.StatusReason)
		if reason == "" {
			reason = "compute job failed"
		}
		if _, err := b.jobs.UpdateStatus(ctx, handle, job.StatusFailed, job.Update{
			ErrorMessage: reason,
		}); err != nil {
			b.logger.Warn("failed to fold upstream failure", "task_id", handle, "error", err)
		}
	}

	return status, true, nil
}

func mapBatchStatus(s batchtypes.JobStatus) backend.UpstreamStatus {
	switch s {
	case batchtypes.JobStatusSucceeded:
		return backend.UpstreamSuccess
	case batchtypes.JobStatusFailed:
		return backend.UpstreamFailure
	case batchtypes.JobStatusStarting, batchtypes.JobStatusRunning:
		return backend.UpstreamStarted
	default:
		// Submitted, pending, runnable.
		return backend.UpstreamPending
	}
}

// Cancel stops a compute job that has not started running. The SQS message
// cannot be recalled; workers check the record before executing.
func (b *Backend) Cancel(ctx context.Context, handle string) error {
	rec, err := b.jobs.GetJobByTaskID(ctx, handle)
	if err != nil {
		return err
	}
	if rec.BatchJobID == "" {
		return nil
	}

	_, err = b.batchClient.CancelJob(ctx, &awsbatch.CancelJobInput{
		JobId:  aws.String(rec.BatchJobID),
		Reason: aws.String("cancelled by operator"),
	})
	if err != nil {
		return fmt.Errorf("%w: cancel compute job: %v", sudoai.ErrNotCancellable, err)
	}
	return nil
}

// Close is a no-op; the AWS clients hold no persistent connections.
func (b *Backend) Close() error { return nil }
