// Package pipeline executes dispatched jobs on a worker: acquire input
// files, run bounded external transforms, upload artifacts, and persist
// the terminal state. Every run releases its temporary resources on all
// exit paths, and every failure resolves to a Failed record with a
// human-readable message rather than an unhandled fault.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	sudoai "github.com/Sukudo1234/sudoai-mvp"
	"github.com/Sukudo1234/sudoai-mvp/hook"
	"github.com/Sukudo1234/sudoai-mvp/job"
	"github.com/Sukudo1234/sudoai-mvp/middleware"
	"github.com/Sukudo1234/sudoai-mvp/storage"
)

// ObjectStore is the slice of the storage facade the pipeline uses.
// *storage.Client satisfies it; tests substitute fakes.
type ObjectStore interface {
	Download(ctx context.Context, bucket, key, dest string) error
	UploadFile(ctx context.Context, bucket, key, src string) error
	PresignGet(ctx context.Context, bucket, key string) (string, error)
	Copy(ctx context.Context, bucket, srcKey, dstKey string) error
	Delete(ctx context.Context, bucket, key string) error
	OutBucket() string
}

// UploadResolver resolves resumable upload-session URLs into byte
// streams and original filenames. *upload.TusResolver satisfies it.
type UploadResolver interface {
	IsTusURL(raw string) bool
	Open(ctx context.Context, raw string) (io.ReadCloser, int64, error)
	Filename(ctx context.Context, raw string) (string, error)
}

// Transcriber is the external speech-to-text collaborator.
// *transcribe.Client satisfies it.
type Transcriber interface {
	Configured() bool
	OutputFormat() string
	Transcribe(ctx context.Context, audioPath string) ([]byte, error)
}

// Artifact is one uploaded output: the object key plus a time-limited
// signed download URL.
type Artifact struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// Pipeline runs jobs to a terminal state against the job record store.
type Pipeline struct {
	jobs    job.Store
	store   ObjectStore
	uploads UploadResolver
	stt     Transcriber
	runner  Runner
	hooks   *hook.Registry
	logger  *slog.Logger
	chain   middleware.Middleware
}

// Option configures the Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithUploadResolver sets the resolver for resumable upload URLs.
// Without one, only direct object-store references are acquirable.
func WithUploadResolver(r UploadResolver) Option {
	return func(p *Pipeline) {
		p.uploads = r
	}
}

// WithTranscriber sets the transcription collaborator. Without one,
// transcribe jobs take the degraded audio-only path.
func WithTranscriber(t Transcriber) Option {
	return func(p *Pipeline) {
		p.stt = t
	}
}

// WithRunner replaces the external transform runner.
func WithRunner(r Runner) Option {
	return func(p *Pipeline) {
		p.runner = r
	}
}

// WithHooks sets the lifecycle hook registry.
func WithHooks(hooks *hook.Registry) Option {
	return func(p *Pipeline) {
		p.hooks = hooks
	}
}

// WithMiddleware wraps job execution in the given middleware chain.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(p *Pipeline) {
		p.chain = middleware.Chain(mws...)
	}
}

// New creates a Pipeline over the job record store and object store.
func New(jobs job.Store, store ObjectStore, opts ...Option) *Pipeline {
	p := &Pipeline{
		jobs:   jobs,
		store:  store,
		logger: slog.Default(),
		chain:  middleware.Chain(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.runner == nil {
		p.runner = NewExecRunner(time.Hour, p.logger)
	}
	if p.hooks == nil {
		p.hooks = hook.NewRegistry(p.logger)
	}
	return p
}

// Execute runs the job identified by taskID to a terminal state. The
// returned error mirrors what was persisted; callers use it only to
// decide transport-level acknowledgement, never to retry the pipeline.
func (p *Pipeline) Execute(ctx context.Context, taskID string) error {
	rec, err := p.jobs.GetJobByTaskID(ctx, taskID)
	if err != nil {
		return err
	}

	rec, err = p.jobs.UpdateStatus(ctx, taskID, job.StatusRunning, job.Update{})
	if err != nil {
		// Cancelled between dispatch and pickup: nothing to run.
		if errors.Is(err, sudoai.ErrJobTerminal) {
			p.logger.Info("job already terminal, skipping", "task_id", taskID)
			return nil
		}
		return err
	}
	p.hooks.EmitJobStarted(ctx, rec)
	start := time.Now()

	var result json.RawMessage
	runErr := p.chain(ctx, rec, func(ctx context.Context) error {
		var err error
		result, err = p.run(ctx, rec)
		return err
	})

	if runErr != nil {
		failed, err := p.jobs.UpdateStatus(ctx, taskID, job.StatusFailed, job.Update{
			ErrorMessage: runErr.Error(),
		})
		if err != nil {
			p.logger.Error("persisting failure state failed",
				"task_id", taskID, "job_error", runErr.Error(), "error", err)
		} else {
			rec = failed
		}
		p.hooks.EmitJobFailed(ctx, rec, runErr)
		return runErr
	}

	completed, err := p.jobs.UpdateStatus(ctx, taskID, job.StatusCompleted, job.Update{
		Result: result,
	})
	if err != nil {
		p.logger.Error("persisting completion failed", "task_id", taskID, "error", err)
		return err
	}
	p.hooks.EmitJobCompleted(ctx, completed, time.Since(start))
	return nil
}

// run dispatches to the per-type procedure inside a fresh workspace.
func (p *Pipeline) run(ctx context.Context, rec *job.Job) (json.RawMessage, error) {
	ws, err := newWorkspace(rec.TaskID)
	if err != nil {
		return nil, err
	}
	defer ws.Cleanup(p.logger)

	parsed, _, err := job.ParseParams(rec.Type, rec.InputParams)
	if err != nil {
		return nil, err
	}

	switch params := parsed.(type) {
	case job.SplitParams:
		return p.runSplit(ctx, rec, ws, params)
	case job.MergeParams:
		return p.runMerge(ctx, rec, ws, params)
	case job.TranscribeParams:
		return p.runTranscribe(ctx, rec, ws, params)
	case job.RenameParams:
		return p.runRename(ctx, params)
	default:
		return nil, fmt.Errorf("%w: %s", sudoai.ErrUnknownJobType, rec.Type)
	}
}

// uploadArtifact stores a local file under the job's artifact namespace
// and returns its key plus a signed download URL.
func (p *Pipeline) uploadArtifact(ctx context.Context, taskID, name, localPath string) (Artifact, error) {
	key := storage.ArtifactKey(taskID, name)
	bucket := p.store.OutBucket()

	if err := p.store.UploadFile(ctx, bucket, key, localPath); err != nil {
		return Artifact{}, err
	}
	url, err := p.store.PresignGet(ctx, bucket, key)
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{Key: key, URL: url}, nil
}

func marshalResult(v any) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("pipeline: marshal result: %w", err)
	}
	return data, nil
}
