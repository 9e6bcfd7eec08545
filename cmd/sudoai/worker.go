package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	sudoai "github.com/Sukudo1234/sudoai-mvp"
	"github.com/Sukudo1234/sudoai-mvp/backend/batch"
	"github.com/Sukudo1234/sudoai-mvp/backend/broker"
	"github.com/Sukudo1234/sudoai-mvp/hook"
	"github.com/Sukudo1234/sudoai-mvp/job"
	"github.com/Sukudo1234/sudoai-mvp/middleware"
	"github.com/Sukudo1234/sudoai-mvp/pipeline"
	"github.com/Sukudo1234/sudoai-mvp/storage"
	"github.com/Sukudo1234/sudoai-mvp/transcribe"
	"github.com/Sukudo1234/sudoai-mvp/upload"
)

func newWorkerCmd() *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the worker process for the configured backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			p, err := buildPipeline(ctx, a)
			if err != nil {
				return err
			}

			if once {
				return runOnce(ctx, p)
			}

			switch a.cfg.Environment {
			case sudoai.EnvProduction:
				return runQueueWorker(ctx, a, p)
			default:
				return runBrokerWorker(ctx, a, p)
			}
		},
	}
	cmd.Flags().BoolVar(&once, "once", false,
		"execute the single job named by TASK_ID and exit (Batch container entry point)")
	return cmd
}

func buildPipeline(ctx context.Context, a *app) (*pipeline.Pipeline, error) {
	store, err := storage.New(ctx, a.cfg.Storage, storage.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}
	if a.cfg.Environment == sudoai.EnvLocal {
		if err := store.EnsureBuckets(ctx); err != nil {
			return nil, err
		}
	}

	hooks := hook.NewRegistry(a.logger)
	for _, h := range configuredHooks(a.cfg, a.logger) {
		hooks.Register(h)
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(a.logger),
		pipeline.WithHooks(hooks),
		pipeline.WithRunner(pipeline.NewExecRunner(a.cfg.Worker.TransformTimeout, a.logger)),
		pipeline.WithTranscriber(transcribe.New(a.cfg.Transcribe)),
		pipeline.WithMiddleware(
			middleware.Recover(a.logger),
			middleware.Logging(a.logger),
			middleware.Metrics(),
			middleware.Tracing(),
			middleware.Timeout(a.logger, a.cfg.Worker.JobTimeout),
		),
	}
	if a.cfg.Upload.TusInternalURL != "" {
		opts = append(opts, pipeline.WithUploadResolver(
			upload.NewTusResolver(a.cfg.Upload.TusInternalURL, a.cfg.Upload.TusPublicURL),
		))
	}

	return pipeline.New(a.jobs, store, opts...), nil
}

// runOnce executes exactly one job and exits. Batch containers start
// the worker this way, with TASK_ID injected by the job definition.
func runOnce(ctx context.Context, p *pipeline.Pipeline) error {
	taskID := os.Getenv("TASK_ID")
	if taskID == "" {
		return fmt.Errorf("%w: TASK_ID not set", sudoai.ErrInvalidConfig)
	}
	return p.Execute(ctx, taskID)
}

// runBrokerWorker serves jobs off the Redis broker. GPU-lane tasks get
// queue priority over the default lane.
func runBrokerWorker(ctx context.Context, a *app, p *pipeline.Pipeline) error {
	redisOpt, err := asynq.ParseRedisURI(a.cfg.Queue.RedisURL)
	if err != nil {
		return fmt.Errorf("%w: parse redis url: %v", sudoai.ErrInvalidConfig, err)
	}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: a.cfg.Worker.Concurrency,
		Queues: map[string]int{
			broker.QueueGPU:     2,
			broker.QueueDefault: 1,
		},
	})

	mux := asynq.NewServeMux()
	for _, t := range job.Types() {
		mux.HandleFunc(broker.TaskName(t), func(ctx context.Context, _ *asynq.Task) error {
			taskID, ok := asynq.GetTaskID(ctx)
			if !ok {
				return fmt.Errorf("task id missing from context: %w", asynq.SkipRetry)
			}
			return brokerTaskError(p.Execute(ctx, taskID))
		})
	}

	a.logger.Info("broker worker started",
		"concurrency", a.cfg.Worker.Concurrency,
		"queues", []string{broker.QueueGPU, broker.QueueDefault},
	)

	go func() {
		<-ctx.Done()
		srv.Shutdown()
	}()
	return srv.Run(mux)
}

// brokerTaskError classifies a pipeline error for the asynq server. The
// broker assigns the task id, so the record is persisted only after
// enqueue; a task picked up inside that window finds no record yet and
// must be redelivered, not archived. Every other failure is already
// terminal on the record, and retry stays with the explicit requeue
// operation.
func brokerTaskError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sudoai.ErrJobNotFound) {
		return err
	}
	return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
}

// runQueueWorker serves jobs off the managed SQS queue.
func runQueueWorker(ctx context.Context, a *app, p *pipeline.Pipeline) error {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(a.cfg.Storage.Region))
	if err != nil {
		return fmt.Errorf("%w: load aws config: %v", sudoai.ErrInvalidConfig, err)
	}

	consumer := batch.NewConsumer(
		sqs.NewFromConfig(awsCfg),
		a.cfg.Queue.SQSQueueURL,
		a.cfg.Queue.VisibilityTimeout,
		batch.WithConsumerLogger(a.logger),
	)

	a.logger.Info("queue worker started", "queue", a.cfg.Queue.SQSQueueURL)

	err = consumer.Run(ctx, func(ctx context.Context, msg batch.Message) error {
		return p.Execute(ctx, msg.TaskID)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
