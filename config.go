package sudoai

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Environment selects the dispatch backend and the defaults for every
// external collaborator. It is read once at startup; nothing branches on
// it after construction.
type Environment string

const (
	// EnvLocal uses the Redis broker, MinIO, and the tus upload server.
	EnvLocal Environment = "local"
	// EnvProduction uses SQS, AWS Batch, and S3.
	EnvProduction Environment = "production"
)

// StorageConfig configures the object store facade (S3 or MinIO).
type StorageConfig struct {
	// Endpoint overrides the S3 endpoint. Empty means AWS S3.
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string

	// RawBucket receives uploads; OutBucket receives job artifacts.
	RawBucket string
	OutBucket string

	// PresignTTL is the validity of generated download URLs.
	PresignTTL time.Duration

	// MultipartChunkSize is the part size for resumable upload sessions.
	MultipartChunkSize int64
}

// DatabaseConfig configures the job record store.
type DatabaseConfig struct {
	// DSN is the PostgreSQL connection string. Empty selects the
	// in-memory store (local development and tests).
	DSN          string
	MaxOpenConns int
}

// QueueConfig configures whichever queue the active backend uses.
type QueueConfig struct {
	// RedisURL is the broker address for Direct-Broker mode.
	RedisURL string
	// SQSQueueURL is the managed queue URL for production mode.
	SQSQueueURL string
	// VisibilityTimeout bounds how long a received SQS message stays
	// invisible while a worker processes it.
	VisibilityTimeout time.Duration
	// MaxRetries is the default retry budget recorded on new jobs.
	MaxRetries int
}

// BatchConfig names the AWS Batch lanes used in production mode.
type BatchConfig struct {
	CPUQueue         string
	GPUQueue         string
	CPUJobDefinition string
	GPUJobDefinition string
}

// UploadConfig configures the resumable upload collaborators.
type UploadConfig struct {
	// TusInternalURL is where workers fetch completed tus uploads.
	TusInternalURL string
	// TusPublicURL is handed to clients initiating uploads.
	TusPublicURL string
}

// TranscribeConfig configures the external transcription API. An empty
// APIKey or URL leaves transcription unconfigured; transcribe jobs then
// degrade to uploading the normalized audio with a warning.
type TranscribeConfig struct {
	APIKey       string
	URL          string
	Language     string
	OutputFormat string
}

// HookConfig enables the optional lifecycle hooks.
type HookConfig struct {
	// WebhookURL enables webhook delivery of lifecycle events.
	WebhookURL string
	// AuditLog enables the audit trail hook, recording events through
	// the process logger.
	AuditLog bool
}

// WorkerConfig tunes the worker-side execution pipeline.
type WorkerConfig struct {
	// Concurrency is the number of jobs processed concurrently.
	Concurrency int
	// TransformTimeout is the hard wall-clock limit per external
	// transform invocation.
	TransformTimeout time.Duration
	// JobTimeout bounds a whole pipeline run. Zero disables the bound.
	JobTimeout time.Duration
	// PollInterval is the idle delay of the SQS consumer loop.
	PollInterval time.Duration
}

// Config is the full configuration tree, loaded once at process start and
// passed by value into constructors. There are no process-wide singletons.
type Config struct {
	Environment Environment
	Storage     StorageConfig
	Database    DatabaseConfig
	Queue       QueueConfig
	Batch       BatchConfig
	Upload      UploadConfig
	Transcribe  TranscribeConfig
	Hooks       HookConfig
	Worker      WorkerConfig
}

// DefaultConfig returns the local-development configuration: MinIO, Redis
// broker, tus uploads, in-memory record store.
func DefaultConfig() Config {
	return Config{
		Environment: EnvLocal,
		Storage: StorageConfig{
			Endpoint:           "http://minio:9000",
			AccessKey:          "minioadmin",
			SecretKey:          "minioadmin",
			Region:             "us-east-1",
			RawBucket:          "uploads",
			OutBucket:          "results",
			PresignTTL:         7 * 24 * time.Hour,
			MultipartChunkSize: 10 << 20,
		},
		Queue: QueueConfig{
			RedisURL:          "redis://redis:6379/0",
			VisibilityTimeout: 10 * time.Minute,
			MaxRetries:        2,
		},
		Upload: UploadConfig{
			TusInternalURL: "http://tusd:1080",
			TusPublicURL:   "http://localhost:8080",
		},
		Transcribe: TranscribeConfig{
			Language:     "auto",
			OutputFormat: "srt",
		},
		Worker: WorkerConfig{
			Concurrency:      2,
			TransformTimeout: time.Hour,
			PollInterval:     time.Second,
		},
	}
}

// Load reads configuration from the environment on top of DefaultConfig.
// The ENVIRONMENT variable selects the mode; production mode swaps the
// defaults to the AWS collaborators before applying overrides.
func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("environment", string(EnvLocal))

	cfg := DefaultConfig()
	if Environment(v.GetString("environment")) == EnvProduction {
		cfg = productionConfig()
	}
	cfg.Environment = Environment(v.GetString("environment"))

	// Storage.
	if s := v.GetString("minio_endpoint"); s != "" && cfg.Environment == EnvLocal {
		cfg.Storage.Endpoint = s
	}
	if s := v.GetString("minio_access_key"); s != "" {
		cfg.Storage.AccessKey = s
	}
	if s := v.GetString("minio_secret_key"); s != "" {
		cfg.Storage.SecretKey = s
	}
	if s := v.GetString("aws_access_key_id"); s != "" {
		cfg.Storage.AccessKey = s
	}
	if s := v.GetString("aws_secret_access_key"); s != "" {
		cfg.Storage.SecretKey = s
	}
	if s := v.GetString("aws_region"); s != "" {
		cfg.Storage.Region = s
	}
	if s := v.GetString("aws_s3_bucket_raw"); s != "" {
		cfg.Storage.RawBucket = s
	}
	if s := v.GetString("aws_s3_bucket_out"); s != "" {
		cfg.Storage.OutBucket = s
	}
	if s := v.GetString("minio_uploads_bucket"); s != "" {
		cfg.Storage.RawBucket = s
	}
	if s := v.GetString("minio_results_bucket"); s != "" {
		cfg.Storage.OutBucket = s
	}

	// Database / queue.
	if s := v.GetString("database_url"); s != "" {
		cfg.Database.DSN = s
	}
	if s := v.GetString("redis_url"); s != "" {
		cfg.Queue.RedisURL = s
	}
	if s := v.GetString("aws_sqs_queue_url"); s != "" {
		cfg.Queue.SQSQueueURL = s
	}

	// Batch lanes.
	if s := v.GetString("aws_batch_cpu_queue"); s != "" {
		cfg.Batch.CPUQueue = s
	}
	if s := v.GetString("aws_batch_gpu_queue"); s != "" {
		cfg.Batch.GPUQueue = s
	}
	if s := v.GetString("aws_batch_cpu_job_definition"); s != "" {
		cfg.Batch.CPUJobDefinition = s
	}
	if s := v.GetString("aws_batch_gpu_job_definition"); s != "" {
		cfg.Batch.GPUJobDefinition = s
	}

	// Uploads.
	if s := v.GetString("tusd_internal_url"); s != "" {
		cfg.Upload.TusInternalURL = s
	}
	if s := v.GetString("tusd_public_url"); s != "" {
		cfg.Upload.TusPublicURL = s
	}

	// Transcription.
	if s := v.GetString("elevenlabs_api_key"); s != "" {
		cfg.Transcribe.APIKey = s
	}
	if s := v.GetString("elevenlabs_transcribe_url"); s != "" {
		cfg.Transcribe.URL = s
	}
	if s := v.GetString("elevenlabs_language"); s != "" {
		cfg.Transcribe.Language = s
	}
	if s := v.GetString("elevenlabs_output_format"); s != "" {
		cfg.Transcribe.OutputFormat = s
	}

	// Hooks.
	if s := v.GetString("webhook_url"); s != "" {
		cfg.Hooks.WebhookURL = s
	}
	if v.GetBool("audit_log") {
		cfg.Hooks.AuditLog = true
	}

	if n := v.GetInt("worker_concurrency"); n > 0 {
		cfg.Worker.Concurrency = n
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// productionConfig returns the production defaults: AWS S3, SQS, Batch,
// and a PostgreSQL record store supplied entirely by the environment.
func productionConfig() Config {
	return Config{
		Environment: EnvProduction,
		Storage: StorageConfig{
			Region:             "ap-south-1",
			PresignTTL:         7 * 24 * time.Hour,
			MultipartChunkSize: 128 << 20,
		},
		Queue: QueueConfig{
			VisibilityTimeout: 15 * time.Minute,
			MaxRetries:        3,
		},
		Transcribe: TranscribeConfig{
			Language:     "auto",
			OutputFormat: "srt",
		},
		Worker: WorkerConfig{
			Concurrency:      4,
			TransformTimeout: time.Hour,
			PollInterval:     time.Second,
		},
	}
}

// Validate checks that every collaborator required by the selected
// environment is configured. Failures here are startup-fatal; they are
// never surfaced as per-request errors.
func (c Config) Validate() error {
	if c.Storage.RawBucket == "" || c.Storage.OutBucket == "" {
		return fmt.Errorf("%w: storage buckets not set", ErrInvalidConfig)
	}

	switch c.Environment {
	case EnvLocal:
		if c.Queue.RedisURL == "" {
			return fmt.Errorf("%w: REDIS_URL required in local mode", ErrInvalidConfig)
		}
	case EnvProduction:
		if c.Queue.SQSQueueURL == "" {
			return fmt.Errorf("%w: AWS_SQS_QUEUE_URL required in production mode", ErrInvalidConfig)
		}
		if c.Database.DSN == "" {
			return fmt.Errorf("%w: DATABASE_URL required in production mode", ErrInvalidConfig)
		}
		if c.Batch.CPUQueue == "" || c.Batch.GPUQueue == "" {
			return fmt.Errorf("%w: Batch job queues not set", ErrInvalidConfig)
		}
		if c.Batch.CPUJobDefinition == "" || c.Batch.GPUJobDefinition == "" {
			return fmt.Errorf("%w: Batch job definitions not set", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown environment %q", ErrInvalidConfig, c.Environment)
	}

	return nil
}
