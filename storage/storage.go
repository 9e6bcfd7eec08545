// Package storage is the object store facade over S3 or any
// S3-compatible service (MinIO in local development). It is the only
// path through which workers touch object data: file transfer, presigned
// downloads, key-level copy/delete, and multipart upload sessions.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	sudoai "github.com/Sukudo1234/sudoai-mvp"
)

// Client wraps the S3 API with the operations the pipeline needs.
type Client struct {
	api        *s3.Client
	presign    *s3.PresignClient
	uploader   *manager.Uploader
	downloader *manager.Downloader
	logger     *slog.Logger

	rawBucket  string
	outBucket  string
	presignTTL time.Duration
	chunkSize  int64
}

// Option configures the Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New builds a Client from the storage configuration. A custom endpoint
// switches the client to path-style addressing for S3-compatible
// services.
func New(ctx context.Context, cfg sudoai.StorageConfig, opts ...Option) (*Client, error) {
	if cfg.RawBucket == "" || cfg.OutBucket == "" {
		return nil, fmt.Errorf("%w: storage buckets not set", sudoai.ErrInvalidConfig)
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: load aws config: %v", sudoai.ErrInvalidConfig, err)
	}

	api := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	c := &Client{
		api:        api,
		presign:    s3.NewPresignClient(api),
		uploader:   manager.NewUploader(api),
		downloader: manager.NewDownloader(api),
		logger:     slog.Default(),
		rawBucket:  cfg.RawBucket,
		outBucket:  cfg.OutBucket,
		presignTTL: cfg.PresignTTL,
		chunkSize:  cfg.MultipartChunkSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// RawBucket returns the bucket receiving uploads.
func (c *Client) RawBucket() string { return c.rawBucket }

// OutBucket returns the bucket receiving job artifacts.
func (c *Client) OutBucket() string { return c.outBucket }

// EnsureBuckets creates the raw and out buckets if they do not exist.
// Used against MinIO in local development; against AWS the buckets are
// provisioned out of band and this is a no-op health check.
func (c *Client) EnsureBuckets(ctx context.Context) error {
	for _, bucket := range []string{c.rawBucket, c.outBucket} {
		_, err := c.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
		if err == nil {
			continue
		}

		_, err = c.api.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)})
		if err != nil {
			var owned *types.BucketAlreadyOwnedByYou
			var exists *types.BucketAlreadyExists
			if errors.As(err, &owned) || errors.As(err, &exists) {
				continue
			}
			return fmt.Errorf("storage: ensure bucket %s: %w", bucket, err)
		}
		c.logger.Info("bucket created", "bucket", bucket)
	}
	return nil
}

// Download fetches bucket/key into the local file at dest.
func (c *Client) Download(ctx context.Context, bucket, key, dest string) error {
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("storage: create %s: %w", dest, err)
	}
	defer f.Close()

	_, err = c.downloader.Download(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("storage: download s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}

// UploadFile uploads the local file at src to bucket/key. Retried
// uploads overwrite identically, which is what keeps pipeline retries
// safe without locking.
func (c *Client) UploadFile(ctx context.Context, bucket, key, src string) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("storage: open %s: %w", src, err)
	}
	defer f.Close()

	return c.Upload(ctx, bucket, key, f)
}

// Upload streams r to bucket/key.
func (c *Client) Upload(ctx context.Context, bucket, key string, r io.Reader) error {
	_, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(ContentTypeFor(key)),
	})
	if err != nil {
		return fmt.Errorf("storage: upload s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}

// PresignGet returns a presigned download URL for bucket/key, valid for
// the configured TTL.
func (c *Client) PresignGet(ctx context.Context, bucket, key string) (string, error) {
	req, err := c.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(c.presignTTL))
	if err != nil {
		return "", fmt.Errorf("storage: presign s3://%s/%s: %w", bucket, key, err)
	}
	return req.URL, nil
}

// Copy duplicates an object within a bucket.
func (c *Client) Copy(ctx context.Context, bucket, srcKey, dstKey string) error {
	_, err := c.api.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(bucket),
		CopySource: aws.String(bucket + "/" + srcKey),
		Key:        aws.String(dstKey),
	})
	if err != nil {
		return fmt.Errorf("storage: copy %s -> %s: %w", srcKey, dstKey, err)
	}
	return nil
}

// Delete removes bucket/key.
func (c *Client) Delete(ctx context.Context, bucket, key string) error {
	_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("storage: delete s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}

// Exists reports whether bucket/key exists.
func (c *Client) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := c.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("storage: head s3://%s/%s: %w", bucket, key, err)
	}
	return true, nil
}

// Stat returns the size of bucket/key.
func (c *Client) Stat(ctx context.Context, bucket, key string) (int64, error) {
	resp, err := c.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, fmt.Errorf("storage: head s3://%s/%s: %w", bucket, key, err)
	}
	return aws.ToInt64(resp.ContentLength), nil
}
