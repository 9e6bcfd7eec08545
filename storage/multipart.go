package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// CompletedPart identifies one uploaded part of a multipart session.
type CompletedPart struct {
	PartNumber int32  `json:"partNumber"`
	ETag       string `json:"etag"`
}

// CreateMultipart opens a multipart upload session for key in the raw
// bucket and returns the upload id.
func (c *Client) CreateMultipart(ctx context.Context, key string) (string, error) {
	out, err := c.api.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket:      aws.String(c.rawBucket),
		Key:         aws.String(key),
		ContentType: aws.String(ContentTypeFor(key)),
	})
	if err != nil {
		return "", fmt.Errorf("storage: create multipart %s: %w", key, err)
	}
	return aws.ToString(out.UploadId), nil
}

// PresignUploadPart returns a presigned URL a client can PUT one part to.
// Part URLs expire quickly; the session itself lives until completed or
// aborted.
func (c *Client) PresignUploadPart(ctx context.Context, key, uploadID string, partNumber int32) (string, error) {
	req, err := c.presign.PresignUploadPart(ctx, &s3.UploadPartInput{
		Bucket:     aws.String(c.rawBucket),
		Key:        aws.String(key),
		UploadId:   aws.String(uploadID),
		PartNumber: aws.Int32(partNumber),
	}, s3.WithPresignExpires(time.Hour))
	if err != nil {
		return "", fmt.Errorf("storage: presign part %d of %s: %w", partNumber, key, err)
	}
	return req.URL, nil
}

// ChunkSize returns the configured multipart part size in bytes.
func (c *Client) ChunkSize() int64 { return c.chunkSize }

// CompleteMultipart finalizes a multipart session and returns the
// object's ETag.
func (c *Client) CompleteMultipart(ctx context.Context, key, uploadID string, parts []CompletedPart) (string, error) {
	completed := make([]types.CompletedPart, 0, len(parts))
	for _, p := range parts {
		completed = append(completed, types.CompletedPart{
			PartNumber: aws.Int32(p.PartNumber),
			ETag:       aws.String(p.ETag),
		})
	}

	out, err := c.api.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(c.rawBucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: completed,
		},
	})
	if err != nil {
		return "", fmt.Errorf("storage: complete multipart %s: %w", key, err)
	}
	return aws.ToString(out.ETag), nil
}

// AbortMultipart discards a multipart session and any uploaded parts.
func (c *Client) AbortMultipart(ctx context.Context, key, uploadID string) error {
	_, err := c.api.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(c.rawBucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
	if err != nil {
		return fmt.Errorf("storage: abort multipart %s: %w", key, err)
	}
	return nil
}
