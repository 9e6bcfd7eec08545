// Package upload provides the client upload bootstrap: multipart
// sessions against the raw bucket, and resolution of resumable tus
// uploads so workers can fetch them.
package upload

import (
	"context"
	"fmt"
	"log/slog"

	sudoai "github.com/Sukudo1234/sudoai-mvp"
	"github.com/Sukudo1234/sudoai-mvp/storage"
)

// Session describes an initiated multipart upload. The client PUTs each
// part to its target URL, then calls the complete reference with the
// collected ETags.
type Session struct {
	SessionID     string   `json:"sessionId"`
	Key           string   `json:"key"`
	UploadTargets []string `json:"uploadTargets"`
	CompleteRef   string   `json:"completeRef"`
	AbortRef      string   `json:"abortRef"`
}

// Result describes a completed upload.
type Result struct {
	Key       string `json:"key"`
	ETag      string `json:"etag"`
	Size      int64  `json:"size"`
	Reference string `json:"reference"`
}

// Service manages multipart upload sessions over the storage facade.
type Service struct {
	store  *storage.Client
	logger *slog.Logger
}

// NewService creates an upload Service.
func NewService(store *storage.Client, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// Initiate opens a multipart session for a file of the given size and
// returns one presigned target per part.
func (s *Service) Initiate(ctx context.Context, filename string, size int64) (*Session, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: upload size must be positive", sudoai.ErrInvalidParams)
	}

	key := storage.UploadKey(filename)
	uploadID, err := s.store.CreateMultipart(ctx, key)
	if err != nil {
		return nil, err
	}

	chunk := s.store.ChunkSize()
	numParts := int((size + chunk - 1) / chunk)

	targets := make([]string, 0, numParts)
	for part := 1; part <= numParts; part++ {
		url, err := s.store.PresignUploadPart(ctx, key, uploadID, int32(part))
		if err != nil {
			if abortErr := s.store.AbortMultipart(ctx, key, uploadID); abortErr != nil {
				s.logger.Warn("abort after presign failure", "key", key, "error", abortErr)
			}
			return nil, err
		}
		targets = append(targets, url)
	}

	s.logger.Info("upload session initiated", "key", key, "parts", numParts)
	return &Session{
		SessionID:     uploadID,
		Key:           key,
		UploadTargets: targets,
		CompleteRef:   "/uploads/complete",
		AbortRef:      "/uploads/abort",
	}, nil
}

// Complete finalizes a session and returns the stored object reference.
func (s *Service) Complete(ctx context.Context, key, sessionID string, parts []storage.CompletedPart) (*Result, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: no parts supplied", sudoai.ErrInvalidParams)
	}

	etag, err := s.store.CompleteMultipart(ctx, key, sessionID, parts)
	if err != nil {
		return nil, err
	}

	size, err := s.store.Stat(ctx, s.store.RawBucket(), key)
	if err != nil {
		s.logger.Warn("size lookup after completion failed", "key", key, "error", err)
	}

	return &Result{
		Key:       key,
		ETag:      etag,
		Size:      size,
		Reference: fmt.Sprintf("s3://%s/%s", s.store.RawBucket(), key),
	}, nil
}

// Abort discards a session and its uploaded parts.
func (s *Service) Abort(ctx context.Context, key, sessionID string) error {
	return s.store.AbortMultipart(ctx, key, sessionID)
}
