package upload

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	sudoai "github.com/Sukudo1234/sudoai-mvp"
)

// TusResolver turns client-facing tus upload URLs into readable streams.
// Clients upload against the public URL; workers fetch the finished
// bytes from the internal one, which lives on the cluster network.
type TusResolver struct {
	internalURL string
	publicURL   string
	client      *http.Client
}

// NewTusResolver creates a resolver for the given tus endpoints.
func NewTusResolver(internalURL, publicURL string) *TusResolver {
	return &TusResolver{
		internalURL: strings.TrimRight(internalURL, "/"),
		publicURL:   strings.TrimRight(publicURL, "/"),
		client:      &http.Client{Timeout: 10 * time.Minute},
	}
}

// IsTusURL reports whether raw points at the tus upload server.
func (r *TusResolver) IsTusURL(raw string) bool {
	return r.publicURL != "" && strings.HasPrefix(raw, r.publicURL+"/")
}

// Open fetches the uploaded bytes for a tus URL, rewriting the public
// host to the internal one. A missing session maps to
// ErrUploadSessionNotFound; the caller fails the job without retry.
func (r *TusResolver) Open(ctx context.Context, raw string) (io.ReadCloser, int64, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, 0, fmt.Errorf("upload: parse tus url %q: %w", raw, err)
	}

	target := r.internalURL + parsed.Path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("upload: build tus request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("upload: fetch tus upload: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return resp.Body, resp.ContentLength, nil
	case http.StatusNotFound, http.StatusGone:
		resp.Body.Close()
		return nil, 0, fmt.Errorf("%w: %s", sudoai.ErrUploadSessionNotFound, parsed.Path)
	default:
		resp.Body.Close()
		return nil, 0, fmt.Errorf("upload: tus server returned %d for %s", resp.StatusCode, parsed.Path)
	}
}

// Filename recovers the original filename recorded in the upload
// session metadata via a HEAD request. When the session carries no
// filename it falls back to the last path segment of the URL.
func (r *TusResolver) Filename(ctx context.Context, raw string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("upload: parse tus url %q: %w", raw, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, r.internalURL+parsed.Path, nil)
	if err != nil {
		return "", fmt.Errorf("upload: build tus head request: %w", err)
	}
	req.Header.Set("Tus-Resumable", "1.0.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload: head tus upload: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
	case http.StatusNotFound, http.StatusGone:
		return "", fmt.Errorf("%w: %s", sudoai.ErrUploadSessionNotFound, parsed.Path)
	default:
		return "", fmt.Errorf("upload: tus server returned %d for %s", resp.StatusCode, parsed.Path)
	}

	meta := parseUploadMetadata(resp.Header.Get("Upload-Metadata"))
	if name := meta["filename"]; name != "" {
		return name, nil
	}
	return path.Base(parsed.Path), nil
}

// parseUploadMetadata decodes a tus Upload-Metadata header: comma
// separated "key base64value" pairs, value optional.
func parseUploadMetadata(header string) map[string]string {
	meta := make(map[string]string)
	for _, pair := range strings.Split(header, ",") {
		fields := strings.Fields(strings.TrimSpace(pair))
		if len(fields) == 0 {
			continue
		}
		if len(fields) == 1 {
			meta[fields[0]] = ""
			continue
		}
		decoded, err := base64.StdEncoding.DecodeString(fields[1])
		if err != nil {
			continue
		}
		meta[fields[0]] = string(decoded)
	}
	return meta
}
