package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	sudoai "github.com/Sukudo1234/sudoai-mvp"
	"github.com/Sukudo1234/sudoai-mvp/storage"
)

// acquire resolves a source URL into a workspace-local file and returns
// its path plus the original filename. Object-store references download
// directly; anything pointing at the upload server resolves through the
// session protocol. Acquisition failures abort the job without retry.
func (p *Pipeline) acquire(ctx context.Context, ws *Workspace, rawURL string) (local, filename string, err error) {
	switch {
	case strings.HasPrefix(rawURL, "s3://"):
		bucket, key, err := storage.ParseURL(rawURL)
		if err != nil {
			return "", "", err
		}
		filename = path.Base(key)
		local = ws.Path(filename)
		if err := p.store.Download(ctx, bucket, key, local); err != nil {
			return "", "", err
		}
		return local, filename, nil

	case p.uploads != nil && p.uploads.IsTusURL(rawURL):
		filename, err = p.uploads.Filename(ctx, rawURL)
		if err != nil {
			return "", "", err
		}

		body, _, err := p.uploads.Open(ctx, rawURL)
		if err != nil {
			return "", "", err
		}
		defer body.Close()

		local = ws.Path(filename)
		f, err := os.Create(local)
		if err != nil {
			return "", "", fmt.Errorf("pipeline: create %s: %w", local, err)
		}
		defer f.Close()

		if _, err := io.Copy(f, body); err != nil {
			return "", "", fmt.Errorf("pipeline: fetch upload %s: %w", rawURL, err)
		}
		return local, filename, nil

	default:
		return "", "", fmt.Errorf("%w: unsupported source url %q", sudoai.ErrInvalidParams, rawURL)
	}
}
