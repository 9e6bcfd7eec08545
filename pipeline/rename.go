package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/Sukudo1234/sudoai-mvp/job"
)

// Mapping is one intended rename. The result always reports the full
// mapping list regardless of per-key outcomes.
type Mapping struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type renameResult struct {
	Preview bool      `json:"preview"`
	Mapping []Mapping `json:"mapping"`
}

// BuildMapping expands the pattern over keys. {index} is zero-padded to
// pad digits, counting up from startIndex; {basename} and {ext} come
// from each key. Renames stay within the key's directory.
func BuildMapping(keys []string, pattern string, startIndex, pad int) []Mapping {
	out := make([]Mapping, 0, len(keys))
	idx := startIndex

	for _, key := range keys {
		ext := path.Ext(key)
		base := strings.TrimSuffix(path.Base(key), ext)

		name := strings.NewReplacer(
			"{index}", fmt.Sprintf("%0*d", pad, idx),
			"{basename}", base,
			"{ext}", ext,
		).Replace(pattern)

		to := name
		if dir := path.Dir(key); dir != "." && dir != "/" {
			to = dir + "/" + name
		}

		out = append(out, Mapping{From: key, To: to})
		idx++
	}
	return out
}

// runRename applies a pattern rename over existing keys in the out
// bucket. Preview short-circuits before any mutation. Application is
// best-effort per key: a failed copy is logged and skipped, and a
// failed delete leaves the source in place.
func (p *Pipeline) runRename(ctx context.Context, params job.RenameParams) (json.RawMessage, error) {
	mapping := BuildMapping(params.Keys, params.Pattern, params.StartIndex, params.Pad)

	if params.Preview {
		return marshalResult(renameResult{Preview: true, Mapping: mapping})
	}

	bucket := p.store.OutBucket()
	for _, m := range mapping {
		if err := p.store.Copy(ctx, bucket, m.From, m.To); err != nil {
			p.logger.Warn("rename copy failed, key skipped",
				slog.String("from", m.From),
				slog.String("to", m.To),
				slog.String("error", err.Error()),
			)
			continue
		}
		if err := p.store.Delete(ctx, bucket, m.From); err != nil {
			p.logger.Warn("rename delete failed, source left in place",
				slog.String("from", m.From),
				slog.String("error", err.Error()),
			)
		}
	}

	return marshalResult(renameResult{Preview: false, Mapping: mapping})
}
