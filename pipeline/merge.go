package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"path"
	"strconv"
	"strings"

	"github.com/Sukudo1234/sudoai-mvp/job"
)

// offsetEpsilon: audio offsets this close to zero are treated as zero
// and no offset argument is attached to the transform.
const offsetEpsilon = 1e-4

type mergeResult struct {
	Video  string   `json:"video"`
	Audio  string   `json:"audio"`
	Result Artifact `json:"result"`
}

// mergeAttempts returns the ordered transform argument lists for a
// merge. The first attempt stream-copies video and re-encodes only
// audio; the second, taken only if the first fails, re-encodes the
// video as well. There is no third attempt.
func mergeAttempts(videoPath, audioPath, outPath string, offset float64) [][]string {
	inputs := []string{"-y", "-i", videoPath, "-i", audioPath}
	if math.Abs(offset) > offsetEpsilon {
		inputs = []string{"-y", "-i", videoPath,
			"-itsoffset", strconv.FormatFloat(offset, 'f', -1, 64), "-i", audioPath}
	}

	mapping := []string{"-map", "0:v:0", "-map", "1:a:0"}

	copyAttempt := append(append(append([]string{}, inputs...), mapping...),
		"-c:v", "copy", "-c:a", "aac", "-shortest", outPath)
	encodeAttempt := append(append(append([]string{}, inputs...), mapping...),
		"-c:v", "libx264", "-c:a", "aac", "-shortest", outPath)

	return [][]string{copyAttempt, encodeAttempt}
}

// runMerge muxes a video and an audio track into one container, with
// the audio shifted by the signed offset.
func (p *Pipeline) runMerge(ctx context.Context, rec *job.Job, ws *Workspace, params job.MergeParams) (json.RawMessage, error) {
	vlocal, vname, err := p.acquire(ctx, ws, params.VideoURL)
	if err != nil {
		return nil, err
	}
	alocal, aname, err := p.acquire(ctx, ws, params.AudioURL)
	if err != nil {
		return nil, err
	}

	out := ws.Path("merged.mp4")
	attempts := mergeAttempts(vlocal, alocal, out, params.OffsetSeconds)

	var lastErr error
	for i, args := range attempts {
		if _, lastErr = p.runner.Run(ctx, "ffmpeg", args...); lastErr == nil {
			break
		}
		if i < len(attempts)-1 {
			p.logger.Warn("stream-copy merge failed, re-encoding video",
				slog.String("task_id", rec.TaskID),
				slog.String("error", lastErr.Error()),
			)
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}

	name := strings.TrimSuffix(vname, path.Ext(vname)) + "_merged.mp4"
	art, err := p.uploadArtifact(ctx, rec.TaskID, name, out)
	if err != nil {
		return nil, err
	}

	return marshalResult(mergeResult{Video: vname, Audio: aname, Result: art})
}
