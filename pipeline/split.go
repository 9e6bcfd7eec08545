package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/Sukudo1234/sudoai-mvp/job"
)

type splitResult struct {
	Filename string              `json:"filename"`
	Results  map[string]Artifact `json:"results"`
}

// runSplit separates an audio source into stems. The separator decides
// how many stems come out and what they are called; every produced stem
// is uploaded under its own name.
func (p *Pipeline) runSplit(ctx context.Context, rec *job.Job, ws *Workspace, params job.SplitParams) (json.RawMessage, error) {
	local, filename, err := p.acquire(ctx, ws, params.SourceURL)
	if err != nil {
		return nil, err
	}

	// Normalize to stereo 44.1 kHz PCM before separation.
	wav := ws.Path("input.wav")
	if _, err := p.runner.Run(ctx, "ffmpeg", "-y", "-i", local, "-ac", "2", "-ar", "44100", wav); err != nil {
		return nil, err
	}

	stemDir, err := ws.Mkdir("stems")
	if err != nil {
		return nil, err
	}
	if _, err := p.runner.Run(ctx, "python", "-m", "demucs.separate",
		"-o", stemDir, "--two-stems", "vocals", wav); err != nil {
		return nil, err
	}

	stems := make(map[string]Artifact)
	walkErr := filepath.WalkDir(stemDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".wav") {
			return nil
		}

		name := strings.TrimSuffix(d.Name(), filepath.Ext(d.Name()))
		art, err := p.uploadArtifact(ctx, rec.TaskID, name+".wav", path)
		if err != nil {
			return err
		}
		stems[name] = art
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	if len(stems) == 0 {
		return nil, fmt.Errorf("pipeline: separation produced no stems")
	}

	return marshalResult(splitResult{Filename: filename, Results: stems})
}
