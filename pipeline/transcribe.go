package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/Sukudo1234/sudoai-mvp/job"
)

type transcribeResult struct {
	Filename  string    `json:"filename"`
	Languages []string  `json:"targetLanguages"`
	Subtitle  *Artifact `json:"subtitle,omitempty"`
	Audio     *Artifact `json:"audio,omitempty"`
	Warning   string    `json:"warning,omitempty"`
}

// runTranscribe normalizes the source to mono 16 kHz PCM and calls the
// transcription backend. Without a configured backend the job still
// succeeds, uploading the normalized audio with a warning instead.
func (p *Pipeline) runTranscribe(ctx context.Context, rec *job.Job, ws *Workspace, params job.TranscribeParams) (json.RawMessage, error) {
	local, filename, err := p.acquire(ctx, ws, params.SourceURL)
	if err != nil {
		return nil, err
	}

	wav := ws.Path("audio.wav")
	if _, err := p.runner.Run(ctx, "ffmpeg", "-y", "-i", local, "-ac", "1", "-ar", "16000", wav); err != nil {
		return nil, err
	}

	base := strings.TrimSuffix(filename, path.Ext(filename))

	if p.stt == nil || !p.stt.Configured() {
		art, err := p.uploadArtifact(ctx, rec.TaskID, base+".wav", wav)
		if err != nil {
			return nil, err
		}
		p.logger.Warn("transcription backend not configured, returning normalized audio",
			"task_id", rec.TaskID)
		return marshalResult(transcribeResult{
			Filename:  filename,
			Languages: params.TargetLanguages,
			Audio:     &art,
			Warning:   "transcription backend not configured; normalized audio uploaded instead",
		})
	}

	subtitle, err := p.stt.Transcribe(ctx, wav)
	if err != nil {
		return nil, err
	}

	format := p.stt.OutputFormat()
	subPath := ws.Path("subtitle." + format)
	if err := os.WriteFile(subPath, subtitle, 0o644); err != nil {
		return nil, fmt.Errorf("pipeline: write subtitle: %w", err)
	}

	art, err := p.uploadArtifact(ctx, rec.TaskID, base+"."+format, subPath)
	if err != nil {
		return nil, err
	}

	return marshalResult(transcribeResult{
		Filename:  filename,
		Languages: params.TargetLanguages,
		Subtitle:  &art,
	})
}
