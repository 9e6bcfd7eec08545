// Package transcribe is the client for the external speech-to-text API.
// An unconfigured client is valid: transcribe jobs then degrade to
// uploading the normalized audio with a warning instead of failing.
package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	sudoai "github.com/Sukudo1234/sudoai-mvp"
)

// Client calls the transcription API over multipart HTTP.
type Client struct {
	apiKey       string
	url          string
	language     string
	outputFormat string
	httpClient   *http.Client
}

// New creates a Client from the transcription configuration.
func New(cfg sudoai.TranscribeConfig) *Client {
	return &Client{
		apiKey:       cfg.APIKey,
		url:          cfg.URL,
		language:     cfg.Language,
		outputFormat: cfg.OutputFormat,
		httpClient:   &http.Client{Timeout: 30 * time.Minute},
	}
}

// Configured reports whether the client can reach a transcription
// backend.
func (c *Client) Configured() bool {
	return c.apiKey != "" && c.url != ""
}

// OutputFormat returns the subtitle format the API is asked for.
func (c *Client) OutputFormat() string {
	if c.outputFormat == "" {
		return "srt"
	}
	return c.outputFormat
}

// Transcribe sends the audio file and returns the raw subtitle output.
func (c *Client) Transcribe(ctx context.Context, audioPath string) ([]byte, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("transcribe: client not configured")
	}

	f, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("transcribe: open %s: %w", audioPath, err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("transcribe: build form: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("transcribe: copy audio: %w", err)
	}

	fields := map[string]string{
		"output_format": c.OutputFormat(),
	}
	if c.language != "" && c.language != "auto" {
		fields["language"] = c.language
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("transcribe: write field %s: %w", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("transcribe: finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &body)
	if err != nil {
		return nil, fmt.Errorf("transcribe: build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcribe: call api: %w", err)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("transcribe: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("transcribe: api returned %d: %s", resp.StatusCode, truncate(out, 200))
	}
	return out, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
