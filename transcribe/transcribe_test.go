package transcribe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	sudoai "github.com/Sukudo1234/sudoai-mvp"
)

func writeTempAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.wav")
	if err := os.WriteFile(path, []byte("RIFF....WAVE"), 0o644); err != nil {
		t.Fatalf("write temp audio: %v", err)
	}
	return path
}

func TestConfigured(t *testing.T) {
	if New(sudoai.TranscribeConfig{}).Configured() {
		t.Fatal("empty config must not be configured")
	}
	if New(sudoai.TranscribeConfig{APIKey: "k"}).Configured() {
		t.Fatal("missing URL must not be configured")
	}
	if !New(sudoai.TranscribeConfig{APIKey: "k", URL: "http://api"}).Configured() {
		t.Fatal("key plus url should be configured")
	}
}

func TestOutputFormat_Default(t *testing.T) {
	if got := New(sudoai.TranscribeConfig{}).OutputFormat(); got != "srt" {
		t.Fatalf("expected srt default, got %q", got)
	}
}

func TestTranscribe(t *testing.T) {
	subtitle := "1\n00:00:00,000 --> 00:00:02,000\nhello\n"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Header.Get("xi-api-key") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if err := req.ParseMultipartForm(1 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if _, _, err := req.FormFile("file"); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.FormValue("output_format") != "srt" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(subtitle))
	}))
	defer srv.Close()

	c := New(sudoai.TranscribeConfig{
		APIKey:       "secret",
		URL:          srv.URL,
		Language:     "auto",
		OutputFormat: "srt",
	})

	out, err := c.Transcribe(context.Background(), writeTempAudio(t))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if string(out) != subtitle {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestTranscribe_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("rate limited"))
	}))
	defer srv.Close()

	c := New(sudoai.TranscribeConfig{APIKey: "k", URL: srv.URL})
	if _, err := c.Transcribe(context.Background(), writeTempAudio(t)); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestTranscribe_Unconfigured(t *testing.T) {
	c := New(sudoai.TranscribeConfig{})
	if _, err := c.Transcribe(context.Background(), writeTempAudio(t)); err == nil {
		t.Fatal("expected error for unconfigured client")
	}
}
