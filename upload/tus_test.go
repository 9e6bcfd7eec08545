package upload

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	sudoai "github.com/Sukudo1234/sudoai-mvp"
)

func TestTusResolver_IsTusURL(t *testing.T) {
	r := NewTusResolver("http://tusd:1080", "http://localhost:8080")

	if !r.IsTusURL("http://localhost:8080/files/abc123") {
		t.Fatal("public tus URL not recognized")
	}
	if r.IsTusURL("s3://uploads/ab12/track.wav") {
		t.Fatal("s3 URL misclassified as tus")
	}
	if r.IsTusURL("http://evil.example.com/files/abc") {
		t.Fatal("foreign host misclassified as tus")
	}
}

func TestTusResolver_Open(t *testing.T) {
	payload := []byte("uploaded media bytes")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/files/abc123" {
			http.NotFound(w, req)
			return
		}
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	// The internal URL is the test server; the public URL is a different
	// host, as in a real deployment.
	r := NewTusResolver(srv.URL, "http://localhost:8080")

	body, size, err := r.Open(context.Background(), "http://localhost:8080/files/abc123")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer body.Close()

	got, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("unexpected body %q", got)
	}
	if size != int64(len(payload)) {
		t.Fatalf("unexpected size %d", size)
	}
}

func TestTusResolver_MissingSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.NotFound(w, req)
	}))
	defer srv.Close()

	r := NewTusResolver(srv.URL, "http://localhost:8080")

	_, _, err := r.Open(context.Background(), "http://localhost:8080/files/expired")
	if !errors.Is(err, sudoai.ErrUploadSessionNotFound) {
		t.Fatalf("expected ErrUploadSessionNotFound, got %v", err)
	}
}

func TestTusResolver_Filename(t *testing.T) {
	// "track.wav" base64-encoded, as tusd stores it in Upload-Metadata.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Upload-Metadata", "filename dHJhY2sud2F2,filetype YXVkaW8vd2F2")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	r := NewTusResolver(srv.URL, "http://localhost:8080")

	name, err := r.Filename(context.Background(), "http://localhost:8080/files/abc123")
	if err != nil {
		t.Fatalf("Filename: %v", err)
	}
	if name != "track.wav" {
		t.Fatalf("expected track.wav, got %q", name)
	}
}

func TestTusResolver_Filename_FallsBackToPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	r := NewTusResolver(srv.URL, "http://localhost:8080")

	name, err := r.Filename(context.Background(), "http://localhost:8080/files/abc123")
	if err != nil {
		t.Fatalf("Filename: %v", err)
	}
	if name != "abc123" {
		t.Fatalf("expected path fallback abc123, got %q", name)
	}
}

func TestTusResolver_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := NewTusResolver(srv.URL, "http://localhost:8080")

	_, _, err := r.Open(context.Background(), "http://localhost:8080/files/abc")
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if errors.Is(err, sudoai.ErrUploadSessionNotFound) {
		t.Fatal("500 must not map to session-not-found")
	}
}
