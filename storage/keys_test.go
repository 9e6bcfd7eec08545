package storage

import (
	"strings"
	"testing"
)

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"track.wav":            "track.wav",
		"my song (final).mp3":  "my_song__final_.mp3",
		"../../etc/passwd":     "passwd",
		"dir/sub/file.mp4":     "file.mp4",
		"weird\\windows\\p.mp4": "p.mp4",
		"":                     "file",
		"...":                  "file",
		"Ünïcøde.wav":          "_n_c_de.wav",
	}
	for in, want := range cases {
		if got := SanitizeFilename(in); got != want {
			t.Fatalf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestUploadKey(t *testing.T) {
	key := UploadKey("my track.wav")
	if !strings.HasPrefix(key, "uploads/") {
		t.Fatalf("unexpected prefix: %s", key)
	}
	if !strings.HasSuffix(key, "/my_track.wav") {
		t.Fatalf("unexpected suffix: %s", key)
	}

	parts := strings.Split(key, "/")
	if len(parts) != 3 {
		t.Fatalf("expected uploads/<id>/<name>, got %s", key)
	}
	if len(parts[1]) != 8 {
		t.Fatalf("expected 8-char random segment, got %q", parts[1])
	}

	// Two keys for the same filename never collide.
	if UploadKey("a.wav") == UploadKey("a.wav") {
		t.Fatal("upload keys must be unique per call")
	}
}

func TestArtifactKey(t *testing.T) {
	if got := ArtifactKey("task-1", "vocals.wav"); got != "out/task-1/vocals.wav" {
		t.Fatalf("unexpected artifact key %q", got)
	}
}

func TestParseURL(t *testing.T) {
	bucket, key, err := ParseURL("s3://uploads/ab12cd34/track.wav")
	if err != nil {
		t.Fatalf("ParseURL: %v", err)
	}
	if bucket != "uploads" || key != "ab12cd34/track.wav" {
		t.Fatalf("unexpected parts: %s / %s", bucket, key)
	}

	for _, bad := range []string{
		"http://example.com/a.wav",
		"s3://bucket-only",
		"s3:///no-bucket",
		"",
	} {
		if _, _, err := ParseURL(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestContentTypeFor(t *testing.T) {
	cases := map[string]string{
		"out/t/v.mp4":   "video/mp4",
		"a/b/stems.wav": "audio/wav",
		"subs.srt":      "application/x-subrip",
		"unknown.bin":   "application/octet-stream",
	}
	for key, want := range cases {
		if got := ContentTypeFor(key); got != want {
			t.Fatalf("ContentTypeFor(%q) = %q, want %q", key, got, want)
		}
	}
}
