package storage

import (
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// UploadKey builds the raw-bucket key for a client upload: a short random
// prefix keeps concurrent uploads of the same filename from colliding.
func UploadKey(filename string) string {
	return fmt.Sprintf("uploads/%s/%s", uuid.NewString()[:8], SanitizeFilename(filename))
}

// ArtifactKey builds the out-bucket key for a job artifact.
func ArtifactKey(taskID, name string) string {
	return fmt.Sprintf("out/%s/%s", taskID, SanitizeFilename(name))
}

// SanitizeFilename strips path components and replaces anything outside
// [A-Za-z0-9._-] with an underscore. An empty or fully-stripped name
// becomes "file".
func SanitizeFilename(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		return "file"
	}

	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	out := b.String()
	if strings.Trim(out, "._-") == "" {
		return "file"
	}
	return out
}

// ParseURL splits an s3://bucket/key URL into its parts.
func ParseURL(raw string) (bucket, key string, err error) {
	const scheme = "s3://"
	if !strings.HasPrefix(raw, scheme) {
		return "", "", fmt.Errorf("storage: not an s3 url: %q", raw)
	}

	rest := strings.TrimPrefix(raw, scheme)
	bucket, key, found := strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", fmt.Errorf("storage: malformed s3 url: %q", raw)
	}
	return bucket, key, nil
}

// ContentTypeFor guesses a Content-Type from the key's extension,
// covering the formats the pipeline produces.
func ContentTypeFor(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".mp4":
		return "video/mp4"
	case ".mkv":
		return "video/x-matroska"
	case ".mov":
		return "video/quicktime"
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".flac":
		return "audio/flac"
	case ".srt":
		return "application/x-subrip"
	case ".vtt":
		return "text/vtt"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
