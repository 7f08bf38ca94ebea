package listing

import (
	"mime"
	"path/filepath"
	"strings"
)

// extraTypes covers media the browser plays inline and which Go's builtin
// table lacks; /etc/mime.types is often missing on NAS images.
var extraTypes = map[string]string{
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".mov":  "video/quicktime",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".wav":  "audio/wav",
	".txt":  "text/plain; charset=utf-8",
	".md":   "text/markdown; charset=utf-8",
	".log":  "text/plain; charset=utf-8",
	".zip":  "application/zip",
	".gz":   "application/gzip",
}

// ContentType guesses a MIME type from the file extension, "" if unknown.
func ContentType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return ""
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return extraTypes[ext]
}

// IsImage reports whether the name has an extension the thumbnailer decodes.
func IsImage(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return true
	default:
		return false
	}
}
