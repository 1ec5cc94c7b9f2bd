// Package media classifies evidence files and exposes container inspection
// helpers used by capture, compression, and sync.
package media

import (
	"mime"
	"path/filepath"
	"strings"
)

// Kind partitions evidence files by how they are compressed and uploaded.
type Kind string

const (
	KindImage    Kind = "image"
	KindVideo    Kind = "video"
	KindAudio    Kind = "audio"
	KindDocument Kind = "document"
)

// DetectKind classifies a file by MIME type, falling back to the filename
// extension when the MIME type is missing or unhelpful. Anything that is not
// image, video, or audio is treated as a document and passed through
// compression untouched.
func DetectKind(mimeType, fileName string) Kind {
	if kind, ok := kindFromMIME(mimeType); ok {
		return kind
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext != "" {
		if guessed := mime.TypeByExtension(ext); guessed != "" {
			if kind, ok := kindFromMIME(guessed); ok {
				return kind
			}
		}
		if kind, ok := kindFromExtension(ext); ok {
			return kind
		}
	}
	return KindDocument
}

func kindFromMIME(mimeType string) (Kind, bool) {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if mimeType == "" {
		return "", false
	}
	if idx := strings.IndexByte(mimeType, ';'); idx >= 0 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return KindImage, true
	case strings.HasPrefix(mimeType, "video/"):
		return KindVideo, true
	case strings.HasPrefix(mimeType, "audio/"):
		return KindAudio, true
	}
	return "", false
}

// kindFromExtension covers container extensions the platform MIME database
// does not always know about.
func kindFromExtension(ext string) (Kind, bool) {
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".heic", ".heif":
		return KindImage, true
	case ".mp4", ".mkv", ".webm", ".mov", ".avi", ".3gp":
		return KindVideo, true
	case ".mp3", ".m4a", ".aac", ".ogg", ".opus", ".wav", ".flac":
		return KindAudio, true
	}
	return "", false
}

// MIMEForExtension returns a best-effort MIME type for an evidence file.
func MIMEForExtension(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == "" {
		return "application/octet-stream"
	}
	if guessed := mime.TypeByExtension(ext); guessed != "" {
		if idx := strings.IndexByte(guessed, ';'); idx >= 0 {
			guessed = strings.TrimSpace(guessed[:idx])
		}
		return guessed
	}
	switch ext {
	case ".mkv":
		return "video/x-matroska"
	case ".opus":
		return "audio/opus"
	case ".m4a":
		return "audio/mp4"
	case ".heic":
		return "image/heic"
	}
	return "application/octet-stream"
}
