// Package media classifies uploaded files by their extension.
package media

import "strings"

// Kind is the coarse media category of an upload.
type Kind string

const (
	KindAudio   Kind = "audio"
	KindVideo   Kind = "video"
	KindUnknown Kind = "unknown"
)

// DefaultMimeType is reported for unrecognized or missing extensions.
const DefaultMimeType = "application/octet-stream"

// Classification is the MIME type and kind derived from a file name.
type Classification struct {
	MimeType string `json:"mime_type"`
	Kind     Kind   `json:"kind"`
}

var mimeByExtension = map[string]string{
	// audio
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"m4a":  "audio/mp4",
	"aac":  "audio/aac",
	"ogg":  "audio/ogg",
	"flac": "audio/flac",
	"wma":  "audio/x-ms-wma",
	// video
	"mp4":  "video/mp4",
	"mov":  "video/quicktime",
	"avi":  "video/x-msvideo",
	"webm": "video/webm",
	"mkv":  "video/x-matroska",
	"flv":  "video/x-flv",
}

// Classify maps fileName's extension to a MIME type. It never fails.
func Classify(fileName string) Classification {
	mimeType := DefaultMimeType
	if ext := extension(fileName); ext != "" {
		if m, ok := mimeByExtension[ext]; ok {
			mimeType = m
		}
	}
	return Classification{MimeType: mimeType, Kind: KindOf(mimeType)}
}

// KindOf reports the kind for a MIME type.
func KindOf(mimeType string) Kind {
	switch {
	case strings.HasPrefix(mimeType, "audio/"):
		return KindAudio
	case strings.HasPrefix(mimeType, "video/"):
		return KindVideo
	default:
		return KindUnknown
	}
}

// IsMediaType reports whether a declared content type is audio or video.
func IsMediaType(mimeType string) bool {
	return KindOf(strings.ToLower(strings.TrimSpace(mimeType))) != KindUnknown
}

func extension(fileName string) string {
	idx := strings.LastIndex(fileName, ".")
	if idx < 0 {
		return ""
	}
	return strings.ToLower(fileName[idx+1:])
}
