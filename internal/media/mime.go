package media

import (
	"path/filepath"
	"sort"
	"strings"
)

// mimeByExtension maps the extensions Quill accepts to the MIME type sent
// with the transcription request. Video containers are accepted because the
// speech service reads their audio track directly.
var mimeByExtension = map[string]string{
	".aac":  "audio/aac",
	".aiff": "audio/aiff",
	".flac": "audio/flac",
	".m4a":  "audio/mp4",
	".mp3":  "audio/mpeg",
	".oga":  "audio/ogg",
	".ogg":  "audio/ogg",
	".opus": "audio/opus",
	".wav":  "audio/wav",
	".mkv":  "video/x-matroska",
	".mov":  "video/quicktime",
	".mp4":  "video/mp4",
	".webm": "video/webm",
}

// MIMETypeForPath returns the MIME type for a supported media file, or
// application/octet-stream for anything unrecognized.
func MIMETypeForPath(path string) string {
	if mimeType, ok := mimeByExtension[normalizeExtension(path)]; ok {
		return mimeType
	}
	return "application/octet-stream"
}

// IsSupportedPath reports whether the file extension is one Quill accepts.
func IsSupportedPath(path string) bool {
	_, ok := mimeByExtension[normalizeExtension(path)]
	return ok
}

// SupportedExtensions returns the accepted extensions sorted for display.
func SupportedExtensions() []string {
	extensions := make([]string, 0, len(mimeByExtension))
	for extension := range mimeByExtension {
		extensions = append(extensions, extension)
	}
	sort.Strings(extensions)
	return extensions
}

func normalizeExtension(path string) string {
	return strings.ToLower(filepath.Ext(strings.TrimSpace(path)))
}
