package media

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/tanq16/tgrelay/internal/utils"
)

var videoExtensions = map[string]bool{
	".mp4": true, ".mkv": true, ".avi": true, ".mov": true, ".wmv": true, ".flv": true,
	".webm": true, ".m4v": true, ".mpg": true, ".mpeg": true, ".3gp": true,
}

var photoExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true,
}

var audioExtensions = map[string]bool{
	".mp3": true, ".m4a": true, ".ogg": true, ".flac": true, ".wav": true, ".opus": true, ".aac": true,
}

// Classify picks the upload kind for a local file from its extension, then
// from its registered mime type.
func Classify(path string) utils.MediaKind {
	if path == "" {
		return utils.KindUnknown
	}
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case videoExtensions[ext]:
		return utils.KindVideo
	case photoExtensions[ext]:
		return utils.KindPhoto
	case audioExtensions[ext]:
		return utils.KindAudio
	}
	return fromMime(mime.TypeByExtension(ext))
}

// KindFromMime maps a platform-reported mime type to a kind.
func KindFromMime(mimeType string) utils.MediaKind {
	return fromMime(mimeType)
}

func fromMime(mimeType string) utils.MediaKind {
	switch {
	case strings.HasPrefix(mimeType, "video/"):
		return utils.KindVideo
	case strings.HasPrefix(mimeType, "image/"):
		return utils.KindPhoto
	case strings.HasPrefix(mimeType, "audio/"):
		return utils.KindAudio
	default:
		return utils.KindDocument
	}
}

func IsVideo(path string) bool {
	return Classify(path) == utils.KindVideo
}

// ExtensionFor supplies a default extension when a platform file name has none.
func ExtensionFor(kind utils.MediaKind, mimeType string) string {
	switch kind {
	case utils.KindVideo:
		return ".mp4"
	case utils.KindPhoto:
		return ".jpg"
	case utils.KindAudio:
		return ".mp3"
	}
	if mimeType == "" {
		return ""
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	parts := strings.Split(mimeType, "/")
	return "." + parts[len(parts)-1]
}
