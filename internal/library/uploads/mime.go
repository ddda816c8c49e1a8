package uploads

import (
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// extMimes covers the extensions forums usually accept.
// Anything else falls back to the system mime table.
var extMimes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"jpe":  "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"webp": "image/webp",
	"svg":  "image/svg+xml",
	"tif":  "image/tiff",
	"tiff": "image/tiff",
	"zip":  "application/zip",
	"rar":  "application/x-rar-compressed",
	"7z":   "application/x-7z-compressed",
	"gz":   "application/gzip",
	"pdf":  "application/pdf",
	"txt":  "text/plain",
	"mp3":  "audio/mpeg",
	"mp4":  "video/mp4",
}

// mimeExts maps a mime type to its canonical extension
var mimeExts = map[string]string{
	"image/jpeg":                   "jpeg",
	"image/png":                    "png",
	"image/gif":                    "gif",
	"image/bmp":                    "bmp",
	"image/webp":                   "webp",
	"image/svg+xml":                "svg",
	"image/tiff":                   "tiff",
	"application/zip":              "zip",
	"application/x-rar-compressed": "rar",
	"application/x-7z-compressed":  "7z",
	"application/gzip":             "gz",
	"application/pdf":              "pdf",
	"text/plain":                   "txt",
	"audio/mpeg":                   "mp3",
	"video/mp4":                    "mp4",
}

const defaultMime = "application/octet-stream"

// MimeByExt returns the mime type registered for ext
func MimeByExt(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if m, ok := extMimes[ext]; ok {
		return m
	}

	if m := mime.TypeByExtension("." + ext); m != "" {
		if mediaType, _, err := mime.ParseMediaType(m); err == nil {
			return mediaType
		}
	}

	return defaultMime
}

// CanonicalExt returns the preferred extension of mimeType, or fallback
// when the type is unknown
func CanonicalExt(mimeType, fallback string) string {
	if ext, ok := mimeExts[mimeType]; ok {
		return ext
	}

	if m := mimetype.Lookup(mimeType); m != nil && m.Extension() != "" {
		return strings.TrimPrefix(m.Extension(), ".")
	}

	return strings.ToLower(fallback)
}

// IsImageMime reports whether mimeType is an image type
func IsImageMime(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}
