// Package media loads image and video files as inline attachments.
package media

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"lumen/internal/models"
)

// MaxInlineBytes is the largest file sent inline with a request.
const MaxInlineBytes = 20 << 20

var (
	ErrUnsupported = errors.New("unsupported media type")
	ErrTooLarge    = errors.New("media file too large to send inline")
)

// inlineTypes are the image and video MIME types the backend accepts inline.
var inlineTypes = map[string]bool{
	"image/png":       true,
	"image/jpeg":      true,
	"image/webp":      true,
	"image/heic":      true,
	"image/heif":      true,
	"video/mp4":       true,
	"video/mpeg":      true,
	"video/quicktime": true,
	"video/x-msvideo": true,
	"video/x-flv":     true,
	"video/webm":      true,
	"video/x-ms-wmv":  true,
	"video/3gpp":      true,
}

// Supported reports whether mimeType can be sent inline.
func Supported(mimeType string) bool {
	return inlineTypes[mimeType]
}

// IsCandidate reports whether a path has a supported image or video
// extension. Used to filter completion suggestions before any file is opened.
func IsCandidate(path string) bool {
	return Supported(mimeFromExt(path))
}

// Decode reads the file at path into an attachment. The MIME type comes from
// the extension, falling back to content sniffing.
func Decode(path string) (models.Attachment, error) {
	info, err := os.Stat(path)
	if err != nil {
		return models.Attachment{}, err
	}
	if info.IsDir() {
		return models.Attachment{}, fmt.Errorf("%s: %w", path, ErrUnsupported)
	}
	if info.Size() > MaxInlineBytes {
		return models.Attachment{}, fmt.Errorf("%s (%d bytes): %w", path, info.Size(), ErrTooLarge)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return models.Attachment{}, err
	}
	return FromBytes(filepath.Base(path), data)
}

// FromBytes builds an attachment from raw bytes, for pasted or piped content.
func FromBytes(name string, data []byte) (models.Attachment, error) {
	mimeType := mimeFromExt(name)
	if !Supported(mimeType) {
		mimeType = http.DetectContentType(data)
	}
	mimeType, _, _ = strings.Cut(mimeType, ";")
	if !Supported(mimeType) {
		return models.Attachment{}, fmt.Errorf("%s (%s): %w", name, mimeType, ErrUnsupported)
	}
	return models.Attachment{
		Data:     base64.StdEncoding.EncodeToString(data),
		MIMEType: mimeType,
		Name:     name,
	}, nil
}

// Extensions mapped ahead of the system MIME table, which varies by platform.
var extTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".heic": "image/heic",
	".heif": "image/heif",
	".mp4":  "video/mp4",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".flv":  "video/x-flv",
	".webm": "video/webm",
	".wmv":  "video/x-ms-wmv",
	".3gp":  "video/3gpp",
}

func mimeFromExt(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return ""
	}
	if t, ok := extTypes[ext]; ok {
		return t
	}
	t, _, _ := strings.Cut(mime.TypeByExtension(ext), ";")
	return t
}
