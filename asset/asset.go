// Package asset classifies and validates local media files before they are
// handed to a publish operation. Classification is extension-based only, no
// content sniffing.
package asset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// User-facing validation failures, surfaced verbatim in publish results.
var (
	ErrImageNotFound = errors.New("Image file not found or invalid")
	ErrVideoNotFound = errors.New("Video file not found or invalid")
)

// Kind is the media kind of a local file.
type Kind string

// Supported media kinds.
const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
}

var videoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".avi":  true,
	".wmv":  true,
	".mkv":  true,
	".flv":  true,
	".webm": true,
}

// ImageExtensions returns the allowed image file extensions (with leading dot).
func ImageExtensions() []string {
	return sortedKeys(imageExtensions)
}

// VideoExtensions returns the allowed video file extensions (with leading dot).
func VideoExtensions() []string {
	return sortedKeys(videoExtensions)
}

// IsImagePath reports whether the path has an allowed image extension.
func IsImagePath(path string) bool {
	return imageExtensions[normalizedExt(path)]
}

// IsVideoPath reports whether the path has an allowed video extension.
func IsVideoPath(path string) bool {
	return videoExtensions[normalizedExt(path)]
}

// KindForPath returns the media kind derived from the file extension.
// The second return value is false when the extension belongs to neither set.
func KindForPath(path string) (Kind, bool) {
	switch {
	case IsImagePath(path):
		return KindImage, true
	case IsVideoPath(path):
		return KindVideo, true
	default:
		return "", false
	}
}

// MIMEType returns the display MIME type inferred from the file extension.
// Used for captions only, the platform does its own sniffing server-side.
func MIMEType(path string) string {
	ext := normalizedExt(path)
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	case ".mp4":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".avi":
		return "video/x-msvideo"
	case ".wmv":
		return "video/x-ms-wmv"
	case ".mkv":
		return "video/x-matroska"
	case ".flv":
		return "video/x-flv"
	case ".webm":
		return "video/webm"
	default:
		return "application/octet-stream"
	}
}

// IsRegularFile reports whether the path exists and points to a regular file.
func IsRegularFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// ValidateImage checks that the path is an existing regular file with an
// allowed image extension. The returned error message is user-facing.
func ValidateImage(path string) error {
	if !IsRegularFile(path) {
		return ErrImageNotFound
	}
	if !IsImagePath(path) {
		return fmt.Errorf("Unsupported image format: %s", filepath.Ext(path))
	}
	return nil
}

// ValidateVideo checks that the path is an existing regular file with an
// allowed video extension. The returned error message is user-facing.
func ValidateVideo(path string) error {
	if !IsRegularFile(path) {
		return ErrVideoNotFound
	}
	if !IsVideoPath(path) {
		return fmt.Errorf("Unsupported video format: %s", filepath.Ext(path))
	}
	return nil
}

func normalizedExt(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
