package asset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindForPath(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		wantKind Kind
		wantOK   bool
	}{
		{name: "jpg image", path: "Assets/Images/photo.jpg", wantKind: KindImage, wantOK: true},
		{name: "uppercase extension", path: "photo.PNG", wantKind: KindImage, wantOK: true},
		{name: "mp4 video", path: "clip.mp4", wantKind: KindVideo, wantOK: true},
		{name: "webm video", path: "clip.webm", wantKind: KindVideo, wantOK: true},
		{name: "text file", path: "notes.txt", wantOK: false},
		{name: "no extension", path: "README", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, ok := KindForPath(tt.path)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantKind, kind)
			}
		})
	}
}

func TestMIMEType(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{path: "a.jpg", want: "image/jpeg"},
		{path: "a.jpeg", want: "image/jpeg"},
		{path: "a.png", want: "image/png"},
		{path: "a.mp4", want: "video/mp4"},
		{path: "a.mov", want: "video/quicktime"},
		{path: "a.bin", want: "application/octet-stream"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, MIMEType(tt.path))
		})
	}
}

func TestValidateImage(t *testing.T) {
	dir := t.TempDir()
	imagePath := filepath.Join(dir, "photo.png")
	require.NoError(t, os.WriteFile(imagePath, []byte("not really a png"), 0600))
	textPath := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(textPath, []byte("text"), 0600))

	t.Run("valid image file", func(t *testing.T) {
		assert.NoError(t, ValidateImage(imagePath))
	})

	t.Run("missing file", func(t *testing.T) {
		err := ValidateImage(filepath.Join(dir, "nonexistent.png"))
		require.Error(t, err)
		assert.Equal(t, "Image file not found or invalid", err.Error())
	})

	t.Run("directory instead of file", func(t *testing.T) {
		err := ValidateImage(dir)
		require.Error(t, err)
		assert.Equal(t, "Image file not found or invalid", err.Error())
	})

	t.Run("unsupported extension", func(t *testing.T) {
		err := ValidateImage(textPath)
		require.Error(t, err)
		assert.Equal(t, "Unsupported image format: .txt", err.Error())
	})
}

func TestValidateVideo(t *testing.T) {
	dir := t.TempDir()
	videoPath := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(videoPath, []byte("not really a video"), 0600))
	textPath := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(textPath, []byte("text"), 0600))

	t.Run("valid video file", func(t *testing.T) {
		assert.NoError(t, ValidateVideo(videoPath))
	})

	t.Run("missing file", func(t *testing.T) {
		err := ValidateVideo(filepath.Join(dir, "nonexistent.mp4"))
		require.Error(t, err)
		assert.Equal(t, "Video file not found or invalid", err.Error())
	})

	t.Run("unsupported extension", func(t *testing.T) {
		err := ValidateVideo(textPath)
		require.Error(t, err)
		assert.Equal(t, "Unsupported video format: .txt", err.Error())
	})
}

func TestExtensionSetsAreSorted(t *testing.T) {
	assert.Equal(t, []string{".bmp", ".gif", ".jpeg", ".jpg", ".png"}, ImageExtensions())
	assert.Equal(t, []string{".avi", ".flv", ".mkv", ".mov", ".mp4", ".webm", ".wmv"}, VideoExtensions())
}
