package rotation

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socialboost/go-publisher/tracking"
)

func newTestSelector(t *testing.T) (*Selector, *tracking.Store, string) {
	t.Helper()

	root := t.TempDir()
	logger := log.NewLogger()
	store := tracking.NewStore(filepath.Join(root, "Config", "asset_tracking.json"), logger)
	selector := NewSelector(root, "", "", store, logger)
	return selector, store, root
}

func writeAsset(t *testing.T, root, relPath string) {
	t.Helper()

	path := filepath.Join(root, filepath.FromSlash(relPath))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
	require.NoError(t, os.WriteFile(path, []byte("media"), 0600))
}

func writeSelectionFile(t *testing.T, root string, selection SelectionFile) string {
	t.Helper()

	path := filepath.Join(root, "selected_assets.json")
	data, err := json.Marshal(selection)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

func TestSelectExplicit_DropsMissingEntries(t *testing.T) {
	selector, _, root := newTestSelector(t)
	writeAsset(t, root, "Assets/Images/a.jpg")

	path := writeSelectionFile(t, root, SelectionFile{
		Images: []string{"Assets/Images/a.jpg", "Assets/Images/b.jpg"},
		Videos: []string{},
	})

	assert.Equal(t, []string{"Assets/Images/a.jpg"}, selector.SelectExplicit(path))
}

func TestSelectExplicit_ImagesBeforeVideosInFileOrder(t *testing.T) {
	selector, _, root := newTestSelector(t)
	writeAsset(t, root, "Assets/Images/z.jpg")
	writeAsset(t, root, "Assets/Images/a.jpg")
	writeAsset(t, root, "Assets/Videos/clip.mp4")

	path := writeSelectionFile(t, root, SelectionFile{
		Images: []string{"Assets/Images/z.jpg", "Assets/Images/a.jpg"},
		Videos: []string{"Assets/Videos/clip.mp4"},
	})

	got := selector.SelectExplicit(path)
	assert.Equal(t, []string{"Assets/Images/z.jpg", "Assets/Images/a.jpg", "Assets/Videos/clip.mp4"}, got)
}

func TestSelectExplicit_MalformedSelectionFileYieldsEmptyList(t *testing.T) {
	selector, _, root := newTestSelector(t)
	path := filepath.Join(root, "selected_assets.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0600))

	assert.Empty(t, selector.SelectExplicit(path))
}

func TestSelectExplicit_MissingSelectionFileYieldsEmptyList(t *testing.T) {
	selector, _, root := newTestSelector(t)

	assert.Empty(t, selector.SelectExplicit(filepath.Join(root, "nope.json")))
}

func TestSelectNext_EmptyPoolYieldsEmptyList(t *testing.T) {
	selector, _, _ := newTestSelector(t)

	assert.Empty(t, selector.SelectNext())
}

func TestSelectNext_EmptyTrackingReturnsExactlyOneAsset(t *testing.T) {
	selector, _, root := newTestSelector(t)
	writeAsset(t, root, "Assets/Images/a.jpg")
	writeAsset(t, root, "Assets/Images/b.png")
	writeAsset(t, root, "Assets/Videos/c.mp4")

	got := selector.SelectNext()

	require.Len(t, got, 1)
	assert.Contains(t, []string{
		"Assets/Images/a.jpg",
		"Assets/Images/b.png",
		"Assets/Videos/c.mp4",
	}, got[0])
}

func TestSelectNext_NeverPostedTakesPriority(t *testing.T) {
	selector, store, root := newTestSelector(t)
	writeAsset(t, root, "Assets/Images/posted.jpg")
	writeAsset(t, root, "Assets/Images/fresh.jpg")
	store.Save(map[string]tracking.Record{
		// Ancient timestamp: must still lose against a never-posted asset.
		"Assets/Images/posted.jpg": {LastPosted: "2000-01-01T00:00:00Z"},
	})

	got := selector.SelectNext()

	require.Len(t, got, 1)
	assert.Equal(t, "Assets/Images/fresh.jpg", got[0])
}

func TestSelectNext_AllPostedReturnsEarliest(t *testing.T) {
	selector, store, root := newTestSelector(t)
	writeAsset(t, root, "Assets/Images/a.jpg")
	writeAsset(t, root, "Assets/Images/b.jpg")
	writeAsset(t, root, "Assets/Videos/c.mp4")
	store.Save(map[string]tracking.Record{
		"Assets/Images/a.jpg": {LastPosted: "2025-03-01T00:00:00Z"},
		"Assets/Images/b.jpg": {LastPosted: "2025-01-01T00:00:00Z"},
		"Assets/Videos/c.mp4": {LastPosted: "2025-02-01T00:00:00Z"},
	})

	got := selector.SelectNext()

	require.Len(t, got, 1)
	assert.Equal(t, "Assets/Images/b.jpg", got[0])
}

func TestSelectNext_TimestampTieBrokenByEnumerationOrder(t *testing.T) {
	selector, store, root := newTestSelector(t)
	writeAsset(t, root, "Assets/Images/b.jpg")
	writeAsset(t, root, "Assets/Images/a.jpg")
	store.Save(map[string]tracking.Record{
		"Assets/Images/a.jpg": {LastPosted: "2025-01-01T00:00:00Z"},
		"Assets/Images/b.jpg": {LastPosted: "2025-01-01T00:00:00Z"},
	})

	got := selector.SelectNext()

	require.Len(t, got, 1)
	assert.Equal(t, "Assets/Images/a.jpg", got[0])
}

func TestSelectNext_NilStoreBehavesLikeEmptyTracking(t *testing.T) {
	root := t.TempDir()
	selector := NewSelector(root, "", "", nil, log.NewLogger())
	writeAsset(t, root, "Assets/Images/a.jpg")

	got := selector.SelectNext()

	require.Len(t, got, 1)
	assert.Equal(t, "Assets/Images/a.jpg", got[0])
}

func TestSelectNext_IgnoresNonMediaFiles(t *testing.T) {
	selector, _, root := newTestSelector(t)
	writeAsset(t, root, "Assets/Images/readme.txt")
	writeAsset(t, root, "Assets/Images/nested/photo.jpeg")

	got := selector.SelectNext()

	require.Len(t, got, 1)
	assert.Equal(t, "Assets/Images/nested/photo.jpeg", got[0])
}
