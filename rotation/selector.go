// Package rotation decides which locally stored media asset should be
// published next. It supports an explicit, user-authored selection and an
// automatic rotation mode driven by the publish tracking store.
package rotation

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bmatcuk/doublestar/v4"

	"github.com/socialboost/go-publisher/asset"
	"github.com/socialboost/go-publisher/tracking"
)

// Default media roots, relative to the project root.
const (
	DefaultImagesDir = "Assets/Images"
	DefaultVideosDir = "Assets/Videos"
)

// Selector chooses assets to publish. All paths handed out by SelectNext are
// slash-separated and relative to the project root, matching the tracking
// store keys.
type Selector struct {
	projectRoot string
	imagesDir   string
	videosDir   string
	store       *tracking.Store
	logger      log.Logger
}

// NewSelector creates a selector over the two media roots. imagesDir and
// videosDir are relative to projectRoot; empty values select the defaults.
func NewSelector(projectRoot, imagesDir, videosDir string, store *tracking.Store, logger log.Logger) *Selector {
	if imagesDir == "" {
		imagesDir = DefaultImagesDir
	}
	if videosDir == "" {
		videosDir = DefaultVideosDir
	}
	return &Selector{
		projectRoot: projectRoot,
		imagesDir:   imagesDir,
		videosDir:   videosDir,
		store:       store,
		logger:      logger,
	}
}

// SelectExplicit implements explicit selection: it reads the selection file
// and returns the listed paths, images first, preserving file order. Entries
// that do not resolve to an existing regular file are dropped silently.
func (s *Selector) SelectExplicit(selectionPath string) []string {
	selection := loadSelectionFile(selectionPath, s.logger)

	var selected []string
	for _, entry := range append(append([]string{}, selection.Images...), selection.Videos...) {
		if asset.IsRegularFile(s.resolve(entry)) {
			selected = append(selected, entry)
			continue
		}
		s.logger.Debugf("Dropping selection entry %s: not an existing regular file", entry)
	}

	s.logger.Infof("Explicit selection resolved to %d asset(s)", len(selected))
	return selected
}

// SelectNext implements automatic rotation: it returns at most one asset per
// invocation. Assets that were never posted take priority; once everything
// has been posted at least once, the asset with the earliest last_posted
// timestamp is chosen. An empty media pool yields an empty list. A nil store
// behaves like an empty one.
func (s *Selector) SelectNext() []string {
	pool := s.enumerate()
	if len(pool) == 0 {
		s.logger.Infof("Media pool is empty, nothing to rotate")
		return nil
	}

	records := map[string]tracking.Record{}
	if s.store != nil {
		records = s.store.Load()
	}

	var neverPosted []string
	var posted []string
	for _, key := range pool {
		if _, ok := records[key]; ok {
			posted = append(posted, key)
		} else {
			neverPosted = append(neverPosted, key)
		}
	}

	if len(neverPosted) > 0 {
		s.logger.Infof("Selected never-posted asset: %s (%d never-posted, %d posted)", neverPosted[0], len(neverPosted), len(posted))
		return []string{neverPosted[0]}
	}

	oldest := posted[0]
	for _, key := range posted[1:] {
		if records[key].LastPosted < records[oldest].LastPosted {
			oldest = key
		}
	}

	s.logger.Infof("All %d assets posted before, selected oldest: %s (last posted %s)", len(posted), oldest, records[oldest].LastPosted)
	return []string{oldest}
}

// enumerate lists all media files under the two roots as sorted project-root
// relative keys, images root first.
func (s *Selector) enumerate() []string {
	keys := s.enumerateRoot(s.imagesDir, asset.IsImagePath)
	keys = append(keys, s.enumerateRoot(s.videosDir, asset.IsVideoPath)...)
	return keys
}

func (s *Selector) enumerateRoot(dir string, match func(string) bool) []string {
	root := filepath.Join(s.projectRoot, dir)
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		s.logger.Debugf("Media root %s is not a directory, skipping", root)
		return nil
	}

	matches, err := doublestar.Glob(os.DirFS(root), "**/*", doublestar.WithNoFollow())
	if err != nil {
		s.logger.Warnf("Failed to enumerate media root %s: %s", root, err)
		return nil
	}
	sort.Strings(matches)

	var keys []string
	for _, m := range matches {
		if !match(m) {
			continue
		}
		if !asset.IsRegularFile(filepath.Join(root, filepath.FromSlash(m))) {
			continue
		}
		keys = append(keys, filepath.ToSlash(filepath.Join(dir, m)))
	}
	return keys
}

func (s *Selector) resolve(entry string) string {
	if filepath.IsAbs(entry) {
		return entry
	}
	return filepath.Join(s.projectRoot, entry)
}
