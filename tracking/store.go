// Package tracking persists the per-asset publish history as a single JSON
// document. Tracking is best-effort: Load and Save never return errors, so a
// broken tracking file can never block a publish cycle.
package tracking

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/bitrise-io/go-utils/v2/fileutil"
	"github.com/bitrise-io/go-utils/v2/log"
)

// Record holds what is known about a previously published asset.
type Record struct {
	LastPosted string `json:"last_posted"`
}

// fileManager is the subset of fileutil.FileManager the store needs.
type fileManager interface {
	OpenReaderIfExists(path string) (io.Reader, error)
	Write(path string, value string, mode os.FileMode) error
}

// Store reads and writes the tracking document at a fixed path. The file is
// rewritten whole on every save; there is no cross-process locking, the last
// writer wins.
type Store struct {
	path        string
	fileManager fileManager
	logger      log.Logger
}

// NewStore creates a store bound to the given tracking file path.
func NewStore(path string, logger log.Logger) *Store {
	return &Store{
		path:        path,
		fileManager: fileutil.NewFileManager(),
		logger:      logger,
	}
}

// Path returns the tracking file path the store is bound to.
func (s *Store) Path() string {
	return s.path
}

// Load returns the tracking document. A missing file yields an empty map; an
// unreadable or malformed file yields an empty map and a warning log.
func (s *Store) Load() map[string]Record {
	records := map[string]Record{}

	reader, err := s.fileManager.OpenReaderIfExists(s.path)
	if err != nil {
		s.logger.Warnf("Failed to open tracking file %s: %s", s.path, err)
		return records
	}
	if reader == nil {
		return records
	}

	if err := json.NewDecoder(reader).Decode(&records); err != nil {
		s.logger.Warnf("Malformed tracking file %s, starting with empty tracking data: %s", s.path, err)
		return map[string]Record{}
	}

	return records
}

// Save writes the whole tracking document, creating parent directories as
// needed. Failures are logged and swallowed.
func (s *Store) Save(records map[string]Record) {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		s.logger.Warnf("Failed to encode tracking data: %s", err)
		return
	}

	if err := s.fileManager.Write(s.path, string(data), 0644); err != nil {
		s.logger.Warnf("Failed to write tracking file %s: %s", s.path, err)
	}
}

// MarkPosted records that the asset at key was published at t.
func (s *Store) MarkPosted(key string, t time.Time) {
	records := s.Load()
	records[key] = Record{LastPosted: t.Format(time.RFC3339)}
	s.Save(records)
}
