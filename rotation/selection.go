package rotation

import (
	"encoding/json"
	"io"

	"github.com/bitrise-io/go-utils/v2/fileutil"
	"github.com/bitrise-io/go-utils/v2/log"
)

// SelectionFile is the externally authored explicit selection document.
// Entries are paths, either absolute or relative to the project root.
type SelectionFile struct {
	Images []string `json:"images"`
	Videos []string `json:"videos"`
}

// loadSelectionFile reads a selection document. Missing, unreadable or
// malformed files yield an empty selection and a warning log, mirroring the
// tracking store contract.
func loadSelectionFile(path string, logger log.Logger) SelectionFile {
	var selection SelectionFile

	reader, err := fileutil.NewFileManager().OpenReaderIfExists(path)
	if err != nil {
		logger.Warnf("Failed to open selection file %s: %s", path, err)
		return SelectionFile{}
	}
	if reader == nil {
		logger.Warnf("Selection file %s does not exist", path)
		return SelectionFile{}
	}

	if err := decodeSelection(reader, &selection); err != nil {
		logger.Warnf("Malformed selection file %s: %s", path, err)
		return SelectionFile{}
	}

	return selection
}

func decodeSelection(reader io.Reader, selection *SelectionFile) error {
	return json.NewDecoder(reader).Decode(selection)
}
