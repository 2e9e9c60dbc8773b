package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/tijs/cupertino-skill-sub001/internal/cerr"
)

// WriteJSON persists packages to path, the freshly-computed priority list
// a post-crawl Refresher run emits to the metadata directory (§4.8).
func WriteJSON(path string, packages []PriorityPackage) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return cerr.PersistenceError(cerr.ErrCodeDiskFull, "catalog: create metadata directory", err)
	}
	data, err := json.MarshalIndent(packages, "", "  ")
	if err != nil {
		return cerr.InternalError("catalog: marshal priority packages", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return cerr.PersistenceError(cerr.ErrCodeDiskFull, "catalog: write priority packages", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return cerr.PersistenceError(cerr.ErrCodeDiskFull, "catalog: rename priority packages into place", err)
	}
	return nil
}
