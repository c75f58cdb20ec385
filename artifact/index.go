package artifact

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/bonehead-labs/fmf/errs"
)

// IndexEntry is one run's entry in artefacts/index.json.
type IndexEntry struct {
	RunID      string    `json:"run_id"`
	RunDir     string    `json:"run_dir"`
	Profile    string    `json:"profile,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// UpdateIndex loads artefactsDir/index.json (if present), drops any
// existing entry sharing entry.RunID, appends entry, and rewrites the
// file, mirroring persist.py's update_index.
func UpdateIndex(artefactsDir string, entry IndexEntry) (string, error) {
	path := filepath.Join(artefactsDir, "index.json")
	if err := EnsureDir(artefactsDir); err != nil {
		return path, errs.ExportErrorf(err, "creating artefacts directory %s", artefactsDir)
	}

	entries, err := readIndex(path)
	if err != nil {
		return path, err
	}

	deduped := entries[:0]
	for _, e := range entries {
		if e.RunID != entry.RunID {
			deduped = append(deduped, e)
		}
	}
	deduped = append(deduped, entry)

	data, err := json.MarshalIndent(deduped, "", "  ")
	if err != nil {
		return path, errs.ExportErrorf(err, "marshalling run index")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return path, errs.ExportErrorf(err, "writing %s", path)
	}
	return path, nil
}

func readIndex(path string) ([]IndexEntry, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.ExportErrorf(err, "reading %s", path)
	}
	var entries []IndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errs.ExportErrorf(err, "parsing %s", path)
	}
	return entries, nil
}
