package artifact

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/bonehead-labs/fmf/errs"
)

// ApplyRetention keeps the retainLast newest run directories directly
// under artefactsDir (by modification time) and recursively removes
// the rest, mirroring persist.py's apply_retention. retainLast <= 0
// disables retention entirely.
func ApplyRetention(artefactsDir string, retainLast int) error {
	if retainLast <= 0 {
		return nil
	}

	entries, err := os.ReadDir(artefactsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errs.ExportErrorf(err, "reading artefacts directory %s", artefactsDir)
	}

	type runDir struct {
		path    string
		modTime int64
	}
	var dirs []runDir
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return errs.ExportErrorf(err, "stat-ing %s", e.Name())
		}
		dirs = append(dirs, runDir{path: filepath.Join(artefactsDir, e.Name()), modTime: info.ModTime().UnixNano()})
	}

	sort.Slice(dirs, func(i, j int) bool { return dirs[i].modTime > dirs[j].modTime })

	if len(dirs) <= retainLast {
		return nil
	}
	for _, d := range dirs[retainLast:] {
		if err := os.RemoveAll(d.path); err != nil {
			return errs.ExportErrorf(err, "removing expired run directory %s", d.path)
		}
	}
	return nil
}
