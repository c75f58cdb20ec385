package loader

import (
	"bytes"

	"github.com/xuri/excelize/v2"
)

// loadXLSX reads the first sheet of a workbook and renders it the same
// way as CSV, per the original loader's shared tabular rendering.
func loadXLSX(data []byte, cfg Config) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return "", err
	}
	return normalizeWhitespace(renderRows(rows, cfg.TablesToMarkdown), cfg.NormalizeWhitespace), nil
}
