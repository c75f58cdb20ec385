package loader

import (
	"bytes"
	"encoding/csv"
	"io"
)

// loadCSV reads the sheet and renders it as a Markdown table (or a
// bare comma-joined text), matching the xlsx/parquet loaders' shared
// row-rendering convention.
func loadCSV(data []byte, cfg Config) (string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	var rows [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		rows = append(rows, record)
	}
	return normalizeWhitespace(renderRows(rows, cfg.TablesToMarkdown), cfg.NormalizeWhitespace), nil
}
