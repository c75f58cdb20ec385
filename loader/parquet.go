package loader

import (
	"fmt"
	"sort"

	"github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/reader"
)

const maxParquetPreviewRows = 50

// loadParquet renders a parquet file's first columns/rows the same way
// CSV/XLSX are rendered, capped at maxParquetPreviewRows per the
// original loader's preview-only behaviour for large columnar files.
func loadParquet(data []byte, cfg Config) (string, error) {
	src, err := buffer.NewBufferFileFromBytes(data)
	if err != nil {
		return "", err
	}
	pr, err := reader.NewParquetColumnReader(src, 1)
	if err != nil {
		return "", err
	}
	defer pr.ReadStop()

	numRows := int(pr.GetNumRows())
	if numRows > maxParquetPreviewRows {
		numRows = maxParquetPreviewRows
	}

	records, err := pr.ReadByNumber(numRows)
	if err != nil {
		return "", err
	}

	rows := recordsToRows(records)
	return normalizeWhitespace(renderRows(rows, cfg.TablesToMarkdown), cfg.NormalizeWhitespace), nil
}

func recordsToRows(records []interface{}) [][]string {
	if len(records) == 0 {
		return nil
	}
	first, ok := records[0].(map[string]interface{})
	if !ok {
		return nil
	}
	cols := make([]string, 0, len(first))
	for k := range first {
		cols = append(cols, k)
	}
	sort.Strings(cols)

	rows := make([][]string, 0, len(records)+1)
	rows = append(rows, cols)
	for _, rec := range records {
		m, ok := rec.(map[string]interface{})
		if !ok {
			continue
		}
		row := make([]string, len(cols))
		for i, c := range cols {
			row[i] = fmt.Sprintf("%v", m[c])
		}
		rows = append(rows, row)
	}
	return rows
}
