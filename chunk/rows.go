package chunk

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/bonehead-labs/fmf"
	"github.com/bonehead-labs/fmf/errs"
)

// RowOptions configures the table-row iterator.
type RowOptions struct {
	// TextColumns names one or more columns whose values are joined
	// (space-separated) into each row's Text field.
	TextColumns []string
	// PassThrough restricts emitted columns to this set; nil means
	// "all columns".
	PassThrough []string
}

// IterRows parses a CSV or XLSX file into TableRow values, applying
// header de-duplication, optional column pass-through filtering and
// optional text-column concatenation, mirroring the original
// iter_table_rows().
func IterRows(docID, sourceURI, filename string, data []byte, opts RowOptions) ([]fmf.TableRow, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	var rawRows [][]string
	var err error
	switch ext {
	case ".csv":
		rawRows, err = readCSVRows(data)
	case ".xlsx":
		rawRows, err = readXLSXRows(data)
	default:
		return nil, errs.ProcessingErrorf(nil, "unsupported table format: %s", ext)
	}
	if err != nil {
		return nil, errs.ProcessingErrorf(err, "reading table rows from %s", sourceURI)
	}
	if len(rawRows) == 0 {
		return nil, nil
	}

	headers := cleanHeaders(rawRows[0])
	var passThrough map[string]bool
	if opts.PassThrough != nil {
		passThrough = make(map[string]bool, len(opts.PassThrough))
		for _, c := range opts.PassThrough {
			passThrough[c] = true
		}
	}

	rows := make([]fmf.TableRow, 0, len(rawRows)-1)
	for i, raw := range rawRows[1:] {
		cols := make(map[string]string, len(headers))
		for j, h := range headers {
			if passThrough != nil && !passThrough[h] {
				continue
			}
			var v string
			if j < len(raw) {
				v = raw[j]
			}
			cols[h] = v
		}
		row := fmf.TableRow{
			DocID:     docID,
			SourceURI: sourceURI,
			RowIndex:  i,
			Columns:   cols,
		}
		if len(opts.TextColumns) > 0 {
			parts := make([]string, 0, len(opts.TextColumns))
			for _, c := range opts.TextColumns {
				parts = append(parts, cols[c])
			}
			row.Text = strings.Join(parts, " ")
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func readCSVRows(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

func readXLSXRows(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	return f.GetRows(sheets[0])
}

// cleanHeaders trims header names and de-duplicates empties/repeats by
// numbering, mirroring _clean_headers().
func cleanHeaders(raw []string) []string {
	counts := make(map[string]int)
	out := make([]string, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(h)
		if h == "" {
			h = "col"
		}
		idx := counts[h]
		if idx == 0 {
			out[i] = h
		} else {
			out[i] = fmt.Sprintf("%s_%d", h, idx)
		}
		counts[h]++
	}
	return out
}
