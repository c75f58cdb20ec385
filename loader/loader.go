// Package loader turns connector bytes into Document values. A loader
// is selected by file extension; each sub-loader knows how to
// normalise its own format into plain text (or, for images and
// opaque binaries, into a Blob carried alongside an empty text body).
package loader

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/bonehead-labs/fmf"
	"github.com/bonehead-labs/fmf/errs"
	"github.com/bonehead-labs/fmf/ids"
)

// Config controls format-specific normalisation, mirroring the
// processing.text/tables/images sections of the chain config.
type Config struct {
	NormalizeWhitespace bool
	PreserveMarkdown    bool
	TablesToMarkdown    bool
	OCREnabled          bool
	OCRLang             string
	HashAlgo            ids.Algo
}

// DefaultConfig returns the same defaults as the original processing
// pipeline: whitespace normalisation on, markdown preserved, tables
// rendered to Markdown, OCR off.
func DefaultConfig() Config {
	return Config{
		NormalizeWhitespace: true,
		PreserveMarkdown:    true,
		TablesToMarkdown:    true,
		OCRLang:             "eng",
	}
}

// OCREngine is the optional interface used to extract text from
// images when Config.OCREnabled is set. No in-tree implementation is
// wired; a caller that enables OCR without supplying an engine gets a
// ProcessingError, matching the original implementation's "requires
// pytesseract and Pillow" failure mode.
type OCREngine interface {
	Extract(data []byte, lang string) (string, error)
}

// docType is the detected media family, analogous to original_source's
// detect_type().
type docType string

const (
	typeText    docType = "text"
	typeHTML    docType = "html"
	typeCSV     docType = "csv"
	typeXLSX    docType = "xlsx"
	typeParquet docType = "parquet"
	typeImage   docType = "image"
	typeBinary  docType = "binary"
)

var extensions = map[string]docType{
	".txt":      typeText,
	".md":       typeText,
	".markdown": typeText,
	".html":     typeHTML,
	".htm":      typeHTML,
	".csv":      typeCSV,
	".xlsx":     typeXLSX,
	".parquet":  typeParquet,
	".png":      typeImage,
	".jpg":      typeImage,
	".jpeg":     typeImage,
	".pdf":      typeText, // handled by the pdf-as-text supplement below
}

func detectType(filename string) docType {
	ext := strings.ToLower(filepath.Ext(filename))
	if t, ok := extensions[ext]; ok {
		return t
	}
	return typeBinary
}

// Load dispatches filename's extension to the matching sub-loader and
// returns a fully populated Document, including its content-addressed
// ID and provenance.
func Load(sourceURI, filename string, data []byte, modifiedAt time.Time, cfg Config, ocr OCREngine) (fmf.Document, error) {
	dtype := detectType(filename)
	meta := map[string]interface{}{
		"filename":      filepath.Base(filename),
		"detected_type": string(dtype),
	}

	var text string
	var blobs []fmf.Blob
	var contentType string
	var err error

	switch dtype {
	case typeText:
		if strings.ToLower(filepath.Ext(filename)) == ".pdf" {
			text, err = loadPDF(data)
			contentType = "application/pdf"
		} else {
			text, err = loadText(filename, data, cfg)
			contentType = "text/plain; charset=utf-8"
		}
	case typeHTML:
		text, err = loadHTML(data, cfg)
		contentType = "text/html; charset=utf-8"
	case typeCSV:
		text, err = loadCSV(data, cfg)
		contentType = "text/csv; charset=utf-8"
	case typeXLSX:
		text, err = loadXLSX(data, cfg)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case typeParquet:
		text, err = loadParquet(data, cfg)
		contentType = "application/x-parquet"
	case typeImage:
		mediaType := "image/jpeg"
		if strings.HasSuffix(strings.ToLower(filename), ".png") {
			mediaType = "image/png"
		}
		blobs = []fmf.Blob{{MediaType: mediaType, Data: data}}
		contentType = mediaType
		if cfg.OCREnabled {
			if ocr == nil {
				return fmf.Document{}, errs.ProcessingError("OCR requires an OCREngine implementation to be configured")
			}
			text, err = ocr.Extract(data, cfg.OCRLang)
			if err == nil {
				text = string(ids.NormalizeText(text))
			}
		}
	default:
		blobs = []fmf.Blob{{MediaType: "application/octet-stream", Data: data}}
		contentType = "application/octet-stream"
	}
	if err != nil {
		return fmf.Document{}, errs.ProcessingErrorf(err, "loading %s", sourceURI)
	}

	payload := data
	if text != "" {
		payload = ids.NormalizeText(text)
		text = string(payload)
	}

	docID := ids.DocumentID(ids.DocumentIDParams{
		SourceURI:     sourceURI,
		Payload:       payload,
		ModifiedAt:    modifiedAt,
		ContentType:   contentType,
		ContentLength: len(payload),
	})

	for i := range blobs {
		blobs[i].ID = ids.BlobID(docID, blobs[i].MediaType, blobs[i].Data)
	}

	return fmf.Document{
		ID:        docID,
		SourceURI: sourceURI,
		Text:      text,
		Blobs:     blobs,
		Metadata:  meta,
		Provenance: fmf.DocumentProvenance{
			SourceURI:   sourceURI,
			RootName:    filepath.Base(filename),
			ContentHash: strings.TrimPrefix(docID, "doc_"),
			CreatedAt:   time.Now().UTC(),
		},
	}, nil
}

func rowsToMarkdown(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}
	var b strings.Builder
	header := rows[0]
	b.WriteString("| " + strings.Join(header, " | ") + " |\n")
	sep := make([]string, len(header))
	for i := range sep {
		sep[i] = "---"
	}
	b.WriteString("| " + strings.Join(sep, " | ") + " |\n")
	for _, row := range rows[1:] {
		b.WriteString("| " + strings.Join(row, " | ") + " |\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func rowsToCSVText(rows [][]string) string {
	lines := make([]string, len(rows))
	for i, row := range rows {
		lines[i] = strings.Join(row, ",")
	}
	return strings.Join(lines, "\n")
}

func renderRows(rows [][]string, tablesToMarkdown bool) string {
	if tablesToMarkdown {
		return rowsToMarkdown(rows)
	}
	return rowsToCSVText(rows)
}

func normalizeWhitespace(text string, enabled bool) string {
	if !enabled {
		return text
	}
	fields := strings.Fields(text)
	return strings.Join(fields, " ")
}
