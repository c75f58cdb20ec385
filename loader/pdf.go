package loader

import (
	"bytes"
	"strings"

	"github.com/ledongthuc/pdf"
)

// loadPDF extracts page text from a PDF, adapted from the teacher's
// PDFParser.extractText: walk every page, concatenate plain text. This
// is a supplemental loader beyond spec.md's declared media types,
// recovered from the teacher's stack.
func loadPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", err
		}
		b.WriteString(content)
		b.WriteString("\n\n")
	}
	return b.String(), nil
}
