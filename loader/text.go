package loader

import (
	"regexp"
	"strings"
)

var markdownMarkerRE = regexp.MustCompile(`(?m)^[#>*` + "`" + `\-]+\s*`)

// loadText decodes a plain-text or Markdown file. When PreserveMarkdown
// is false and the file looks like Markdown, a light marker-stripping
// pass runs before whitespace normalisation, matching the original
// loader's "very light markdown removal".
func loadText(filename string, data []byte, cfg Config) (string, error) {
	text := string(data)
	if !cfg.PreserveMarkdown && (strings.HasSuffix(strings.ToLower(filename), ".md") || strings.HasSuffix(strings.ToLower(filename), ".markdown")) {
		text = markdownMarkerRE.ReplaceAllString(text, "")
	}
	return normalizeWhitespace(text, cfg.NormalizeWhitespace), nil
}
