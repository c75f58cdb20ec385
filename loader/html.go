package loader

import (
	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// loadHTML converts HTML to Markdown-flavoured plain text. The
// original loader did a crude tag-strip; using a real converter keeps
// table and link structure instead of discarding it outright.
func loadHTML(data []byte, cfg Config) (string, error) {
	md, err := htmltomarkdown.ConvertString(string(data))
	if err != nil {
		return "", err
	}
	return normalizeWhitespace(md, cfg.NormalizeWhitespace), nil
}
