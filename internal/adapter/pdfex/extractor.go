package pdfex

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"healthsense/internal/port"
)

// Extractor produces per-page text from guideline source files. PDFs are
// read page by page so chunk citations can carry page numbers; plain-text
// and markdown files come back as a single page 0.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(path string) ([]port.PageText, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return extractPDF(path)
	case ".txt", ".md":
		return extractPlain(path)
	}
	return nil, fmt.Errorf("unsupported file type: %s", path)
}

func extractPDF(path string) ([]port.PageText, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	var pages []port.PageText
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page should not sink the document.
			continue
		}

		text = normalize(text)
		if text == "" {
			continue
		}
		pages = append(pages, port.PageText{Page: i, Text: text})
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("no text extracted from %s", path)
	}
	return pages, nil
}

func extractPlain(path string) ([]port.PageText, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	text := normalize(string(data))
	if text == "" {
		return nil, fmt.Errorf("no text in %s", path)
	}
	return []port.PageText{{Page: 0, Text: text}}, nil
}

// normalize cleans up extraction artifacts: NBSP, curly quotes, runs of
// spaces, and excessive blank lines.
func normalize(s string) string {
	replacer := strings.NewReplacer(
		" ", " ",
		"“", `"`,
		"”", `"`,
		"‘", "'",
		"’", "'",
		"\r\n", "\n",
	)
	s = replacer.Replace(s)

	lines := strings.Split(s, "\n")
	var out []string
	blank := 0
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
