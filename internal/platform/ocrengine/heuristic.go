package ocrengine

import (
	"fmt"
	"math"
	"strings"

	pdf "github.com/ledongthuc/pdf"
)

// minTextLength is the number of non-whitespace characters a page must
// yield before it counts as carrying real text rather than parser noise.
const minTextLength = 20

// scorePDF estimates the share of pages with a usable text layer, in
// percent. It inspects the first pages of the document, up to the
// configured sample size, and treats a page as textual when its extracted
// plain text has at least minTextLength non-whitespace characters.
func (e *DocumentEngine) scorePDF(localPath string) (float64, error) {
	total, err := e.pageCount(localPath)
	if err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}

	samplePages := e.cfg.SamplePages
	if samplePages < 1 {
		samplePages = 1
	}
	sampled := samplePages
	if sampled > total {
		sampled = total
	}

	withText := 0
	for page := 1; page <= sampled; page++ {
		text, err := e.pageText(localPath, page)
		if err != nil {
			// A page the parser chokes on counts as textless.
			continue
		}
		if len(stripWhitespace(text)) >= minTextLength {
			withText++
		}
	}

	return round2(100 * float64(withText) / float64(sampled)), nil
}

// extractPageText pulls plain text from one page using ledongthuc/pdf.
// The parser panics on some malformed pages, so the call is fenced.
func extractPageText(localPath string, page int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed page %d: %v", page, r)
		}
	}()

	f, reader, err := pdf.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer func() { _ = f.Close() }()

	p := reader.Page(page)
	if p.V.IsNull() {
		return "", nil
	}
	return p.GetPlainText(nil)
}

func pdfPageCount(localPath string) (total int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	f, reader, err := pdf.Open(localPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer func() { _ = f.Close() }()

	return reader.NumPage(), nil
}

func stripWhitespace(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
