package pdftext

import (
	"bytes"
	"context"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/dkotenko/resume-insight/internal/core/domain"
)

var (
	pageBreakRe  = regexp.MustCompile(`\nPage \d+\n`)
	blankLinesRe = regexp.MustCompile(`\n\s*\n`)
)

// Extractor pulls plain text out of PDF byte streams. Callers are expected to
// have rejected non-PDF uploads already; an unparsable stream here is a
// malformed document, not a client error.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", domain.WrapError(domain.ErrMalformedDocument, "parse pdf", err)
	}

	var sb strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A page that fails to extract contributes nothing rather than
			// aborting the whole document.
			continue
		}
		sb.WriteString(text)
	}

	return Preprocess(sb.String()), nil
}

// Preprocess collapses page-break artifacts and repeated blank lines and trims
// surrounding whitespace.
func Preprocess(text string) string {
	text = pageBreakRe.ReplaceAllString(text, "\n")
	text = blankLinesRe.ReplaceAllString(text, "\n")
	return strings.TrimSpace(text)
}
