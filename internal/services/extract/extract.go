package extract

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrEmptyDocument is returned when a document yields no extractable text
var ErrEmptyDocument = errors.New("document contains no extractable text")

// Result carries the extracted text and basic document statistics
type Result struct {
	Text     string
	NumPages int
	NumWords int
}

// Extractor converts an uploaded document into plain text
type Extractor interface {
	Extract(r io.ReaderAt, size int64) (*Result, error)
}

// PDFExtractor implements Extractor for PDF documents
type PDFExtractor struct{}

// NewPDFExtractor creates a PDF text extractor
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// Extract reads every page of the PDF and concatenates the plain text
func (e *PDFExtractor) Extract(r io.ReaderAt, size int64) (*Result, error) {
	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PDF: %w", err)
	}

	numPages := reader.NumPage()
	var builder strings.Builder
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip pages that cannot be decoded rather than failing
			// the whole document
			continue
		}
		builder.WriteString(text)
		builder.WriteString("\n")
	}

	text := strings.TrimSpace(builder.String())
	if text == "" {
		return nil, ErrEmptyDocument
	}

	return &Result{
		Text:     text,
		NumPages: numPages,
		NumWords: len(strings.Fields(text)),
	}, nil
}

// Ensure PDFExtractor implements Extractor
var _ Extractor = (*PDFExtractor)(nil)
