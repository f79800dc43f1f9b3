package document

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
)

// DefaultMaxResumeBytes is the resume upload ceiling.
const DefaultMaxResumeBytes = 5 << 20

// PDFExtractor extracts plain text from uploaded PDFs.
type PDFExtractor struct {
	dir      string
	maxBytes int64
	logger   *slog.Logger
}

// NewPDFExtractor creates an extractor spooling uploads into dir (the system
// temp dir when empty). maxBytes <= 0 uses DefaultMaxResumeBytes.
func NewPDFExtractor(dir string, maxBytes int64, logger *slog.Logger) *PDFExtractor {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxResumeBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFExtractor{dir: dir, maxBytes: maxBytes, logger: logger}
}

// Extract spools upload, verifies it is a PDF and returns its text.
func (e *PDFExtractor) Extract(ctx context.Context, upload io.Reader) (string, error) {
	path, release, err := Spool(upload, e.dir, "resume-*.pdf", e.maxBytes)
	if err != nil {
		return "", err
	}
	defer release()

	if err := RequirePDF(path); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	text, err := ExtractPDF(path)
	if err != nil {
		e.logger.Warn("pdf extraction failed", "error", err)
		return "", err
	}
	return text, nil
}

// ExtractPDF reads all page text from the PDF at path.
func ExtractPDF(path string) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text = ""
			err = fmt.Errorf("%w: %v", ErrExtractionFailed, rec)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	out := strings.TrimSpace(buf.String())
	if out == "" {
		return "", fmt.Errorf("%w: no text content", ErrExtractionFailed)
	}
	return out, nil
}
