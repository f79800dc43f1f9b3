package document

import (
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MIMEPDF is the only document type accepted for text extraction.
const MIMEPDF = "application/pdf"

// RequirePDF returns ErrUnsupportedFileType unless the file at path is a PDF.
func RequirePDF(path string) error {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return fmt.Errorf("failed to detect file type: %w", err)
	}
	if !mt.Is(MIMEPDF) {
		return fmt.Errorf("%w: %s", ErrUnsupportedFileType, mt.String())
	}
	return nil
}

// RequireImage sniffs r and rewinds it. Anything that is not image/* is
// rejected with ErrUnsupportedFileType.
func RequireImage(r io.ReadSeeker) (string, error) {
	mt, err := mimetype.DetectReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to detect file type: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to rewind upload: %w", err)
	}
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFileType, mt.String())
	}
	return mt.String(), nil
}
