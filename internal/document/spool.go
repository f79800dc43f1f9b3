// Package document turns uploaded files into text. Uploads are spooled to a
// scoped temporary file that is always removed before the call returns.
package document

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Sentinel errors for document handling.
var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrExtractionFailed    = errors.New("text extraction failed")
	ErrFileTooLarge        = errors.New("file exceeds size limit")
	ErrEmptyFile           = errors.New("file is empty")
)

// Spool copies src into a new temporary file in dir. The returned release
// func closes and removes the file and is safe to call more than once.
func Spool(src io.Reader, dir, pattern string, maxBytes int64) (string, func(), error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", func() {}, fmt.Errorf("failed to create temp file: %w", err)
	}
	name := f.Name()

	released := false
	release := func() {
		if released {
			return
		}
		released = true
		_ = f.Close()
		_ = os.Remove(name)
	}

	reader := src
	if maxBytes > 0 {
		reader = io.LimitReader(src, maxBytes+1)
	}

	n, err := io.Copy(f, reader)
	if err != nil {
		release()
		return "", func() {}, fmt.Errorf("failed to spool upload: %w", err)
	}
	if maxBytes > 0 && n > maxBytes {
		release()
		return "", func() {}, ErrFileTooLarge
	}
	if n == 0 {
		release()
		return "", func() {}, ErrEmptyFile
	}
	if err := f.Sync(); err != nil {
		release()
		return "", func() {}, fmt.Errorf("failed to flush upload: %w", err)
	}

	return name, release, nil
}
