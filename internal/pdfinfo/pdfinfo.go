// Package pdfinfo performs a local sanity check on uploaded PDFs before they
// are handed to the external retrieval service.
package pdfinfo

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// ErrNotPDF indicates the payload could not be parsed as a PDF document.
var ErrNotPDF = errors.New("not a valid PDF document")

// Inspect parses an in-memory PDF payload and returns its page count.
func Inspect(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, ErrNotPDF
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return 0, ErrNotPDF
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}

	pages := reader.NumPage()
	if pages < 1 {
		return 0, ErrNotPDF
	}
	return pages, nil
}
