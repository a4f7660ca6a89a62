package documents

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidFilename    = errors.New("invalid filename")
	ErrNotPDF             = errors.New("file is not a valid PDF")
	ErrFileTooSmall       = errors.New("file is too small")
	ErrFileTooLarge       = errors.New("file is too large")
	ErrDocumentInUse      = errors.New("document is referenced by conversations")
	ErrRegistrationFailed = errors.New("document registration failed")
)
