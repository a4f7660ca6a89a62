package conversations

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrNoDocuments       = errors.New("at least one document is required")
	ErrInvalidDocumentID = errors.New("invalid document id")
	ErrDocumentNotFound  = errors.New("document not found")
	ErrDocumentNotReady  = errors.New("document is not processed yet")
	ErrQuestionTooShort  = errors.New("question is too short")
)
