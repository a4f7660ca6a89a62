package documents

import "time"

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Document is an uploaded PDF tracked through the processing lifecycle.
type Document struct {
	ID                string
	UserID            string
	Filename          string
	OriginalFilename  string
	FileSize          int64
	StorageKey        string
	ProcessingStatus  string
	RAGFlowDocumentID string
	PageCount         *int
	Metadata          map[string]any
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsTerminal reports whether the document reached a final processing state.
func (d Document) IsTerminal() bool {
	return d.ProcessingStatus == StatusCompleted || d.ProcessingStatus == StatusFailed
}
