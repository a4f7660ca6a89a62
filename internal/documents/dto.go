package documents

import "time"

// DocumentResponse is the wire representation of a document.
type DocumentResponse struct {
	ID                string         `json:"id"`
	Filename          string         `json:"filename"`
	FileSize          int64          `json:"file_size"`
	UploadDate        time.Time      `json:"upload_date"`
	ProcessingStatus  string         `json:"processing_status"`
	RAGFlowDocumentID string         `json:"ragflow_document_id,omitempty"`
	PageCount         *int           `json:"page_count,omitempty"`
	Metadata          map[string]any `json:"metadata,omitempty"`
}

// StatusResponse is the wire representation of a status check.
type StatusResponse struct {
	DocumentID       string         `json:"document_id"`
	ProcessingStatus string         `json:"processing_status"`
	PageCount        *int           `json:"page_count,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

func toDocumentResponse(doc Document) DocumentResponse {
	return DocumentResponse{
		ID:                doc.ID,
		Filename:          doc.OriginalFilename,
		FileSize:          doc.FileSize,
		UploadDate:        doc.CreatedAt,
		ProcessingStatus:  doc.ProcessingStatus,
		RAGFlowDocumentID: doc.RAGFlowDocumentID,
		PageCount:         doc.PageCount,
		Metadata:          doc.Metadata,
	}
}

func toStatusResponse(doc Document) StatusResponse {
	return StatusResponse{
		DocumentID:       doc.ID,
		ProcessingStatus: doc.ProcessingStatus,
		PageCount:        doc.PageCount,
		Metadata:         doc.Metadata,
	}
}
