package ragflow

import (
	"context"
	"io"
)

// Gateway is the narrow interface to the external retrieval service. All
// operations are fallible; callers translate failures into local degraded
// states instead of propagating them.
type Gateway interface {
	// Register uploads a document for processing and returns the external
	// document id.
	Register(ctx context.Context, file io.Reader, name string) (string, error)
	// Query asks a question against the given external document ids. The
	// conversation context block is optional and attached only when non-empty.
	Query(ctx context.Context, question string, externalIDs []string, conversationContext string) (QueryResult, error)
	// Status reports the processing state of a registered document.
	Status(ctx context.Context, externalID string) (DocumentStatus, error)
	// Delete removes a registered document. A document unknown to the
	// external service counts as already deleted.
	Delete(ctx context.Context, externalID string) error
}

// Document processing states reported by the external service.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// QueryResult is the answer payload for a query. Raw carries the full decoded
// response body so the citation normalizer can inspect provider-specific
// citation shapes.
type QueryResult struct {
	Answer          string
	ConfidenceScore float64
	Raw             map[string]any
}

// DocumentStatus is the processing state of an externally registered document.
type DocumentStatus struct {
	Status    string
	PageCount int
	Metadata  map[string]any
}
