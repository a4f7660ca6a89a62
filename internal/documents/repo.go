package documents

import "context"

// Repo defines persistence operations for documents.
//
// The narrow transition methods enforce the lifecycle invariants at the
// storage layer: the external id is only set leaving pending, page count
// and metadata are only set on completion, and terminal states are never
// reverted.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, documentID string) (Document, error)
	GetByIDs(ctx context.Context, documentIDs []string) ([]Document, error)
	List(ctx context.Context) ([]Document, error)
	ListByStatus(ctx context.Context, status string) ([]Document, error)
	SetRegistered(ctx context.Context, documentID, externalID string) error
	SetCompleted(ctx context.Context, documentID string, pageCount int, metadata map[string]any) error
	SetFailed(ctx context.Context, documentID string) error
	Delete(ctx context.Context, documentID string) error
}
