package documents

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Document
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Document)}
}

// Create stores a new document.
func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[doc.ID] = doc
	return nil
}

// GetByID returns a document by ID.
func (r *MemoryRepo) GetByID(ctx context.Context, documentID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.data[documentID]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

// GetByIDs returns the documents matching the given IDs. Missing IDs are
// skipped rather than reported as errors.
func (r *MemoryRepo) GetByIDs(ctx context.Context, documentIDs []string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Document, 0, len(documentIDs))
	for _, id := range documentIDs {
		if doc, ok := r.data[id]; ok {
			out = append(out, doc)
		}
	}
	return out, nil
}

// List returns all documents, newest first.
func (r *MemoryRepo) List(ctx context.Context) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Document, 0, len(r.data))
	for _, doc := range r.data {
		out = append(out, doc)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// ListByStatus returns documents with the given processing status.
func (r *MemoryRepo) ListByStatus(ctx context.Context, status string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Document
	for _, doc := range r.data {
		if doc.ProcessingStatus == status {
			out = append(out, doc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// SetRegistered records the external document id and moves pending -> processing.
func (r *MemoryRepo) SetRegistered(ctx context.Context, documentID, externalID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[documentID]
	if !ok {
		return ErrNotFound
	}
	if doc.ProcessingStatus != StatusPending {
		return nil
	}
	doc.RAGFlowDocumentID = externalID
	doc.ProcessingStatus = StatusProcessing
	doc.UpdatedAt = time.Now().UTC()
	r.data[documentID] = doc
	return nil
}

// SetCompleted marks a processing document completed with its page count and metadata.
func (r *MemoryRepo) SetCompleted(ctx context.Context, documentID string, pageCount int, metadata map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[documentID]
	if !ok {
		return ErrNotFound
	}
	if doc.IsTerminal() {
		return nil
	}
	doc.ProcessingStatus = StatusCompleted
	doc.PageCount = &pageCount
	doc.Metadata = metadata
	doc.UpdatedAt = time.Now().UTC()
	r.data[documentID] = doc
	return nil
}

// SetFailed marks a non-terminal document failed.
func (r *MemoryRepo) SetFailed(ctx context.Context, documentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[documentID]
	if !ok {
		return ErrNotFound
	}
	if doc.IsTerminal() {
		return nil
	}
	doc.ProcessingStatus = StatusFailed
	doc.UpdatedAt = time.Now().UTC()
	r.data[documentID] = doc
	return nil
}

// Delete removes a document.
func (r *MemoryRepo) Delete(ctx context.Context, documentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[documentID]; !ok {
		return ErrNotFound
	}
	delete(r.data, documentID)
	return nil
}
