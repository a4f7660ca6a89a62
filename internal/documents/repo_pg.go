package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const documentColumns = `
id, user_id, filename, original_filename, file_size, storage_key,
processing_status, ragflow_document_id, page_count, doc_metadata,
created_at, updated_at`

// Create inserts a new document.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (
	id, user_id, filename, original_filename, file_size, storage_key,
	processing_status, ragflow_document_id, page_count, doc_metadata, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	metadata, err := marshalJSONB(doc.Metadata)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		doc.ID,
		doc.UserID,
		doc.Filename,
		doc.OriginalFilename,
		doc.FileSize,
		doc.StorageKey,
		doc.ProcessingStatus,
		nullString(doc.RAGFlowDocumentID),
		nullInt(doc.PageCount),
		metadata,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	return err
}

// GetByID returns a document by ID.
func (r *PGRepo) GetByID(ctx context.Context, documentID string) (Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1 LIMIT 1`
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, documentID))
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	return doc, err
}

// GetByIDs returns the documents matching the given IDs.
func (r *PGRepo) GetByIDs(ctx context.Context, documentIDs []string) ([]Document, error) {
	if len(documentIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(documentIDs))
	args := make([]any, len(documentIDs))
	for i, id := range documentIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id IN (` +
		strings.Join(placeholders, ", ") + `) ORDER BY created_at`
	return r.queryDocuments(ctx, query, args...)
}

// List returns all documents, newest first.
func (r *PGRepo) List(ctx context.Context) ([]Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents ORDER BY created_at DESC`
	return r.queryDocuments(ctx, query)
}

// ListByStatus returns documents with the given processing status, oldest first.
func (r *PGRepo) ListByStatus(ctx context.Context, status string) ([]Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE processing_status = $1 ORDER BY created_at`
	return r.queryDocuments(ctx, query, status)
}

// SetRegistered records the external document id and moves pending -> processing.
func (r *PGRepo) SetRegistered(ctx context.Context, documentID, externalID string) error {
	const query = `
UPDATE documents
SET ragflow_document_id = $2, processing_status = $3, updated_at = $4
WHERE id = $1 AND processing_status = $5`
	_, err := r.DB.ExecContext(ctx, query, documentID, externalID, StatusProcessing, time.Now().UTC(), StatusPending)
	return err
}

// SetCompleted marks a processing document completed. The status guard makes
// redundant terminal writes no-ops.
func (r *PGRepo) SetCompleted(ctx context.Context, documentID string, pageCount int, metadata map[string]any) error {
	const query = `
UPDATE documents
SET processing_status = $2, page_count = $3, doc_metadata = $4, updated_at = $5
WHERE id = $1 AND processing_status NOT IN ($6, $7)`
	payload, err := marshalJSONB(metadata)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query, documentID, StatusCompleted, pageCount, payload, time.Now().UTC(), StatusCompleted, StatusFailed)
	return err
}

// SetFailed marks a non-terminal document failed.
func (r *PGRepo) SetFailed(ctx context.Context, documentID string) error {
	const query = `
UPDATE documents
SET processing_status = $2, updated_at = $3
WHERE id = $1 AND processing_status NOT IN ($4, $5)`
	_, err := r.DB.ExecContext(ctx, query, documentID, StatusFailed, time.Now().UTC(), StatusCompleted, StatusFailed)
	return err
}

// Delete removes a document.
func (r *PGRepo) Delete(ctx context.Context, documentID string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, documentID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) queryDocuments(ctx context.Context, query string, args ...any) ([]Document, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var ragflowID sql.NullString
	var pageCount sql.NullInt64
	var metadata sql.NullString
	err := row.Scan(
		&doc.ID,
		&doc.UserID,
		&doc.Filename,
		&doc.OriginalFilename,
		&doc.FileSize,
		&doc.StorageKey,
		&doc.ProcessingStatus,
		&ragflowID,
		&pageCount,
		&metadata,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return Document{}, err
	}
	if ragflowID.Valid {
		doc.RAGFlowDocumentID = ragflowID.String
	}
	if pageCount.Valid {
		n := int(pageCount.Int64)
		doc.PageCount = &n
	}
	if metadata.Valid && metadata.String != "" {
		var m map[string]any
		if err := json.Unmarshal([]byte(metadata.String), &m); err == nil {
			doc.Metadata = m
		}
	}
	return doc, nil
}

func marshalJSONB(m map[string]any) (any, error) {
	if m == nil {
		return nil, nil
	}
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(payload), nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}
