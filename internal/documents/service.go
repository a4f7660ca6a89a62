package documents

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"

	"pdfchat-backend/internal/pdfinfo"
	"pdfchat-backend/internal/ragflow"
	"pdfchat-backend/internal/shared/metrics"
	"pdfchat-backend/internal/shared/storage/object"
	"pdfchat-backend/internal/shared/telemetry"
	"pdfchat-backend/internal/shared/util"
)

const minUploadBytes = 1024

var inspectPDF = pdfinfo.Inspect

// ConversationRefs reports how many conversations reference a document.
// Implemented by the conversations repository.
type ConversationRefs interface {
	CountReferencing(ctx context.Context, documentID string) (int, error)
}

// Service contains business logic for documents.
type Service struct {
	Repo           Repo
	Refs           ConversationRefs
	Store          object.ObjectStore
	Gateway        ragflow.Gateway
	Tracker        *Tracker
	MaxUploadBytes int64
}

// Upload validates, stores, and registers an uploaded PDF, then starts the
// background poll loop. Registration failure marks the document failed and
// is returned as ErrRegistrationFailed.
func (s *Service) Upload(ctx context.Context, userID, filename string, file io.Reader) (Document, error) {
	filename, err := util.SanitizeFileName(filename)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidFilename, err)
	}
	if !util.HasPDFExtension(filename) {
		return Document{}, fmt.Errorf("%w: only .pdf files are accepted", ErrNotPDF)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return Document{}, err
	}
	if int64(len(data)) < minUploadBytes {
		return Document{}, ErrFileTooSmall
	}
	if max := s.maxUploadBytes(); int64(len(data)) > max {
		return Document{}, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, max)
	}
	if _, err := inspectPDF(data); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}

	now := time.Now().UTC()
	doc := Document{
		ID:               uuid.NewString(),
		UserID:           userID,
		OriginalFilename: filename,
		FileSize:         int64(len(data)),
		ProcessingStatus: StatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	doc.Filename = doc.ID + path.Ext(filename)

	storageKey, _, _, err := s.Store.Save(ctx, userID, doc.Filename, bytes.NewReader(data))
	if err != nil {
		return Document{}, err
	}
	doc.StorageKey = storageKey
	if err := s.Repo.Create(ctx, doc); err != nil {
		return Document{}, err
	}
	metrics.IncDocumentUploaded()
	telemetry.Info("documents.uploaded", map[string]any{
		"document_id": doc.ID,
		"user_id":     userID,
		"file_size":   doc.FileSize,
	})

	externalID, err := s.Gateway.Register(ctx, bytes.NewReader(data), filename)
	if err != nil {
		if serr := s.Repo.SetFailed(ctx, doc.ID); serr != nil {
			telemetry.Error("documents.mark_failed_error", map[string]any{
				"document_id": doc.ID,
				"error":       serr.Error(),
			})
		}
		metrics.IncDocumentFailed()
		doc.ProcessingStatus = StatusFailed
		return doc, fmt.Errorf("%w: %v", ErrRegistrationFailed, err)
	}

	if err := s.Repo.SetRegistered(ctx, doc.ID, externalID); err != nil {
		return doc, err
	}
	doc.RAGFlowDocumentID = externalID
	doc.ProcessingStatus = StatusProcessing
	telemetry.Info("documents.registered", map[string]any{
		"document_id":       doc.ID,
		"status_transition": StatusPending + "->" + StatusProcessing,
	})

	if s.Tracker != nil {
		go s.Tracker.Watch(backgroundWithRequestID(ctx), doc.ID)
	}
	return doc, nil
}

// Get returns a document by ID.
func (s *Service) Get(ctx context.Context, documentID string) (Document, error) {
	return s.Repo.GetByID(ctx, documentID)
}

// List returns all documents, newest first.
func (s *Service) List(ctx context.Context) ([]Document, error) {
	return s.Repo.List(ctx)
}

// Status returns the current lifecycle state of a document, running one
// synchronous reconciliation when the document is still processing.
func (s *Service) Status(ctx context.Context, documentID string) (Document, error) {
	doc, err := s.Repo.GetByID(ctx, documentID)
	if err != nil {
		return Document{}, err
	}
	if doc.ProcessingStatus != StatusProcessing || s.Tracker == nil {
		return doc, nil
	}
	if _, err := s.Tracker.ReconcileOnce(ctx, documentID); err != nil {
		telemetry.Warn("documents.status_check_failed", map[string]any{
			"document_id": documentID,
			"error":       err.Error(),
		})
		return doc, nil
	}
	return s.Repo.GetByID(ctx, documentID)
}

// OpenFile returns the stored PDF contents for a document.
func (s *Service) OpenFile(ctx context.Context, documentID string) (Document, io.ReadCloser, error) {
	doc, err := s.Repo.GetByID(ctx, documentID)
	if err != nil {
		return Document{}, nil, err
	}
	rc, err := s.Store.Open(ctx, doc.StorageKey)
	if err != nil {
		return Document{}, nil, err
	}
	return doc, rc, nil
}

// Delete removes a document unless a conversation still references it. The
// gateway and object-store deletes are best-effort; the local record is the
// source of truth.
func (s *Service) Delete(ctx context.Context, documentID string) error {
	doc, err := s.Repo.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if s.Refs != nil {
		n, err := s.Refs.CountReferencing(ctx, documentID)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: %d conversation(s)", ErrDocumentInUse, n)
		}
	}
	if doc.RAGFlowDocumentID != "" {
		if err := s.Gateway.Delete(ctx, doc.RAGFlowDocumentID); err != nil {
			telemetry.Warn("documents.gateway_delete_failed", map[string]any{
				"document_id": doc.ID,
				"error":       err.Error(),
			})
		}
	}
	if err := s.Store.Delete(ctx, doc.StorageKey); err != nil {
		telemetry.Warn("documents.file_delete_failed", map[string]any{
			"document_id": doc.ID,
			"error":       err.Error(),
		})
	}
	if err := s.Repo.Delete(ctx, documentID); err != nil {
		return err
	}
	telemetry.Info("documents.deleted", map[string]any{"document_id": doc.ID})
	return nil
}

func (s *Service) maxUploadBytes() int64 {
	if s.MaxUploadBytes > 0 {
		return s.MaxUploadBytes
	}
	return 50 << 20
}
