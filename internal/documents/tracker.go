package documents

import (
	"context"
	"time"

	"pdfchat-backend/internal/ragflow"
	"pdfchat-backend/internal/shared/metrics"
	"pdfchat-backend/internal/shared/telemetry"
)

const (
	defaultPollInterval    = 10 * time.Second
	defaultPollMaxAttempts = 60
)

// Tracker drives documents from processing into a terminal state by
// polling the retrieval gateway.
type Tracker struct {
	Repo        Repo
	Gateway     ragflow.Gateway
	Interval    time.Duration
	MaxAttempts int
}

func (t *Tracker) interval() time.Duration {
	if t.Interval > 0 {
		return t.Interval
	}
	return defaultPollInterval
}

func (t *Tracker) maxAttempts() int {
	if t.MaxAttempts > 0 {
		return t.MaxAttempts
	}
	return defaultPollMaxAttempts
}

// Watch polls a document until it reaches a terminal state or the attempt
// budget runs out. A document still processing after the last attempt is
// left as-is; the sweep or an on-demand status check picks it up later.
func (t *Tracker) Watch(ctx context.Context, documentID string) {
	interval := t.interval()
	for attempt := 1; attempt <= t.maxAttempts(); attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
		metrics.IncPollAttempt()
		stop, err := t.ReconcileOnce(ctx, documentID)
		if err != nil {
			telemetry.Warn("documents.poll_attempt_failed", map[string]any{
				"document_id": documentID,
				"attempt":     attempt,
				"error":       err.Error(),
			})
		}
		if stop {
			return
		}
	}
	telemetry.Warn("documents.poll_budget_exhausted", map[string]any{
		"document_id": documentID,
		"attempts":    t.maxAttempts(),
	})
}

// ReconcileOnce performs a single reconciliation step: reload the document,
// ask the gateway for its status, and persist a terminal transition when one
// is reported. It returns true when polling should stop, either because the
// document reached a terminal state or because it no longer needs tracking.
func (t *Tracker) ReconcileOnce(ctx context.Context, documentID string) (bool, error) {
	doc, err := t.Repo.GetByID(ctx, documentID)
	if err != nil {
		// Deleted mid-flight; nothing left to track.
		return true, nil
	}
	if doc.ProcessingStatus != StatusProcessing {
		return true, nil
	}
	if doc.RAGFlowDocumentID == "" {
		return false, nil
	}

	status, err := t.Gateway.Status(ctx, doc.RAGFlowDocumentID)
	if err != nil {
		return false, err
	}

	switch status.Status {
	case ragflow.StatusCompleted:
		if err := t.Repo.SetCompleted(ctx, doc.ID, status.PageCount, status.Metadata); err != nil {
			return false, err
		}
		metrics.IncDocumentCompleted()
		metrics.ObserveProcessingDurationMs(float64(time.Since(doc.CreatedAt).Milliseconds()))
		telemetry.Info("documents.processing_completed", map[string]any{
			"document_id":       doc.ID,
			"page_count":        status.PageCount,
			"status_transition": StatusProcessing + "->" + StatusCompleted,
		})
		return true, nil
	case ragflow.StatusFailed:
		if err := t.Repo.SetFailed(ctx, doc.ID); err != nil {
			return false, err
		}
		metrics.IncDocumentFailed()
		telemetry.Info("documents.processing_failed", map[string]any{
			"document_id":       doc.ID,
			"status_transition": StatusProcessing + "->" + StatusFailed,
		})
		return true, nil
	default:
		return false, nil
	}
}

// ReconcileAll runs one reconciliation step for every processing document.
// It returns how many documents were checked and how many reached a terminal
// state.
func (t *Tracker) ReconcileAll(ctx context.Context) (checked, updated int, err error) {
	docs, err := t.Repo.ListByStatus(ctx, StatusProcessing)
	if err != nil {
		return 0, 0, err
	}
	for _, doc := range docs {
		checked++
		stop, rerr := t.ReconcileOnce(ctx, doc.ID)
		if rerr != nil {
			telemetry.Warn("documents.sweep_check_failed", map[string]any{
				"document_id": doc.ID,
				"error":       rerr.Error(),
			})
			continue
		}
		if stop {
			updated++
		}
	}
	return checked, updated, nil
}
