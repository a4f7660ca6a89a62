package documents

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"pdfchat-backend/internal/ragflow"
)

type fakeGateway struct {
	registerFn func(ctx context.Context, file io.Reader, name string) (string, error)
	statusFn   func(ctx context.Context, externalID string) (ragflow.DocumentStatus, error)
	queryFn    func(ctx context.Context, question string, externalIDs []string, conversationContext string) (ragflow.QueryResult, error)
	deleteErr  error
	statusHit  atomic.Int64
	deleted    []string
}

func (g *fakeGateway) Register(ctx context.Context, file io.Reader, name string) (string, error) {
	if g.registerFn == nil {
		return "", errors.New("not implemented")
	}
	return g.registerFn(ctx, file, name)
}

func (g *fakeGateway) Status(ctx context.Context, externalID string) (ragflow.DocumentStatus, error) {
	g.statusHit.Add(1)
	if g.statusFn == nil {
		return ragflow.DocumentStatus{Status: "processing"}, nil
	}
	return g.statusFn(ctx, externalID)
}

func (g *fakeGateway) Query(ctx context.Context, question string, externalIDs []string, conversationContext string) (ragflow.QueryResult, error) {
	if g.queryFn == nil {
		return ragflow.QueryResult{}, errors.New("not implemented")
	}
	return g.queryFn(ctx, question, externalIDs, conversationContext)
}

func (g *fakeGateway) Delete(ctx context.Context, externalID string) error {
	g.deleted = append(g.deleted, externalID)
	return g.deleteErr
}

func seedProcessing(t *testing.T, repo *MemoryRepo, id, externalID string) {
	t.Helper()
	err := repo.Create(context.Background(), Document{
		ID:                id,
		UserID:            "user-1",
		OriginalFilename:  "report.pdf",
		ProcessingStatus:  StatusProcessing,
		RAGFlowDocumentID: externalID,
		CreatedAt:         time.Now().UTC().Add(-time.Minute),
		UpdatedAt:         time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed document: %v", err)
	}
}

func TestReconcileOnceCompletesDocument(t *testing.T) {
	repo := NewMemoryRepo()
	seedProcessing(t, repo, "doc-1", "ext-1")

	gw := &fakeGateway{statusFn: func(ctx context.Context, externalID string) (ragflow.DocumentStatus, error) {
		if externalID != "ext-1" {
			t.Fatalf("unexpected external id %q", externalID)
		}
		return ragflow.DocumentStatus{
			Status:    ragflow.StatusCompleted,
			PageCount: 12,
			Metadata:  map[string]any{"title": "Quarterly Report"},
		}, nil
	}}
	tracker := &Tracker{Repo: repo, Gateway: gw}

	stop, err := tracker.ReconcileOnce(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("ReconcileOnce: %v", err)
	}
	if !stop {
		t.Fatal("expected polling to stop after completion")
	}

	doc, err := repo.GetByID(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if doc.ProcessingStatus != StatusCompleted {
		t.Fatalf("status = %q, want completed", doc.ProcessingStatus)
	}
	if doc.PageCount == nil || *doc.PageCount != 12 {
		t.Fatalf("page count = %v, want 12", doc.PageCount)
	}
	if doc.Metadata["title"] != "Quarterly Report" {
		t.Fatalf("metadata = %v", doc.Metadata)
	}
}

func TestReconcileOnceMarksFailure(t *testing.T) {
	repo := NewMemoryRepo()
	seedProcessing(t, repo, "doc-1", "ext-1")

	gw := &fakeGateway{statusFn: func(ctx context.Context, externalID string) (ragflow.DocumentStatus, error) {
		return ragflow.DocumentStatus{Status: ragflow.StatusFailed}, nil
	}}
	tracker := &Tracker{Repo: repo, Gateway: gw}

	stop, err := tracker.ReconcileOnce(context.Background(), "doc-1")
	if err != nil || !stop {
		t.Fatalf("stop=%v err=%v, want stop with no error", stop, err)
	}

	doc, _ := repo.GetByID(context.Background(), "doc-1")
	if doc.ProcessingStatus != StatusFailed {
		t.Fatalf("status = %q, want failed", doc.ProcessingStatus)
	}
	if doc.PageCount != nil {
		t.Fatalf("page count = %v, want nil on failure", doc.PageCount)
	}
}

func TestReconcileOnceContinuesOnTransientError(t *testing.T) {
	repo := NewMemoryRepo()
	seedProcessing(t, repo, "doc-1", "ext-1")

	gw := &fakeGateway{statusFn: func(ctx context.Context, externalID string) (ragflow.DocumentStatus, error) {
		return ragflow.DocumentStatus{}, errors.New("gateway unavailable")
	}}
	tracker := &Tracker{Repo: repo, Gateway: gw}

	stop, err := tracker.ReconcileOnce(context.Background(), "doc-1")
	if stop {
		t.Fatal("transient gateway error must not stop polling")
	}
	if err == nil {
		t.Fatal("expected error to surface for logging")
	}

	doc, _ := repo.GetByID(context.Background(), "doc-1")
	if doc.ProcessingStatus != StatusProcessing {
		t.Fatalf("status = %q, want processing preserved", doc.ProcessingStatus)
	}
}

func TestReconcileOnceStopsWhenDocumentMissing(t *testing.T) {
	tracker := &Tracker{Repo: NewMemoryRepo(), Gateway: &fakeGateway{}}

	stop, err := tracker.ReconcileOnce(context.Background(), "gone")
	if err != nil {
		t.Fatalf("ReconcileOnce: %v", err)
	}
	if !stop {
		t.Fatal("missing document must stop polling")
	}
}

func TestReconcileOnceSkipsTerminalDocument(t *testing.T) {
	repo := NewMemoryRepo()
	done := 7
	_ = repo.Create(context.Background(), Document{
		ID:                "doc-1",
		ProcessingStatus:  StatusCompleted,
		RAGFlowDocumentID: "ext-1",
		PageCount:         &done,
	})

	gw := &fakeGateway{}
	tracker := &Tracker{Repo: repo, Gateway: gw}

	stop, err := tracker.ReconcileOnce(context.Background(), "doc-1")
	if err != nil || !stop {
		t.Fatalf("stop=%v err=%v", stop, err)
	}
	if gw.statusHit.Load() != 0 {
		t.Fatal("gateway must not be queried for a terminal document")
	}
}

func TestWatchStopsOnCompletion(t *testing.T) {
	repo := NewMemoryRepo()
	seedProcessing(t, repo, "doc-1", "ext-1")

	var calls atomic.Int64
	gw := &fakeGateway{statusFn: func(ctx context.Context, externalID string) (ragflow.DocumentStatus, error) {
		if calls.Add(1) < 2 {
			return ragflow.DocumentStatus{Status: "processing"}, nil
		}
		return ragflow.DocumentStatus{Status: ragflow.StatusCompleted, PageCount: 3}, nil
	}}
	tracker := &Tracker{Repo: repo, Gateway: gw, Interval: time.Millisecond, MaxAttempts: 10}

	tracker.Watch(context.Background(), "doc-1")

	if got := calls.Load(); got != 2 {
		t.Fatalf("gateway calls = %d, want 2", got)
	}
	doc, _ := repo.GetByID(context.Background(), "doc-1")
	if doc.ProcessingStatus != StatusCompleted {
		t.Fatalf("status = %q, want completed", doc.ProcessingStatus)
	}
}

func TestWatchExhaustsBudgetAndLeavesProcessing(t *testing.T) {
	repo := NewMemoryRepo()
	seedProcessing(t, repo, "doc-1", "ext-1")

	gw := &fakeGateway{}
	tracker := &Tracker{Repo: repo, Gateway: gw, Interval: time.Millisecond, MaxAttempts: 4}

	tracker.Watch(context.Background(), "doc-1")

	if got := gw.statusHit.Load(); got != 4 {
		t.Fatalf("gateway calls = %d, want 4", got)
	}
	doc, _ := repo.GetByID(context.Background(), "doc-1")
	if doc.ProcessingStatus != StatusProcessing {
		t.Fatalf("status = %q, want processing after budget exhaustion", doc.ProcessingStatus)
	}
}

func TestWatchHonorsContextCancellation(t *testing.T) {
	repo := NewMemoryRepo()
	seedProcessing(t, repo, "doc-1", "ext-1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gw := &fakeGateway{}
	tracker := &Tracker{Repo: repo, Gateway: gw, Interval: time.Hour, MaxAttempts: 60}

	done := make(chan struct{})
	go func() {
		tracker.Watch(ctx, "doc-1")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Watch did not return on cancelled context")
	}
	if gw.statusHit.Load() != 0 {
		t.Fatal("no gateway call expected after cancellation")
	}
}

func TestReconcileAllSweepsProcessingDocuments(t *testing.T) {
	repo := NewMemoryRepo()
	seedProcessing(t, repo, "doc-1", "ext-1")
	seedProcessing(t, repo, "doc-2", "ext-2")

	gw := &fakeGateway{statusFn: func(ctx context.Context, externalID string) (ragflow.DocumentStatus, error) {
		if externalID == "ext-1" {
			return ragflow.DocumentStatus{Status: ragflow.StatusCompleted, PageCount: 2}, nil
		}
		return ragflow.DocumentStatus{Status: "processing"}, nil
	}}
	tracker := &Tracker{Repo: repo, Gateway: gw}

	checked, updated, err := tracker.ReconcileAll(context.Background())
	if err != nil {
		t.Fatalf("ReconcileAll: %v", err)
	}
	if checked != 2 || updated != 1 {
		t.Fatalf("checked=%d updated=%d, want 2/1", checked, updated)
	}

	doc1, _ := repo.GetByID(context.Background(), "doc-1")
	doc2, _ := repo.GetByID(context.Background(), "doc-2")
	if doc1.ProcessingStatus != StatusCompleted || doc2.ProcessingStatus != StatusProcessing {
		t.Fatalf("doc1=%q doc2=%q", doc1.ProcessingStatus, doc2.ProcessingStatus)
	}
}
