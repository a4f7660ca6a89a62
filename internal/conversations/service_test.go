package conversations

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"

	"pdfchat-backend/internal/documents"
	"pdfchat-backend/internal/ragflow"
)

type fakeGateway struct {
	queryFn   func(ctx context.Context, question string, externalIDs []string, conversationContext string) (ragflow.QueryResult, error)
	questions []string
	contexts  []string
}

func (g *fakeGateway) Register(ctx context.Context, file io.Reader, name string) (string, error) {
	return "", errors.New("not implemented")
}

func (g *fakeGateway) Status(ctx context.Context, externalID string) (ragflow.DocumentStatus, error) {
	return ragflow.DocumentStatus{}, errors.New("not implemented")
}

func (g *fakeGateway) Query(ctx context.Context, question string, externalIDs []string, conversationContext string) (ragflow.QueryResult, error) {
	g.questions = append(g.questions, question)
	g.contexts = append(g.contexts, conversationContext)
	if g.queryFn == nil {
		return ragflow.QueryResult{Answer: "answer"}, nil
	}
	return g.queryFn(ctx, question, externalIDs, conversationContext)
}

func (g *fakeGateway) Delete(ctx context.Context, externalID string) error {
	return nil
}

func seedCompletedDoc(t *testing.T, repo documents.Repo, externalID, filename string) string {
	t.Helper()
	pages := 4
	id := uuid.NewString()
	err := repo.Create(context.Background(), documents.Document{
		ID:                id,
		UserID:            "user-1",
		OriginalFilename:  filename,
		ProcessingStatus:  documents.StatusCompleted,
		RAGFlowDocumentID: externalID,
		PageCount:         &pages,
	})
	if err != nil {
		t.Fatalf("seed document: %v", err)
	}
	return id
}

func newChatService(gw *fakeGateway) (*Service, documents.Repo) {
	docs := documents.NewMemoryRepo()
	return &Service{
		Repo:    NewMemoryRepo(),
		Docs:    docs,
		Gateway: gw,
	}, docs
}

func TestCreateValidatesDocuments(t *testing.T) {
	svc, docs := newChatService(&fakeGateway{})
	ctx := context.Background()

	if _, err := svc.Create(ctx, "user-1", "", nil); !errors.Is(err, ErrNoDocuments) {
		t.Fatalf("empty ids: err = %v", err)
	}
	if _, err := svc.Create(ctx, "user-1", "", []string{"not-a-uuid"}); !errors.Is(err, ErrInvalidDocumentID) {
		t.Fatalf("bad uuid: err = %v", err)
	}
	if _, err := svc.Create(ctx, "user-1", "", []string{uuid.NewString()}); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("missing doc: err = %v", err)
	}

	pendingID := uuid.NewString()
	_ = docs.Create(ctx, documents.Document{ID: pendingID, ProcessingStatus: documents.StatusProcessing})
	if _, err := svc.Create(ctx, "user-1", "", []string{pendingID}); !errors.Is(err, ErrDocumentNotReady) {
		t.Fatalf("unprocessed doc: err = %v", err)
	}
}

func TestCreateDefaultsTitleFromDocument(t *testing.T) {
	svc, docs := newChatService(&fakeGateway{})
	docID := seedCompletedDoc(t, docs, "ext-1", "annual-report.pdf")

	conv, err := svc.Create(context.Background(), "user-1", "", []string{docID})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if conv.Title != "Chat about annual-report.pdf" {
		t.Fatalf("title = %q", conv.Title)
	}
	if len(conv.DocumentIDs) != 1 || conv.DocumentIDs[0] != docID {
		t.Fatalf("document ids = %v", conv.DocumentIDs)
	}
}

func TestSendMessagePersistsTurnWithRemappedCitations(t *testing.T) {
	gw := &fakeGateway{queryFn: func(ctx context.Context, question string, externalIDs []string, conversationContext string) (ragflow.QueryResult, error) {
		return ragflow.QueryResult{
			Answer:          "The report covers Q3.",
			ConfidenceScore: 0.82,
			Raw: map[string]any{
				"answer": "The report covers Q3.",
				"sources": []any{
					map[string]any{
						"document_id": "ext-1",
						"page_number": 7,
						"text":        "Q3 revenue grew 12%.",
						"score":       0.9,
					},
				},
			},
		}, nil
	}}
	svc, docs := newChatService(gw)
	docID := seedCompletedDoc(t, docs, "ext-1", "annual-report.pdf")

	conv, err := svc.Create(context.Background(), "user-1", "", []string{docID})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	msg, err := svc.SendMessage(context.Background(), conv.ID, "What does the report cover?")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if msg.Role != RoleAssistant || msg.Content != "The report covers Q3." {
		t.Fatalf("assistant message = %+v", msg)
	}
	if msg.ConfidenceScore == nil || *msg.ConfidenceScore != 0.82 {
		t.Fatalf("confidence = %v", msg.ConfidenceScore)
	}
	if len(msg.Citations) != 1 {
		t.Fatalf("citations = %v", msg.Citations)
	}
	if msg.Citations[0]["document_id"] != docID {
		t.Fatalf("citation document_id = %v, want local id", msg.Citations[0]["document_id"])
	}
	if msg.Citations[0]["document_filename"] != "annual-report.pdf" {
		t.Fatalf("citation filename = %v", msg.Citations[0]["document_filename"])
	}

	stored, err := svc.Repo.ListMessages(context.Background(), conv.ID)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(stored) != 2 || stored[0].Role != RoleUser || stored[1].Role != RoleAssistant {
		t.Fatalf("stored messages = %+v", stored)
	}
}

func TestSendMessageAttachesConversationContext(t *testing.T) {
	gw := &fakeGateway{}
	svc, docs := newChatService(gw)
	docID := seedCompletedDoc(t, docs, "ext-1", "a.pdf")
	conv, _ := svc.Create(context.Background(), "user-1", "", []string{docID})

	if _, err := svc.SendMessage(context.Background(), conv.ID, "First question?"); err != nil {
		t.Fatalf("first turn: %v", err)
	}
	if gw.contexts[0] != "" {
		t.Fatalf("first turn context = %q, want empty", gw.contexts[0])
	}
	if gw.questions[0] != "First question?" {
		t.Fatalf("first turn question = %q, want unmodified", gw.questions[0])
	}

	if _, err := svc.SendMessage(context.Background(), conv.ID, "Second question?"); err != nil {
		t.Fatalf("second turn: %v", err)
	}
	wantBlock := "Human: First question?\nAssistant: answer"
	if gw.contexts[1] != wantBlock {
		t.Fatalf("second turn context = %q, want %q", gw.contexts[1], wantBlock)
	}
	wantQuestion := "Given our previous conversation:\n" + wantBlock + "\n\nNew question: Second question?"
	if gw.questions[1] != wantQuestion {
		t.Fatalf("second turn question = %q, want %q", gw.questions[1], wantQuestion)
	}
}

func TestSendMessageGatewayFailurePersistsErrorAnswer(t *testing.T) {
	gw := &fakeGateway{queryFn: func(ctx context.Context, question string, externalIDs []string, conversationContext string) (ragflow.QueryResult, error) {
		return ragflow.QueryResult{}, errors.New("gateway timeout")
	}}
	svc, docs := newChatService(gw)
	docID := seedCompletedDoc(t, docs, "ext-1", "a.pdf")
	conv, _ := svc.Create(context.Background(), "user-1", "", []string{docID})

	msg, err := svc.SendMessage(context.Background(), conv.ID, "Will this fail?")
	if err != nil {
		t.Fatalf("SendMessage must not fail the turn: %v", err)
	}
	if msg.Role != RoleAssistant {
		t.Fatalf("role = %q", msg.Role)
	}
	if !strings.HasPrefix(msg.Content, "I'm sorry, I encountered an error while processing your question:") {
		t.Fatalf("content = %q", msg.Content)
	}
	if !strings.Contains(msg.Content, "gateway timeout") {
		t.Fatalf("content = %q, want the failure reason", msg.Content)
	}
	if len(msg.Citations) != 0 {
		t.Fatalf("citations = %v, want none on failure", msg.Citations)
	}

	stored, _ := svc.Repo.ListMessages(context.Background(), conv.ID)
	if len(stored) != 2 {
		t.Fatalf("stored messages = %d, want the user turn and the error answer", len(stored))
	}
}

func TestSendMessageRejectsShortQuestion(t *testing.T) {
	svc, docs := newChatService(&fakeGateway{})
	docID := seedCompletedDoc(t, docs, "ext-1", "a.pdf")
	conv, _ := svc.Create(context.Background(), "user-1", "", []string{docID})

	_, err := svc.SendMessage(context.Background(), conv.ID, "  a \x00 ")
	if !errors.Is(err, ErrQuestionTooShort) {
		t.Fatalf("err = %v, want ErrQuestionTooShort", err)
	}
	stored, _ := svc.Repo.ListMessages(context.Background(), conv.ID)
	if len(stored) != 0 {
		t.Fatalf("stored messages = %d, want none", len(stored))
	}

	// Two multibyte runes span four bytes but are still only two characters.
	if _, err := svc.SendMessage(context.Background(), conv.ID, "éé"); !errors.Is(err, ErrQuestionTooShort) {
		t.Fatalf("err = %v, want ErrQuestionTooShort for two-rune question", err)
	}
}

func TestSendMessageUnknownConversation(t *testing.T) {
	svc, _ := newChatService(&fakeGateway{})
	if _, err := svc.SendMessage(context.Background(), uuid.NewString(), "hello there"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestQuickChatCreatesConversationWhenMissing(t *testing.T) {
	gw := &fakeGateway{}
	svc, docs := newChatService(gw)
	docID := seedCompletedDoc(t, docs, "ext-1", "a.pdf")

	conv, msg, err := svc.QuickChat(context.Background(), "user-1", "", "What is this about?", []string{docID})
	if err != nil {
		t.Fatalf("QuickChat: %v", err)
	}
	if conv.ID == "" {
		t.Fatal("expected a conversation to be created")
	}
	if msg.Role != RoleAssistant {
		t.Fatalf("role = %q", msg.Role)
	}

	again, msg2, err := svc.QuickChat(context.Background(), "user-1", conv.ID, "And more?", nil)
	if err != nil {
		t.Fatalf("QuickChat reuse: %v", err)
	}
	if again.ID != conv.ID {
		t.Fatal("expected the existing conversation to be reused")
	}
	if msg2.ID == msg.ID {
		t.Fatal("expected a fresh assistant message")
	}
}
