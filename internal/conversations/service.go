package conversations

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"pdfchat-backend/internal/citations"
	"pdfchat-backend/internal/documents"
	"pdfchat-backend/internal/ragflow"
	"pdfchat-backend/internal/shared/metrics"
	"pdfchat-backend/internal/shared/telemetry"
	"pdfchat-backend/internal/shared/util"
)

const minQuestionLength = 3

// Service contains business logic for conversations and chat turns.
type Service struct {
	Repo    Repo
	Docs    documents.Repo
	Gateway ragflow.Gateway
}

// Create starts a conversation over a set of completed documents.
func (s *Service) Create(ctx context.Context, userID, title string, documentIDs []string) (Conversation, error) {
	if len(documentIDs) == 0 {
		return Conversation{}, ErrNoDocuments
	}
	for _, id := range documentIDs {
		if _, err := uuid.Parse(id); err != nil {
			return Conversation{}, fmt.Errorf("%w: %q", ErrInvalidDocumentID, id)
		}
	}

	docs, err := s.Docs.GetByIDs(ctx, documentIDs)
	if err != nil {
		return Conversation{}, err
	}
	byID := make(map[string]documents.Document, len(docs))
	for _, doc := range docs {
		byID[doc.ID] = doc
	}
	for _, id := range documentIDs {
		doc, ok := byID[id]
		if !ok {
			return Conversation{}, fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
		}
		if doc.ProcessingStatus != documents.StatusCompleted {
			return Conversation{}, fmt.Errorf("%w: %s is %s", ErrDocumentNotReady, id, doc.ProcessingStatus)
		}
	}

	if title == "" {
		title = defaultTitle(byID[documentIDs[0]], len(documentIDs))
	}

	now := time.Now().UTC()
	conv := Conversation{
		ID:          uuid.NewString(),
		UserID:      userID,
		DocumentIDs: documentIDs,
		Title:       title,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Repo.Create(ctx, conv); err != nil {
		return Conversation{}, err
	}
	telemetry.Info("conversations.created", map[string]any{
		"conversation_id": conv.ID,
		"document_count":  len(documentIDs),
	})
	return conv, nil
}

// Get returns a conversation with its full message history.
func (s *Service) Get(ctx context.Context, conversationID string) (Conversation, []Message, error) {
	conv, err := s.Repo.GetByID(ctx, conversationID)
	if err != nil {
		return Conversation{}, nil, err
	}
	msgs, err := s.Repo.ListMessages(ctx, conversationID)
	if err != nil {
		return Conversation{}, nil, err
	}
	return conv, msgs, nil
}

// List returns all conversations, most recently updated first.
func (s *Service) List(ctx context.Context) ([]Conversation, error) {
	return s.Repo.List(ctx)
}

// SendMessage runs one chat turn: persist the user question, query the
// gateway with conversation context, normalize citations, and persist the
// assistant answer. A gateway failure still produces a persisted assistant
// message describing the error.
func (s *Service) SendMessage(ctx context.Context, conversationID, question string) (Message, error) {
	conv, err := s.Repo.GetByID(ctx, conversationID)
	if err != nil {
		return Message{}, err
	}

	question = util.SanitizeQuestion(question)
	if utf8.RuneCountInString(question) < minQuestionLength {
		return Message{}, ErrQuestionTooShort
	}

	docs, err := s.Docs.GetByIDs(ctx, conv.DocumentIDs)
	if err != nil {
		return Message{}, err
	}
	externalIDs := make([]string, 0, len(docs))
	byExternal := make(map[string]documents.Document, len(docs))
	for _, doc := range docs {
		if doc.RAGFlowDocumentID == "" {
			continue
		}
		externalIDs = append(externalIDs, doc.RAGFlowDocumentID)
		byExternal[doc.RAGFlowDocumentID] = doc
	}

	history, err := s.Repo.LastMessages(ctx, conversationID, historyLimit)
	if err != nil {
		return Message{}, err
	}

	now := time.Now().UTC()
	userMsg := Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           RoleUser,
		Content:        question,
		CreatedAt:      now,
	}
	if err := s.Repo.AddMessage(ctx, userMsg); err != nil {
		return Message{}, err
	}

	block := BuildContext(history)
	result, err := s.Gateway.Query(ctx, ComposeQuestion(question, block), externalIDs, block)
	if err != nil {
		metrics.IncChatFailure()
		telemetry.Error("conversations.query_failed", map[string]any{
			"conversation_id": conversationID,
			"error":           err.Error(),
		})
		failMsg := Message{
			ID:             uuid.NewString(),
			ConversationID: conversationID,
			Role:           RoleAssistant,
			Content:        "I'm sorry, I encountered an error while processing your question: " + err.Error(),
			CreatedAt:      time.Now().UTC(),
		}
		if err := s.Repo.AddMessage(ctx, failMsg); err != nil {
			return Message{}, err
		}
		return failMsg, nil
	}

	cites := citations.Extract(result.Raw)
	for i := range cites {
		if doc, ok := byExternal[cites[i].DocumentID]; ok {
			cites[i].DocumentID = doc.ID
			cites[i].DocumentFilename = doc.OriginalFilename
		}
	}

	confidence := result.ConfidenceScore
	assistantMsg := Message{
		ID:              uuid.NewString(),
		ConversationID:  conversationID,
		Role:            RoleAssistant,
		Content:         result.Answer,
		Citations:       citations.ForStorage(cites),
		ConfidenceScore: &confidence,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.Repo.AddMessage(ctx, assistantMsg); err != nil {
		return Message{}, err
	}

	metrics.IncChatTurn()
	metrics.AddCitationsStored(len(cites))
	telemetry.Info("conversations.turn_completed", map[string]any{
		"conversation_id": conversationID,
		"citations":       len(cites),
	})
	return assistantMsg, nil
}

// QuickChat answers a question, creating the conversation first when no
// conversation id is given.
func (s *Service) QuickChat(ctx context.Context, userID, conversationID, question string, documentIDs []string) (Conversation, Message, error) {
	if conversationID == "" {
		conv, err := s.Create(ctx, userID, "", documentIDs)
		if err != nil {
			return Conversation{}, Message{}, err
		}
		conversationID = conv.ID
	}
	conv, err := s.Repo.GetByID(ctx, conversationID)
	if err != nil {
		return Conversation{}, Message{}, err
	}
	msg, err := s.SendMessage(ctx, conversationID, question)
	if err != nil {
		return Conversation{}, Message{}, err
	}
	return conv, msg, nil
}

func defaultTitle(first documents.Document, count int) string {
	if count > 1 {
		return fmt.Sprintf("Chat about %s and %d more", first.OriginalFilename, count-1)
	}
	return "Chat about " + first.OriginalFilename
}
