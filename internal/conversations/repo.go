package conversations

import "context"

// Repo defines persistence operations for conversations and their messages.
type Repo interface {
	Create(ctx context.Context, conv Conversation) error
	GetByID(ctx context.Context, conversationID string) (Conversation, error)
	List(ctx context.Context) ([]Conversation, error)
	CountReferencing(ctx context.Context, documentID string) (int, error)
	AddMessage(ctx context.Context, msg Message) error
	ListMessages(ctx context.Context, conversationID string) ([]Message, error)
	LastMessages(ctx context.Context, conversationID string, limit int) ([]Message, error)
}
