package conversations

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu       sync.RWMutex
	convs    map[string]Conversation
	messages map[string][]Message
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		convs:    make(map[string]Conversation),
		messages: make(map[string][]Message),
	}
}

// Create stores a new conversation.
func (r *MemoryRepo) Create(ctx context.Context, conv Conversation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.convs[conv.ID] = conv
	return nil
}

// GetByID returns a conversation by ID.
func (r *MemoryRepo) GetByID(ctx context.Context, conversationID string) (Conversation, error) {
	if err := ctx.Err(); err != nil {
		return Conversation{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	conv, ok := r.convs[conversationID]
	if !ok {
		return Conversation{}, ErrNotFound
	}
	return conv, nil
}

// List returns all conversations, most recently updated first.
func (r *MemoryRepo) List(ctx context.Context) ([]Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Conversation, 0, len(r.convs))
	for _, conv := range r.convs {
		out = append(out, conv)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// CountReferencing returns how many conversations include a document.
func (r *MemoryRepo) CountReferencing(ctx context.Context, documentID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, conv := range r.convs {
		for _, id := range conv.DocumentIDs {
			if id == documentID {
				n++
				break
			}
		}
	}
	return n, nil
}

// AddMessage appends a message and bumps the conversation's updated time.
func (r *MemoryRepo) AddMessage(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.convs[msg.ConversationID]
	if !ok {
		return ErrNotFound
	}
	r.messages[msg.ConversationID] = append(r.messages[msg.ConversationID], msg)
	conv.UpdatedAt = msg.CreatedAt
	r.convs[msg.ConversationID] = conv
	return nil
}

// ListMessages returns all messages of a conversation, oldest first.
func (r *MemoryRepo) ListMessages(ctx context.Context, conversationID string) ([]Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	msgs := r.messages[conversationID]
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// LastMessages returns the most recent messages of a conversation, oldest
// first.
func (r *MemoryRepo) LastMessages(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	msgs, err := r.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}
