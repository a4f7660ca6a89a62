package conversations

import "time"

// ConversationResponse is the wire representation of a conversation.
type ConversationResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	DocumentIDs []string  `json:"document_ids"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MessageResponse is the wire representation of a message.
type MessageResponse struct {
	ID              string           `json:"id"`
	Role            string           `json:"role"`
	Content         string           `json:"content"`
	Citations       []map[string]any `json:"citations,omitempty"`
	ConfidenceScore *float64         `json:"confidence_score,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

func toConversationResponse(conv Conversation) ConversationResponse {
	return ConversationResponse{
		ID:          conv.ID,
		Title:       conv.Title,
		DocumentIDs: conv.DocumentIDs,
		CreatedAt:   conv.CreatedAt,
		UpdatedAt:   conv.UpdatedAt,
	}
}

func toMessageResponse(msg Message) MessageResponse {
	return MessageResponse{
		ID:              msg.ID,
		Role:            msg.Role,
		Content:         msg.Content,
		Citations:       msg.Citations,
		ConfidenceScore: msg.ConfidenceScore,
		CreatedAt:       msg.CreatedAt,
	}
}
