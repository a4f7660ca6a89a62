package conversations

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Conversation groups chat turns over a fixed set of documents.
type Conversation struct {
	ID          string
	UserID      string
	DocumentIDs []string
	Title       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Message is a single immutable chat turn. Citations and the confidence
// score are only present on assistant messages.
type Message struct {
	ID              string
	ConversationID  string
	Role            string
	Content         string
	Citations       []map[string]any
	ConfidenceScore *float64
	CreatedAt       time.Time
}
