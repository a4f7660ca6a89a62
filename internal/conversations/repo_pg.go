package conversations

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// PGRepo implements Repo using Postgres. Document id lists and citations
// are stored as JSONB.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new conversation.
func (r *PGRepo) Create(ctx context.Context, conv Conversation) error {
	const query = `
INSERT INTO conversations (id, user_id, document_ids, title, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	ids, err := json.Marshal(conv.DocumentIDs)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		conv.ID,
		conv.UserID,
		string(ids),
		conv.Title,
		conv.CreatedAt,
		conv.UpdatedAt,
	)
	return err
}

// GetByID returns a conversation by ID.
func (r *PGRepo) GetByID(ctx context.Context, conversationID string) (Conversation, error) {
	const query = `
SELECT id, user_id, document_ids, title, created_at, updated_at
FROM conversations
WHERE id = $1
LIMIT 1`
	conv, err := scanConversation(r.DB.QueryRowContext(ctx, query, conversationID))
	if errors.Is(err, sql.ErrNoRows) {
		return Conversation{}, ErrNotFound
	}
	return conv, err
}

// List returns all conversations, most recently updated first.
func (r *PGRepo) List(ctx context.Context) ([]Conversation, error) {
	const query = `
SELECT id, user_id, document_ids, title, created_at, updated_at
FROM conversations
ORDER BY updated_at DESC`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, conv)
	}
	return out, rows.Err()
}

// CountReferencing returns how many conversations include a document.
func (r *PGRepo) CountReferencing(ctx context.Context, documentID string) (int, error) {
	const query = `SELECT COUNT(*) FROM conversations WHERE document_ids ? $1`
	var n int
	if err := r.DB.QueryRowContext(ctx, query, documentID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// AddMessage appends a message and bumps the conversation's updated time.
func (r *PGRepo) AddMessage(ctx context.Context, msg Message) error {
	const insert = `
INSERT INTO messages (id, conversation_id, role, content, citations, confidence_score, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	var citations any
	if msg.Citations != nil {
		payload, err := json.Marshal(msg.Citations)
		if err != nil {
			return err
		}
		citations = string(payload)
	}
	var confidence any
	if msg.ConfidenceScore != nil {
		confidence = *msg.ConfidenceScore
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, insert,
		msg.ID,
		msg.ConversationID,
		msg.Role,
		msg.Content,
		citations,
		confidence,
		msg.CreatedAt,
	); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE conversations SET updated_at = $2 WHERE id = $1`,
		msg.ConversationID, msg.CreatedAt,
	); err != nil {
		return err
	}
	return tx.Commit()
}

// ListMessages returns all messages of a conversation, oldest first.
func (r *PGRepo) ListMessages(ctx context.Context, conversationID string) ([]Message, error) {
	const query = `
SELECT id, conversation_id, role, content, citations, confidence_score, created_at
FROM messages
WHERE conversation_id = $1
ORDER BY created_at`
	return r.queryMessages(ctx, query, conversationID)
}

// LastMessages returns the most recent messages of a conversation, oldest
// first.
func (r *PGRepo) LastMessages(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	const query = `
SELECT id, conversation_id, role, content, citations, confidence_score, created_at
FROM (
	SELECT id, conversation_id, role, content, citations, confidence_score, created_at
	FROM messages
	WHERE conversation_id = $1
	ORDER BY created_at DESC
	LIMIT $2
) recent
ORDER BY created_at`
	return r.queryMessages(ctx, query, conversationID, limit)
}

func (r *PGRepo) queryMessages(ctx context.Context, query string, args ...any) ([]Message, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var msg Message
		var citations sql.NullString
		var confidence sql.NullFloat64
		var createdAt time.Time
		if err := rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&msg.Role,
			&msg.Content,
			&citations,
			&confidence,
			&createdAt,
		); err != nil {
			return nil, err
		}
		msg.CreatedAt = createdAt
		if citations.Valid && citations.String != "" {
			var parsed []map[string]any
			if err := json.Unmarshal([]byte(citations.String), &parsed); err == nil {
				msg.Citations = parsed
			}
		}
		if confidence.Valid {
			v := confidence.Float64
			msg.ConfidenceScore = &v
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (Conversation, error) {
	var conv Conversation
	var ids sql.NullString
	var title sql.NullString
	err := row.Scan(
		&conv.ID,
		&conv.UserID,
		&ids,
		&title,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)
	if err != nil {
		return Conversation{}, err
	}
	if ids.Valid && ids.String != "" {
		var parsed []string
		if err := json.Unmarshal([]byte(ids.String), &parsed); err == nil {
			conv.DocumentIDs = parsed
		}
	}
	if title.Valid {
		conv.Title = title.String
	}
	return conv, nil
}
