package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MahdiFarnaghi/intelli-geo/internal/domain"
)

// ConversationStore persists conversation metadata.
type ConversationStore struct {
	db *DB
}

// NewConversationStore creates a conversation store using the given database.
func NewConversationStore(db *DB) *ConversationStore {
	return &ConversationStore{db: db}
}

const conversationColumns = `ID, llmID, title, description, created, modified, messageCount, workflowCount, userID`

// Create inserts a new conversation row.
func (s *ConversationStore) Create(conv domain.Conversation) error {
	_, err := s.db.sql.Exec(
		`INSERT INTO conversation (`+conversationColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		conv.Row()...,
	)
	if err != nil {
		return fmt.Errorf("creating conversation %s: %w", conv.ID, err)
	}
	return nil
}

// Get returns a conversation by id.
func (s *ConversationStore) Get(id string) (domain.Conversation, error) {
	row := s.db.sql.QueryRow(
		`SELECT `+conversationColumns+` FROM conversation WHERE ID = ?`, id)
	return scanConversation(row)
}

// List returns all conversations, most recently modified first.
func (s *ConversationStore) List() ([]domain.Conversation, error) {
	return s.query(`SELECT ` + conversationColumns + ` FROM conversation ORDER BY modified DESC`)
}

// Search returns conversations whose title or description contains the
// keyword, case-insensitively, most recently modified first.
func (s *ConversationStore) Search(keyword string) ([]domain.Conversation, error) {
	pattern := "%" + keyword + "%"
	return s.query(
		`SELECT `+conversationColumns+` FROM conversation
		 WHERE LOWER(title) LIKE LOWER(?) OR LOWER(description) LIKE LOWER(?)
		 ORDER BY modified DESC`,
		pattern, pattern,
	)
}

// UpdateInfo updates the user-editable metadata of a conversation.
func (s *ConversationStore) UpdateInfo(id, title, description, llmID string, modified time.Time) error {
	res, err := s.db.sql.Exec(
		`UPDATE conversation SET title = ?, description = ?, llmID = ?, modified = ?
		 WHERE ID = ?`,
		title, description, llmID, modified.Format(domain.TimeLayout), id,
	)
	if err != nil {
		return fmt.Errorf("updating conversation %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ApplyTurn advances the conversation counters after a completed interaction.
// The counters and the modified timestamp move in one statement so concurrent
// sessions cannot interleave partial updates.
func (s *ConversationStore) ApplyTurn(id string, modified time.Time, messageDelta, workflowDelta int) error {
	res, err := s.db.sql.Exec(
		`UPDATE conversation
		 SET messageCount = messageCount + ?, workflowCount = workflowCount + ?, modified = ?
		 WHERE ID = ?`,
		messageDelta, workflowDelta, modified.Format(domain.TimeLayout), id,
	)
	if err != nil {
		return fmt.Errorf("applying turn to conversation %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a conversation; its interactions go with it via the
// cascading foreign key.
func (s *ConversationStore) Delete(id string) error {
	res, err := s.db.sql.Exec(`DELETE FROM conversation WHERE ID = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting conversation %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ConversationStore) query(q string, args ...any) ([]domain.Conversation, error) {
	rows, err := s.db.sql.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	defer rows.Close()

	var convs []domain.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		convs = append(convs, conv)
	}
	return convs, rows.Err()
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanConversation(sc scanner) (domain.Conversation, error) {
	var id, llmID, title, description, created, modified, userID string
	var messageCount, workflowCount int

	err := sc.Scan(&id, &llmID, &title, &description, &created, &modified,
		&messageCount, &workflowCount, &userID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Conversation{}, ErrNotFound
	}
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("scanning conversation: %w", err)
	}

	return domain.ConversationFromRow([]any{
		id, llmID, title, description, created, modified,
		messageCount, workflowCount, userID,
	})
}
