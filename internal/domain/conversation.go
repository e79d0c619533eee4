package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TimeLayout is the storage format for all timestamps.
const TimeLayout = time.DateTime

// Conversation is a titled, persistent thread of interactions bound to one
// model identity.
type Conversation struct {
	ID            string
	LLMID         string
	Title         string
	Description   string
	Created       time.Time
	Modified      time.Time
	MessageCount  int
	WorkflowCount int
	UserID        string
}

// NewConversationID mints a conversation id scoped to the given user.
// Hyphens are replaced so the id stays a single token in derived
// interaction ids.
func NewConversationID(userID string) string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "_")
	if userID == "" {
		return id
	}
	return userID + "_" + id
}

// Row converts the conversation into its positional column order
// (ID, llmID, title, description, created, modified, messageCount,
// workflowCount, userID). Timestamps are rendered with TimeLayout.
func (c Conversation) Row() []any {
	return []any{
		c.ID, c.LLMID, c.Title, c.Description,
		c.Created.Format(TimeLayout), c.Modified.Format(TimeLayout),
		c.MessageCount, c.WorkflowCount, c.UserID,
	}
}

// ConversationFromRow is the inverse of Row.
func ConversationFromRow(row []any) (Conversation, error) {
	if len(row) != 9 {
		return Conversation{}, fmt.Errorf("conversation row needs 9 columns, got %d", len(row))
	}

	var c Conversation
	var err error
	if c.ID, err = rowString(row[0]); err != nil {
		return Conversation{}, err
	}
	if c.LLMID, err = rowString(row[1]); err != nil {
		return Conversation{}, err
	}
	if c.Title, err = rowString(row[2]); err != nil {
		return Conversation{}, err
	}
	if c.Description, err = rowString(row[3]); err != nil {
		return Conversation{}, err
	}
	if c.Created, err = rowTime(row[4]); err != nil {
		return Conversation{}, err
	}
	if c.Modified, err = rowTime(row[5]); err != nil {
		return Conversation{}, err
	}
	if c.MessageCount, err = rowInt(row[6]); err != nil {
		return Conversation{}, err
	}
	if c.WorkflowCount, err = rowInt(row[7]); err != nil {
		return Conversation{}, err
	}
	if c.UserID, err = rowString(row[8]); err != nil {
		return Conversation{}, err
	}
	return c, nil
}

func rowString(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("expected string column, got %T", v)
	}
	return s, nil
}

func rowInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	}
	return 0, fmt.Errorf("expected integer column, got %T", v)
}

func rowTime(v any) (time.Time, error) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("expected timestamp column, got %T", v)
	}
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}
