package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MahdiFarnaghi/intelli-geo/internal/artifact"
	"github.com/MahdiFarnaghi/intelli-geo/internal/config"
	"github.com/MahdiFarnaghi/intelli-geo/internal/domain"
	"github.com/MahdiFarnaghi/intelli-geo/internal/logging"
	"github.com/MahdiFarnaghi/intelli-geo/internal/responder"
	"github.com/MahdiFarnaghi/intelli-geo/internal/store"
)

// Manager owns the sessions of all conversations and their lifecycle.
type Manager struct {
	conversations *store.ConversationStore
	interactions  *store.InteractionStore
	responder     *responder.Responder
	artifacts     *artifact.Writer
	cfg           config.SessionConfig
	timeout       time.Duration
	log           *logging.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
}

// NewManager creates a session manager.
func NewManager(conversations *store.ConversationStore, interactions *store.InteractionStore,
	rsp *responder.Responder, artifacts *artifact.Writer, cfg config.SessionConfig,
	timeout time.Duration, log *logging.Logger) *Manager {
	if cfg.UserID == "" {
		cfg.UserID = "local"
	}
	return &Manager{
		conversations: conversations,
		interactions:  interactions,
		responder:     rsp,
		artifacts:     artifacts,
		cfg:           cfg,
		timeout:       timeout,
		log:           log.Sub("session"),
		sessions:      make(map[string]*Session),
	}
}

// Create starts a new conversation for the configured user.
func (m *Manager) Create(llmID, title, description string) (domain.Conversation, error) {
	if title == "" {
		title = "Untitled"
	}
	now := time.Now().UTC().Truncate(time.Second)
	conv := domain.Conversation{
		ID:          domain.NewConversationID(m.cfg.UserID),
		LLMID:       llmID,
		Title:       title,
		Description: description,
		Created:     now,
		Modified:    now,
		UserID:      m.cfg.UserID,
	}
	if err := m.conversations.Create(conv); err != nil {
		return domain.Conversation{}, err
	}
	m.log.Info().Str("conversation", conv.ID).Str("model", llmID).Msg("conversation created")
	return conv, nil
}

// Submit runs one turn on the given conversation. An empty or stale
// conversation id starts a fresh conversation with the default model; the
// returned id names the conversation that actually served the turn.
func (m *Manager) Submit(ctx context.Context, conversationID, llmID, input string, mode domain.ResponseMode) (string, <-chan Outcome, error) {
	if !mode.Valid() {
		mode = domain.ResponseMode(m.cfg.DefaultMode)
		if !mode.Valid() {
			mode = domain.ModeCode
		}
	}

	conversationID, err := m.ensureConversation(conversationID, llmID, input)
	if err != nil {
		return "", nil, err
	}

	out, err := m.session(conversationID).Submit(ctx, input, mode)
	if err != nil {
		return conversationID, nil, err
	}
	return conversationID, out, nil
}

// Reflect runs a reflection turn for a failed script execution.
func (m *Manager) Reflect(ctx context.Context, conversationID, executedCode, errorLog string) (<-chan Outcome, error) {
	if _, err := m.conversations.Get(conversationID); err != nil {
		return nil, err
	}
	return m.session(conversationID).Reflect(ctx, executedCode, errorLog)
}

// ensureConversation resolves the target conversation, creating one when the
// id is empty or no longer exists (the host may have deleted it mid-session).
func (m *Manager) ensureConversation(conversationID, llmID, input string) (string, error) {
	if conversationID != "" {
		_, err := m.conversations.Get(conversationID)
		if err == nil {
			return conversationID, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return "", err
		}
	}

	conv, err := m.Create(llmID, defaultTitle(input), "")
	if err != nil {
		return "", err
	}
	return conv.ID, nil
}

// defaultTitle derives a short conversation title from the first request.
func defaultTitle(input string) string {
	const max = 48
	title := input
	if len(title) > max {
		title = title[:max]
	}
	if title == "" {
		title = "Untitled"
	}
	return title
}

// session returns the Session for a conversation, creating it on first use.
func (m *Manager) session(conversationID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[conversationID]
	if !ok {
		s = newSession(conversationID, m.responder, m.conversations, m.artifacts, m.timeout,
			m.log.Sub("session."+conversationID))
		m.sessions[conversationID] = s
	}
	return s
}

// History returns the conversation transcript in insertion order. Internal
// bookkeeping rows are excluded unless includeInternal is set.
func (m *Manager) History(conversationID string, includeInternal bool) ([]domain.Interaction, error) {
	if _, err := m.conversations.Get(conversationID); err != nil {
		return nil, err
	}
	return m.interactions.History(conversationID, includeInternal)
}

// Busy reports whether the conversation has a turn in flight.
func (m *Manager) Busy(conversationID string) bool {
	m.mu.Lock()
	s, ok := m.sessions[conversationID]
	m.mu.Unlock()
	return ok && s.Busy()
}

// Delete removes a conversation and its interactions, cancelling any turn
// still in flight.
func (m *Manager) Delete(conversationID string) error {
	m.mu.Lock()
	s, ok := m.sessions[conversationID]
	delete(m.sessions, conversationID)
	m.mu.Unlock()

	if ok {
		s.Interrupt()
	}

	if err := m.conversations.Delete(conversationID); err != nil {
		return fmt.Errorf("deleting conversation %s: %w", conversationID, err)
	}
	m.log.Info().Str("conversation", conversationID).Msg("conversation deleted")
	return nil
}

// Close interrupts all in-flight turns and waits for them to finish.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.Interrupt()
	}
	for _, s := range sessions {
		s.Wait()
	}
}
