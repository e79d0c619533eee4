package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/MahdiFarnaghi/intelli-geo/internal/domain"
)

// DefaultLLMID is the prompt-table identity used for templates that apply to
// any model. Resolve falls back to it when no model-specific template exists.
const DefaultLLMID = "default"

// PromptStore persists versioned, immutable prompt templates.
type PromptStore struct {
	db *DB
}

// NewPromptStore creates a prompt store using the given database.
func NewPromptStore(db *DB) *PromptStore {
	return &PromptStore{db: db}
}

// Put inserts a template. Templates are immutable: re-inserting the same
// (llmID, promptType, version) is a no-op, not an update.
func (s *PromptStore) Put(p domain.PromptTemplate) error {
	if !p.Type.Valid() {
		return fmt.Errorf("put prompt: unknown prompt type %q", p.Type)
	}
	_, err := s.db.sql.Exec(
		`INSERT INTO prompt (ID, llmID, version, template, promptType)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (llmID, promptType, version) DO NOTHING`,
		p.Row()...,
	)
	if err != nil {
		return fmt.Errorf("storing prompt %s: %w", p.ID, err)
	}
	return nil
}

// Resolve returns the highest-version template for the model identity and
// prompt type, falling back to the "default" identity.
func (s *PromptStore) Resolve(llmID string, promptType domain.PromptType) (domain.PromptTemplate, error) {
	p, err := s.resolveExact(llmID, promptType)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) || llmID == DefaultLLMID {
		return domain.PromptTemplate{}, err
	}
	p, err = s.resolveExact(DefaultLLMID, promptType)
	if errors.Is(err, ErrNotFound) {
		return domain.PromptTemplate{}, fmt.Errorf("no %s prompt for model %s: %w", promptType, llmID, ErrNotFound)
	}
	return p, err
}

func (s *PromptStore) resolveExact(llmID string, promptType domain.PromptType) (domain.PromptTemplate, error) {
	row := s.db.sql.QueryRow(
		`SELECT ID, llmID, version, template, promptType FROM prompt
		 WHERE llmID = ? AND promptType = ?
		 ORDER BY version DESC LIMIT 1`,
		llmID, string(promptType),
	)

	var id, storedLLMID, template, ptype string
	var version int
	err := row.Scan(&id, &storedLLMID, &version, &template, &ptype)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PromptTemplate{}, ErrNotFound
	}
	if err != nil {
		return domain.PromptTemplate{}, fmt.Errorf("resolving prompt: %w", err)
	}

	return domain.PromptTemplateFromRow([]any{id, storedLLMID, version, template, ptype})
}

// List returns all templates for a model identity, newest versions first.
func (s *PromptStore) List(llmID string) ([]domain.PromptTemplate, error) {
	rows, err := s.db.sql.Query(
		`SELECT ID, llmID, version, template, promptType FROM prompt
		 WHERE llmID = ? ORDER BY promptType, version DESC`,
		llmID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing prompts: %w", err)
	}
	defer rows.Close()

	var out []domain.PromptTemplate
	for rows.Next() {
		var id, storedLLMID, template, ptype string
		var version int
		if err := rows.Scan(&id, &storedLLMID, &version, &template, &ptype); err != nil {
			return nil, fmt.Errorf("scanning prompt: %w", err)
		}
		p, err := domain.PromptTemplateFromRow([]any{id, storedLLMID, version, template, ptype})
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
