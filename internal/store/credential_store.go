package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/MahdiFarnaghi/intelli-geo/internal/domain"
)

// CredentialStore persists model endpoints and API keys, one row per
// supported model identity.
type CredentialStore struct {
	db *DB
}

// NewCredentialStore creates a credential store using the given database.
func NewCredentialStore(db *DB) *CredentialStore {
	return &CredentialStore{db: db}
}

// Upsert inserts or updates a model credential. An empty APIKey on update
// preserves the stored key, so config reloads don't wipe user-entered keys.
func (s *CredentialStore) Upsert(c domain.ModelCredential) error {
	_, err := s.db.sql.Exec(
		`INSERT INTO llm (ID, name, endpoint, apiKey) VALUES (?, ?, ?, ?)
		 ON CONFLICT (ID) DO UPDATE SET
			name = excluded.name,
			endpoint = excluded.endpoint,
			apiKey = CASE WHEN excluded.apiKey = '' THEN llm.apiKey ELSE excluded.apiKey END`,
		c.LLMID, c.Name, c.Endpoint, c.APIKey,
	)
	if err != nil {
		return fmt.Errorf("storing credential %s: %w", c.LLMID, err)
	}
	return nil
}

// UpdateAPIKey replaces the stored key for a model identity. Empty keys are
// ignored, matching the conversation dialog's blank-key behavior.
func (s *CredentialStore) UpdateAPIKey(llmID, apiKey string) error {
	if apiKey == "" {
		return nil
	}
	res, err := s.db.sql.Exec(`UPDATE llm SET apiKey = ? WHERE ID = ?`, apiKey, llmID)
	if err != nil {
		return fmt.Errorf("updating api key for %s: %w", llmID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Get returns the credential for a model identity.
func (s *CredentialStore) Get(llmID string) (domain.ModelCredential, error) {
	var c domain.ModelCredential
	err := s.db.sql.QueryRow(
		`SELECT ID, name, endpoint, apiKey FROM llm WHERE ID = ?`, llmID,
	).Scan(&c.LLMID, &c.Name, &c.Endpoint, &c.APIKey)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ModelCredential{}, ErrNotFound
	}
	if err != nil {
		return domain.ModelCredential{}, fmt.Errorf("loading credential %s: %w", llmID, err)
	}
	return c, nil
}

// List returns all stored model credentials.
func (s *CredentialStore) List() ([]domain.ModelCredential, error) {
	rows, err := s.db.sql.Query(`SELECT ID, name, endpoint, apiKey FROM llm ORDER BY ID`)
	if err != nil {
		return nil, fmt.Errorf("listing credentials: %w", err)
	}
	defer rows.Close()

	var out []domain.ModelCredential
	for rows.Next() {
		var c domain.ModelCredential
		if err := rows.Scan(&c.LLMID, &c.Name, &c.Endpoint, &c.APIKey); err != nil {
			return nil, fmt.Errorf("scanning credential: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
