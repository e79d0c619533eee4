package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/MahdiFarnaghi/intelli-geo/internal/domain"
)

// InteractionStore persists the append-only interaction log.
type InteractionStore struct {
	db *DB
}

// NewInteractionStore creates an interaction store using the given database.
func NewInteractionStore(db *DB) *InteractionStore {
	return &InteractionStore{db: db}
}

const interactionColumns = `ID, conversationID, promptID, requestText, contextText, requestTime,
	typeMessage, responseText, responseTime, workflow, executionLog`

// Append inserts one interaction row, allocating its id and sequence number
// transactionally. Non-internal rows take the next zero-based sequence for
// the conversation; internal rows never consume one and are keyed off a
// separate internal counter. The allocated id and seq are written back to in.
func (s *InteractionStore) Append(in *domain.Interaction) error {
	if !in.Kind.Valid() {
		return fmt.Errorf("append interaction: invalid message kind %q", in.Kind)
	}
	if !in.Workflow.Valid() {
		return fmt.Errorf("append interaction: invalid workflow kind %q", in.Workflow)
	}

	return s.db.withTx(func(tx *sql.Tx) error {
		if in.Kind == domain.MessageInternal {
			var count int
			err := tx.QueryRow(
				`SELECT COUNT(*) FROM interaction WHERE conversationID = ? AND typeMessage = ?`,
				in.ConversationID, string(domain.MessageInternal),
			).Scan(&count)
			if err != nil {
				return fmt.Errorf("counting internal interactions: %w", err)
			}
			in.Seq = domain.InternalSeq
			in.ID = in.ConversationID + "_internal_" + strconv.Itoa(count)
		} else {
			var next int
			err := tx.QueryRow(
				`SELECT COALESCE(MAX(seq), -1) + 1 FROM interaction WHERE conversationID = ?`,
				in.ConversationID,
			).Scan(&next)
			if err != nil {
				return fmt.Errorf("allocating interaction sequence: %w", err)
			}
			in.Seq = next
			in.ID = domain.InteractionID(in.ConversationID, next)
		}

		args := append(in.Row(), in.Seq)
		_, err := tx.Exec(
			`INSERT INTO interaction (`+interactionColumns+`, seq)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			args...,
		)
		if err != nil {
			return fmt.Errorf("inserting interaction %s: %w", in.ID, err)
		}
		return nil
	})
}

// Latest returns the most recent non-internal interaction of a conversation.
func (s *InteractionStore) Latest(conversationID string) (domain.Interaction, error) {
	row := s.db.sql.QueryRow(
		`SELECT `+interactionColumns+`, seq FROM interaction
		 WHERE conversationID = ? AND typeMessage != ?
		 ORDER BY seq DESC LIMIT 1`,
		conversationID, string(domain.MessageInternal),
	)
	return scanInteraction(row)
}

// History returns a conversation's interactions in insertion order.
// Internal bookkeeping rows are filtered unless includeInternal is set.
func (s *InteractionStore) History(conversationID string, includeInternal bool) ([]domain.Interaction, error) {
	q := `SELECT ` + interactionColumns + `, seq FROM interaction WHERE conversationID = ?`
	args := []any{conversationID}
	if !includeInternal {
		q += ` AND typeMessage != ?`
		args = append(args, string(domain.MessageInternal))
	}
	q += ` ORDER BY rowid`

	rows, err := s.db.sql.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("loading interaction history: %w", err)
	}
	defer rows.Close()

	var out []domain.Interaction
	for rows.Next() {
		in, err := scanInteraction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// CountNonInternal returns the number of user-visible interactions in a
// conversation. The session layer checks this against its own counter.
func (s *InteractionStore) CountNonInternal(conversationID string) (int, error) {
	var count int
	err := s.db.sql.QueryRow(
		`SELECT COUNT(*) FROM interaction WHERE conversationID = ? AND typeMessage != ?`,
		conversationID, string(domain.MessageInternal),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting interactions: %w", err)
	}
	return count, nil
}

func scanInteraction(sc scanner) (domain.Interaction, error) {
	var id, conversationID, promptID, requestText, contextText, requestTime string
	var typeMessage, responseText, responseTime, workflow, executionLog string
	var seq int

	err := sc.Scan(&id, &conversationID, &promptID, &requestText, &contextText, &requestTime,
		&typeMessage, &responseText, &responseTime, &workflow, &executionLog, &seq)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Interaction{}, ErrNotFound
	}
	if err != nil {
		return domain.Interaction{}, fmt.Errorf("scanning interaction: %w", err)
	}

	in, err := domain.InteractionFromRow([]any{
		id, conversationID, promptID, requestText, contextText, requestTime,
		typeMessage, responseText, responseTime, workflow, executionLog,
	})
	if err != nil {
		return domain.Interaction{}, err
	}
	in.Seq = seq
	return in, nil
}
