package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// InternalSeq marks interaction rows that never consume a sequence number
// (classifier bookkeeping).
const InternalSeq = -1

// Interaction is one durable request/response record within a conversation.
// Rows are append-only: never updated, deleted only with their conversation.
type Interaction struct {
	ID             string
	ConversationID string
	PromptID       string
	RequestText    string
	ContextText    string
	RequestTime    time.Time
	Kind           MessageKind
	ResponseText   string
	ResponseTime   time.Time
	Workflow       WorkflowKind
	ExecutionLog   string

	// Seq is the zero-based position among the conversation's non-internal
	// interactions, or InternalSeq. Allocated by the store.
	Seq int
}

// InteractionID derives the row id from the conversation id and the
// per-conversation sequence number.
func InteractionID(conversationID string, seq int) string {
	return conversationID + "_" + strconv.Itoa(seq)
}

// SequenceOf recovers the numeric suffix of an interaction id. Returns an
// error when the id does not end in "_<n>".
func SequenceOf(id string) (int, error) {
	i := strings.LastIndex(id, "_")
	if i < 0 || i == len(id)-1 {
		return 0, fmt.Errorf("interaction id %q has no sequence suffix", id)
	}
	seq, err := strconv.Atoi(id[i+1:])
	if err != nil {
		return 0, fmt.Errorf("interaction id %q has no sequence suffix: %w", id, err)
	}
	return seq, nil
}

// Row converts the interaction into its positional column order
// (ID, conversationID, promptID, requestText, contextText, requestTime,
// typeMessage, responseText, responseTime, workflow, executionLog).
func (in Interaction) Row() []any {
	return []any{
		in.ID, in.ConversationID, in.PromptID,
		in.RequestText, in.ContextText, in.RequestTime.Format(TimeLayout),
		string(in.Kind), in.ResponseText, in.ResponseTime.Format(TimeLayout),
		string(in.Workflow), in.ExecutionLog,
	}
}

// InteractionFromRow is the inverse of Row. Seq is not part of the
// positional row; callers restore it from the id suffix or the stored
// column.
func InteractionFromRow(row []any) (Interaction, error) {
	if len(row) != 11 {
		return Interaction{}, fmt.Errorf("interaction row needs 11 columns, got %d", len(row))
	}

	var in Interaction
	var err error
	if in.ID, err = rowString(row[0]); err != nil {
		return Interaction{}, err
	}
	if in.ConversationID, err = rowString(row[1]); err != nil {
		return Interaction{}, err
	}
	if in.PromptID, err = rowString(row[2]); err != nil {
		return Interaction{}, err
	}
	if in.RequestText, err = rowString(row[3]); err != nil {
		return Interaction{}, err
	}
	if in.ContextText, err = rowString(row[4]); err != nil {
		return Interaction{}, err
	}
	if in.RequestTime, err = rowTime(row[5]); err != nil {
		return Interaction{}, err
	}
	kind, err := rowString(row[6])
	if err != nil {
		return Interaction{}, err
	}
	if in.Kind, err = ParseMessageKind(kind); err != nil {
		return Interaction{}, err
	}
	if in.ResponseText, err = rowString(row[7]); err != nil {
		return Interaction{}, err
	}
	if in.ResponseTime, err = rowTime(row[8]); err != nil {
		return Interaction{}, err
	}
	workflow, err := rowString(row[9])
	if err != nil {
		return Interaction{}, err
	}
	if in.Workflow, err = ParseWorkflowKind(workflow); err != nil {
		return Interaction{}, err
	}
	if in.ExecutionLog, err = rowString(row[10]); err != nil {
		return Interaction{}, err
	}

	if seq, err := SequenceOf(in.ID); err == nil {
		in.Seq = seq
	} else {
		in.Seq = InternalSeq
	}
	return in, nil
}
