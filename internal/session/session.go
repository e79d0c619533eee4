// Package session serializes turns per conversation and makes their side
// effects durable. A conversation session is either idle or busy: a submit
// while busy is rejected with ErrBusy and has no stored side effects. Each
// accepted turn runs on its own goroutine and reports through a one-shot
// outcome channel.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/MahdiFarnaghi/intelli-geo/internal/artifact"
	"github.com/MahdiFarnaghi/intelli-geo/internal/domain"
	"github.com/MahdiFarnaghi/intelli-geo/internal/logging"
	"github.com/MahdiFarnaghi/intelli-geo/internal/responder"
	"github.com/MahdiFarnaghi/intelli-geo/internal/store"
)

// ErrBusy is returned when a conversation is already processing a turn.
var ErrBusy = errors.New("conversation is busy with a previous request")

// Outcome is the result of one submitted turn.
type Outcome struct {
	ConversationID string
	Result         *responder.Result
	ArtifactPath   string // set when the turn produced a workflow file
	Err            error
}

type sessionState int

const (
	stateIdle sessionState = iota
	stateBusy
)

// Session owns the turn lifecycle of a single conversation.
type Session struct {
	convID        string
	responder     *responder.Responder
	conversations *store.ConversationStore
	artifacts     *artifact.Writer
	timeout       time.Duration
	log           *logging.Logger

	mu     sync.Mutex
	state  sessionState
	cancel context.CancelFunc
	wg     conc.WaitGroup
}

func newSession(convID string, rsp *responder.Responder, conversations *store.ConversationStore,
	artifacts *artifact.Writer, timeout time.Duration, log *logging.Logger) *Session {
	return &Session{
		convID:        convID,
		responder:     rsp,
		conversations: conversations,
		artifacts:     artifacts,
		timeout:       timeout,
		log:           log,
	}
}

// Submit starts one turn. It returns a one-shot channel that delivers the
// outcome, or ErrBusy when a previous turn is still running.
func (s *Session) Submit(ctx context.Context, input string, mode domain.ResponseMode) (<-chan Outcome, error) {
	return s.start(ctx, func(callCtx context.Context, conv domain.Conversation) (*responder.Result, error) {
		return s.responder.Respond(callCtx, conv, input, mode)
	})
}

// Reflect starts one reflection turn for a failed script execution.
func (s *Session) Reflect(ctx context.Context, executedCode, errorLog string) (<-chan Outcome, error) {
	return s.start(ctx, func(callCtx context.Context, conv domain.Conversation) (*responder.Result, error) {
		return s.responder.Reflect(callCtx, conv, executedCode, errorLog)
	})
}

func (s *Session) start(ctx context.Context, turn func(context.Context, domain.Conversation) (*responder.Result, error)) (<-chan Outcome, error) {
	s.mu.Lock()
	if s.state == stateBusy {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.state = stateBusy

	var callCtx context.Context
	var cancel context.CancelFunc
	if s.timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
	} else {
		callCtx, cancel = context.WithCancel(ctx)
	}
	s.cancel = cancel
	s.mu.Unlock()

	out := make(chan Outcome, 1)
	s.wg.Go(func() {
		defer func() {
			cancel()
			s.mu.Lock()
			s.state = stateIdle
			s.cancel = nil
			s.mu.Unlock()
		}()
		out <- s.runTurn(callCtx, turn)
	})
	return out, nil
}

// runTurn executes the turn and, on success, applies its durable side
// effects: the conversation counters and the workflow artifact. An
// interrupted or failed turn mutates no counters.
func (s *Session) runTurn(ctx context.Context, turn func(context.Context, domain.Conversation) (*responder.Result, error)) Outcome {
	conv, err := s.conversations.Get(s.convID)
	if err != nil {
		return Outcome{ConversationID: s.convID, Err: err}
	}

	result, err := turn(ctx, conv)
	if err != nil {
		s.log.Warn().Err(err).Str("conversation", s.convID).Msg("turn failed")
		return Outcome{ConversationID: s.convID, Err: err}
	}

	outcome := Outcome{ConversationID: s.convID, Result: result}
	workflowDelta := 0

	if result.Workflow.HasArtifact() {
		path, saveErr := s.artifacts.Save(result.Response, result.Workflow, conv.Title, result.Interaction.Seq)
		switch {
		case saveErr == nil:
			outcome.ArtifactPath = path
			workflowDelta = 1
		case errors.Is(saveErr, artifact.ErrNoArtifact):
			// The answer is still useful without a file; surface the miss.
			outcome.Err = &responder.Error{Kind: responder.ErrExtraction, Err: saveErr}
		default:
			outcome.Err = saveErr
		}
	}

	if err := s.conversations.ApplyTurn(s.convID, result.Interaction.ResponseTime, 1, workflowDelta); err != nil {
		// The conversation vanished mid-turn; the row cascade-deleted with it.
		s.log.Warn().Err(err).Str("conversation", s.convID).Msg("could not apply turn counters")
		if outcome.Err == nil {
			outcome.Err = err
		}
	}

	return outcome
}

// Interrupt cancels the in-flight turn, if any.
func (s *Session) Interrupt() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Busy reports whether a turn is currently running.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateBusy
}

// Wait blocks until the in-flight turn, if any, has finished.
func (s *Session) Wait() {
	s.wg.Wait()
}
