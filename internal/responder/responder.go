// Package responder implements the classify-then-route pipeline: every user
// request is first classified (general chat, new workflow, or refinement of
// the previous turn), then routed to the producer for that branch. Producers
// can pull reference material from the retrieval backend and inspect the host
// project through the read_environment tool.
package responder

import (
	"context"
	"errors"
	"time"

	"github.com/MahdiFarnaghi/intelli-geo/internal/domain"
	"github.com/MahdiFarnaghi/intelli-geo/internal/environment"
	"github.com/MahdiFarnaghi/intelli-geo/internal/llm"
	"github.com/MahdiFarnaghi/intelli-geo/internal/logging"
	"github.com/MahdiFarnaghi/intelli-geo/internal/prompt"
	"github.com/MahdiFarnaghi/intelli-geo/internal/retrieval"
	"github.com/MahdiFarnaghi/intelli-geo/internal/store"
)

// clarification is returned when the classifier output matches no known token.
const clarification = "I could not tell whether you are asking for a geoprocessing workflow or a general question. Could you rephrase your request?"

// Options tunes the pipeline.
type Options struct {
	DocTopK           int // documentation snippets per producer call
	ExampleTopK       int // worked examples per producer call
	MaxToolIterations int // rounds of tool calls before forcing an answer
}

func (o Options) withDefaults() Options {
	if o.DocTopK <= 0 {
		o.DocTopK = 3
	}
	if o.ExampleTopK <= 0 {
		o.ExampleTopK = 2
	}
	if o.MaxToolIterations <= 0 {
		o.MaxToolIterations = 4
	}
	return o
}

// Result is one completed turn.
type Result struct {
	Response    string
	Workflow    domain.WorkflowKind
	Interaction domain.Interaction // the durable row recorded for this turn
}

// Responder runs the pipeline for one conversation turn at a time.
type Responder struct {
	registry     *llm.Registry
	resolver     *prompt.Resolver
	retriever    retrieval.Retriever
	envTool      *environment.Tool
	interactions *store.InteractionStore
	opts         Options
	log          *logging.Logger
}

// New creates a Responder.
func New(registry *llm.Registry, resolver *prompt.Resolver, retriever retrieval.Retriever,
	envTool *environment.Tool, interactions *store.InteractionStore, opts Options, log *logging.Logger) *Responder {
	return &Responder{
		registry:     registry,
		resolver:     resolver,
		retriever:    retriever,
		envTool:      envTool,
		interactions: interactions,
		opts:         opts.withDefaults(),
		log:          log.Sub("responder"),
	}
}

// Respond classifies the request and routes it to the matching producer.
// Exactly one durable return row is appended on success; a failed turn leaves
// no return row behind.
func (r *Responder) Respond(ctx context.Context, conv domain.Conversation, input string, mode domain.ResponseMode) (*Result, error) {
	decision, err := r.classify(ctx, conv, input)
	if err != nil {
		return nil, err
	}
	r.log.Debug().Str("conversation", conv.ID).Stringer("decision", decision).Msg("request classified")

	switch decision {
	case domain.DecisionNo:
		return r.run(ctx, conv, input, producerSpec{
			promptType: domain.PromptGeneralChat,
			workflow:   domain.WorkflowEmpty,
		})

	case domain.DecisionNewWorkflow:
		return r.run(ctx, conv, input, r.newWorkflowSpec(mode))

	case domain.DecisionRefine:
		previous, err := r.interactions.Latest(conv.ID)
		if errors.Is(err, store.ErrNotFound) {
			// Nothing to refine yet: treat the turn as a new workflow.
			return r.run(ctx, conv, input, r.newWorkflowSpec(mode))
		}
		if err != nil {
			return nil, stageError(ErrResponder, err)
		}
		return r.run(ctx, conv, input, r.refineSpec(mode, previous))

	default:
		return r.clarify(ctx, conv, input)
	}
}

func (r *Responder) newWorkflowSpec(mode domain.ResponseMode) producerSpec {
	return producerSpec{
		promptType:   producerPromptType(mode),
		workflow:     mode.Workflow(),
		useRetrieval: true,
		exampleType:  string(mode),
	}
}

func (r *Responder) refineSpec(mode domain.ResponseMode, previous domain.Interaction) producerSpec {
	spec := r.newWorkflowSpec(mode)

	// Refine the same artifact kind as the turn being refined, not whatever
	// mode the host currently has selected.
	switch previous.Workflow {
	case domain.WorkflowWithModel:
		spec = r.newWorkflowSpec(domain.ModeVisual)
	case domain.WorkflowWithCode:
		spec = r.newWorkflowSpec(domain.ModeCode)
	case domain.WorkflowWithToolbox:
		spec = r.newWorkflowSpec(domain.ModeToolbox)
	case domain.WorkflowEmpty:
		spec = producerSpec{promptType: domain.PromptGeneralChat, workflow: domain.WorkflowEmpty}
	}

	spec.promptType = spec.promptType.Refine()
	spec.previous = &previous
	return spec
}

func producerPromptType(mode domain.ResponseMode) domain.PromptType {
	switch mode {
	case domain.ModeVisual:
		return domain.PromptModelProducer
	case domain.ModeToolbox:
		return domain.PromptToolboxProducer
	default:
		return domain.PromptCodeProducer
	}
}

// clarify records a canned clarification turn without calling the model.
func (r *Responder) clarify(ctx context.Context, conv domain.Conversation, input string) (*Result, error) {
	now := time.Now().UTC()
	row := domain.Interaction{
		ConversationID: conv.ID,
		RequestText:    input,
		RequestTime:    now,
		Kind:           domain.MessageReturn,
		ResponseText:   clarification,
		ResponseTime:   now,
		Workflow:       domain.WorkflowEmpty,
	}
	if err := r.interactions.Append(&row); err != nil {
		return nil, stageError(ErrResponder, err)
	}
	return &Result{Response: clarification, Workflow: domain.WorkflowEmpty, Interaction: row}, nil
}
