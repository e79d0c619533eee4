package responder

import (
	"context"
	"time"

	"github.com/MahdiFarnaghi/intelli-geo/internal/domain"
	"github.com/MahdiFarnaghi/intelli-geo/internal/llm"
	"github.com/MahdiFarnaghi/intelli-geo/internal/prompt"
)

// classify asks the model for a routing decision and records the exchange as
// an internal interaction row. A failed classifier call leaves no row behind.
func (r *Responder) classify(ctx context.Context, conv domain.Conversation, input string) (domain.Decision, error) {
	tmpl, err := r.resolver.Resolve(conv.LLMID, domain.PromptClassifier)
	if err != nil {
		return domain.DecisionUnknown, stageError(ErrClassification, err)
	}
	client, err := r.registry.Resolve(conv.LLMID)
	if err != nil {
		return domain.DecisionUnknown, stageError(ErrClassification, err)
	}

	rendered := prompt.Render(tmpl.Template, prompt.Vars{"input": input})
	requestTime := time.Now().UTC()

	resp, err := client.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: rendered}},
	})
	if err != nil {
		return domain.DecisionUnknown, stageError(ErrClassification, err)
	}

	row := domain.Interaction{
		ConversationID: conv.ID,
		PromptID:       tmpl.ID,
		RequestText:    input,
		RequestTime:    requestTime,
		Kind:           domain.MessageInternal,
		ResponseText:   resp.Content,
		ResponseTime:   time.Now().UTC(),
		Workflow:       domain.WorkflowEmpty,
	}
	if err := r.interactions.Append(&row); err != nil {
		return domain.DecisionUnknown, stageError(ErrClassification, err)
	}

	return domain.ParseDecision(resp.Content), nil
}
