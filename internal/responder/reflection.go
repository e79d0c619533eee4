package responder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MahdiFarnaghi/intelli-geo/internal/domain"
	"github.com/MahdiFarnaghi/intelli-geo/internal/llm"
	"github.com/MahdiFarnaghi/intelli-geo/internal/prompt"
	"github.com/MahdiFarnaghi/intelli-geo/internal/store"
)

// Reflect diagnoses a failed script execution reported by the host and
// produces a corrected script. The executed code and its error are kept in
// the turn's context so the retry is auditable.
func (r *Responder) Reflect(ctx context.Context, conv domain.Conversation, executedCode, errorLog string) (*Result, error) {
	previous, err := r.interactions.Latest(conv.ID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, stageError(ErrReflection, fmt.Errorf("conversation %s has no turn to reflect on", conv.ID))
		}
		return nil, stageError(ErrReflection, err)
	}

	tmpl, err := r.resolver.Resolve(conv.LLMID, domain.PromptReflection)
	if err != nil {
		return nil, stageError(ErrReflection, err)
	}
	client, err := r.registry.Resolve(conv.LLMID)
	if err != nil {
		return nil, stageError(ErrReflection, err)
	}

	rendered := prompt.Render(tmpl.Template, prompt.Vars{
		"previousRequest":  previous.RequestText,
		"previousResponse": previous.ResponseText,
		"executedCode":     executedCode,
		"errorLog":         errorLog,
	})
	requestTime := time.Now().UTC()

	resp, err := client.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: rendered}},
	})
	if err != nil {
		return nil, stageError(ErrReflection, err)
	}

	contextText := strings.Join([]string{
		"Executed code:\n" + executedCode,
		"Execution error:\n" + errorLog,
	}, "\n\n")

	row := domain.Interaction{
		ConversationID: conv.ID,
		PromptID:       tmpl.ID,
		RequestText:    previous.RequestText,
		ContextText:    contextText,
		RequestTime:    requestTime,
		Kind:           domain.MessageReturn,
		ResponseText:   resp.Content,
		ResponseTime:   time.Now().UTC(),
		Workflow:       domain.WorkflowWithCode,
		ExecutionLog:   errorLog,
	}
	if err := r.interactions.Append(&row); err != nil {
		return nil, stageError(ErrReflection, err)
	}

	return &Result{Response: resp.Content, Workflow: domain.WorkflowWithCode, Interaction: row}, nil
}
