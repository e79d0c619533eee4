package responder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MahdiFarnaghi/intelli-geo/internal/domain"
	"github.com/MahdiFarnaghi/intelli-geo/internal/environment"
	"github.com/MahdiFarnaghi/intelli-geo/internal/llm"
	"github.com/MahdiFarnaghi/intelli-geo/internal/prompt"
)

// producerSpec parameterizes one producer branch of the router.
type producerSpec struct {
	promptType   domain.PromptType
	workflow     domain.WorkflowKind
	useRetrieval bool
	exampleType  string              // "visual" | "code" | "toolbox"
	previous     *domain.Interaction // set on refinement turns
}

// run executes one producer branch and appends the durable return row.
func (r *Responder) run(ctx context.Context, conv domain.Conversation, input string, spec producerSpec) (*Result, error) {
	tmpl, err := r.resolver.Resolve(conv.LLMID, spec.promptType)
	if err != nil {
		return nil, stageError(ErrResponder, err)
	}
	client, err := r.registry.Resolve(conv.LLMID)
	if err != nil {
		return nil, stageError(ErrResponder, err)
	}

	vars := prompt.Vars{"input": input}
	var contextParts []string

	if spec.useRetrieval {
		docs := r.retriever.Documents(ctx, input, r.opts.DocTopK)
		examples := r.retriever.Examples(ctx, input, r.opts.ExampleTopK, spec.exampleType)
		vars["doc"] = strings.Join(docs, "\n\n")
		vars["example"] = strings.Join(examples, "\n\n")
		if len(docs) > 0 {
			contextParts = append(contextParts, "Documentation:\n"+vars["doc"])
		}
		if len(examples) > 0 {
			contextParts = append(contextParts, "Examples:\n"+vars["example"])
		}
	}
	if spec.previous != nil {
		vars["previousRequest"] = spec.previous.RequestText
		vars["previousResponse"] = spec.previous.ResponseText
	}

	rendered := prompt.Render(tmpl.Template, vars)
	requestTime := time.Now().UTC()

	content, toolOutputs, err := r.complete(ctx, client, []llm.Message{
		{Role: llm.RoleUser, Content: rendered},
	})
	if err != nil {
		return nil, stageError(ErrResponder, err)
	}
	for _, out := range toolOutputs {
		contextParts = append(contextParts, "Environment:\n"+out)
	}

	row := domain.Interaction{
		ConversationID: conv.ID,
		PromptID:       tmpl.ID,
		RequestText:    input,
		ContextText:    strings.Join(contextParts, "\n\n"),
		RequestTime:    requestTime,
		Kind:           domain.MessageReturn,
		ResponseText:   content,
		ResponseTime:   time.Now().UTC(),
		Workflow:       spec.workflow,
	}
	if err := r.interactions.Append(&row); err != nil {
		return nil, stageError(ErrResponder, err)
	}

	return &Result{Response: content, Workflow: spec.workflow, Interaction: row}, nil
}

// complete runs the completion loop, serving read_environment tool calls
// until the model answers or the iteration bound is hit.
func (r *Responder) complete(ctx context.Context, client llm.Client, messages []llm.Message) (string, []string, error) {
	tools := []llm.ToolDefinition{environment.ToolDefinition()}
	var toolOutputs []string

	for i := 0; i < r.opts.MaxToolIterations; i++ {
		resp, err := client.Complete(ctx, llm.CompletionRequest{Messages: messages, Tools: tools})
		if err != nil {
			return "", nil, err
		}
		if len(resp.ToolCalls) == 0 {
			return resp.Content, toolOutputs, nil
		}

		messages = append(messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, call := range resp.ToolCalls {
			var output string
			if strings.EqualFold(call.Name, environment.ToolName) {
				output = r.envTool.Invoke()
				toolOutputs = append(toolOutputs, output)
			} else {
				output = fmt.Sprintf("unknown tool %q", call.Name)
			}
			messages = append(messages, llm.Message{
				Role:       llm.RoleTool,
				Content:    output,
				ToolCallID: call.ID,
			})
		}
	}

	// Iteration bound hit: ask for a final answer without tools.
	resp, err := client.Complete(ctx, llm.CompletionRequest{Messages: messages})
	if err != nil {
		return "", nil, err
	}
	return resp.Content, toolOutputs, nil
}
