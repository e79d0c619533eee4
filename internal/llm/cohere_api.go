package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// CohereClient is a direct HTTP client for the Cohere v2 chat API.
type CohereClient struct {
	identity string
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

// NewCohereClient creates a client for a Cohere chat endpoint.
func NewCohereClient(identity, endpoint, apiKey, model string, timeout time.Duration) *CohereClient {
	if endpoint == "" {
		endpoint = "https://api.cohere.com/v2"
	}
	if model == "" {
		model = identity
	}
	return &CohereClient{
		identity: identity,
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		model:    model,
		client:   &http.Client{Timeout: timeout},
	}
}

// Complete sends a chat request and returns the full response.
func (c *CohereClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	payload, err := json.Marshal(c.buildRequestBody(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.endpoint+"/chat", strings.NewReader(string(payload)))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, &ProviderError{Provider: c.identity, Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{
			Provider: c.identity,
			Code:     resp.StatusCode,
			Message:  apiErrorMessage(respBody),
		}
	}

	var result cohereResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return c.responseToCompletion(&result, time.Since(start)), nil
}

// Name returns the model identity this client serves.
func (c *CohereClient) Name() string {
	return c.identity
}

func (c *CohereClient) buildRequestBody(req CompletionRequest) map[string]interface{} {
	messages := make([]map[string]interface{}, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, map[string]interface{}{
			"role":    RoleSystem,
			"content": req.System,
		})
	}
	for _, m := range req.Messages {
		msg := map[string]interface{}{
			"role":    m.Role,
			"content": m.Content,
		}
		if m.ToolCallID != "" {
			msg["tool_call_id"] = m.ToolCallID
		}
		if len(m.ToolCalls) > 0 {
			calls := make([]map[string]interface{}, len(m.ToolCalls))
			for i, tc := range m.ToolCalls {
				calls[i] = map[string]interface{}{
					"id":   tc.ID,
					"type": "function",
					"function": map[string]interface{}{
						"name":      tc.Name,
						"arguments": tc.Input,
					},
				}
			}
			msg["tool_calls"] = calls
		}
		messages = append(messages, msg)
	}

	body := map[string]interface{}{
		"model":    c.model,
		"messages": messages,
	}

	if req.MaxTokens > 0 {
		body["max_tokens"] = req.MaxTokens
	}
	if req.Temperature != nil {
		body["temperature"] = *req.Temperature
	}
	if len(req.Tools) > 0 {
		tools := make([]map[string]interface{}, len(req.Tools))
		for i, t := range req.Tools {
			tools[i] = map[string]interface{}{
				"type": "function",
				"function": map[string]interface{}{
					"name":        t.Name,
					"description": t.Description,
					"parameters":  parseJSONSchema(t.InputSchema),
				},
			}
		}
		body["tools"] = tools
	}

	return body
}

func (c *CohereClient) responseToCompletion(resp *cohereResponse, duration time.Duration) *CompletionResponse {
	var content strings.Builder
	for _, block := range resp.Message.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	var toolCalls []ToolCall
	for _, tc := range resp.Message.ToolCalls {
		toolCalls = append(toolCalls, ToolCall{
			ID:    tc.ID,
			Name:  tc.Function.Name,
			Input: tc.Function.Arguments,
		})
	}

	return &CompletionResponse{
		Content:    content.String(),
		StopReason: resp.FinishReason,
		ToolCalls:  toolCalls,
		Usage: Usage{
			InputTokens:  resp.Usage.BilledUnits.InputTokens,
			OutputTokens: resp.Usage.BilledUnits.OutputTokens,
		},
		Model:    c.model,
		Duration: duration,
	}
}

// API response structures

type cohereResponse struct {
	ID           string        `json:"id"`
	FinishReason string        `json:"finish_reason"`
	Message      cohereMessage `json:"message"`
	Usage        cohereUsage   `json:"usage"`
}

type cohereMessage struct {
	Role      string               `json:"role"`
	Content   []cohereContentBlock `json:"content"`
	ToolCalls []openAIToolCall     `json:"tool_calls,omitempty"`
}

type cohereContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type cohereUsage struct {
	BilledUnits struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"billed_units"`
}
