package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MahdiFarnaghi/intelli-geo/internal/config"
	"github.com/MahdiFarnaghi/intelli-geo/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIClient_Complete(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"model": "gpt-4o-2024",
			"choices": [{"message": {"role": "assistant", "content": "hello"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 3}
		}`))
	}))
	defer server.Close()

	client := NewOpenAIClient("gpt-4o", server.URL, "sk-test", "gpt-4o-2024", 5*time.Second)
	resp, err := client.Complete(context.Background(), CompletionRequest{
		System:   "You are a GIS assistant.",
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, "stop", resp.StopReason)
	assert.Equal(t, 12, resp.Usage.InputTokens)
	assert.Equal(t, 3, resp.Usage.OutputTokens)

	assert.Equal(t, "gpt-4o-2024", captured["model"])
	messages := captured["messages"].([]interface{})
	require.Len(t, messages, 2)
	first := messages[0].(map[string]interface{})
	assert.Equal(t, "system", first["role"])
}

func TestOpenAIClient_Complete_ToolCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": "",
				"tool_calls": [{"id": "call_1", "type": "function",
					"function": {"name": "read_environment", "arguments": "{}"}}]},
				"finish_reason": "tool_calls"}],
			"usage": {"prompt_tokens": 1, "completion_tokens": 1}
		}`))
	}))
	defer server.Close()

	client := NewOpenAIClient("gpt-4o", server.URL, "sk-test", "", 5*time.Second)
	resp, err := client.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: RoleUser, Content: "what layers do I have"}},
		Tools: []ToolDefinition{{
			Name:        "read_environment",
			Description: "Read the current project state",
			InputSchema: `{"type":"object","properties":{}}`,
		}},
	})
	require.NoError(t, err)

	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "call_1", resp.ToolCalls[0].ID)
	assert.Equal(t, "read_environment", resp.ToolCalls[0].Name)
	assert.Equal(t, "tool_calls", resp.StopReason)
}

func TestOpenAIClient_Complete_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"message": "invalid api key"}}`))
	}))
	defer server.Close()

	client := NewOpenAIClient("gpt-4o", server.URL, "sk-bad", "", 5*time.Second)
	_, err := client.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	require.Error(t, err)

	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "gpt-4o", perr.Provider)
	assert.Equal(t, http.StatusUnauthorized, perr.Code)
	assert.Equal(t, "invalid api key", perr.Message)
}

func TestOpenAIClient_Complete_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": [], "usage": {}}`))
	}))
	defer server.Close()

	client := NewOpenAIClient("gpt-4o", server.URL, "sk-test", "", 5*time.Second)
	_, err := client.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})

	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Message, "no choices")
}

func TestCohereClient_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat", r.URL.Path)
		assert.Equal(t, "Bearer co-test", r.Header.Get("Authorization"))

		w.Write([]byte(`{
			"finish_reason": "COMPLETE",
			"message": {"role": "assistant", "content": [
				{"type": "text", "text": "part one "},
				{"type": "text", "text": "part two"}
			]},
			"usage": {"billed_units": {"input_tokens": 7, "output_tokens": 4}}
		}`))
	}))
	defer server.Close()

	client := NewCohereClient("command-r", server.URL, "co-test", "", 5*time.Second)
	resp, err := client.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "part one part two", resp.Content)
	assert.Equal(t, "COMPLETE", resp.StopReason)
	assert.Equal(t, 7, resp.Usage.InputTokens)
	assert.Equal(t, 4, resp.Usage.OutputTokens)
}

func TestRegistry_Resolve(t *testing.T) {
	reg := NewRegistry(logging.New(nil, "silent"))
	gpt := &MockClient{ModelName: "gpt-4o"}
	cmd := &MockClient{ModelName: "command-r"}
	reg.Register("gpt-4o", gpt)
	reg.Register("command-r", cmd)
	reg.SetFallback("gpt-4o")

	c, err := reg.Resolve("command-r")
	require.NoError(t, err)
	assert.Equal(t, "command-r", c.Name())

	// Unknown identities fall back to the default model.
	c, err = reg.Resolve("unknown-model")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", c.Name())

	c, err = reg.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", c.Name())
}

func TestRegistry_Resolve_NoFallback(t *testing.T) {
	reg := NewRegistry(logging.New(nil, "silent"))
	_, err := reg.Resolve("gpt-4o")
	assert.Error(t, err)
}

func TestNewRegistryFromConfig(t *testing.T) {
	cfg := config.LLMConfig{
		Default:        "gpt-4o",
		TimeoutSeconds: 30,
		Providers: map[string]config.ProviderEntry{
			"gpt-4o":    {Name: "OpenAI GPT-4o", API: "openai", APIKey: "sk-cfg"},
			"command-r": {Name: "Cohere Command R", API: "cohere", APIKey: "co-cfg"},
			"weird":     {Name: "Unknown", API: "carrier-pigeon"},
		},
	}

	lookup := func(llmID string) (string, bool) {
		if llmID == "gpt-4o" {
			return "sk-stored", true
		}
		return "", false
	}

	reg := NewRegistryFromConfig(cfg, lookup, logging.New(nil, "silent"))

	assert.ElementsMatch(t, []string{"gpt-4o", "command-r"}, reg.List())

	c, err := reg.Resolve("gpt-4o")
	require.NoError(t, err)
	openai, ok := c.(*OpenAIClient)
	require.True(t, ok)
	assert.Equal(t, "sk-stored", openai.apiKey)

	c, err = reg.Resolve("command-r")
	require.NoError(t, err)
	_, ok = c.(*CohereClient)
	assert.True(t, ok)
}
