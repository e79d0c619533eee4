package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MahdiFarnaghi/intelli-geo/internal/artifact"
	"github.com/MahdiFarnaghi/intelli-geo/internal/config"
	"github.com/MahdiFarnaghi/intelli-geo/internal/domain"
	"github.com/MahdiFarnaghi/intelli-geo/internal/environment"
	"github.com/MahdiFarnaghi/intelli-geo/internal/llm"
	"github.com/MahdiFarnaghi/intelli-geo/internal/logging"
	"github.com/MahdiFarnaghi/intelli-geo/internal/prompt"
	"github.com/MahdiFarnaghi/intelli-geo/internal/responder"
	"github.com/MahdiFarnaghi/intelli-geo/internal/session"
	"github.com/MahdiFarnaghi/intelli-geo/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRetriever struct{}

func (stubRetriever) Documents(context.Context, string, int) []string { return nil }
func (stubRetriever) Examples(context.Context, string, int, string) []string {
	return nil
}

type queueClient struct {
	mu        sync.Mutex
	responses []string
	calls     int
}

func (q *queueClient) Name() string { return "gpt-4o" }

func (q *queueClient) Complete(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.calls >= len(q.responses) {
		return nil, errors.New("no scripted response left")
	}
	content := q.responses[q.calls]
	q.calls++
	return &llm.CompletionResponse{Content: content}, nil
}

type testEnv struct {
	server        *Server
	ts            *httptest.Server
	credentials   *store.CredentialStore
	provider      *environment.MemoryProvider
	conversations *store.ConversationStore
	manager       *session.Manager
	token         string
}

func newTestEnv(t *testing.T, client llm.Client, token string) *testEnv {
	t.Helper()
	log := logging.New(nil, "silent")

	db, err := store.Open(":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	prompts := store.NewPromptStore(db)
	require.NoError(t, prompt.Seed(prompts, log))

	registry := llm.NewRegistry(log)
	registry.Register("gpt-4o", client)
	registry.SetFallback("gpt-4o")

	conversations := store.NewConversationStore(db)
	interactions := store.NewInteractionStore(db)
	credentials := store.NewCredentialStore(db)
	provider := environment.NewMemoryProvider()

	rsp := responder.New(registry, prompt.NewResolver(prompts), stubRetriever{},
		environment.NewTool(provider), interactions, responder.Options{}, log)

	manager := session.NewManager(conversations, interactions, rsp,
		artifact.NewWriter(t.TempDir(), log),
		config.SessionConfig{UserID: "user1", DefaultMode: "code"}, 30*time.Second, log)
	t.Cleanup(manager.Close)

	s := New(config.GatewayConfig{Auth: config.GatewayAuth{Token: token}},
		manager, conversations, credentials, provider, log)

	ts := httptest.NewServer(s.routes())
	t.Cleanup(ts.Close)

	return &testEnv{
		server:        s,
		ts:            ts,
		credentials:   credentials,
		provider:      provider,
		conversations: conversations,
		manager:       manager,
		token:         token,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, e.ts.URL+path, reader)
	require.NoError(t, err)
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func domainCredential(id, key string) domain.ModelCredential {
	return domain.ModelCredential{LLMID: id, Name: id, APIKey: key}
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t, &queueClient{}, "")

	resp := e.do(t, "GET", "/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]interface{}](t, resp)
	assert.Equal(t, "ok", body["status"])
}

func TestAuth_TokenRequired(t *testing.T) {
	e := newTestEnv(t, &queueClient{}, "secret")

	// No token.
	req, err := http.NewRequest("GET", e.ts.URL+"/health", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Wrong token.
	req.Header.Set("Authorization", "Bearer nope")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Correct token.
	resp = e.do(t, "GET", "/health", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestConversationCRUD(t *testing.T) {
	e := newTestEnv(t, &queueClient{}, "")

	resp := e.do(t, "POST", "/conversations", createConversationRequest{
		LLMID: "gpt-4o", Title: "Flood mapping", Description: "river buffers",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[conversationDTO](t, resp)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Flood mapping", created.Title)

	resp = e.do(t, "GET", "/conversations", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]conversationDTO](t, resp)
	require.Len(t, list, 1)

	resp = e.do(t, "GET", "/conversations/"+created.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	newTitle := "Flood study"
	resp = e.do(t, "PATCH", "/conversations/"+created.ID, updateConversationRequest{Title: &newTitle})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[conversationDTO](t, resp)
	assert.Equal(t, "Flood study", updated.Title)
	assert.Equal(t, "river buffers", updated.Description)

	resp = e.do(t, "GET", "/conversations/search?q=study", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	hits := decode[[]conversationDTO](t, resp)
	assert.Len(t, hits, 1)

	resp = e.do(t, "DELETE", "/conversations/"+created.ID, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = e.do(t, "GET", "/conversations/"+created.ID, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSubmit_NewConversation(t *testing.T) {
	client := &queueClient{responses: []string{
		"Yes, No", "```python\nimport processing\n```",
	}}
	e := newTestEnv(t, client, "")

	resp := e.do(t, "POST", "/conversations/new/messages", submitRequest{
		Input: "buffer the rivers", Mode: "code", LLMID: "gpt-4o",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[submitResponse](t, resp)

	assert.NotEmpty(t, body.ConversationID)
	assert.Equal(t, "withCode", body.Workflow)
	assert.NotEmpty(t, body.ArtifactPath)

	// The transcript hides the classifier row by default.
	resp = e.do(t, "GET", "/conversations/"+body.ConversationID+"/history", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	visible := decode[[]interactionDTO](t, resp)
	require.Len(t, visible, 1)
	assert.Equal(t, "return", visible[0].Kind)

	resp = e.do(t, "GET", "/conversations/"+body.ConversationID+"/history?internal=1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	all := decode[[]interactionDTO](t, resp)
	assert.Len(t, all, 2)
}

func TestSubmit_ValidationAndErrors(t *testing.T) {
	e := newTestEnv(t, &queueClient{}, "")

	resp := e.do(t, "POST", "/conversations/new/messages", submitRequest{Mode: "code"})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = e.do(t, "POST", "/conversations/absent/reflect", reflectRequest{
		ExecutedCode: "x", ErrorLog: "y",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSubmit_PipelineFailure(t *testing.T) {
	e := newTestEnv(t, &queueClient{}, "")

	resp := e.do(t, "POST", "/conversations/new/messages", submitRequest{
		Input: "anything", Mode: "code",
	})
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	body := decode[errorResponse](t, resp)
	assert.Equal(t, "classification", body.Kind)
}

func TestEnvironmentPush(t *testing.T) {
	e := newTestEnv(t, &queueClient{}, "")

	resp := e.do(t, "PUT", "/environment", environment.Project{
		Layers: []environment.Layer{{Name: "rivers", Type: environment.LayerVector}},
	})
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	assert.Len(t, e.provider.Snapshot().Layers, 1)
}

func TestUpdateAPIKey(t *testing.T) {
	e := newTestEnv(t, &queueClient{}, "")

	resp := e.do(t, "PUT", "/credentials/gpt-4o/key", updateKeyRequest{APIKey: "sk-new"})
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	require.NoError(t, e.credentials.Upsert(domainCredential("gpt-4o", "sk-old")))
	resp = e.do(t, "PUT", "/credentials/gpt-4o/key", updateKeyRequest{APIKey: "sk-new"})
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	cred, err := e.credentials.Get("gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, "sk-new", cred.APIKey)
}

func TestEventFeed_StreamsTurnCompleted(t *testing.T) {
	client := &queueClient{responses: []string{"No", "hello there"}}
	e := newTestEnv(t, client, "secret")

	wsURL := strings.Replace(e.ts.URL, "http", "ws", 1) + "/events?token=secret"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	resp := e.do(t, "POST", "/conversations/new/messages", submitRequest{Input: "hi", Mode: "code"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var event Event
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, EventTurnCompleted, event.Type)
	assert.NotZero(t, event.Seq)
}
