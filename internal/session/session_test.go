package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/MahdiFarnaghi/intelli-geo/internal/artifact"
	"github.com/MahdiFarnaghi/intelli-geo/internal/config"
	"github.com/MahdiFarnaghi/intelli-geo/internal/domain"
	"github.com/MahdiFarnaghi/intelli-geo/internal/environment"
	"github.com/MahdiFarnaghi/intelli-geo/internal/llm"
	"github.com/MahdiFarnaghi/intelli-geo/internal/logging"
	"github.com/MahdiFarnaghi/intelli-geo/internal/prompt"
	"github.com/MahdiFarnaghi/intelli-geo/internal/responder"
	"github.com/MahdiFarnaghi/intelli-geo/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRetriever struct{}

func (stubRetriever) Documents(context.Context, string, int) []string { return nil }
func (stubRetriever) Examples(context.Context, string, int, string) []string {
	return nil
}

// queueClient plays back completions in order, thread-safe.
type queueClient struct {
	mu        sync.Mutex
	responses []string
	calls     int
}

func (q *queueClient) Name() string { return "gpt-4o" }

func (q *queueClient) Complete(_ context.Context, _ llm.CompletionRequest) (*llm.CompletionResponse, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.calls >= len(q.responses) {
		return nil, errors.New("no scripted response left")
	}
	content := q.responses[q.calls]
	q.calls++
	return &llm.CompletionResponse{Content: content}, nil
}

type harness struct {
	manager       *Manager
	conversations *store.ConversationStore
	interactions  *store.InteractionStore
	artifactDir   string
}

func newHarness(t *testing.T, client llm.Client) *harness {
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

	rsp := responder.New(registry, prompt.NewResolver(prompts), stubRetriever{},
		environment.NewTool(environment.NewMemoryProvider()), interactions, responder.Options{}, log)

	artifactDir := t.TempDir()
	m := NewManager(conversations, interactions, rsp, artifact.NewWriter(artifactDir, log),
		config.SessionConfig{UserID: "user1", DefaultMode: "code"}, 30*time.Second, log)
	t.Cleanup(m.Close)

	return &harness{
		manager:       m,
		conversations: conversations,
		interactions:  interactions,
		artifactDir:   artifactDir,
	}
}

func awaitOutcome(t *testing.T, out <-chan Outcome) Outcome {
	t.Helper()
	select {
	case o := <-out:
		return o
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for turn outcome")
		return Outcome{}
	}
}

func TestManager_Submit_CountsEachTurn(t *testing.T) {
	client := &queueClient{responses: []string{
		"No", "a buffer grows geometries",
		"No", "a centroid is the mean center",
	}}
	h := newHarness(t, client)

	conv, err := h.manager.Create("gpt-4o", "Basics", "")
	require.NoError(t, err)

	for _, question := range []string{"what is a buffer?", "what is a centroid?"} {
		id, out, err := h.manager.Submit(context.Background(), conv.ID, "gpt-4o", question, domain.ModeCode)
		require.NoError(t, err)
		assert.Equal(t, conv.ID, id)
		o := awaitOutcome(t, out)
		require.NoError(t, o.Err)
	}

	got, err := h.conversations.Get(conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.MessageCount)
	assert.Equal(t, 0, got.WorkflowCount)
}

func TestManager_Submit_SavesWorkflowArtifact(t *testing.T) {
	client := &queueClient{responses: []string{
		"Yes, No", "```python\nimport processing\n```",
	}}
	h := newHarness(t, client)

	conv, err := h.manager.Create("gpt-4o", "Buffering", "")
	require.NoError(t, err)

	_, out, err := h.manager.Submit(context.Background(), conv.ID, "gpt-4o", "buffer the rivers", domain.ModeCode)
	require.NoError(t, err)
	o := awaitOutcome(t, out)
	require.NoError(t, o.Err)

	require.NotEmpty(t, o.ArtifactPath)
	assert.Equal(t, "model_Buffering_0.py", filepath.Base(o.ArtifactPath))
	content, err := os.ReadFile(o.ArtifactPath)
	require.NoError(t, err)
	assert.Equal(t, "import processing", string(content))

	got, err := h.conversations.Get(conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.MessageCount)
	assert.Equal(t, 1, got.WorkflowCount)
}

func TestManager_Submit_MissingFenceWritesNoFile(t *testing.T) {
	client := &queueClient{responses: []string{
		"Yes, No", "I cannot produce a script for that.",
	}}
	h := newHarness(t, client)

	conv, err := h.manager.Create("gpt-4o", "Buffering", "")
	require.NoError(t, err)

	_, out, err := h.manager.Submit(context.Background(), conv.ID, "gpt-4o", "buffer the rivers", domain.ModeCode)
	require.NoError(t, err)
	o := awaitOutcome(t, out)

	require.Error(t, o.Err)
	var perr *responder.Error
	require.ErrorAs(t, o.Err, &perr)
	assert.Equal(t, responder.ErrExtraction, perr.Kind)
	assert.Empty(t, o.ArtifactPath)

	entries, err := os.ReadDir(h.artifactDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// The answer itself is still durable; only the workflow count stays put.
	got, err := h.conversations.Get(conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.MessageCount)
	assert.Equal(t, 0, got.WorkflowCount)
}

func TestManager_Submit_BusyRejected(t *testing.T) {
	gate := make(chan struct{})
	first := true
	var mu sync.Mutex
	client := &llm.MockClient{ModelName: "gpt-4o", CompleteFunc: func(ctx context.Context, _ llm.CompletionRequest) (*llm.CompletionResponse, error) {
		mu.Lock()
		isFirst := first
		first = false
		mu.Unlock()
		if isFirst {
			<-gate
			return &llm.CompletionResponse{Content: "No"}, nil
		}
		return &llm.CompletionResponse{Content: "done"}, nil
	}}
	h := newHarness(t, client)

	conv, err := h.manager.Create("gpt-4o", "Busy", "")
	require.NoError(t, err)

	_, out, err := h.manager.Submit(context.Background(), conv.ID, "gpt-4o", "first", domain.ModeCode)
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return h.manager.Busy(conv.ID) }, time.Second, 5*time.Millisecond)

	// A second submit while busy is rejected with no stored side effects.
	_, _, err = h.manager.Submit(context.Background(), conv.ID, "gpt-4o", "second", domain.ModeCode)
	assert.ErrorIs(t, err, ErrBusy)

	close(gate)
	o := awaitOutcome(t, out)
	require.NoError(t, o.Err)

	got, err := h.conversations.Get(conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.MessageCount)

	history, err := h.manager.History(conv.ID, false)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "first", history[0].RequestText)
}

func TestManager_Submit_StaleConversationStartsFresh(t *testing.T) {
	client := &queueClient{responses: []string{
		"No", "hello",
		"No", "hello again",
	}}
	h := newHarness(t, client)

	conv, err := h.manager.Create("gpt-4o", "Doomed", "")
	require.NoError(t, err)

	_, out, err := h.manager.Submit(context.Background(), conv.ID, "gpt-4o", "hi", domain.ModeCode)
	require.NoError(t, err)
	require.NoError(t, awaitOutcome(t, out).Err)

	require.NoError(t, h.manager.Delete(conv.ID))

	// Submitting against the deleted conversation starts a new one.
	id, out, err := h.manager.Submit(context.Background(), conv.ID, "gpt-4o", "hi again", domain.ModeCode)
	require.NoError(t, err)
	require.NotEqual(t, conv.ID, id)
	require.NoError(t, awaitOutcome(t, out).Err)

	got, err := h.conversations.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 1, got.MessageCount)

	_, err = h.conversations.Get(conv.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestManager_Interrupt_LeavesCountersUntouched(t *testing.T) {
	client := &llm.MockClient{ModelName: "gpt-4o", CompleteFunc: func(ctx context.Context, _ llm.CompletionRequest) (*llm.CompletionResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	h := newHarness(t, client)

	conv, err := h.manager.Create("gpt-4o", "Slow", "")
	require.NoError(t, err)

	_, out, err := h.manager.Submit(context.Background(), conv.ID, "gpt-4o", "never finishes", domain.ModeCode)
	require.NoError(t, err)

	h.manager.session(conv.ID).Interrupt()
	o := awaitOutcome(t, out)
	require.Error(t, o.Err)

	got, err := h.conversations.Get(conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.MessageCount)

	history, err := h.manager.History(conv.ID, true)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestManager_Reflect(t *testing.T) {
	client := &queueClient{responses: []string{
		"Yes, No", "```python\nbroken()\n```",
		"Fixed:\n```python\nworking()\n```",
	}}
	h := newHarness(t, client)

	conv, err := h.manager.Create("gpt-4o", "Repair", "")
	require.NoError(t, err)

	_, out, err := h.manager.Submit(context.Background(), conv.ID, "gpt-4o", "do the thing", domain.ModeCode)
	require.NoError(t, err)
	require.NoError(t, awaitOutcome(t, out).Err)

	out, err = h.manager.Reflect(context.Background(), conv.ID, "broken()", "NameError: broken is not defined")
	require.NoError(t, err)
	o := awaitOutcome(t, out)
	require.NoError(t, o.Err)

	assert.Contains(t, o.Result.Response, "working()")
	assert.Contains(t, o.Result.Interaction.ContextText, "NameError")
	assert.NotEmpty(t, o.ArtifactPath)

	got, err := h.conversations.Get(conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.MessageCount)
	assert.Equal(t, 2, got.WorkflowCount)
}

func TestManager_Reflect_UnknownConversation(t *testing.T) {
	h := newHarness(t, &queueClient{})

	_, err := h.manager.Reflect(context.Background(), "absent", "code", "error")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
