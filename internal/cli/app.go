package cli

import (
	"fmt"
	"time"

	"github.com/MahdiFarnaghi/intelli-geo/internal/artifact"
	"github.com/MahdiFarnaghi/intelli-geo/internal/config"
	"github.com/MahdiFarnaghi/intelli-geo/internal/domain"
	"github.com/MahdiFarnaghi/intelli-geo/internal/environment"
	"github.com/MahdiFarnaghi/intelli-geo/internal/llm"
	"github.com/MahdiFarnaghi/intelli-geo/internal/logging"
	"github.com/MahdiFarnaghi/intelli-geo/internal/prompt"
	"github.com/MahdiFarnaghi/intelli-geo/internal/responder"
	"github.com/MahdiFarnaghi/intelli-geo/internal/retrieval"
	"github.com/MahdiFarnaghi/intelli-geo/internal/session"
	"github.com/MahdiFarnaghi/intelli-geo/internal/store"
)

// app holds the wired assistant core shared by the serve and ask commands.
type app struct {
	cfg config.Config
	db  *store.DB

	conversations *store.ConversationStore
	interactions  *store.InteractionStore
	credentials   *store.CredentialStore
	prompts       *store.PromptStore

	provider *environment.MemoryProvider
	manager  *session.Manager
}

// buildApp loads the config, opens the database and wires the full turn
// pipeline. envFile, when non-empty, points at a JSON snapshot of the host
// project to preload into the environment provider.
func buildApp(envFile string) (*app, error) {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return nil, err
	}

	if err := paths.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("creating data directories: %w", err)
	}

	if cfg.Logging.File != "" {
		log = logging.NewWithFile(cfg.Logging.File, cfg.Logging.Level)
	}

	db, err := store.Open(paths.Database, log)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	conversations := store.NewConversationStore(db)
	interactions := store.NewInteractionStore(db)
	credentials := store.NewCredentialStore(db)
	prompts := store.NewPromptStore(db)

	if err := prompt.Seed(prompts, log); err != nil {
		db.Close()
		return nil, fmt.Errorf("seeding prompts: %w", err)
	}

	// Declare every configured model identity. Upsert keeps a previously
	// stored key when the config entry carries none.
	for id, p := range cfg.LLM.Providers {
		cred := domain.ModelCredential{LLMID: id, Name: p.Name, Endpoint: p.Endpoint, APIKey: p.APIKey}
		if err := credentials.Upsert(cred); err != nil {
			db.Close()
			return nil, fmt.Errorf("storing credentials for %s: %w", id, err)
		}
	}

	lookupKey := func(llmID string) (string, bool) {
		cred, err := credentials.Get(llmID)
		if err != nil || cred.APIKey == "" {
			return "", false
		}
		return cred.APIKey, true
	}
	registry := llm.NewRegistryFromConfig(cfg.LLM, lookupKey, log)

	retriever := retrieval.NewClient(cfg.Retrieval, log)

	provider := environment.NewMemoryProvider()
	if envFile != "" {
		project, err := environment.LoadFile(envFile)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("loading environment snapshot: %w", err)
		}
		provider.Set(project)
	}

	rsp := responder.New(registry, prompt.NewResolver(prompts), retriever,
		environment.NewTool(provider), interactions, responder.Options{
			DocTopK:     cfg.Retrieval.DocTopK,
			ExampleTopK: cfg.Retrieval.ExampleTopK,
		}, log)

	artifactsDir := cfg.Artifacts.Dir
	if artifactsDir == "" {
		artifactsDir = paths.Artifacts
	}
	writer := artifact.NewWriter(artifactsDir, log)

	turnTimeout := time.Duration(cfg.Session.TurnTimeoutSeconds) * time.Second
	manager := session.NewManager(conversations, interactions, rsp, writer,
		cfg.Session, turnTimeout, log)

	return &app{
		cfg:           cfg,
		db:            db,
		conversations: conversations,
		interactions:  interactions,
		credentials:   credentials,
		prompts:       prompts,
		provider:      provider,
		manager:       manager,
	}, nil
}

// Close stops all sessions and closes the database.
func (a *app) Close() {
	a.manager.Close()
	a.db.Close()
}
