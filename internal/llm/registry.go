package llm

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/MahdiFarnaghi/intelli-geo/internal/config"
	"github.com/MahdiFarnaghi/intelli-geo/internal/logging"
)

// ProviderError is returned when a model provider fails.
type ProviderError struct {
	Provider string
	Message  string
	Code     int // HTTP status code when the provider answered (401, 429, 500, ...)
}

func (e *ProviderError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("%s: %d %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// KeyLookup resolves a stored API key for a model identity. Stored keys take
// priority over keys from the configuration file.
type KeyLookup func(llmID string) (string, bool)

// Registry manages model clients and resolves model identities to clients.
type Registry struct {
	mu       sync.RWMutex
	clients  map[string]Client // model identity → client
	fallback string            // default model identity
	log      *logging.Logger
}

// NewRegistry creates an empty model registry.
func NewRegistry(log *logging.Logger) *Registry {
	return &Registry{
		clients: make(map[string]Client),
		log:     log.Sub("llm.registry"),
	}
}

// Register adds a client under the given model identity.
func (r *Registry) Register(identity string, client Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[identity] = client
	r.log.Info().Str("model", identity).Msg("registered model")
}

// SetFallback sets the default model used when no identity matches.
func (r *Registry) SetFallback(identity string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = identity
}

// Resolve returns the Client for the given model identity, falling back to
// the default model when the identity is unknown or empty.
func (r *Registry) Resolve(identity string) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if c, ok := r.clients[identity]; ok {
		return c, nil
	}

	if r.fallback != "" {
		if c, ok := r.clients[r.fallback]; ok {
			return c, nil
		}
	}

	return nil, fmt.Errorf("no client for model %q", identity)
}

// List returns all registered model identities.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.clients))
	for n := range r.clients {
		names = append(names, n)
	}
	return names
}

// NewRegistryFromConfig builds a Registry from the configured providers.
// lookupKey, when non-nil, overrides the configured API key with a stored one.
func NewRegistryFromConfig(cfg config.LLMConfig, lookupKey KeyLookup, log *logging.Logger) *Registry {
	reg := NewRegistry(log)

	timeout := 120 * time.Second
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	for identity, entry := range cfg.Providers {
		apiKey := entry.APIKey
		if lookupKey != nil {
			if stored, ok := lookupKey(identity); ok && stored != "" {
				apiKey = stored
			}
		}

		switch strings.ToLower(strings.TrimSpace(entry.API)) {
		case "cohere":
			reg.Register(identity, NewCohereClient(identity, entry.Endpoint, apiKey, entry.Model, timeout))
		case "openai", "":
			reg.Register(identity, NewOpenAIClient(identity, entry.Endpoint, apiKey, entry.Model, timeout))
		default:
			reg.log.Warn().Str("model", identity).Str("api", entry.API).Msg("unknown provider API, skipping")
		}
	}

	if cfg.Default != "" {
		reg.SetFallback(cfg.Default)
	}

	return reg
}
