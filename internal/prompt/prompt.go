// Package prompt seeds, resolves and renders the prompt templates that drive
// the assistant pipeline. A default template set ships embedded in the binary
// and is loaded into the prompt store on startup; per-model overrides live in
// the store alongside it.
package prompt

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/MahdiFarnaghi/intelli-geo/internal/domain"
	"github.com/MahdiFarnaghi/intelli-geo/internal/logging"
	"github.com/MahdiFarnaghi/intelli-geo/internal/store"
)

//go:embed resources/prompts.json
var defaultPrompts []byte

type seedEntry struct {
	Version  int    `json:"version"`
	Template string `json:"template"`
}

// Seed loads the embedded default template set into the prompt store under
// the default model identity. Templates are versioned and immutable, so
// seeding is idempotent and never overwrites an existing version.
func Seed(prompts *store.PromptStore, log *logging.Logger) error {
	var entries map[string]seedEntry
	if err := json.Unmarshal(defaultPrompts, &entries); err != nil {
		return fmt.Errorf("parsing embedded prompts: %w", err)
	}

	for name, entry := range entries {
		promptType := domain.PromptType(name)
		if !promptType.Valid() {
			return fmt.Errorf("embedded prompt has unknown type %q", name)
		}
		tmpl := domain.PromptTemplate{
			ID:       fmt.Sprintf("%s-%s-v%d", store.DefaultLLMID, name, entry.Version),
			LLMID:    store.DefaultLLMID,
			Version:  entry.Version,
			Template: entry.Template,
			Type:     promptType,
		}
		if err := prompts.Put(tmpl); err != nil {
			return fmt.Errorf("seeding prompt %s: %w", tmpl.ID, err)
		}
	}

	log.Sub("prompt").Debug().Int("count", len(entries)).Msg("seeded default prompt templates")
	return nil
}

// Resolver resolves the active template for a model identity and prompt type.
type Resolver struct {
	prompts *store.PromptStore
}

// NewResolver creates a resolver over the prompt store.
func NewResolver(prompts *store.PromptStore) *Resolver {
	return &Resolver{prompts: prompts}
}

// Resolve returns the highest-version template for the model identity,
// falling back to the default template set.
func (r *Resolver) Resolve(llmID string, promptType domain.PromptType) (domain.PromptTemplate, error) {
	return r.prompts.Resolve(llmID, promptType)
}
