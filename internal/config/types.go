// Package config loads and resolves the IntelliGeo configuration.
package config

// Config is the root configuration for the IntelliGeo assistant core.
type Config struct {
	LLM       LLMConfig       `yaml:"llm,omitempty"`
	Retrieval RetrievalConfig `yaml:"retrieval,omitempty"`
	Artifacts ArtifactsConfig `yaml:"artifacts,omitempty"`
	Gateway   GatewayConfig   `yaml:"gateway,omitempty"`
	Session   SessionConfig   `yaml:"session,omitempty"`
	Logging   LoggingConfig   `yaml:"logging,omitempty"`
}

// LLMConfig selects the default model identity and declares providers.
type LLMConfig struct {
	Default        string                   `yaml:"default,omitempty"`
	TimeoutSeconds int                      `yaml:"timeoutSeconds,omitempty"`
	Providers      map[string]ProviderEntry `yaml:"providers,omitempty"`
}

// ProviderEntry declares one model identity: which API dialect it speaks and
// where to reach it. APIKey supports ${ENV_VAR} references.
type ProviderEntry struct {
	Name     string `yaml:"name,omitempty"`
	API      string `yaml:"api,omitempty"` // "openai" | "cohere"
	Endpoint string `yaml:"endpoint,omitempty"`
	APIKey   string `yaml:"apiKey,omitempty"`
	Model    string `yaml:"model,omitempty"` // upstream model id, defaults to the identity
}

// RetrievalConfig points at the remote document/example retrieval backend.
type RetrievalConfig struct {
	BaseURL        string `yaml:"baseUrl,omitempty"`
	Version        string `yaml:"version,omitempty"`
	DocTopK        int    `yaml:"docTopK,omitempty"`
	ExampleTopK    int    `yaml:"exampleTopK,omitempty"`
	TimeoutSeconds int    `yaml:"timeoutSeconds,omitempty"`
}

// ArtifactsConfig controls where generated workflow files are written.
type ArtifactsConfig struct {
	Dir string `yaml:"dir,omitempty"`
}

// GatewayConfig controls the host-facing HTTP/WebSocket surface.
type GatewayConfig struct {
	Port int         `yaml:"port,omitempty"`
	Bind string      `yaml:"bind,omitempty"`
	Auth GatewayAuth `yaml:"auth,omitempty"`
}

// GatewayAuth configures gateway authentication.
type GatewayAuth struct {
	Token string `yaml:"token,omitempty"`
}

// SessionConfig defines per-conversation session behavior.
type SessionConfig struct {
	UserID             string `yaml:"userId,omitempty"`
	DefaultMode        string `yaml:"defaultMode,omitempty"` // "visual" | "code" | "toolbox"
	TurnTimeoutSeconds int    `yaml:"turnTimeoutSeconds,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	File  string `yaml:"file,omitempty"`
}
