package environment

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/MahdiFarnaghi/intelli-geo/internal/llm"
)

// ToolName is the tool identity the model uses to request a snapshot.
const ToolName = "read_environment"

// ToolDefinition describes the snapshot tool for a completion request.
func ToolDefinition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name: ToolName,
		Description: "Retrieve detailed information about the currently opened GIS project: " +
			"every layer's name, type, coordinate reference system and extent, " +
			"plus geometry type for vector layers and resolution and band data types for raster layers.",
		InputSchema: `{"type":"object","properties":{},"additionalProperties":false}`,
	}
}

// Tool adapts a Provider into a model-invokable tool.
type Tool struct {
	provider Provider
}

// NewTool creates the snapshot tool over the given provider.
func NewTool(provider Provider) *Tool {
	return &Tool{provider: provider}
}

// Invoke renders the current project snapshot. The tool takes no arguments.
func (t *Tool) Invoke() string {
	return t.provider.Snapshot().Render()
}

// LoadFile reads a project snapshot from a JSON file.
func LoadFile(path string) (Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Project{}, fmt.Errorf("reading environment file: %w", err)
	}
	var project Project
	if err := json.Unmarshal(data, &project); err != nil {
		return Project{}, fmt.Errorf("parsing environment file %s: %w", path, err)
	}
	return project, nil
}
