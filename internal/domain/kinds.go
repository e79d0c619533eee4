// Package domain defines the typed records and closed enumerations shared by
// the store, the responder pipeline, and the session layer.
package domain

import "fmt"

// MessageKind classifies an interaction row.
type MessageKind string

const (
	// MessageInput is the user-visible request half of a turn.
	MessageInput MessageKind = "input"
	// MessageReturn is the user-visible response half of a turn.
	MessageReturn MessageKind = "return"
	// MessageInternal is bookkeeping traffic (classifier calls) that history
	// views filter out.
	MessageInternal MessageKind = "internal"
)

// Valid reports whether k is a known message kind.
func (k MessageKind) Valid() bool {
	switch k {
	case MessageInput, MessageReturn, MessageInternal:
		return true
	}
	return false
}

// ParseMessageKind converts a stored string into a MessageKind.
func ParseMessageKind(s string) (MessageKind, error) {
	k := MessageKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown message kind %q", s)
	}
	return k, nil
}

// WorkflowKind tags the artifact type an interaction produced.
type WorkflowKind string

const (
	WorkflowEmpty       WorkflowKind = "empty"
	WorkflowWithModel   WorkflowKind = "withModel"
	WorkflowWithCode    WorkflowKind = "withCode"
	WorkflowWithToolbox WorkflowKind = "withToolbox"
)

// Valid reports whether k is a known workflow kind.
func (k WorkflowKind) Valid() bool {
	switch k {
	case WorkflowEmpty, WorkflowWithModel, WorkflowWithCode, WorkflowWithToolbox:
		return true
	}
	return false
}

// ParseWorkflowKind converts a stored string into a WorkflowKind.
func ParseWorkflowKind(s string) (WorkflowKind, error) {
	k := WorkflowKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown workflow kind %q", s)
	}
	return k, nil
}

// HasArtifact reports whether the kind carries a saveable workflow file.
func (k WorkflowKind) HasArtifact() bool {
	return k == WorkflowWithModel || k == WorkflowWithCode || k == WorkflowWithToolbox
}

// ResponseMode is the host UI's output mode selection for new workflows.
type ResponseMode string

const (
	// ModeVisual requests a graphical model definition.
	ModeVisual ResponseMode = "visual"
	// ModeCode requests an executable script.
	ModeCode ResponseMode = "code"
	// ModeToolbox requests a toolbox script.
	ModeToolbox ResponseMode = "toolbox"
)

// Valid reports whether m is a known response mode.
func (m ResponseMode) Valid() bool {
	switch m {
	case ModeVisual, ModeCode, ModeToolbox:
		return true
	}
	return false
}

// Workflow returns the workflow kind a new-workflow turn in this mode produces.
func (m ResponseMode) Workflow() WorkflowKind {
	switch m {
	case ModeVisual:
		return WorkflowWithModel
	case ModeToolbox:
		return WorkflowWithToolbox
	default:
		return WorkflowWithCode
	}
}
