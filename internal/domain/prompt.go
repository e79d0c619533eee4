package domain

import "fmt"

// PromptType selects a prompt template for one pipeline stage.
type PromptType string

const (
	PromptClassifier            PromptType = "classifier"
	PromptGeneralChat           PromptType = "generalChat"
	PromptModelProducer         PromptType = "modelProducer"
	PromptCodeProducer          PromptType = "codeProducer"
	PromptToolboxProducer       PromptType = "toolboxProducer"
	PromptGeneralChatRefine     PromptType = "generalChatRefine"
	PromptModelProducerRefine   PromptType = "modelProducerRefine"
	PromptCodeProducerRefine    PromptType = "codeProducerRefine"
	PromptToolboxProducerRefine PromptType = "toolboxProducerRefine"
	PromptReflection            PromptType = "reflection"
)

// Valid reports whether t is a known prompt type.
func (t PromptType) Valid() bool {
	switch t {
	case PromptClassifier, PromptGeneralChat, PromptModelProducer,
		PromptCodeProducer, PromptToolboxProducer,
		PromptGeneralChatRefine, PromptModelProducerRefine,
		PromptCodeProducerRefine, PromptToolboxProducerRefine,
		PromptReflection:
		return true
	}
	return false
}

// Refine returns the refine counterpart of a producer prompt type, or t
// itself when no counterpart exists.
func (t PromptType) Refine() PromptType {
	switch t {
	case PromptGeneralChat:
		return PromptGeneralChatRefine
	case PromptModelProducer:
		return PromptModelProducerRefine
	case PromptCodeProducer:
		return PromptCodeProducerRefine
	case PromptToolboxProducer:
		return PromptToolboxProducerRefine
	}
	return t
}

// PromptTemplate is a versioned, immutable prompt looked up by
// (model identity, prompt type); the highest version wins.
type PromptTemplate struct {
	ID       string
	LLMID    string
	Version  int
	Template string
	Type     PromptType
}

// Row converts the template into its positional column order.
func (p PromptTemplate) Row() []any {
	return []any{p.ID, p.LLMID, p.Version, p.Template, string(p.Type)}
}

// PromptTemplateFromRow is the inverse of Row.
func PromptTemplateFromRow(row []any) (PromptTemplate, error) {
	if len(row) != 5 {
		return PromptTemplate{}, fmt.Errorf("prompt row needs 5 columns, got %d", len(row))
	}

	var p PromptTemplate
	var err error
	if p.ID, err = rowString(row[0]); err != nil {
		return PromptTemplate{}, err
	}
	if p.LLMID, err = rowString(row[1]); err != nil {
		return PromptTemplate{}, err
	}
	if p.Version, err = rowInt(row[2]); err != nil {
		return PromptTemplate{}, err
	}
	if p.Template, err = rowString(row[3]); err != nil {
		return PromptTemplate{}, err
	}
	ptype, err := rowString(row[4])
	if err != nil {
		return PromptTemplate{}, err
	}
	p.Type = PromptType(ptype)
	if !p.Type.Valid() {
		return PromptTemplate{}, fmt.Errorf("unknown prompt type %q", ptype)
	}
	return p, nil
}

// ModelCredential is the endpoint and key for one supported model identity.
type ModelCredential struct {
	LLMID    string
	Name     string
	Endpoint string
	APIKey   string
}
