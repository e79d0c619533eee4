package domain

import "strings"

// Decision is the classifier's verdict on a user request.
type Decision int

const (
	// DecisionUnknown means the classifier output matched no known token.
	DecisionUnknown Decision = iota
	// DecisionNo means the request is a general question, not a workflow.
	DecisionNo
	// DecisionNewWorkflow means the request asks for a brand-new workflow.
	DecisionNewWorkflow
	// DecisionRefine means the request refines the previous turn's workflow.
	DecisionRefine
)

// String returns the decision name.
func (d Decision) String() string {
	switch d {
	case DecisionNo:
		return "no"
	case DecisionNewWorkflow:
		return "yes-new"
	case DecisionRefine:
		return "yes-refine"
	default:
		return "unknown"
	}
}

// ParseDecision maps raw classifier output onto a Decision. The model is
// prompted to answer with "No", "Yes, No" or "Yes, Yes" (workflow wanted /
// refinement of the prior turn); matching is case-insensitive and tolerant
// of surrounding prose.
func ParseDecision(raw string) Decision {
	text := strings.ToLower(strings.TrimSpace(raw))
	if text == "" {
		return DecisionUnknown
	}

	if !strings.Contains(text, "yes") {
		if strings.Contains(text, "no") {
			return DecisionNo
		}
		return DecisionUnknown
	}

	// "yes, yes" → refine; "yes, no" (or bare "yes") → new workflow.
	rest := text[strings.Index(text, "yes")+len("yes"):]
	if strings.Contains(rest, "yes") {
		return DecisionRefine
	}
	return DecisionNewWorkflow
}
