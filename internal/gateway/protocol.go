package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/MahdiFarnaghi/intelli-geo/internal/domain"
)

// Wire shapes for the host API.

type conversationDTO struct {
	ID            string `json:"id"`
	LLMID         string `json:"llmId"`
	Title         string `json:"title"`
	Description   string `json:"description,omitempty"`
	Created       string `json:"created"`
	Modified      string `json:"modified"`
	MessageCount  int    `json:"messageCount"`
	WorkflowCount int    `json:"workflowCount"`
	UserID        string `json:"userId"`
}

func toConversationDTO(c domain.Conversation) conversationDTO {
	return conversationDTO{
		ID:            c.ID,
		LLMID:         c.LLMID,
		Title:         c.Title,
		Description:   c.Description,
		Created:       c.Created.Format(time.RFC3339),
		Modified:      c.Modified.Format(time.RFC3339),
		MessageCount:  c.MessageCount,
		WorkflowCount: c.WorkflowCount,
		UserID:        c.UserID,
	}
}

type interactionDTO struct {
	ID           string `json:"id"`
	PromptID     string `json:"promptId,omitempty"`
	Request      string `json:"request"`
	Context      string `json:"context,omitempty"`
	RequestTime  string `json:"requestTime"`
	Kind         string `json:"kind"`
	Response     string `json:"response"`
	ResponseTime string `json:"responseTime"`
	Workflow     string `json:"workflow"`
	ExecutionLog string `json:"executionLog,omitempty"`
	Seq          int    `json:"seq"`
}

func toInteractionDTO(in domain.Interaction) interactionDTO {
	return interactionDTO{
		ID:           in.ID,
		PromptID:     in.PromptID,
		Request:      in.RequestText,
		Context:      in.ContextText,
		RequestTime:  in.RequestTime.Format(time.RFC3339),
		Kind:         string(in.Kind),
		Response:     in.ResponseText,
		ResponseTime: in.ResponseTime.Format(time.RFC3339),
		Workflow:     string(in.Workflow),
		ExecutionLog: in.ExecutionLog,
		Seq:          in.Seq,
	}
}

type createConversationRequest struct {
	LLMID       string `json:"llmId"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type updateConversationRequest struct {
	LLMID       *string `json:"llmId"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

type submitRequest struct {
	Input string `json:"input"`
	Mode  string `json:"mode"`
	LLMID string `json:"llmId"`
}

type submitResponse struct {
	ConversationID string `json:"conversationId"`
	Response       string `json:"response"`
	Workflow       string `json:"workflow"`
	ArtifactPath   string `json:"artifactPath,omitempty"`
	Warning        string `json:"warning,omitempty"`
}

type reflectRequest struct {
	ExecutedCode string `json:"executedCode"`
	ErrorLog     string `json:"errorLog"`
}

type updateKeyRequest struct {
	APIKey string `json:"apiKey"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
