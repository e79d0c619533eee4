package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/MahdiFarnaghi/intelli-geo/internal/domain"
	"github.com/MahdiFarnaghi/intelli-geo/internal/environment"
	"github.com/MahdiFarnaghi/intelli-geo/internal/responder"
	"github.com/MahdiFarnaghi/intelli-geo/internal/session"
	"github.com/MahdiFarnaghi/intelli-geo/internal/store"
	"github.com/MahdiFarnaghi/intelli-geo/internal/version"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": version.Version,
		"uptime":  time.Since(s.startedAt).Round(time.Second).String(),
	})
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	convs, err := s.conversations.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	dtos := make([]conversationDTO, 0, len(convs))
	for _, c := range convs {
		dtos = append(dtos, toConversationDTO(c))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (s *Server) handleSearchConversations(w http.ResponseWriter, r *http.Request) {
	keyword := r.URL.Query().Get("q")
	if keyword == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}
	convs, err := s.conversations.Search(keyword)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	dtos := make([]conversationDTO, 0, len(convs))
	for _, c := range convs {
		dtos = append(dtos, toConversationDTO(c))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req createConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	conv, err := s.manager.Create(req.LLMID, req.Title, req.Description)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, toConversationDTO(conv))
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := s.conversations.Get(r.PathValue("id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toConversationDTO(conv))
}

func (s *Server) handleUpdateConversation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	conv, err := s.conversations.Get(id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	var req updateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title != nil {
		conv.Title = *req.Title
	}
	if req.Description != nil {
		conv.Description = *req.Description
	}
	if req.LLMID != nil {
		conv.LLMID = *req.LLMID
	}

	now := time.Now().UTC().Truncate(time.Second)
	if err := s.conversations.UpdateInfo(id, conv.Title, conv.Description, conv.LLMID, now); err != nil {
		s.writeStoreError(w, err)
		return
	}

	conv, err = s.conversations.Get(id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toConversationDTO(conv))
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.manager.Delete(id); err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.hub.broadcast(EventConversationDeleted, map[string]string{"conversationId": id})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	includeInternal := r.URL.Query().Get("internal") == "1"
	rows, err := s.manager.History(r.PathValue("id"), includeInternal)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	dtos := make([]interactionDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, toInteractionDTO(row))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "new" {
		id = ""
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Input == "" {
		writeError(w, http.StatusBadRequest, "input is required")
		return
	}

	conversationID, out, err := s.manager.Submit(r.Context(), id, req.LLMID, req.Input, domain.ResponseMode(req.Mode))
	if err != nil {
		s.writeTurnError(w, err)
		return
	}

	s.finishTurn(w, r, conversationID, out)
}

func (s *Server) handleReflect(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req reflectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ExecutedCode == "" || req.ErrorLog == "" {
		writeError(w, http.StatusBadRequest, "executedCode and errorLog are required")
		return
	}

	out, err := s.manager.Reflect(r.Context(), id, req.ExecutedCode, req.ErrorLog)
	if err != nil {
		s.writeTurnError(w, err)
		return
	}

	s.finishTurn(w, r, id, out)
}

// finishTurn waits for the turn outcome, answers the HTTP request and pushes
// the matching feed event.
func (s *Server) finishTurn(w http.ResponseWriter, r *http.Request, conversationID string, out <-chan session.Outcome) {
	var outcome session.Outcome
	select {
	case outcome = <-out:
	case <-r.Context().Done():
		// The host gave up; the turn still runs to completion in the session.
		writeError(w, http.StatusRequestTimeout, "request cancelled")
		return
	}

	if outcome.Err != nil && outcome.Result == nil {
		s.hub.broadcast(EventTurnFailed, map[string]string{
			"conversationId": conversationID,
			"error":          outcome.Err.Error(),
		})
		s.writeTurnError(w, outcome.Err)
		return
	}

	resp := submitResponse{
		ConversationID: conversationID,
		Response:       outcome.Result.Response,
		Workflow:       string(outcome.Result.Workflow),
		ArtifactPath:   outcome.ArtifactPath,
	}
	if outcome.Err != nil {
		// Turn succeeded but a side effect (artifact extraction) did not.
		resp.Warning = outcome.Err.Error()
	}

	s.hub.broadcast(EventTurnCompleted, resp)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSetEnvironment(w http.ResponseWriter, r *http.Request) {
	var project environment.Project
	if err := json.NewDecoder(r.Body).Decode(&project); err != nil {
		writeError(w, http.StatusBadRequest, "invalid project snapshot")
		return
	}
	s.provider.Set(project)
	s.hub.broadcast(EventEnvironmentUpdated, map[string]int{"layers": len(project.Layers)})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdateAPIKey(w http.ResponseWriter, r *http.Request) {
	var req updateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.APIKey == "" {
		writeError(w, http.StatusBadRequest, "apiKey is required")
		return
	}
	if err := s.credentials.UpdateAPIKey(r.PathValue("llmID"), req.APIKey); err != nil {
		s.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) writeTurnError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrBusy):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		var perr *responder.Error
		if errors.As(err, &perr) {
			writeJSON(w, http.StatusBadGateway, errorResponse{Error: perr.Error(), Kind: string(perr.Kind)})
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
