package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/faceforge/faceforge/internal/agent"
	"github.com/faceforge/faceforge/internal/asset"
	"github.com/faceforge/faceforge/internal/diff"
	"github.com/faceforge/faceforge/internal/log"
	"github.com/faceforge/faceforge/internal/project"
	"github.com/faceforge/faceforge/internal/prompt"
)

const (
	// artifactFile is the single entry point every project serves.
	artifactFile = "index.html"

	// snapshotRunes bounds the artifact slice stored on assistant turns.
	snapshotRunes = 500

	// nameRunes bounds a project name derived from the instruction.
	nameRunes = 50
)

type projectHandler struct {
	logger   log.Logger
	projects *project.Store
	provider *agent.Provider
	timeout  time.Duration
	limiter  *rate.Limiter
}

type generateRequest struct {
	Instruction string          `json:"instruction"`
	SessionID   string          `json:"session_id"`
	Name        string          `json:"project_name,omitempty"`
	Assets      *asset.Manifest `json:"assets,omitempty"`
}

type editRequest struct {
	ProjectID   string          `json:"project_id"`
	Instruction string          `json:"instruction"`
	Assets      *asset.Manifest `json:"assets,omitempty"`
}

type projectResponse struct {
	Success   bool         `json:"success"`
	ProjectID string       `json:"project_id,omitempty"`
	SessionID string       `json:"session_id,omitempty"`
	Name      string       `json:"name,omitempty"`
	HTML      string       `json:"html,omitempty"`
	Reasoning string       `json:"reasoning,omitempty"`
	Message   string       `json:"message"`
	Diff      *diff.Record `json:"diff,omitempty"`
	Summary   string       `json:"summary,omitempty"`
	Stats     agent.Stats  `json:"stats"`
}

// orchestrator builds a per-request orchestrator bound to the caller's model
// client.
func (h *projectHandler) orchestrator(r *http.Request) (*agent.Orchestrator, error) {
	client, err := h.provider.ForClient(r.Context(), clientIDFromContext(r.Context()))
	if err != nil {
		return nil, err
	}
	return agent.New(agent.Config{
		Client:  client,
		Logger:  h.logger,
		Timeout: h.timeout,
		Limiter: h.limiter,
	})
}

func (h *projectHandler) generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "could not decode request body", h.logger)
		return
	}
	if strings.TrimSpace(req.Instruction) == "" {
		writeError(w, http.StatusBadRequest, "missing_instruction", "instruction is required", h.logger)
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "missing_session", "session_id is required", h.logger)
		return
	}

	orch, err := h.orchestrator(r)
	if err != nil {
		h.writeProviderError(w, err)
		return
	}

	result, err := orch.Process(r.Context(), agent.Request{
		Instruction: req.Instruction,
		Manifest:    req.Assets,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error(), h.logger)
		return
	}
	if !result.Success {
		writeJSON(w, http.StatusOK, projectResponse{
			Success:   false,
			Reasoning: result.Reasoning,
			Message:   result.Message,
		}, h.logger)
		return
	}

	clientID := clientIDFromContext(r.Context())
	now := time.Now().UTC()
	meta := &project.Metadata{
		ProjectID:       uuid.NewString(),
		SessionID:       req.SessionID,
		ClientID:        clientID,
		Name:            projectName(req.Name, req.Instruction),
		CreatedAt:       now,
		UpdatedAt:       now,
		LastInstruction: req.Instruction,
		Conversation: []project.Turn{
			{Role: "user", Content: req.Instruction, Timestamp: now},
			{
				Role:      "assistant",
				Content:   result.Message,
				Timestamp: now,
				Reasoning: result.Reasoning,
				Snapshot:  truncateRunes(result.Artifact, snapshotRunes),
			},
		},
	}
	if req.Assets != nil {
		meta.Assets = *req.Assets
	}

	files := map[string]string{artifactFile: result.Artifact}
	if err := h.projects.Save(r.Context(), meta, files, clientID); err != nil {
		h.logger.Error("project save failed", "project_id", meta.ProjectID, "error", err)
		writeError(w, http.StatusInternalServerError, "save_failed", "could not persist the project", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, projectResponse{
		Success:   true,
		ProjectID: meta.ProjectID,
		SessionID: meta.SessionID,
		Name:      meta.Name,
		HTML:      result.Artifact,
		Reasoning: result.Reasoning,
		Message:   result.Message,
		Stats:     result.Stats,
	}, h.logger)
}

func (h *projectHandler) edit(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "could not decode request body", h.logger)
		return
	}
	if req.ProjectID == "" {
		writeError(w, http.StatusBadRequest, "missing_project", "project_id is required", h.logger)
		return
	}
	if strings.TrimSpace(req.Instruction) == "" {
		writeError(w, http.StatusBadRequest, "missing_instruction", "instruction is required", h.logger)
		return
	}

	clientID := clientIDFromContext(r.Context())
	rec, err := h.projects.LoadWithConversation(r.Context(), req.ProjectID, clientID)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	prior, ok := rec.Files[artifactFile]
	if !ok || prior == "" || prior == project.BinarySentinel {
		writeError(w, http.StatusConflict, "no_artifact", "project has no editable watchface", h.logger)
		return
	}

	orch, err := h.orchestrator(r)
	if err != nil {
		h.writeProviderError(w, err)
		return
	}

	meta := rec.Metadata
	if req.Assets != nil {
		meta.Assets.Merge(req.Assets)
	}

	history := make([]prompt.Turn, 0, len(rec.Conversation))
	for _, turn := range rec.Conversation {
		history = append(history, prompt.Turn{Role: turn.Role, Content: turn.Content})
	}

	result, err := orch.Process(r.Context(), agent.Request{
		Instruction:   req.Instruction,
		PriorArtifact: prior,
		Manifest:      &meta.Assets,
		History:       history,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error(), h.logger)
		return
	}
	if !result.Success {
		// The project on disk is untouched; return the prior artifact.
		writeJSON(w, http.StatusOK, projectResponse{
			Success:   false,
			ProjectID: meta.ProjectID,
			HTML:      prior,
			Reasoning: result.Reasoning,
			Message:   result.Message,
		}, h.logger)
		return
	}

	now := time.Now().UTC()
	meta.EditCount++
	meta.LastInstruction = req.Instruction
	meta.UpdatedAt = now
	meta.Conversation = append(rec.Conversation,
		project.Turn{Role: "user", Content: req.Instruction, Timestamp: now},
		project.Turn{
			Role:      "assistant",
			Content:   result.Summary,
			Timestamp: now,
			Reasoning: result.Reasoning,
			Snapshot:  truncateRunes(result.Artifact, snapshotRunes),
		},
	)

	files := map[string]string{artifactFile: result.Artifact}
	if err := h.projects.Save(r.Context(), meta, files, clientID); err != nil {
		h.logger.Error("project save failed", "project_id", meta.ProjectID, "error", err)
		writeError(w, http.StatusInternalServerError, "save_failed", "could not persist the edit", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, projectResponse{
		Success:   true,
		ProjectID: meta.ProjectID,
		SessionID: meta.SessionID,
		Name:      meta.Name,
		HTML:      result.Artifact,
		Reasoning: result.Reasoning,
		Message:   result.Message,
		Diff:      result.Diff,
		Summary:   result.Summary,
		Stats:     result.Stats,
	}, h.logger)
}

type listResponse struct {
	Success  bool              `json:"success"`
	Projects []project.Summary `json:"projects"`
	Count    int               `json:"count"`
}

func (h *projectHandler) list(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.projects.List(r.Context(),
		r.URL.Query().Get("session_id"), clientIDFromContext(r.Context()))
	if err != nil {
		h.logger.Error("project list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "list_failed", "could not list projects", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{
		Success:  true,
		Projects: summaries,
		Count:    len(summaries),
	}, h.logger)
}

type getResponse struct {
	Success      bool              `json:"success"`
	Metadata     *project.Metadata `json:"metadata"`
	Files        map[string]string `json:"files"`
	Conversation []project.Turn    `json:"conversation_history"`
}

func (h *projectHandler) get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.projects.LoadWithConversation(r.Context(),
		r.PathValue("id"), clientIDFromContext(r.Context()))
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, getResponse{
		Success:      true,
		Metadata:     rec.Metadata,
		Files:        rec.Files,
		Conversation: rec.Conversation,
	}, h.logger)
}

func (h *projectHandler) delete(w http.ResponseWriter, r *http.Request) {
	err := h.projects.Delete(r.Context(), r.PathValue("id"), clientIDFromContext(r.Context()))
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true}, h.logger)
}

func (h *projectHandler) deleteAll(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.projects.DeleteAll(r.Context(),
		r.URL.Query().Get("session_id"), clientIDFromContext(r.Context()))
	if err != nil {
		h.logger.Error("bulk delete failed", "error", err)
		writeError(w, http.StatusInternalServerError, "delete_failed", "could not delete projects", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "deleted": deleted}, h.logger)
}

// writeStoreError maps store sentinels to HTTP statuses. Ownership failures
// stay 403: they are never softened into not-found.
func (h *projectHandler) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, project.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "project not found", h.logger)
	case errors.Is(err, project.ErrUnauthorized):
		writeError(w, http.StatusForbidden, "forbidden", "you do not own this project", h.logger)
	case errors.Is(err, project.ErrInvalidID):
		writeError(w, http.StatusBadRequest, "invalid_id", err.Error(), h.logger)
	default:
		h.logger.Error("project store error", "error", err)
		writeError(w, http.StatusInternalServerError, "storage_error", "project storage failed", h.logger)
	}
}

func (h *projectHandler) writeProviderError(w http.ResponseWriter, err error) {
	if errors.Is(err, agent.ErrNoAPIKey) {
		writeError(w, http.StatusBadRequest, "no_api_key",
			"no model api key configured; set one with POST /api/apikey", h.logger)
		return
	}
	h.logger.Error("model client unavailable", "error", err)
	writeError(w, http.StatusInternalServerError, "client_error", "could not initialize the model client", h.logger)
}

// projectName prefers the explicit name and otherwise derives one from the
// instruction's leading runes.
func projectName(explicit, instruction string) string {
	if explicit != "" {
		return explicit
	}
	return truncateRunes(strings.TrimSpace(instruction), nameRunes)
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
