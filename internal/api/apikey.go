package api

import (
	"encoding/json"
	"net/http"

	"github.com/faceforge/faceforge/internal/credential"
	"github.com/faceforge/faceforge/internal/log"
	"github.com/faceforge/faceforge/internal/project"
)

type keyHandler struct {
	logger      log.Logger
	credentials *credential.Store
}

type setKeyRequest struct {
	ClientID string `json:"client_id,omitempty"` // falls back to X-Client-ID
	APIKey   string `json:"api_key"`
}

type setKeyResponse struct {
	Success  bool   `json:"success"`
	ClientID string `json:"client_id"`
	Preview  string `json:"key_preview"`
}

// set stores or replaces a caller's model key. The body's client_id wins
// over the header so admins can provision keys for other clients.
func (h *keyHandler) set(w http.ResponseWriter, r *http.Request) {
	var req setKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "could not decode request body", h.logger)
		return
	}
	clientID := req.ClientID
	if clientID == "" {
		clientID = clientIDFromContext(r.Context())
	}
	if req.APIKey == "" {
		writeError(w, http.StatusBadRequest, "missing_key", "api_key is required", h.logger)
		return
	}

	if err := h.credentials.Set(r.Context(), clientID, req.APIKey); err != nil {
		h.logger.Error("api key set failed", "client_id", clientID, "error", err)
		writeError(w, http.StatusInternalServerError, "storage_error", "could not store the api key", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, setKeyResponse{
		Success:  true,
		ClientID: clientID,
		Preview:  credential.Mask(req.APIKey),
	}, h.logger)
}

// status reports key presence without exposing key material.
func (h *keyHandler) status(w http.ResponseWriter, r *http.Request) {
	clientID := project.NormalizeClient(r.PathValue("client_id"))

	st, err := h.credentials.Has(r.Context(), clientID)
	if err != nil {
		h.logger.Error("api key status failed", "client_id", clientID, "error", err)
		writeError(w, http.StatusInternalServerError, "storage_error", "could not check the api key", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, st, h.logger)
}

func (h *keyHandler) delete(w http.ResponseWriter, r *http.Request) {
	clientID := project.NormalizeClient(r.PathValue("client_id"))

	removed, err := h.credentials.Delete(r.Context(), clientID)
	if err != nil {
		h.logger.Error("api key delete failed", "client_id", clientID, "error", err)
		writeError(w, http.StatusInternalServerError, "storage_error", "could not delete the api key", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"removed": removed,
	}, h.logger)
}

func (h *keyHandler) stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.credentials.Stats(r.Context())
	if err != nil {
		h.logger.Error("api key stats failed", "error", err)
		writeError(w, http.StatusInternalServerError, "storage_error", "could not read key stats", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, st, h.logger)
}
