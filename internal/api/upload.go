package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/faceforge/faceforge/internal/asset"
	"github.com/faceforge/faceforge/internal/log"
	"github.com/faceforge/faceforge/internal/project"
)

// maxUploadBytes caps a single asset upload.
const maxUploadBytes = 32 << 20

type uploadHandler struct {
	logger   log.Logger
	projects *project.Store
}

type uploadResponse struct {
	Success        bool       `json:"success"`
	Role           asset.Role `json:"role"`
	Filename       string     `json:"filename"`
	StoredFilename string     `json:"stored_filename"`
	FileSize       int64      `json:"file_size"`
	MIMEType       string     `json:"mime_type,omitempty"`
}

// upload receives one multipart asset: form fields "role", "session_id" and
// file field "file". The stored name is derived from the role and a
// timestamp so repeated uploads for the same role never collide.
func (h *uploadHandler) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_form", "could not parse multipart form", h.logger)
		return
	}

	role, err := asset.ParseRole(r.FormValue("role"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_role", err.Error(), h.logger)
		return
	}
	sessionID := r.FormValue("session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "missing_session", "session_id is required", h.logger)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing_file", "file field is required", h.logger)
		return
	}
	defer file.Close()

	if err := asset.ValidateFilename(header.Filename); err != nil {
		if errors.Is(err, asset.ErrUnsupportedFormat) || errors.Is(err, asset.ErrEmptyFilename) {
			writeError(w, http.StatusBadRequest, "unsupported_format", err.Error(), h.logger)
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_filename", err.Error(), h.logger)
		return
	}

	stored := asset.StoredName(role, header.Filename, time.Now())
	size, err := h.projects.SaveUpload(r.Context(), sessionID, stored, file)
	if err != nil {
		if errors.Is(err, project.ErrInvalidID) {
			writeError(w, http.StatusBadRequest, "invalid_session", err.Error(), h.logger)
			return
		}
		h.logger.Error("asset upload failed", "session_id", sessionID, "role", role, "error", err)
		writeError(w, http.StatusInternalServerError, "upload_failed", "could not store the asset", h.logger)
		return
	}

	h.logger.Info("asset uploaded",
		"session_id", sessionID,
		"role", role,
		"stored", stored,
		"bytes", size)
	writeJSON(w, http.StatusOK, uploadResponse{
		Success:        true,
		Role:           role,
		Filename:       header.Filename,
		StoredFilename: stored,
		FileSize:       size,
		MIMEType:       header.Header.Get("Content-Type"),
	}, h.logger)
}
