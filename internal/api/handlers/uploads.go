package handlers

import (
	"net/http"
	"time"

	"github.com/rohits-web03/mediadrop/internal/models"
	"github.com/rohits-web03/mediadrop/internal/repositories"
	"github.com/rohits-web03/mediadrop/internal/utils"
)

const linkTTL = 15 * time.Minute

// ListUploads godoc
// @Summary Upload history
// @Description The signed-in user's uploads, or the global list when sign-in is not required.
// @Tags Uploads
// @Produce json
// @Success 200 {object} utils.Payload
// @Failure 401 {object} utils.Payload
// @Router /api/v1/uploads [get]
func (h *Handler) ListUploads(w http.ResponseWriter, r *http.Request) {
	records, ok := h.history(w, r)
	if !ok {
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Uploads retrieved successfully",
		Data:    records,
	})
}

// UploadLink godoc
// @Summary Generate a presigned download URL for a saved file
// @Description Only available when files are saved to object storage.
// @Tags Uploads
// @Produce json
// @Param id path string true "Upload id"
// @Success 200 {object} utils.Payload
// @Failure 404 {object} utils.Payload
// @Router /api/v1/uploads/{id}/link [get]
func (h *Handler) UploadLink(w http.ResponseWriter, r *http.Request) {
	if h.objects == nil {
		utils.ErrorResponse(w, http.StatusNotFound, "Download links are not available", nil)
		return
	}

	records, ok := h.history(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	var record *models.Upload
	for i := range records {
		if records[i].ID == id {
			record = &records[i]
			break
		}
	}
	if record == nil {
		utils.ErrorResponse(w, http.StatusNotFound, "Upload not found", nil)
		return
	}
	// records saved by other strategies have no object behind them
	if record.StorageKey == "" {
		utils.ErrorResponse(w, http.StatusNotFound, "File is not in object storage", nil)
		return
	}

	exists, err := h.objects.VerifyObjectExists(r.Context(), record.StorageKey)
	if err != nil {
		h.log.Error(r.Context(), "object lookup failed", "upload", id, "error", err)
		utils.ErrorResponse(w, http.StatusBadGateway, "Failed to look up file", nil)
		return
	}
	if !exists {
		utils.ErrorResponse(w, http.StatusNotFound, "File is no longer stored", nil)
		return
	}

	url, err := h.objects.GeneratePresignedGetURL(r.Context(), record.StorageKey, linkTTL)
	if err != nil {
		h.log.Error(r.Context(), "presign failed", "upload", id, "error", err)
		utils.ErrorResponse(w, http.StatusInternalServerError, "Failed to generate download URL", nil)
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Presigned download URL generated successfully",
		Data: map[string]any{
			"url":         url,
			"fileName":    record.FileName,
			"contentType": record.FileType,
			"expiresIn":   linkTTL.String(),
		},
	})
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) ([]models.Upload, bool) {
	ws, ok := h.current(w, r)
	if !ok {
		return nil, false
	}

	var (
		records []models.Upload
		err     error
	)
	if h.cfg.RequireAuth {
		records, err = ws.Session.Uploads(r.Context())
	} else {
		records, err = h.uploads.List(r.Context(), repositories.GlobalOwner)
	}
	if err != nil {
		h.writeError(w, r, err)
		return nil, false
	}
	return records, true
}
