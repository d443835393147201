package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/rohits-web03/mediadrop/internal/common"
	"github.com/rohits-web03/mediadrop/internal/models"
	"github.com/rohits-web03/mediadrop/internal/utils"
)

// multipart parts above this size spill to temporary files
const multipartMemory = 32 << 20

type customNameInput struct {
	CustomName string `json:"customName"`
}

// GetSession godoc
// @Summary Current upload selection
// @Description Returns the state, the selected files with preview names, and the custom name.
// @Tags Session
// @Produce json
// @Success 200 {object} utils.Payload
// @Router /api/v1/session [get]
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.current(w, r)
	if !ok {
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Session retrieved",
		Data:    ws.Uploads.Snapshot(),
	})
}

// SelectFiles godoc
// @Summary Add files to the selection
// @Description Non image/video files are rejected; the accepted ones of the batch are still added.
// @Tags Session
// @Accept multipart/form-data
// @Produce json
// @Param files formData file true "Files to select" style(form) explode(true)
// @Success 200 {object} utils.Payload
// @Failure 400 {object} utils.Payload
// @Failure 413 {object} utils.Payload
// @Failure 415 {object} utils.Payload
// @Router /api/v1/session/files [post]
func (h *Handler) SelectFiles(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.current(w, r)
	if !ok {
		return
	}

	if h.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.ErrorResponse(w, http.StatusRequestEntityTooLarge, "Upload exceeds the size limit", nil)
			return
		}
		utils.ErrorResponse(w, http.StatusBadRequest, "Invalid file upload form", nil)
		return
	}
	defer r.MultipartForm.RemoveAll()

	formFiles := r.MultipartForm.File["files"]
	handles := make([]models.FileHandle, 0, len(formFiles))
	for _, fh := range formFiles {
		src, err := fh.Open()
		if err != nil {
			utils.ErrorResponse(w, http.StatusBadRequest, "Failed to read "+fh.Filename, nil)
			return
		}
		content, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			utils.ErrorResponse(w, http.StatusBadRequest, "Failed to read "+fh.Filename, nil)
			return
		}
		handles = append(handles, models.FileHandle{
			Name:    fh.Filename,
			Type:    fh.Header.Get("Content-Type"),
			Size:    fh.Size,
			Content: content,
		})
	}

	accepted, err := ws.Uploads.Select(r.Context(), handles)
	if err != nil && !(errors.Is(err, common.ErrUnsupportedMedia) && accepted > 0) {
		h.writeError(w, r, err)
		return
	}

	msg := "Files selected"
	if err != nil {
		msg = "Some files were rejected: only image and video files are supported"
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: msg,
		Data: map[string]any{
			"accepted": accepted,
			"rejected": len(handles) - accepted,
			"session":  ws.Uploads.Snapshot(),
		},
	})
}

// SetCustomName godoc
// @Summary Set the rename template
// @Description An empty name keeps the original file names.
// @Tags Session
// @Accept json
// @Produce json
// @Param body body customNameInput true "Template"
// @Success 200 {object} utils.Payload
// @Failure 409 {object} utils.Payload "Save in progress"
// @Router /api/v1/session/name [put]
func (h *Handler) SetCustomName(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.current(w, r)
	if !ok {
		return
	}

	var input customNameInput
	if err := utils.DecodeJSON(r, &input); err != nil {
		utils.ErrorResponse(w, http.StatusBadRequest, "Invalid input", nil)
		return
	}
	if err := ws.Uploads.SetCustomName(r.Context(), input.CustomName); err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Custom name updated",
		Data:    ws.Uploads.Snapshot(),
	})
}

// SaveFiles godoc
// @Summary Save the selection
// @Description Saves every selected file and records it in the upload history. Nothing is recorded if any file fails.
// @Tags Session
// @Produce json
// @Success 200 {object} utils.Payload
// @Failure 400 {object} utils.Payload "Nothing selected"
// @Failure 401 {object} utils.Payload "Sign in required; data.redirect names the login page"
// @Failure 502 {object} utils.Payload "Save failed"
// @Router /api/v1/session/save [post]
func (h *Handler) SaveFiles(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.current(w, r)
	if !ok {
		return
	}

	records, err := ws.Uploads.Save(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Files saved successfully",
		Data: map[string]any{
			"uploads":   records,
			"downloads": ws.Outbox.Pending(),
		},
	})
}

// ResetSession godoc
// @Summary Clear the selection and custom name
// @Tags Session
// @Produce json
// @Success 200 {object} utils.Payload
// @Router /api/v1/session/reset [post]
func (h *Handler) ResetSession(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.current(w, r)
	if !ok {
		return
	}
	ws.Uploads.Reset(r.Context())
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Session reset",
		Data:    ws.Uploads.Snapshot(),
	})
}
