package handlers

import (
	"mime"
	"net/http"
	"strconv"

	"github.com/rohits-web03/mediadrop/internal/utils"
)

// Notifications godoc
// @Summary Drain pending notifications
// @Description Each notification is returned once. A redirect field names the page the client should open.
// @Tags Notifications
// @Produce json
// @Success 200 {object} utils.Payload
// @Router /api/v1/notifications [get]
func (h *Handler) Notifications(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.current(w, r)
	if !ok {
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Notifications retrieved",
		Data:    ws.Inbox.Drain(),
	})
}

// Download godoc
// @Summary Fetch a file staged by the download save strategy
// @Description The file is removed from the workspace once fetched.
// @Tags Downloads
// @Produce octet-stream
// @Param id path string true "Upload id"
// @Success 200 {file} binary
// @Failure 404 {object} utils.Payload
// @Router /api/v1/downloads/{id} [get]
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.current(w, r)
	if !ok {
		return
	}

	d, err := ws.Outbox.Take(r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", d.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(d.Content)))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": d.Name}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(d.Content)
}
