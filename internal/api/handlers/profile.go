package handlers

import (
	"net/http"

	"github.com/rohits-web03/mediadrop/internal/utils"
)

type profileInput struct {
	GameProfile string `json:"gameProfile"`
}

// GetProfile godoc
// @Summary Profile of the signed-in user with their uploads
// @Tags Profile
// @Produce json
// @Success 200 {object} utils.Payload
// @Failure 401 {object} utils.Payload
// @Router /api/v1/profile [get]
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.current(w, r)
	if !ok {
		return
	}

	user, err := ws.Session.RequireUser()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	uploads, err := ws.Session.Uploads(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Profile retrieved",
		Data: map[string]any{
			"user":    user,
			"uploads": uploads,
		},
	})
}

// UpdateProfile godoc
// @Summary Replace the game profile text
// @Tags Profile
// @Accept json
// @Produce json
// @Param body body profileInput true "Game profile"
// @Success 200 {object} utils.Payload
// @Failure 400 {object} utils.Payload
// @Failure 401 {object} utils.Payload
// @Router /api/v1/profile [put]
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.current(w, r)
	if !ok {
		return
	}

	var input profileInput
	if err := utils.DecodeJSON(r, &input); err != nil {
		utils.ErrorResponse(w, http.StatusBadRequest, "Invalid input", nil)
		return
	}

	user, err := ws.Session.UpdateProfile(r.Context(), input.GameProfile)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Profile updated",
		Data:    user,
	})
}
