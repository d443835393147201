package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rohits-web03/mediadrop/internal/api/services"
	"github.com/rohits-web03/mediadrop/internal/common"
	"github.com/rohits-web03/mediadrop/internal/utils"
)

type registerInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterUser godoc
// @Summary Create an account and sign in
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body registerInput true "New account"
// @Success 201 {object} utils.Payload
// @Failure 400 {object} utils.Payload
// @Failure 409 {object} utils.Payload "Email already registered"
// @Router /api/v1/auth/sign-up [post]
func (h *Handler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.current(w, r)
	if !ok {
		return
	}

	var input registerInput
	if err := utils.DecodeJSON(r, &input); err != nil {
		utils.ErrorResponse(w, http.StatusBadRequest, "Invalid input", nil)
		return
	}

	user, err := ws.Session.Register(r.Context(), input.Username, input.Email, input.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.JSONResponse(w, http.StatusCreated, utils.Payload{
		Success: true,
		Message: "User registered successfully",
		Data:    user,
	})
}

// LoginUser godoc
// @Summary Sign in with email and password
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body loginInput true "Credentials"
// @Success 200 {object} utils.Payload
// @Failure 401 {object} utils.Payload
// @Router /api/v1/auth/login [post]
func (h *Handler) LoginUser(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.current(w, r)
	if !ok {
		return
	}

	var input loginInput
	if err := utils.DecodeJSON(r, &input); err != nil {
		utils.ErrorResponse(w, http.StatusBadRequest, "Invalid input", nil)
		return
	}
	if input.Email == "" || input.Password == "" {
		utils.ErrorResponse(w, http.StatusBadRequest, "Invalid input", nil)
		return
	}

	user, err := ws.Session.Login(r.Context(), input.Email, input.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Login successful",
		Data:    user,
	})
}

// Logout godoc
// @Summary Sign out of this workspace
// @Tags Auth
// @Produce json
// @Success 200 {object} utils.Payload
// @Router /api/v1/auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.current(w, r)
	if !ok {
		return
	}
	if err := ws.Session.Logout(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Logged out successfully",
	})
}

// Me godoc
// @Summary Current session state and user
// @Tags Auth
// @Produce json
// @Success 200 {object} utils.Payload
// @Router /api/v1/auth/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.current(w, r)
	if !ok {
		return
	}
	state, user := ws.Session.State()
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Session retrieved",
		Data: map[string]any{
			"state":    state,
			"user":     user,
			"inFlight": ws.Session.InFlight(),
		},
	})
}

// HandleGoogleLogin godoc
// @Summary Start Google sign-in
// @Tags Auth
// @Param redirect query string false "login or register"
// @Success 307
// @Failure 501 {object} utils.Payload "Google sign-in not configured"
// @Router /api/v1/auth/google/login [get]
func (h *Handler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if h.oauth == nil {
		utils.ErrorResponse(w, http.StatusNotImplemented, "Google sign-in is not configured", nil)
		return
	}

	flow := r.URL.Query().Get("redirect")
	if flow != flowRegister {
		flow = flowLogin
	}

	state, nonce, err := GenerateState(map[string]string{"flow": flow})
	if err != nil {
		utils.ErrorResponse(w, http.StatusInternalServerError, "Failed to generate OAuth state", nil)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    nonce,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.oauth.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// HandleGoogleCallback godoc
// @Summary Finish Google sign-in and redirect to the frontend
// @Tags Auth
// @Param state query string true "OAuth state"
// @Param code query string true "Authorization code"
// @Success 307
// @Failure 400 {object} utils.Payload
// @Router /api/v1/auth/google/callback [get]
func (h *Handler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if h.oauth == nil {
		utils.ErrorResponse(w, http.StatusNotImplemented, "Google sign-in is not configured", nil)
		return
	}
	ws, ok := h.current(w, r)
	if !ok {
		return
	}

	var nonce string
	if c, err := r.Cookie(stateCookieName); err == nil {
		nonce = c.Value
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Value: "", Path: "/", MaxAge: -1})

	stateData, err := DecodeState(r.FormValue("state"), nonce)
	if err != nil {
		utils.ErrorResponse(w, http.StatusBadRequest, "Invalid OAuth state", nil)
		return
	}
	flow := stateData["flow"]

	token, err := h.oauth.Exchange(r.Context(), r.FormValue("code"))
	if err != nil {
		h.log.Warn(r.Context(), "google code exchange failed", "error", err)
		utils.ErrorResponse(w, http.StatusBadGateway, "Code exchange failed", nil)
		return
	}

	googleUser, err := services.FetchGoogleUser(r.Context(), h.oauth.Client(r.Context(), token), h.userInfoURL)
	if err != nil {
		h.log.Warn(r.Context(), "google user info failed", "error", err)
		utils.ErrorResponse(w, http.StatusBadGateway, "Failed to get user info", nil)
		return
	}

	_, err = ws.Session.LoginExternal(r.Context(), googleUser.Email, googleUser.Name, flow == flowRegister)
	switch {
	case errors.Is(err, common.ErrDuplicateEmail):
		http.Redirect(w, r, h.frontend("/login?error=user_already_exists"), http.StatusTemporaryRedirect)
		return
	case errors.Is(err, common.ErrInvalidCredentials):
		http.Redirect(w, r, h.frontend("/register?error=user_not_found"), http.StatusTemporaryRedirect)
		return
	case err != nil:
		h.writeError(w, r, err)
		return
	}

	redirectURL := h.frontend("/?status=success_login")
	if flow == flowRegister {
		redirectURL = h.frontend("/?status=success_register")
	}
	http.Redirect(w, r, redirectURL, http.StatusTemporaryRedirect)
}

func (h *Handler) frontend(path string) string {
	return strings.TrimRight(h.cfg.FrontendURL, "/") + path
}
