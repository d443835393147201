package api

import (
	"context"
	"fmt"
	"net/http"

	_ "github.com/rohits-web03/mediadrop/docs"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/rohits-web03/mediadrop/internal/api/handlers"
	"github.com/rohits-web03/mediadrop/internal/api/middleware"
	"github.com/rohits-web03/mediadrop/internal/config"
	"github.com/rohits-web03/mediadrop/internal/logging"
	"github.com/rohits-web03/mediadrop/internal/workspace"
	"github.com/rs/cors"
)

func SetupRouter(cfg config.Config, reg *workspace.Registry, h *handlers.Handler, log logging.Logger) http.Handler {
	mainMux := http.NewServeMux()
	c := cors.New(cfg.CorsConfig)

	// ---------- PUBLIC ROUTES ----------
	mainMux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})

	mainMux.HandleFunc("/docs/", httpSwagger.WrapHandler)

	// ---------- WORKSPACE ROUTES ----------
	authMux := http.NewServeMux()
	authMux.HandleFunc("POST /sign-up", h.RegisterUser)
	authMux.HandleFunc("POST /login", h.LoginUser)
	authMux.HandleFunc("POST /logout", h.Logout)
	authMux.HandleFunc("GET /me", h.Me)
	authMux.HandleFunc("GET /google/login", h.HandleGoogleLogin)
	authMux.HandleFunc("GET /google/callback", h.HandleGoogleCallback)

	sessionMux := http.NewServeMux()
	sessionMux.HandleFunc("GET /{$}", h.GetSession)
	sessionMux.HandleFunc("POST /files", h.SelectFiles)
	sessionMux.HandleFunc("PUT /name", h.SetCustomName)
	sessionMux.HandleFunc("POST /save", h.SaveFiles)
	sessionMux.HandleFunc("POST /reset", h.ResetSession)

	apiMux := http.NewServeMux()
	apiMux.Handle("/auth/", http.StripPrefix("/auth", authMux))
	apiMux.HandleFunc("GET /session", h.GetSession)
	apiMux.Handle("/session/", http.StripPrefix("/session", sessionMux))
	apiMux.HandleFunc("GET /uploads", h.ListUploads)
	apiMux.HandleFunc("GET /uploads/{id}/link", h.UploadLink)
	apiMux.HandleFunc("GET /profile", h.GetProfile)
	apiMux.HandleFunc("PUT /profile", h.UpdateProfile)
	apiMux.HandleFunc("GET /notifications", h.Notifications)
	apiMux.HandleFunc("GET /downloads/{id}", h.Download)

	mainMux.Handle("/api/v1/",
		http.StripPrefix(
			"/api/v1",
			middleware.Workspaces(reg, cfg, log)(apiMux),
		),
	)

	log.Info(context.Background(), "router initialized")
	handler := c.Handler(mainMux)
	handler = middleware.Logger(log)(handler)
	return handler
}
