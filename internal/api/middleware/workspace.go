package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rohits-web03/mediadrop/internal/config"
	"github.com/rohits-web03/mediadrop/internal/logging"
	"github.com/rohits-web03/mediadrop/internal/utils"
	"github.com/rohits-web03/mediadrop/internal/workspace"
)

type contextKey string

const workspaceKey contextKey = "workspace"

const (
	CookieName  = "token"
	TokenMaxAge = 30 * 24 * time.Hour
)

// Claims identify the workspace a client belongs to.
type Claims struct {
	WorkspaceID string `json:"workspaceId"`
	jwt.RegisteredClaims
}

// IssueToken signs a workspace token valid for TokenMaxAge.
func IssueToken(secret, workspaceID string, now time.Time) (string, error) {
	claims := &Claims{
		WorkspaceID: workspaceID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenMaxAge)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken returns the workspace id of a valid token.
func ParseToken(secret, tokenStr string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.WorkspaceID == "" {
		return "", errors.New("token carries no workspace")
	}
	return claims.WorkspaceID, nil
}

// Workspaces attaches the caller's workspace to the request context. A
// missing, expired or forged cookie gets a fresh workspace and a new cookie.
func Workspaces(reg *workspace.Registry, cfg config.Config, log logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			var id string
			if c, err := r.Cookie(CookieName); err == nil {
				if id, err = ParseToken(cfg.JWTSecret, c.Value); err != nil {
					log.Debug(r.Context(), "discarding workspace token", "error", err)
				}
			}

			if id == "" {
				id = reg.NewID()
				tokenStr, err := IssueToken(cfg.JWTSecret, id, time.Now())
				if err != nil {
					log.Error(r.Context(), "failed to sign workspace token", "error", err)
					utils.ErrorResponse(w, http.StatusInternalServerError, "Failed to create token", nil)
					return
				}
				http.SetCookie(w, workspaceCookie(cfg, tokenStr))
			}

			ws, err := reg.Resolve(r.Context(), id)
			if err != nil {
				log.Error(r.Context(), "failed to resolve workspace", "error", err)
				utils.ErrorResponse(w, http.StatusInternalServerError, "Workspace unavailable", nil)
				return
			}

			ctx := context.WithValue(r.Context(), workspaceKey, ws)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WorkspaceFrom returns the workspace stored by Workspaces.
func WorkspaceFrom(ctx context.Context) (*workspace.Workspace, bool) {
	ws, ok := ctx.Value(workspaceKey).(*workspace.Workspace)
	return ws, ok
}

func workspaceCookie(cfg config.Config, value string) *http.Cookie {
	isProd := cfg.IsProduction()

	// SameSite cookie policy
	sameSite := http.SameSiteLaxMode
	if isProd {
		sameSite = http.SameSiteNoneMode
	}

	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(TokenMaxAge.Seconds()),
		Secure:   isProd,
		HttpOnly: true,
		SameSite: sameSite,
	}
}
