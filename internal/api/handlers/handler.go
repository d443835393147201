// Package handlers serves the mediadrop HTTP API. Every handler works on the
// caller's workspace, which the workspace middleware puts in the context.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rohits-web03/mediadrop/internal/api/middleware"
	"github.com/rohits-web03/mediadrop/internal/api/services"
	"github.com/rohits-web03/mediadrop/internal/common"
	"github.com/rohits-web03/mediadrop/internal/config"
	"github.com/rohits-web03/mediadrop/internal/logging"
	"github.com/rohits-web03/mediadrop/internal/models"
	"github.com/rohits-web03/mediadrop/internal/upload"
	"github.com/rohits-web03/mediadrop/internal/utils"
	"github.com/rohits-web03/mediadrop/internal/workspace"
	"golang.org/x/oauth2"
)

// UploadLister reads upload history.
type UploadLister interface {
	List(ctx context.Context, owner string) ([]models.Upload, error)
}

// Presigner hands out temporary download links for saved objects.
type Presigner interface {
	GeneratePresignedGetURL(ctx context.Context, key string, expires time.Duration) (string, error)
	VerifyObjectExists(ctx context.Context, key string) (bool, error)
}

type Options struct {
	Uploads UploadLister
	// Objects is nil unless files are saved to object storage.
	Objects     Presigner
	OAuth       *oauth2.Config
	UserInfoURL string
	Logger      logging.Logger
}

type Handler struct {
	cfg         config.Config
	uploads     UploadLister
	objects     Presigner
	oauth       *oauth2.Config
	userInfoURL string
	log         logging.Logger
}

func New(cfg config.Config, opts Options) *Handler {
	h := &Handler{
		cfg:         cfg,
		uploads:     opts.Uploads,
		objects:     opts.Objects,
		oauth:       opts.OAuth,
		userInfoURL: opts.UserInfoURL,
		log:         opts.Logger,
	}
	if h.userInfoURL == "" {
		h.userInfoURL = services.GoogleUserInfoURL
	}
	if h.log == nil {
		h.log = logging.Discard()
	}
	return h
}

func (h *Handler) current(w http.ResponseWriter, r *http.Request) (*workspace.Workspace, bool) {
	ws, ok := middleware.WorkspaceFrom(r.Context())
	if !ok {
		utils.ErrorResponse(w, http.StatusInternalServerError, "Workspace missing", nil)
	}
	return ws, ok
}

// writeError maps domain errors onto HTTP statuses.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := http.StatusInternalServerError, "Something went wrong, please try again"
	var data any

	switch {
	case errors.Is(err, common.ErrInvalidInput):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrEmptySelection):
		status, msg = http.StatusBadRequest, "Please select files first"
	case errors.Is(err, common.ErrUnsupportedMedia):
		status, msg = http.StatusUnsupportedMediaType, "Only image and video files are supported"
	case errors.Is(err, common.ErrNotAuthenticated):
		status, msg = http.StatusUnauthorized, "Please sign in first"
		data = map[string]string{"redirect": upload.DefaultLoginPath}
	case errors.Is(err, common.ErrInvalidCredentials):
		status, msg = http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, common.ErrDuplicateEmail):
		status, msg = http.StatusConflict, "User already exists with this email"
	case errors.Is(err, common.ErrOperationInProgress):
		status, msg = http.StatusConflict, "Another operation is in progress"
	case errors.Is(err, common.ErrSessionLoading):
		status, msg = http.StatusServiceUnavailable, "Session is still loading"
	case errors.Is(err, common.ErrNotFound):
		status, msg = http.StatusNotFound, "Not found"
	case errors.Is(err, common.ErrSaveFailed):
		status, msg = http.StatusBadGateway, "The files could not be saved"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status, msg = http.StatusRequestTimeout, "Request cancelled"
	}

	if status >= http.StatusInternalServerError {
		h.log.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	utils.ErrorResponse(w, status, msg, data)
}
