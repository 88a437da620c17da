package handlers

import (
	"errors"
	"net/http"

	"github.com/nkiryanov/taledynamic/internal/apperrors"
	"github.com/nkiryanov/taledynamic/internal/handlers/render"
	"github.com/nkiryanov/taledynamic/internal/logger"
)

// renderError maps service error to response
// Unknown errors are logged and hidden behind generic message
func renderError(w http.ResponseWriter, r *http.Request, err error, l logger.Logger) {
	var validationErr *apperrors.ValidationError

	switch {
	case errors.As(err, &validationErr):
		render.ValidationFailed(w, validationErr.Fields)
	case errors.Is(err, apperrors.ErrBadRequest):
		render.ServiceError(w, "Bad request", http.StatusBadRequest)
	case errors.Is(err, apperrors.ErrRefreshTokenNotFound):
		render.ServiceError(w, "Refresh token not found", http.StatusUnauthorized)
	case errors.Is(err, apperrors.ErrUserNotFound):
		render.ServiceError(w, "User not found", http.StatusNotFound)
	case errors.Is(err, apperrors.ErrWorkspaceNotFound):
		render.ServiceError(w, "Workspace not found", http.StatusNotFound)
	case errors.Is(err, apperrors.ErrUserAlreadyExists):
		render.ServiceError(w, "User already exists", http.StatusConflict)
	case errors.Is(err, apperrors.ErrForbidden):
		render.ServiceError(w, "Forbidden", http.StatusForbidden)
	default:
		l.Error("Request failed", "method", r.Method, "uri", r.RequestURI, "error", err)
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
	}
}
