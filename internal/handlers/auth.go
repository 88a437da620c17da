package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/nkiryanov/taledynamic/internal/apperrors"
	"github.com/nkiryanov/taledynamic/internal/handlers/render"
	"github.com/nkiryanov/taledynamic/internal/handlers/userctx"
	"github.com/nkiryanov/taledynamic/internal/logger"
	"github.com/nkiryanov/taledynamic/internal/models"
	"github.com/nkiryanov/taledynamic/internal/service/auth"
)

type authResponse struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	JwtToken     string    `json:"jwtToken"`
	JwtExpiresAt time.Time `json:"jwtExpiresAt"`

	// Same value as the cookie, for clients without cookie jar
	RefreshToken string `json:"refreshToken"`
}

func newAuthResponse(result models.AuthResult) authResponse {
	return authResponse{
		ID:           result.User.ID,
		Email:        result.User.Email,
		JwtToken:     result.Access.Value,
		JwtExpiresAt: result.Access.ExpiresAt,
		RefreshToken: result.Refresh.Value,
	}
}

func handleAuthenticate(authService authService, l logger.Logger) http.Handler {
	type request struct {
		Email      string `json:"email" validate:"required"`
		Password   string `json:"password" validate:"required"`
		Remembered bool   `json:"remembered"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		result, err := authService.Authenticate(r.Context(), auth.AuthenticateRequest{
			Email:    data.Email,
			Password: data.Password,
			IP:       clientIP(r),
		})
		if err != nil {
			renderError(w, r, err, l)
			return
		}

		authService.SetAuth(w, result, data.Remembered)
		render.JSON(w, newAuthResponse(result))
	})
}

// Refresh token is read from cookie first, body is a fallback for non-browser clients
func readRefresh(authService authService, r *http.Request) (string, error) {
	type request struct {
		Token string `json:"token"`
	}

	token, err := authService.ReadRefresh(r)
	if err == nil {
		return token, nil
	}

	data, decodeErr := decodeOptional[request](r)
	if decodeErr != nil {
		return "", decodeErr
	}
	if data.Token == "" {
		return "", apperrors.ErrRefreshTokenNotFound
	}
	return data.Token, nil
}

func handleRefresh(authService authService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := readRefresh(authService, r)
		if err != nil {
			renderError(w, r, err, l)
			return
		}

		result, err := authService.RefreshToken(r.Context(), token, clientIP(r))
		if err != nil {
			if errors.Is(err, apperrors.ErrRefreshTokenNotFound) {
				l.Info("Refresh rejected", "ip", clientIP(r), "error", err)
				authService.ClearAuth(w)
			}
			renderError(w, r, err, l)
			return
		}

		authService.SetAuth(w, result, authService.IsRemembered(r))
		render.JSON(w, newAuthResponse(result))
	})
}

func handleRevoke(authService authService, l logger.Logger) http.Handler {
	type response struct {
		Message string `json:"message"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		token, err := readRefresh(authService, r)
		if err != nil {
			renderError(w, r, err, l)
			return
		}

		err = authService.RevokeToken(r.Context(), auth.RevokeRequest{Token: token, IP: clientIP(r), UserID: user.ID})
		if err != nil {
			renderError(w, r, err, l)
			return
		}

		authService.ClearAuth(w)
		render.JSON(w, response{Message: "Token revoked"})
	})
}

// decodeOptional decodes JSON body into T, empty body gives zero value
func decodeOptional[T any](r *http.Request) (T, error) {
	var value T
	if r.Body == nil {
		return value, nil
	}

	err := json.NewDecoder(r.Body).Decode(&value)
	if errors.Is(err, io.EOF) {
		return value, nil
	}
	if err != nil {
		return value, apperrors.NewValidationError(map[string]string{"body": "Failed to parse JSON"})
	}
	return value, nil
}
