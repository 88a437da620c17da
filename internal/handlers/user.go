package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/nkiryanov/taledynamic/internal/apperrors"
	"github.com/nkiryanov/taledynamic/internal/handlers/render"
	"github.com/nkiryanov/taledynamic/internal/handlers/userctx"
	"github.com/nkiryanov/taledynamic/internal/logger"
	"github.com/nkiryanov/taledynamic/internal/models"
	"github.com/nkiryanov/taledynamic/internal/service/user"
)

type userResponse struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

func newUserResponse(u models.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt}
}

// pathID reads positive int64 from {id} path segment
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError(map[string]string{"id": "Value must be a positive integer"})
	}
	return id, nil
}

func handleCreateUser(userService userService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[user.CreateUserRequest](w, r)
		if err != nil {
			return
		}

		created, err := userService.CreateUser(r.Context(), data)
		if err != nil {
			renderError(w, r, err, l)
			return
		}

		render.JSONWithStatus(w, newUserResponse(created), http.StatusCreated)
	})
}

func handleIsEmailUsed(userService userService, l logger.Logger) http.Handler {
	type request struct {
		Email string `json:"email" validate:"required,email"`
	}
	type response struct {
		Used bool `json:"used"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		used, err := userService.IsEmailUsed(r.Context(), data.Email)
		if err != nil {
			renderError(w, r, err, l)
			return
		}

		render.JSON(w, response{Used: used})
	})
}

func handleListUsers(userService userService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		users, err := userService.GetUsers(r.Context())
		if err != nil {
			renderError(w, r, err, l)
			return
		}

		response := make([]userResponse, 0, len(users))
		for _, u := range users {
			response = append(response, newUserResponse(u))
		}
		render.JSON(w, response)
	})
}

func handleUserMe() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, _ := userctx.FromContext(r.Context())
		render.JSON(w, newUserResponse(u))
	})
}

func handleGetUser(userService userService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			renderError(w, r, err, l)
			return
		}

		u, err := userService.GetUserByID(r.Context(), id)
		if err != nil {
			renderError(w, r, err, l)
			return
		}

		render.JSON(w, newUserResponse(u))
	})
}

// Users may change or delete only themselves
func requireSelf(r *http.Request, id int64) error {
	current, ok := userctx.FromContext(r.Context())
	if !ok || current.ID != id {
		return apperrors.ErrForbidden
	}
	return nil
}

// User gets new ID on update, so response carries access token for it.
// Refresh cookie keeps working: tokens are moved to the new user.
func handleUpdateUser(userService userService, authService authService, l logger.Logger) http.Handler {
	type request struct {
		Email           string `json:"email" validate:"omitempty,email"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirmPassword" validate:"required_with=Password,eqfield=Password"`
		CurrentPassword string `json:"currentPassword" validate:"required_with=Password"`
	}
	type response struct {
		userResponse
		JwtToken     string    `json:"jwtToken"`
		JwtExpiresAt time.Time `json:"jwtExpiresAt"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			renderError(w, r, err, l)
			return
		}
		if err := requireSelf(r, id); err != nil {
			renderError(w, r, err, l)
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		updated, err := userService.UpdateUser(r.Context(), user.UpdateUserRequest{
			ID:              id,
			Email:           data.Email,
			Password:        data.Password,
			ConfirmPassword: data.ConfirmPassword,
			CurrentPassword: data.CurrentPassword,
		})
		if err != nil {
			renderError(w, r, err, l)
			return
		}

		access, err := authService.IssueAccess(updated)
		if err != nil {
			renderError(w, r, err, l)
			return
		}

		authService.SetAuth(w, models.AuthResult{User: updated, Access: access}, false)
		render.JSON(w, response{
			userResponse: newUserResponse(updated),
			JwtToken:     access.Value,
			JwtExpiresAt: access.ExpiresAt,
		})
	})
}

func handleDeleteUser(userService userService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			renderError(w, r, err, l)
			return
		}
		if err := requireSelf(r, id); err != nil {
			renderError(w, r, err, l)
			return
		}

		if err := userService.DeleteUser(r.Context(), id); err != nil {
			renderError(w, r, err, l)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	})
}
