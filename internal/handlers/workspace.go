package handlers

import (
	"net/http"
	"time"

	"github.com/nkiryanov/taledynamic/internal/handlers/render"
	"github.com/nkiryanov/taledynamic/internal/handlers/userctx"
	"github.com/nkiryanov/taledynamic/internal/logger"
	"github.com/nkiryanov/taledynamic/internal/models"
	"github.com/nkiryanov/taledynamic/internal/service/workspace"
)

type workspaceResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

func newWorkspaceResponse(w models.Workspace) workspaceResponse {
	return workspaceResponse{ID: w.ID, Name: w.Name, CreatedAt: w.CreatedAt}
}

func handleCreateWorkspace(workspaceService workspaceService, l logger.Logger) http.Handler {
	type request struct {
		Name string `json:"name" validate:"required,max=255"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		current, _ := userctx.FromContext(r.Context())

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		created, err := workspaceService.CreateWorkspace(r.Context(), workspace.CreateWorkspaceRequest{UserID: current.ID, Name: data.Name})
		if err != nil {
			renderError(w, r, err, l)
			return
		}

		render.JSONWithStatus(w, newWorkspaceResponse(created), http.StatusCreated)
	})
}

func handleListWorkspaces(workspaceService workspaceService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		current, _ := userctx.FromContext(r.Context())

		workspaces, err := workspaceService.ListWorkspaces(r.Context(), current.ID)
		if err != nil {
			renderError(w, r, err, l)
			return
		}

		response := make([]workspaceResponse, 0, len(workspaces))
		for _, ws := range workspaces {
			response = append(response, newWorkspaceResponse(ws))
		}
		render.JSON(w, response)
	})
}

func handleGetWorkspace(workspaceService workspaceService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		current, _ := userctx.FromContext(r.Context())
		id, err := pathID(r)
		if err != nil {
			renderError(w, r, err, l)
			return
		}

		ws, err := workspaceService.GetWorkspaceByID(r.Context(), workspace.GetWorkspaceByIDRequest{ID: id, UserID: current.ID})
		if err != nil {
			renderError(w, r, err, l)
			return
		}

		render.JSON(w, newWorkspaceResponse(ws))
	})
}

func handleDeleteWorkspace(workspaceService workspaceService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		current, _ := userctx.FromContext(r.Context())
		id, err := pathID(r)
		if err != nil {
			renderError(w, r, err, l)
			return
		}

		err = workspaceService.DeleteWorkspace(r.Context(), workspace.GetWorkspaceByIDRequest{ID: id, UserID: current.ID})
		if err != nil {
			renderError(w, r, err, l)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	})
}
