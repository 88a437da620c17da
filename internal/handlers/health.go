package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/nkiryanov/taledynamic/internal/handlers/render"
	"github.com/nkiryanov/taledynamic/internal/logger"
)

type statusResponse struct {
	Status  string `json:"status"`
	Details string `json:"details,omitempty"`
}

// Liveness: process is up and serving
func handleHealth() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		render.JSON(w, statusResponse{Status: "ok"})
	})
}

// Readiness: dependencies are reachable
func handleReady(healthService healthService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()

		if err := healthService.Ready(ctx); err != nil {
			l.Warn("Service is not ready", "error", err)
			render.JSONWithStatus(w, statusResponse{Status: "not_ready", Details: err.Error()}, http.StatusServiceUnavailable)
			return
		}

		render.JSON(w, statusResponse{Status: "ready"})
	})
}
