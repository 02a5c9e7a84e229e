package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { writeSuccess(w, http.StatusOK, "ok", nil) })
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) { writeSuccess(w, http.StatusOK, "ready", nil) })
	r.Route("/v1", func(r chi.Router) {
		r.Get("/token", handler.getToken)
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Post("/projects", handler.startProject)
			r.Post("/projects/{projectID}/contributions", handler.contribute)
			r.Post("/projects/{projectID}/claims", handler.claimFunds)
			r.Post("/projects/{projectID}/repayments", handler.repayContributors)
		})
		r.Get("/projects/{projectID}", handler.getProject)
		r.Get("/projects/{projectID}/progress", handler.getProgress)
		r.Get("/projects/{projectID}/contributions/{contributor}", handler.getContribution)
	})
	return r
}
